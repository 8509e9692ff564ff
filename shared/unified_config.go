package shared

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultListingsBaseURL = "https://pro-api.coinmarketcap.com/v1"
	DefaultAPIKeyHeader    = "X-CMC_PRO_API_KEY"
	DefaultServiceName     = "ksrcrypto-backend"
)

// UnifiedConfiguration holds all configuration parameters for the entire application
type UnifiedConfiguration struct {
	Server   ServerConfig   `json:"server"`
	Service  ServiceConfig  `json:"service"`
	Database DatabaseConfig `json:"database"`
	Session  SessionConfig  `json:"session"`
	Chart    ChartConfig    `json:"chart"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	Port                string        `json:"port"`
	MetricsReportPeriod time.Duration `json:"metrics_report_period"`
}

// ServiceConfig holds the upstream listings API configuration.
// APIKey is never serialized.
type ServiceConfig struct {
	BaseURL            string        `json:"base_url"`
	APIKey             string        `json:"-"`
	APIKeyHeader       string        `json:"api_key_header"`
	HTTPRequestTimeout time.Duration `json:"http_timeout"`
	// MinRequestInterval spaces upstream calls; zero disables pacing
	MinRequestInterval time.Duration `json:"min_request_interval"`
}

// DatabaseConfig holds database connection configuration. An empty URL disables the database.
type DatabaseConfig struct {
	URL             string        `json:"-"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	PingTimeout     time.Duration `json:"ping_timeout"`
	// PriceRefreshInterval is how often held symbols are re-quoted
	PriceRefreshInterval time.Duration `json:"price_refresh_interval"`
}

// SessionConfig holds the in-memory session store configuration
type SessionConfig struct {
	TTL             time.Duration `json:"ttl"`
	MaxSessions     int           `json:"max_sessions"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

// ChartConfig holds the synthetic chart configuration
type ChartConfig struct {
	LoadDelay time.Duration `json:"load_delay"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string `json:"level"`
	Format      string `json:"format"`
	ServiceName string `json:"service_name"`
}

// NewDefaultUnifiedConfiguration returns production-ready default configuration
func NewDefaultUnifiedConfiguration() *UnifiedConfiguration {
	return &UnifiedConfiguration{
		Server: ServerConfig{
			Port:                "8080",
			MetricsReportPeriod: 15 * time.Minute,
		},
		Service: ServiceConfig{
			BaseURL:            DefaultListingsBaseURL,
			APIKeyHeader:       DefaultAPIKeyHeader,
			HTTPRequestTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:         10,
			MaxIdleConns:         2,
			ConnMaxLifetime:      5 * time.Minute,
			ConnMaxIdleTime:      5 * time.Minute,
			PingTimeout:          5 * time.Second,
			PriceRefreshInterval: 10 * time.Minute,
		},
		Session: SessionConfig{
			TTL:             24 * time.Hour,
			MaxSessions:     10000,
			CleanupInterval: 15 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: DefaultServiceName,
		},
	}
}

// ValidateAndApplyDefaults validates configuration and applies defaults for invalid values
func (c *UnifiedConfiguration) ValidateAndApplyDefaults() {
	logger := logrus.WithField("component", "UnifiedConfiguration")
	defaults := NewDefaultUnifiedConfiguration()

	if c.Server.Port == "" {
		c.Server.Port = defaults.Server.Port
		logger.Debug("Applied default Server.Port")
	}
	if c.Server.MetricsReportPeriod <= 0 {
		c.Server.MetricsReportPeriod = defaults.Server.MetricsReportPeriod
		logger.Debug("Applied default Server.MetricsReportPeriod")
	}

	if c.Service.BaseURL == "" {
		c.Service.BaseURL = defaults.Service.BaseURL
		logger.Debug("Applied default Service.BaseURL")
	}
	if c.Service.APIKeyHeader == "" {
		c.Service.APIKeyHeader = defaults.Service.APIKeyHeader
		logger.Debug("Applied default Service.APIKeyHeader")
	}
	if c.Service.MinRequestInterval < 0 {
		c.Service.MinRequestInterval = 0
		logger.Debug("Clamped negative Service.MinRequestInterval to zero")
	}
	if c.Service.HTTPRequestTimeout <= 0 {
		c.Service.HTTPRequestTimeout = defaults.Service.HTTPRequestTimeout
		logger.Debug("Applied default Service.HTTPRequestTimeout")
	}

	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
		logger.Debug("Applied default Database.MaxOpenConns")
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
		logger.Debug("Applied default Database.MaxIdleConns")
	}
	if c.Database.ConnMaxLifetime <= 0 {
		c.Database.ConnMaxLifetime = defaults.Database.ConnMaxLifetime
		logger.Debug("Applied default Database.ConnMaxLifetime")
	}
	if c.Database.ConnMaxIdleTime <= 0 {
		c.Database.ConnMaxIdleTime = defaults.Database.ConnMaxIdleTime
		logger.Debug("Applied default Database.ConnMaxIdleTime")
	}
	if c.Database.PingTimeout <= 0 {
		c.Database.PingTimeout = defaults.Database.PingTimeout
		logger.Debug("Applied default Database.PingTimeout")
	}
	if c.Database.PriceRefreshInterval <= 0 {
		c.Database.PriceRefreshInterval = defaults.Database.PriceRefreshInterval
		logger.Debug("Applied default Database.PriceRefreshInterval")
	}

	if c.Session.TTL <= 0 {
		c.Session.TTL = defaults.Session.TTL
		logger.Debug("Applied default Session.TTL")
	}
	if c.Session.MaxSessions <= 0 {
		c.Session.MaxSessions = defaults.Session.MaxSessions
		logger.Debug("Applied default Session.MaxSessions")
	}
	if c.Session.CleanupInterval <= 0 {
		c.Session.CleanupInterval = defaults.Session.CleanupInterval
		logger.Debug("Applied default Session.CleanupInterval")
	}

	if c.Chart.LoadDelay < 0 {
		c.Chart.LoadDelay = 0
		logger.Debug("Clamped negative Chart.LoadDelay to zero")
	}

	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
		logger.Debug("Applied default Logging.Level")
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Logging.Format
		logger.Debug("Applied default Logging.Format")
	}
	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = defaults.Logging.ServiceName
		logger.Debug("Applied default Logging.ServiceName")
	}
}

// ToJSON serializes the configuration to JSON. Secrets are omitted.
func (c *UnifiedConfiguration) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// LoadFromJSON deserializes configuration from JSON
func (c *UnifiedConfiguration) LoadFromJSON(jsonData []byte) error {
	if err := json.Unmarshal(jsonData, c); err != nil {
		return fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	c.ValidateAndApplyDefaults()
	return nil
}
