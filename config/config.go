package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/ksrcrypto/crypto-backend/shared"
	"github.com/sirupsen/logrus"
)

// Config holds the raw environment values. Credentials only ever come from
// the environment or a local .env file.
type Config struct {
	ServerPort           string
	DatabaseURL          string
	ListingsAPIKey       string
	ListingsBaseURL      string
	HTTPTimeoutSeconds   string
	SessionTTLHours      string
	ChartLoadDelayMillis string
	MetricsReportMinutes string
	RefreshMinutes       string
	MinIntervalMillis    string
	LogLevel             string
	LogFormat            string
}

// LoadConfig reads .env (if present) and the process environment
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file loaded, using system environment variables")
	}

	return &Config{
		ServerPort:           getEnv("SERVER_PORT", "8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		ListingsAPIKey:       getEnv("CMC_API_KEY", ""),
		ListingsBaseURL:      getEnv("CMC_BASE_URL", shared.DefaultListingsBaseURL),
		HTTPTimeoutSeconds:   getEnv("HTTP_TIMEOUT_SECONDS", "10"),
		SessionTTLHours:      getEnv("SESSION_TTL_HOURS", "24"),
		ChartLoadDelayMillis: getEnv("CHART_LOAD_DELAY_MS", "0"),
		MetricsReportMinutes: getEnv("METRICS_REPORT_MINUTES", "15"),
		RefreshMinutes:       getEnv("PORTFOLIO_REFRESH_MINUTES", "10"),
		MinIntervalMillis:    getEnv("CMC_MIN_INTERVAL_MS", "0"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "json"),
	}
}

// GetHTTPTimeout returns the upstream request timeout
func (c *Config) GetHTTPTimeout() time.Duration {
	return parseDuration("HTTP_TIMEOUT_SECONDS", c.HTTPTimeoutSeconds, time.Second, 10*time.Second)
}

// GetSessionTTL returns the session lifetime
func (c *Config) GetSessionTTL() time.Duration {
	return parseDuration("SESSION_TTL_HOURS", c.SessionTTLHours, time.Hour, 24*time.Hour)
}

// GetChartLoadDelay returns the simulated chart latency
func (c *Config) GetChartLoadDelay() time.Duration {
	return parseDuration("CHART_LOAD_DELAY_MS", c.ChartLoadDelayMillis, time.Millisecond, 0)
}

// GetMetricsReportPeriod returns how often the metrics summary is logged
func (c *Config) GetMetricsReportPeriod() time.Duration {
	return parseDuration("METRICS_REPORT_MINUTES", c.MetricsReportMinutes, time.Minute, 15*time.Minute)
}

// GetPortfolioRefreshPeriod returns how often held symbols are re-quoted
func (c *Config) GetPortfolioRefreshPeriod() time.Duration {
	return parseDuration("PORTFOLIO_REFRESH_MINUTES", c.RefreshMinutes, time.Minute, 10*time.Minute)
}

// GetMinRequestInterval returns the spacing between upstream calls
func (c *Config) GetMinRequestInterval() time.Duration {
	return parseDuration("CMC_MIN_INTERVAL_MS", c.MinIntervalMillis, time.Millisecond, 0)
}

// ToUnified converts the raw values into a validated UnifiedConfiguration
func (c *Config) ToUnified() *shared.UnifiedConfiguration {
	unified := shared.NewDefaultUnifiedConfiguration()

	unified.Server.Port = c.ServerPort
	unified.Server.MetricsReportPeriod = c.GetMetricsReportPeriod()
	unified.Service.BaseURL = c.ListingsBaseURL
	unified.Service.APIKey = c.ListingsAPIKey
	unified.Service.HTTPRequestTimeout = c.GetHTTPTimeout()
	unified.Service.MinRequestInterval = c.GetMinRequestInterval()
	unified.Database.URL = c.DatabaseURL
	unified.Database.PriceRefreshInterval = c.GetPortfolioRefreshPeriod()
	unified.Session.TTL = c.GetSessionTTL()
	unified.Chart.LoadDelay = c.GetChartLoadDelay()
	unified.Logging.Level = c.LogLevel
	unified.Logging.Format = c.LogFormat

	unified.ValidateAndApplyDefaults()

	if unified.Service.APIKey == "" {
		logrus.Warn("CMC_API_KEY is not set, listings will be served from fallback data")
	}

	return unified
}

func parseDuration(key, raw string, unit, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		logrus.Warnf("Invalid %s value: %s, using default %v", key, raw, fallback)
		return fallback
	}
	return time.Duration(n) * unit
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
