package database

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ksrcrypto/crypto-backend/shared"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

//go:embed schema.sql
var schemaSQL string

// requiredTables must exist once Migrate has succeeded
var requiredTables = []string{"portfolio_holdings"}

var ErrNotConnected = errors.New("database connection not established")

// DB is the process-wide pool. It stays nil when no database is configured,
// in which case portfolios are served from the demonstration holdings.
var DB *sql.DB

// PoolStatus summarizes the connection pool for /health
type PoolStatus struct {
	MaxOpen   int           `json:"max_open"`
	Open      int           `json:"open"`
	InUse     int           `json:"in_use"`
	Idle      int           `json:"idle"`
	WaitCount int64         `json:"wait_count"`
	WaitTime  time.Duration `json:"wait_time"`
}

// Connect opens the pool described by config and pings it. DB is left nil
// when the ping fails.
func Connect(config shared.DatabaseConfig) error {
	if config.URL == "" {
		return fmt.Errorf("database URL is empty")
	}

	pool, err := sql.Open("postgres", config.URL)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	pool.SetMaxOpenConns(config.MaxOpenConns)
	pool.SetMaxIdleConns(config.MaxIdleConns)
	pool.SetConnMaxLifetime(config.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), config.PingTimeout)
	defer cancel()

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	DB = pool
	logrus.WithFields(logrus.Fields{
		"component":      "database",
		"max_open_conns": config.MaxOpenConns,
		"max_idle_conns": config.MaxIdleConns,
	}).Info("Connected to portfolio database")

	return nil
}

func Close() {
	if DB != nil {
		DB.Close()
		DB = nil
		logrus.WithField("component", "database").Info("Database connection closed")
	}
}

// Status returns the pool counters; the zero value when not connected
func Status() PoolStatus {
	if DB == nil {
		return PoolStatus{}
	}
	stats := DB.Stats()
	return PoolStatus{
		MaxOpen:   stats.MaxOpenConnections,
		Open:      stats.OpenConnections,
		InUse:     stats.InUse,
		Idle:      stats.Idle,
		WaitCount: stats.WaitCount,
		WaitTime:  stats.WaitDuration,
	}
}

// HealthCheck pings the database within five seconds
func HealthCheck(ctx context.Context) error {
	if DB == nil {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Migrate applies the embedded schema in one transaction and then checks
// that every required table is present.
func Migrate(ctx context.Context) error {
	if DB == nil {
		return ErrNotConnected
	}

	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	statements := splitStatements(schemaSQL)
	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d failed: %w", i+1, err)
		}
	}

	for _, table := range requiredTables {
		var found sql.NullString
		if err := tx.QueryRowContext(ctx, "SELECT to_regclass($1)::text", table).Scan(&found); err != nil {
			return fmt.Errorf("failed to look up table %s: %w", table, err)
		}
		if !found.Valid {
			return fmt.Errorf("table %s missing after migration", table)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"component":  "database",
		"statements": len(statements),
	}).Info("Database migration completed")
	return nil
}

// splitStatements drops comment lines and splits on semicolons. The schema
// holds no string literals or function bodies, so a plain split suffices.
func splitStatements(content string) []string {
	var kept []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		kept = append(kept, line)
	}

	var statements []string
	for _, stmt := range strings.Split(strings.Join(kept, " "), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
