package database

import (
	"context"
	"os"
	"testing"

	"github.com/ksrcrypto/crypto-backend/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSQLStatements(t *testing.T) {
	content := `
-- leading comment
CREATE TABLE a (
    id INT
);

CREATE INDEX idx_a ON a (id);
SELECT 1`

	assert.Equal(t, []string{
		"CREATE TABLE a ( id INT )",
		"CREATE INDEX idx_a ON a (id)",
		"SELECT 1",
	}, splitStatements(content))
}

func TestEmbeddedSchema(t *testing.T) {
	statements := splitStatements(schemaSQL)
	require.Len(t, statements, 2)
	assert.Contains(t, statements[0], "CREATE TABLE IF NOT EXISTS portfolio_holdings")
	assert.Contains(t, statements[1], "idx_portfolio_holdings_user_id")
}

func TestConnectRequiresURL(t *testing.T) {
	err := Connect(shared.DatabaseConfig{})
	assert.Error(t, err)
	assert.Nil(t, DB)
	assert.ErrorIs(t, HealthCheck(context.Background()), ErrNotConnected)
	assert.ErrorIs(t, Migrate(context.Background()), ErrNotConnected)
	assert.Equal(t, PoolStatus{}, Status())
}

func TestConnectAndMigrate(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("Skipping database test - TEST_DATABASE_URL not set")
	}

	config := shared.NewDefaultUnifiedConfiguration().Database
	config.URL = dbURL
	if err := Connect(config); err != nil {
		t.Skipf("Skipping database test - connection failed: %v", err)
	}
	defer Close()

	require.NoError(t, Migrate(context.Background()))
	require.NoError(t, HealthCheck(context.Background()))
	require.NoError(t, Migrate(context.Background()), "migration is repeatable")
	assert.Positive(t, Status().MaxOpen)
}
