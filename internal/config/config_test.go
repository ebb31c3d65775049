package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, "25000", cfg.OpeningBalance.String())
	assert.Equal(t, 5*time.Second, cfg.TxTimeout)
	assert.Equal(t, 3, cfg.TxMaxRetries)
	assert.Equal(t, "0 8 * * *", cfg.ReminderSchedule)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("PORT", ":9090")
	t.Setenv("OPENING_BALANCE", "100.50")
	t.Setenv("TX_TIMEOUT", "2s")
	t.Setenv("IDEMPOTENCY_TTL", "1h")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Address())
	assert.Equal(t, "100.5", cfg.OpeningBalance.String())
	assert.Equal(t, 2*time.Second, cfg.TxTimeout)
	assert.Equal(t, time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_ProductionRequiresInfrastructure(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://localhost/campus")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	_, err = Load()
	require.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "s3cret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_InvalidOpeningBalance(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("OPENING_BALANCE", "lots")

	_, err := Load()
	require.ErrorContains(t, err, "OPENING_BALANCE")

	t.Setenv("OPENING_BALANCE", "10.00001")
	_, err = Load()
	require.ErrorContains(t, err, "decimal places")
}
