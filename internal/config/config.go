package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/campus-pay/campus_pay/internal/ledger"
)

const (
	defaultAppName          = "CampusPay"
	defaultAppEnv           = "development"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultLogFormat        = "json"
	defaultShutdownDelay    = 10 * time.Second
	defaultIdempotencyTTL   = 24 * time.Hour
	defaultAccessTokenTTL   = 15 * time.Minute
	defaultOpeningBalance   = "25000"
	defaultTxTimeout        = 5 * time.Second
	defaultTxMaxRetries     = 3
	defaultDBMaxConns       = 10
	defaultQueueSize        = 1024
	defaultReminderSchedule = "0 8 * * *"
	devJWTSecret            = "dev-secret-change-me"
)

// Config captures application runtime configuration loaded from environment variables
// and an optional .env file.
type Config struct {
	AppName               string
	AppEnv                string
	Port                  string
	LogLevel              string
	LogFormat             string
	DatabaseURL           string
	RedisURL              string
	ShutdownPeriod        time.Duration
	IdempotencyTTL        time.Duration
	JWTSecret             string
	AccessTokenTTL        time.Duration
	OpeningBalance        decimal.Decimal
	TxTimeout             time.Duration
	TxMaxRetries          int
	DBMaxConns            int
	NotificationQueueSize int
	ReminderSchedule      string
}

// Load reads configuration values and populates a Config instance.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read .env: %w", err)
		}
	}

	opening, err := decimal.NewFromString(v.GetString("OPENING_BALANCE"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid OPENING_BALANCE: %w", err)
	}
	if opening.IsNegative() {
		return Config{}, fmt.Errorf("OPENING_BALANCE must not be negative")
	}
	if !opening.Equal(opening.Truncate(ledger.MoneyScale)) {
		return Config{}, fmt.Errorf("OPENING_BALANCE must have at most %d decimal places", ledger.MoneyScale)
	}

	cfg := Config{
		AppName:               v.GetString("APP_NAME"),
		AppEnv:                strings.ToLower(v.GetString("APP_ENV")),
		Port:                  v.GetString("PORT"),
		LogLevel:              strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:             strings.ToLower(v.GetString("LOG_FORMAT")),
		DatabaseURL:           v.GetString("DATABASE_URL"),
		RedisURL:              v.GetString("REDIS_URL"),
		ShutdownPeriod:        v.GetDuration("SHUTDOWN_TIMEOUT"),
		IdempotencyTTL:        v.GetDuration("IDEMPOTENCY_TTL"),
		JWTSecret:             v.GetString("JWT_SECRET"),
		AccessTokenTTL:        v.GetDuration("ACCESS_TOKEN_TTL"),
		OpeningBalance:        opening,
		TxTimeout:             v.GetDuration("TX_TIMEOUT"),
		TxMaxRetries:          v.GetInt("TX_MAX_RETRIES"),
		DBMaxConns:            v.GetInt("DB_MAX_CONNS"),
		NotificationQueueSize: v.GetInt("NOTIFICATION_QUEUE_SIZE"),
		ReminderSchedule:      v.GetString("REMINDER_SCHEDULE"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", defaultAppName)
	v.SetDefault("APP_ENV", defaultAppEnv)
	v.SetDefault("PORT", defaultPort)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("LOG_FORMAT", defaultLogFormat)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("SHUTDOWN_TIMEOUT", defaultShutdownDelay)
	v.SetDefault("IDEMPOTENCY_TTL", defaultIdempotencyTTL)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("ACCESS_TOKEN_TTL", defaultAccessTokenTTL)
	v.SetDefault("OPENING_BALANCE", defaultOpeningBalance)
	v.SetDefault("TX_TIMEOUT", defaultTxTimeout)
	v.SetDefault("TX_MAX_RETRIES", defaultTxMaxRetries)
	v.SetDefault("DB_MAX_CONNS", defaultDBMaxConns)
	v.SetDefault("NOTIFICATION_QUEUE_SIZE", defaultQueueSize)
	v.SetDefault("REMINDER_SCHEDULE", defaultReminderSchedule)
}

func (c *Config) validate() error {
	if c.NotificationQueueSize <= 0 {
		return fmt.Errorf("NOTIFICATION_QUEUE_SIZE must be positive")
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if c.TxMaxRetries < 0 {
		return fmt.Errorf("TX_MAX_RETRIES must not be negative")
	}

	if c.IsDevelopment() {
		if c.JWTSecret == "" {
			c.JWTSecret = devJWTSecret
		}
		return nil
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL must be set")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	return nil
}

// IsDevelopment reports whether the service runs with local defaults.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev" || c.AppEnv == "test"
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}
