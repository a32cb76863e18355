package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Lock backends
const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

// Config holds all configuration for the application
type Config struct {
	// TelegramToken enables the Telegram bot when set.
	TelegramToken string `envconfig:"TELEGRAM_TOKEN"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat     string `envconfig:"LOG_FORMAT" default:"text"`
	Port          string `envconfig:"PORT" default:"8080"`

	Database DatabaseConfig `envconfig:"DATABASE"`
	Lock     LockConfig     `envconfig:"LOCK"`
	Purge    PurgeConfig    `envconfig:"PURGE"`

	SeedDefaultMedications bool     `envconfig:"SEED_DEFAULT_MEDICATIONS" default:"false"`
	DefaultMedications     []string `envconfig:"DEFAULT_MEDICATIONS" default:"morning,afternoon,evening"`
}

// DatabaseConfig selects the SQL driver and its connection string
type DatabaseConfig struct {
	Driver string `envconfig:"DRIVER" default:"sqlite"`
	URL    string `envconfig:"URL" default:"./data/medtracker.db"`
}

// LockConfig configures per-account serialization
type LockConfig struct {
	Backend       string        `envconfig:"BACKEND" default:"local"`
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	TTL           time.Duration `envconfig:"TTL" default:"10s"`
}

// PurgeConfig configures the inactive account sweep
type PurgeConfig struct {
	Enabled       bool          `envconfig:"ENABLED" default:"true"`
	Interval      time.Duration `envconfig:"INTERVAL" default:"24h"`
	InactiveAfter time.Duration `envconfig:"INACTIVE_AFTER" default:"4380h"`
}

// Load loads configuration from an optional .env file and environment variables
func Load() (*Config, error) {
	// Missing .env is fine, the environment alone is enough.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	cfg.DefaultMedications = cleanNames(cfg.DefaultMedications)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every configuration problem at once
func (c *Config) Validate() error {
	var result *multierror.Error

	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres, DriverPGX:
	default:
		result = multierror.Append(result, fmt.Errorf("DATABASE_DRIVER %q is not one of %s, %s, %s",
			c.Database.Driver, DriverSQLite, DriverPostgres, DriverPGX))
	}

	if c.Database.URL == "" {
		result = multierror.Append(result, fmt.Errorf("DATABASE_URL is required"))
	}

	switch c.Lock.Backend {
	case LockBackendLocal:
	case LockBackendRedis:
		if c.Lock.RedisAddr == "" {
			result = multierror.Append(result, fmt.Errorf("LOCK_REDIS_ADDR is required for the redis lock backend"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("LOCK_BACKEND %q is not one of %s, %s",
			c.Lock.Backend, LockBackendLocal, LockBackendRedis))
	}

	if c.Lock.TTL <= 0 {
		result = multierror.Append(result, fmt.Errorf("LOCK_TTL must be positive"))
	}

	if c.Purge.Interval <= 0 {
		result = multierror.Append(result, fmt.Errorf("PURGE_INTERVAL must be positive"))
	}

	if c.Purge.InactiveAfter <= 0 {
		result = multierror.Append(result, fmt.Errorf("PURGE_INACTIVE_AFTER must be positive"))
	}

	return result.ErrorOrNil()
}

// BotEnabled returns true if a Telegram token is configured
func (c *Config) BotEnabled() bool {
	return c.TelegramToken != ""
}

func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
