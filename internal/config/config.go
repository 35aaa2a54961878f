package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	DatabaseURL     string
	StoreDriver     string
	SQLitePath      string
	Port            string
	QueryTimeout    time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimit       int      // requests per minute per client
	dbURL           *url.URL // parsed DATABASE_URL, nil for sqlite
}

// Load reads configuration from .env file and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (silently ignore if missing)
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("STORE_DRIVER", DriverPostgres)
	v.SetDefault("SQLITE_PATH", "mtable.db")
	v.SetDefault("PORT", "2022")
	v.SetDefault("QUERY_TIMEOUT", 10*time.Second)
	v.SetDefault("READ_TIMEOUT", 15*time.Second)
	v.SetDefault("WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("RATE_LIMIT", 100)

	cfg := &Config{
		DatabaseURL:     v.GetString("DATABASE_URL"),
		StoreDriver:     v.GetString("STORE_DRIVER"),
		SQLitePath:      v.GetString("SQLITE_PATH"),
		Port:            v.GetString("PORT"),
		QueryTimeout:    v.GetDuration("QUERY_TIMEOUT"),
		ReadTimeout:     v.GetDuration("READ_TIMEOUT"),
		WriteTimeout:    v.GetDuration("WRITE_TIMEOUT"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		RateLimit:       v.GetInt("RATE_LIMIT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.StoreDriver == DriverPostgres {
		parsedURL, err := url.Parse(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		cfg.dbURL = parsedURL
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is required for the %s store", DriverPostgres)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH cannot be empty")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q: want %s or %s", c.StoreDriver, DriverPostgres, DriverSQLite)
	}

	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("QUERY_TIMEOUT must be positive")
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("RATE_LIMIT must be positive")
	}
	return nil
}

// CurrentDatabase returns the database name from the current connection URL.
func (c *Config) CurrentDatabase() string {
	if c.StoreDriver == DriverSQLite {
		return c.SQLitePath
	}
	if c.dbURL == nil || c.dbURL.Path == "" {
		return ""
	}
	return c.dbURL.Path[1:] // Remove leading slash
}
