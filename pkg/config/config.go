// Package config provides environment-based configuration for the boardroom API.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds all configuration for the API process.
type Config struct {
	// Database configuration
	StoreDriver    string `env:"STORE_DRIVER" envDefault:"postgres" yaml:"store_driver"`
	DatabaseDSN    string `env:"DATABASE_URL" envDefault:"postgres://localhost:5432/boardroom?sslmode=disable" yaml:"database_url"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"false" yaml:"migrate_on_start"`

	// Authentication
	JWTSecret string        `env:"JWT_SECRET" yaml:"jwt_secret"`
	JWTExpiry time.Duration `env:"JWT_EXPIRY" envDefault:"24h" yaml:"jwt_expiry"`

	// Server configuration
	APIHost  string `env:"API_HOST" envDefault:"0.0.0.0" yaml:"api_host"`
	APIPort  int    `env:"API_PORT" envDefault:"8080" yaml:"api_port"`
	GRPCPort int    `env:"GRPC_PORT" envDefault:"9090" yaml:"grpc_port"`

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s" yaml:"shutdown_timeout"`

	// OTelEndpoint enables tracing when set, e.g. http://localhost:4318.
	OTelEndpoint string `env:"OTEL_ENDPOINT" yaml:"otel_endpoint"`

	Log        LogConfig        `yaml:"log"`
	Membership MembershipConfig `yaml:"membership"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info" yaml:"level"`
	Format     string `env:"LOG_FORMAT" envDefault:"json" yaml:"format"`
	File       string `env:"LOG_FILE" yaml:"file"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100" yaml:"max_size_mb"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3" yaml:"max_backups"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"28" yaml:"max_age_days"`
}

// MembershipConfig tunes search, invitation and removal behaviour.
type MembershipConfig struct {
	SearchLimit         int  `env:"SEARCH_LIMIT" envDefault:"10" yaml:"search_limit"`
	SearchRatePerMinute int  `env:"SEARCH_RATE_PER_MINUTE" envDefault:"60" yaml:"search_rate_per_minute"`
	CascadeConcurrency  int  `env:"CASCADE_CONCURRENCY" envDefault:"4" yaml:"cascade_concurrency"`
	LedgerRetryAttempts uint `env:"LEDGER_RETRY_ATTEMPTS" envDefault:"3" yaml:"ledger_retry_attempts"`
}

// Load reads configuration from environment variables, overlays the YAML
// file named by CONFIG_FILE if any, and validates the result.
func Load() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithDefaults loads configuration with defaults for development.
// It does not validate required fields, useful for testing.
func LoadWithDefaults() *Config {
	cfg, err := parse()
	if err != nil {
		cfg = &Config{}
		_ = env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}})
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "development-secret-key-min-32-chars"
	}
	return cfg
}

func parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// overlayFile applies the keys present in the YAML file at path on top of cfg.
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters"))
	}
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, c.StoreDriver))
	}
	if c.Membership.SearchLimit <= 0 {
		errs = append(errs, errors.New("SEARCH_LIMIT must be positive"))
	}
	if c.Membership.SearchRatePerMinute <= 0 {
		errs = append(errs, errors.New("SEARCH_RATE_PER_MINUTE must be positive"))
	}
	if c.Membership.CascadeConcurrency <= 0 {
		errs = append(errs, errors.New("CASCADE_CONCURRENCY must be positive"))
	}
	return errors.Join(errs...)
}
