/*
Package config loads the server configuration.

PURPOSE:
  YAML file with defaults for everything, environment overrides for the
  settings operators change most, and validator tags as the last gate.

PRECEDENCE (lowest to highest):
  1. Defaults (setDefaults)
  2. YAML file given with -config (optional)
  3. Environment: PORT, DB_PATH, LOG_LEVEL

EXAMPLE:
  server:
    port: 8080
    read_timeout: 15s
  database:
    path: ./data/rental.db
  alerts:
    digest_cron: "0 7 * * *"
    concurrency: 4

SEE ALSO:
  - cmd/server/main.go: Consumer
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// DatabaseConfig holds the SQLite location. ":memory:" is allowed.
type DatabaseConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// CacheConfig sizes the dashboard cache. A negative size disables caching.
type CacheConfig struct {
	Size int `yaml:"size"`
}

// AlertsConfig controls the scheduled alert digest.
type AlertsConfig struct {
	DigestEnabled bool   `yaml:"digest_enabled"`
	DigestCron    string `yaml:"digest_cron" validate:"required_if=DigestEnabled true"`
	Concurrency   int    `yaml:"concurrency" validate:"min=1,max=64"`
	TimeRange     string `yaml:"time_range" validate:"oneof=month quarter year all"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"startswith=/"`
}

// Config represents the complete server configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Cache    CacheConfig    `yaml:"cache"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Metrics  MetricsConfig  `yaml:"metrics"`

	// ScenarioOnStart loads a demo scenario into an empty database.
	ScenarioOnStart string `yaml:"scenario_on_start"`
}

// Load reads filePath (may be empty), applies defaults and environment
// overrides, then validates.
func Load(filePath string) (*Config, error) {
	var cfg Config

	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else {
		cfg.Alerts.DigestEnabled = true
		cfg.Metrics.Enabled = true
	}

	setDefaults(&cfg)

	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default values for unspecified configuration
func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "rental.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Cache.Size == 0 {
		cfg.Cache.Size = 256
	}
	if cfg.Alerts.DigestCron == "" {
		cfg.Alerts.DigestCron = "0 7 * * *"
	}
	if cfg.Alerts.Concurrency == 0 {
		cfg.Alerts.Concurrency = 4
	}
	if cfg.Alerts.TimeRange == "" {
		cfg.Alerts.TimeRange = "month"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v := getenv("DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// Validate checks struct tags.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}
