// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported store backends, derived from the DB_URL scheme.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	DBURL             string        `mapstructure:"DB_URL"`
	GithubToken       string        `mapstructure:"GITHUB_TOKEN"`
	EnabledConnectors []string      `mapstructure:"ENABLED_CONNECTORS"`
	SyncInterval      time.Duration `mapstructure:"SYNC_INTERVAL"`
	WorkerConcurrency int           `mapstructure:"WORKER_CONCURRENCY"`
	QueuePollInterval time.Duration `mapstructure:"QUEUE_POLL_INTERVAL"`
	QueueLease        time.Duration `mapstructure:"QUEUE_LEASE"`
	FetchTimeout      time.Duration `mapstructure:"FETCH_TIMEOUT"`
	HTTPAddr          string        `mapstructure:"HTTP_ADDR"`
	DryRun            bool          `mapstructure:"DRY_RUN"`
}

var defaults = map[string]any{
	"LOG_LEVEL":           "info",
	"DB_URL":              "",
	"GITHUB_TOKEN":        "",
	"ENABLED_CONNECTORS":  "github,remote_descriptor_file",
	"SYNC_INTERVAL":       "1h",
	"WORKER_CONCURRENCY":  5,
	"QUEUE_POLL_INTERVAL": "2s",
	"QUEUE_LEASE":         "5m",
	"FETCH_TIMEOUT":       "15s",
	"HTTP_ADDR":           ":8080",
	"DRY_RUN":             false,
}

// LoadConfig reads configuration from a .env file in the working directory and/or environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if file not found
	return Load(v)
}

// Load applies defaults and environment bindings to v and decodes the result.
func Load(v *viper.Viper) (*Config, error) {
	// Every key needs a default so that Unmarshal sees environment-only values.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true) // ENABLED_CONNECTORS="" disables every connector
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.EnabledConnectors = normalizeIDs(cfg.EnabledConnectors)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.DBURL == "" {
		return errors.New("DB_URL is a required configuration field")
	}
	if _, err := c.Backend(); err != nil {
		return err
	}
	if c.WorkerConcurrency <= 0 {
		return errors.New("WORKER_CONCURRENCY must be a positive integer")
	}
	if c.SyncInterval <= 0 {
		return errors.New("SYNC_INTERVAL must be a positive duration")
	}
	if c.QueuePollInterval <= 0 || c.QueueLease <= 0 || c.FetchTimeout <= 0 {
		return errors.New("QUEUE_POLL_INTERVAL, QUEUE_LEASE and FETCH_TIMEOUT must be positive durations")
	}
	return nil
}

// Backend returns the store backend selected by the DB_URL scheme.
func (c *Config) Backend() (string, error) {
	switch {
	case strings.HasPrefix(c.DBURL, "postgres://"), strings.HasPrefix(c.DBURL, "postgresql://"):
		return BackendPostgres, nil
	case strings.HasPrefix(c.DBURL, "sqlite:"):
		return BackendSQLite, nil
	default:
		return "", fmt.Errorf("DB_URL %q: unsupported scheme, expected postgres:// or sqlite:", c.DBURL)
	}
}

// SQLitePath returns the database path of a sqlite: DB_URL ("sqlite://data/repos.db" or "sqlite::memory:").
func (c *Config) SQLitePath() string {
	p := strings.TrimPrefix(c.DBURL, "sqlite:")
	return strings.TrimPrefix(p, "//")
}

// normalizeIDs trims connector ids and drops blanks, keeping the configured order.
// A single comma separated element is split, which covers values bound from a .env file.
func normalizeIDs(ids []string) []string {
	var out []string
	for _, id := range ids {
		for _, part := range strings.Split(id, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
