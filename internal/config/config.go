// Package config loads the taskplan configuration file with defaults and
// environment overrides for secrets.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/taskplan/internal/errors"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// DefaultFileName is the config file looked up in the working directory
// when no explicit path is given.
const DefaultFileName = "taskplan.yaml"

// EnvPostgresDSN overrides the configured Postgres connection string.
// Secrets belong in the environment, not the config file.
const EnvPostgresDSN = "TASKPLAN_POSTGRES_DSN"

// Config is the full application configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	HTTP    HTTPConfig    `yaml:"http"`
	Webhook WebhookConfig `yaml:"webhook"`
	Log     LogConfig     `yaml:"log"`
	API     APIConfig     `yaml:"api"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Backend  string         `yaml:"backend"`
	File     FileConfig     `yaml:"file"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// FileConfig configures the JSON document store.
type FileConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig configures the relational store.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// HTTPConfig configures the HTTP API server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// WebhookConfig configures outbound collaborator notifications.
// An empty URL disables them.
type WebhookConfig struct {
	URL string `yaml:"url"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// APIConfig tunes transport behavior.
type APIConfig struct {
	// StrictErrors surfaces failures as protocol-level errors instead of
	// structured success=false payloads.
	StrictErrors bool `yaml:"strict_errors"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: BackendFile,
			File:    FileConfig{Path: defaultStorePath()},
		},
		HTTP: HTTPConfig{Addr: ":8087"},
		Log:  LogConfig{Level: "info", Format: "text"},
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "taskplan.json"
	}
	return filepath.Join(home, ".taskplan", "taskplan.json")
}

// Load reads the configuration from path. An empty path means
// DefaultFileName in the working directory; a missing default file yields
// the defaults, a missing explicit file is an error. Environment overrides
// are applied after the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigInvalid, "failed to parse "+path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// No config file is fine, run on defaults.
	default:
		return nil, errors.Wrap(errors.ErrCodeConfigNotFound, "failed to read "+path, err)
	}

	if dsn := os.Getenv(EnvPostgresDSN); dsn != "" {
		cfg.Storage.Postgres.DSN = dsn
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Backend) {
	case BackendFile:
		if c.Storage.File.Path == "" {
			return errors.New(errors.ErrCodeConfigInvalid, "storage.file.path must be set for the file backend")
		}
	case BackendPostgres:
		if c.Storage.Postgres.DSN == "" {
			return errors.New(errors.ErrCodeConfigInvalid,
				"storage.postgres.dsn must be set for the postgres backend").
				WithSuggestion("set " + EnvPostgresDSN + " in the environment")
		}
	default:
		return errors.New(errors.ErrCodeConfigInvalid,
			"unknown storage backend "+c.Storage.Backend).
			WithSuggestion("use \"file\" or \"postgres\"")
	}

	if c.HTTP.Addr == "" {
		return errors.New(errors.ErrCodeConfigInvalid, "http.addr must not be empty")
	}
	return nil
}
