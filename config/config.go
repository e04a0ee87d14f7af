// Package config loads the YAML application configuration.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// DBPath is the SQLite database path. ":memory:" for in-memory.
	DBPath string `yaml:"db_path"`

	// HorizonMonths is how far ahead recurring rules stay materialized.
	HorizonMonths int `yaml:"horizon_months"`

	// MaxRows is the calendar row cap per day cell.
	MaxRows int `yaml:"max_rows"`

	// WeekStart is the first day of the week in calendar views:
	// "monday" (default) or "sunday".
	WeekStart string `yaml:"week_start"`

	// ExtensionInterval is how often the extension pass re-runs after
	// startup, as a Go duration string (e.g. "12h").
	ExtensionInterval string `yaml:"extension_interval"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:            "127.0.0.1:8080",
		DBPath:            "bizflow.db",
		HorizonMonths:     6,
		MaxRows:           3,
		WeekStart:         "monday",
		ExtensionInterval: "12h",
	}
}

// Normalize fills in missing/zero values so partially-filled configs still
// behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.DBPath == "" {
		c.DBPath = "bizflow.db"
	}
	if c.HorizonMonths <= 0 {
		c.HorizonMonths = 6
	}
	if c.MaxRows <= 0 {
		c.MaxRows = 3
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = "monday"
	}
	if _, err := time.ParseDuration(c.ExtensionInterval); err != nil {
		c.ExtensionInterval = "12h"
	}
}

// WeekStartDay maps the configured week start onto time.Weekday.
func (c *Config) WeekStartDay() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

// ExtensionIntervalDuration returns the parsed extension interval.
func (c *Config) ExtensionIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.ExtensionInterval)
	if err != nil {
		return 12 * time.Hour
	}
	return d
}

// Load reads configuration from the given YAML path. A missing file yields
// the defaults and writes them for the next run.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename).
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".bizflow-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
