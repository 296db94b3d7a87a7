package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultRoot      = "calendars"
	defaultLogLevel  = "info"
	defaultLogFormat = "text"
)

// Config is the calstore configuration file.
type Config struct {
	// Root is the directory holding the calendars. Relative paths are
	// resolved against the working directory.
	Root string `yaml:"root"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LogFormat is "text" (default) or "json".
	LogFormat string `yaml:"log_format"`

	// HrefPrefix is the leading path segment of object hrefs, e.g. "caldav".
	HrefPrefix string `yaml:"href_prefix,omitempty"`

	// DefaultTimezone is the IANA zone floating times are evaluated in for
	// calendars that have no zone of their own. Empty means UTC.
	DefaultTimezone string `yaml:"default_timezone,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Root:      defaultRoot,
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
	}
}

// Normalize fills in missing values and folds case, so that hand-edited or
// partial files behave like complete ones.
func (c *Config) Normalize() {
	if c.Root == "" {
		c.Root = defaultRoot
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	case "warning":
		c.LogLevel = "warn"
	default:
		c.LogLevel = defaultLogLevel
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat != "json" {
		c.LogFormat = defaultLogFormat
	}
	c.HrefPrefix = strings.Trim(c.HrefPrefix, "/")
}

// Level returns the slog level of LogLevel.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Location resolves DefaultTimezone. A nil location means none was set.
func (c *Config) Location() (*time.Location, error) {
	if c.DefaultTimezone == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("default_timezone: %w", err)
	}
	return loc, nil
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there (parent
// directory 0700, file 0600) and returned. Otherwise the file is decoded
// and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// the caller may still run on defaults
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path through a temp file and a rename, leaving the
// final file with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
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

	tmp, err := os.CreateTemp(dir, ".calstore-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
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

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
