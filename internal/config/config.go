package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/livinlefevreloca/hron/internal/db"
	"github.com/livinlefevreloca/hron/internal/scheduler"
	"github.com/livinlefevreloca/hron/lib/hron"
)

// Config represents the application configuration
type Config struct {
	Database  db.Config                 `toml:"database"`
	Scheduler scheduler.SchedulerConfig `toml:"scheduler"`
	Evaluator EvaluatorConfig           `toml:"evaluator"`
	Logging   LoggingConfig             `toml:"logging"`
}

// EvaluatorConfig holds the settings used to build every schedule
type EvaluatorConfig struct {
	// DefaultTimezone applies to expressions without an 'in' clause.
	// Empty means UTC.
	DefaultTimezone string      `toml:"default_timezone"`
	Limits          hron.Limits `toml:"limits"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: db.Config{
			Driver:          "sqlite3",
			DSN:             "hron.db",
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			SkipMigrations:  false,
		},
		Scheduler: scheduler.DefaultSchedulerConfig(),
		Evaluator: EvaluatorConfig{
			Limits: hron.DefaultLimits(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromFile loads configuration from a TOML file. Keys missing from the
// file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// LoadConfig loads configuration with the following precedence:
// 1. Default values
// 2. Config file (if specified)
// 3. Command-line flags (handled by caller)
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}
	return LoadFromFile(configPath)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver must be specified")
	}
	if c.Database.Driver != "sqlite3" {
		return fmt.Errorf("unsupported database driver: %s (must be sqlite3)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN must be specified")
	}

	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("invalid scheduler config: %w", err)
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	if err := c.Evaluator.Limits.Validate(); err != nil {
		return fmt.Errorf("invalid evaluator limits: %w", err)
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	return nil
}

// Location loads the evaluator's default timezone
func (c *Config) Location() (*time.Location, error) {
	if c.Evaluator.DefaultTimezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Evaluator.DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid default timezone %q: %w", c.Evaluator.DefaultTimezone, err)
	}
	return loc, nil
}

// HronOptions returns the options every schedule should be built with
func (c *Config) HronOptions() ([]hron.Option, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	return []hron.Option{
		hron.WithDefaultLocation(loc),
		hron.WithLimits(c.Evaluator.Limits),
	}, nil
}

// LogLevel maps the configured level name to a slog level
func (c *Config) LogLevel() (slog.Level, error) {
	switch c.Logging.Level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
}
