package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

const (
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

type Config struct {
	Port           string `env:"PORT" envDefault:"8080"`
	Environment    string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelName   string `env:"LOG_LEVEL" envDefault:"info"`
	ContentDir     string `env:"CONTENT_DIR" envDefault:"./data/story"`
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"redis"`
	RedisURL       string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"./data/saves.db"`
	MaxSaveSlots   int    `env:"MAX_SAVE_SLOTS" envDefault:"10"`

	LogLevel slog.Level
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelName)
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageBackend {
	case StorageRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORAGE_BACKEND=redis")
		}
	case StorageSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORAGE_BACKEND=sqlite")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (want %q or %q)", c.StorageBackend, StorageRedis, StorageSQLite)
	}
	if c.MaxSaveSlots < 1 {
		return fmt.Errorf("MAX_SAVE_SLOTS must be at least 1, got %d", c.MaxSaveSlots)
	}
	if c.ContentDir == "" {
		return fmt.Errorf("CONTENT_DIR is required")
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
