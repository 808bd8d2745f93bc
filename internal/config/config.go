// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the settings read from the environment.
type Config struct {
	ServiceName  string
	LogLevel     slog.Level
	LogFormat    string
	SeedFile     string
	OTLPEndpoint string
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (*Config, error) {
	getEnv := func(key, defaultValue string) string {
		if value, exists := lookup(key); exists {
			return value
		}
		return defaultValue
	}

	cfg := &Config{
		ServiceName:  getEnv("SERVICE_NAME", "bookshelf"),
		LogFormat:    strings.ToLower(getEnv("LOG_FORMAT", "text")),
		SeedFile:     getEnv("SEED_FILE", ""),
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w: %v", ErrInvalidConfig, err)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT %q: %w", cfg.LogFormat, ErrInvalidConfig)
	}
	if cfg.ServiceName == "" {
		return nil, fmt.Errorf("SERVICE_NAME is empty: %w", ErrInvalidConfig)
	}

	return cfg, nil
}

// NewLogger builds the logger described by cfg.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	var h slog.Handler
	if c.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(h).With("service", c.ServiceName)
}
