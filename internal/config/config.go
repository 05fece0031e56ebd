// Package config loads nullg configuration from YAML with NULLG_*
// environment overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/nullg/internal/queryir"
	"github.com/roach88/nullg/internal/resolver"
)

// Config is the complete nullg configuration.
type Config struct {
	Schemas  SchemasConfig  `yaml:"schemas"`
	Resolver ResolverConfig `yaml:"resolver"`
	Query    QueryConfig    `yaml:"query"`
	Store    StoreConfig    `yaml:"store"`
	Log      LogConfig      `yaml:"log"`
}

// SchemasConfig points at extra CUE declarations merged into the embedded
// models.
type SchemasConfig struct {
	Dir string `yaml:"dir"` // empty means embedded models only
}

// ResolverConfig configures record resolution.
type ResolverConfig struct {
	MaxDepth int `yaml:"max_depth"`
}

// QueryConfig configures filter and pipeline validation.
type QueryConfig struct {
	MaxDepth int `yaml:"max_depth"`
}

// StoreConfig configures the SQLite record store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadFromEnv builds configuration from environment variables alone.
//
// Environment variables:
//
//	NULLG_SCHEMAS_DIR        - extra CUE declarations (default: none)
//	NULLG_RESOLVER_MAX_DEPTH - resolver nesting limit (default: 64)
//	NULLG_QUERY_MAX_DEPTH    - query nesting limit (default: 64)
//	NULLG_STORE_PATH         - SQLite database path (default: nullg.db)
//	NULLG_LOG_LEVEL          - debug, info, warn, error (default: info)
//	NULLG_LOG_FORMAT         - text or json (default: text)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadWithFallback loads path when it names an existing file and falls back
// to the environment otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies NULLG_* variables. They always win over the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NULLG_SCHEMAS_DIR"); v != "" {
		cfg.Schemas.Dir = v
	}
	if v := os.Getenv("NULLG_RESOLVER_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Resolver.MaxDepth = n
		}
	}
	if v := os.Getenv("NULLG_QUERY_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Query.MaxDepth = n
		}
	}
	if v := os.Getenv("NULLG_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("NULLG_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("NULLG_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Resolver.MaxDepth == 0 {
		cfg.Resolver.MaxDepth = resolver.DefaultMaxDepth
	}
	if cfg.Query.MaxDepth == 0 {
		cfg.Query.MaxDepth = queryir.DefaultMaxDepth
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "nullg.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
}

func validate(cfg *Config) error {
	if cfg.Resolver.MaxDepth < 1 {
		return fmt.Errorf("resolver.max_depth must be positive, got %d", cfg.Resolver.MaxDepth)
	}
	if cfg.Query.MaxDepth < 1 {
		return fmt.Errorf("query.max_depth must be positive, got %d", cfg.Query.MaxDepth)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error, got %q", cfg.Log.Level)
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[cfg.Log.Format] {
		return fmt.Errorf("log.format must be 'text' or 'json', got %q", cfg.Log.Format)
	}
	return nil
}

// SlogLevel maps Log.Level onto a slog level.
func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
