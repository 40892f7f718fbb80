// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. A .env file (optional, loaded into the environment first)
//  2. YAML file (config.yaml), with ${VAR} expansion
//  3. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv("config.yaml")
//	if err := cfg.Validate(); err != nil {
//		return err
//	}
//	dbPath := cfg.Storage.DatabasePath
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDatabasePath    = "openvera.db"
	DefaultPort            = 8888
	DefaultAcceptThreshold = 70
)

// Config represents the entire application configuration
type Config struct {
	Storage       StorageConfig       `yaml:"storage"`
	Server        ServerConfig        `yaml:"server"`
	Matching      MatchingConfig      `yaml:"matching"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// MatchingConfig holds reconciliation settings
type MatchingConfig struct {
	// AcceptThreshold is the minimum confidence (0-100) for an automatic match
	AcceptThreshold int `yaml:"accept_threshold"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			DatabasePath: DefaultDatabasePath,
		},
		Server: ServerConfig{
			Port:           DefaultPort,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Matching: MatchingConfig{
			AcceptThreshold: DefaultAcceptThreshold,
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  "info",
				Format: "console",
			},
		},
	}
}

// Load reads and parses the config file. Keys missing from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${OPENVERA_DB_PATH})
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	defaults := Default()
	return &Config{
		Storage: StorageConfig{
			DatabasePath: getEnv("OPENVERA_DB_PATH", defaults.Storage.DatabasePath),
		},
		Server: ServerConfig{
			Port:           getEnvInt("OPENVERA_PORT", defaults.Server.Port),
			AllowedOrigins: getEnvList("OPENVERA_ALLOWED_ORIGINS", defaults.Server.AllowedOrigins),
		},
		Matching: MatchingConfig{
			AcceptThreshold: getEnvInt("OPENVERA_ACCEPT_THRESHOLD", defaults.Matching.AcceptThreshold),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", defaults.Observability.Logging.Level),
				Format: getEnv("LOG_FORMAT", defaults.Observability.Logging.Format),
			},
		},
	}
}

// LoadOrEnv tries to load from path, falls back to environment variables
func LoadOrEnv(path string) *Config {
	if path != "" {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	return LoadFromEnv()
}

// LoadDotEnv loads variables from .env files into the process environment.
// Missing files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Validate checks values that would otherwise fail later
func (c *Config) Validate() error {
	if c.Matching.AcceptThreshold < 0 || c.Matching.AcceptThreshold > 100 {
		return fmt.Errorf("matching.accept_threshold must be between 0 and 100, got %d", c.Matching.AcceptThreshold)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("storage.database_path is required")
	}
	switch c.Observability.Logging.Format {
	case "", "console", "text", "json":
	default:
		return fmt.Errorf("observability.logging.format must be console or json, got %q", c.Observability.Logging.Format)
	}
	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvList retrieves a comma separated environment variable
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var items []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
