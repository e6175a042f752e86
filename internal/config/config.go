// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Session store kinds.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Duration is a time.Duration that reads and writes JSON as "30m", "24h" etc.
// Plain numbers are taken as seconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var seconds float64
	if err := json.Unmarshal(data, &seconds); err != nil {
		return fmt.Errorf("invalid duration %s", string(data))
	}
	*d = Duration(time.Duration(seconds * float64(time.Second)))
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or environment overrides.
type Config struct {
	// Storage
	Store       string `json:"store,omitempty"`        // Session store: memory, postgres or redis
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
	RedisAddr   string `json:"redis_addr,omitempty"`   // Redis host:port
	RedisPrefix string `json:"redis_prefix,omitempty"` // Key namespace in Redis

	// Session lifecycle
	IdleTimeout      Duration `json:"idle_timeout,omitempty"`      // Age after which active sessions expire
	ExpiryInterval   Duration `json:"expiry_interval,omitempty"`   // Sweep interval for expire --watch
	SessionRetention Duration `json:"session_retention,omitempty"` // How long Redis keeps finished sessions

	// Catalog overrides
	DefinitionsPath string `json:"definitions_path,omitempty"` // YAML assessment definitions
	RangesPath      string `json:"ranges_path,omitempty"`      // YAML reference ranges
	AdjustmentsPath string `json:"adjustments_path,omitempty"` // YAML adjustment tables

	// Behavior
	LogMode string `json:"log_mode,omitempty"` // development or production
	Verbose bool   `json:"verbose,omitempty"`  // Print detailed debug information
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Store:          StoreMemory,
		RedisAddr:      "localhost:6379",
		RedisPrefix:    "assessment:",
		IdleTimeout:    Duration(24 * time.Hour),
		ExpiryInterval: Duration(5 * time.Minute),
		LogMode:        "development",
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv overrides fields from ASSESSMENT_* environment variables.
// DATABASE_URL is also honoured for the database connection.
func (c *Config) ApplyEnv() {
	c.Store = getEnvString("ASSESSMENT_STORE", c.Store)
	c.DatabaseURL = getEnvString("ASSESSMENT_DATABASE_URL", getEnvString("DATABASE_URL", c.DatabaseURL))
	c.RedisAddr = getEnvString("ASSESSMENT_REDIS_ADDR", c.RedisAddr)
	c.RedisPrefix = getEnvString("ASSESSMENT_REDIS_PREFIX", c.RedisPrefix)
	c.IdleTimeout = Duration(getEnvDuration("ASSESSMENT_IDLE_TIMEOUT", c.IdleTimeout.Std()))
	c.ExpiryInterval = Duration(getEnvDuration("ASSESSMENT_EXPIRY_INTERVAL", c.ExpiryInterval.Std()))
	c.SessionRetention = Duration(getEnvDuration("ASSESSMENT_SESSION_RETENTION", c.SessionRetention.Std()))
	c.DefinitionsPath = getEnvString("ASSESSMENT_DEFINITIONS", c.DefinitionsPath)
	c.RangesPath = getEnvString("ASSESSMENT_RANGES", c.RangesPath)
	c.AdjustmentsPath = getEnvString("ASSESSMENT_ADJUSTMENTS", c.AdjustmentsPath)
	c.LogMode = getEnvString("ASSESSMENT_LOG_MODE", c.LogMode)
	c.Verbose = getEnvBool("ASSESSMENT_VERBOSE", c.Verbose)
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Store) {
	case "", StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config error: 'database_url' is required for the postgres store")
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("config error: 'redis_addr' is required for the redis store")
		}
	default:
		return fmt.Errorf("config error: unknown store %q (want memory, postgres or redis)", c.Store)
	}

	// Validate numeric ranges
	if c.IdleTimeout < 0 {
		return fmt.Errorf("config error: 'idle_timeout' must be non-negative")
	}
	if c.ExpiryInterval < 0 {
		return fmt.Errorf("config error: 'expiry_interval' must be non-negative")
	}
	if c.SessionRetention < 0 {
		return fmt.Errorf("config error: 'session_retention' must be non-negative")
	}

	switch strings.ToLower(c.LogMode) {
	case "", "dev", "development", "prod", "production":
	default:
		return fmt.Errorf("config error: unknown log_mode %q", c.LogMode)
	}

	// Validate file paths exist (if specified)
	for name, path := range map[string]string{
		"definitions_path": c.DefinitionsPath,
		"ranges_path":      c.RangesPath,
		"adjustments_path": c.AdjustmentsPath,
	} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("config error: %s file not found: %s", name, path)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.Store == "" {
		result.Store = defaults.Store
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.RedisAddr == "" {
		result.RedisAddr = defaults.RedisAddr
	}
	if result.RedisPrefix == "" {
		result.RedisPrefix = defaults.RedisPrefix
	}
	if result.DefinitionsPath == "" {
		result.DefinitionsPath = defaults.DefinitionsPath
	}
	if result.RangesPath == "" {
		result.RangesPath = defaults.RangesPath
	}
	if result.AdjustmentsPath == "" {
		result.AdjustmentsPath = defaults.AdjustmentsPath
	}
	if result.LogMode == "" {
		result.LogMode = defaults.LogMode
	}

	// Duration fields: use default if zero
	if result.IdleTimeout == 0 {
		result.IdleTimeout = defaults.IdleTimeout
	}
	if result.ExpiryInterval == 0 {
		result.ExpiryInterval = defaults.ExpiryInterval
	}
	if result.SessionRetention == 0 {
		result.SessionRetention = defaults.SessionRetention
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// getEnvString gets an environment variable as a string with a default value.
func getEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets an environment variable as a boolean with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as a duration with a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
