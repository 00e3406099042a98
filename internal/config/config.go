// Package config provides configuration management.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"embroidery-pricing/internal/logging"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "EMBROIDERY_PRICING_"

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version"`

	// Server contains HTTP server settings
	Server ServerConfig `json:"server"`

	// Database contains SQL store settings
	Database DatabaseConfig `json:"database"`

	// Rates selects the carrier rate provider
	Rates RatesConfig `json:"rates"`

	// Redis contains carrier rate cache settings
	Redis RedisConfig `json:"redis"`

	// Profiles selects where tenant profiles are read from
	Profiles ProfilesConfig `json:"profiles"`

	// Storage contains calculation history settings
	Storage StorageConfig `json:"storage"`

	// Engine contains calculation engine settings
	Engine EngineConfig `json:"engine"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	// Addr is the listen address
	Addr string `json:"addr"`

	// ReadTimeoutSeconds bounds reading one request
	ReadTimeoutSeconds int `json:"read_timeout_seconds"`
}

// ReadTimeout returns the read timeout as a duration
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

// DatabaseConfig contains SQL store settings
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres"
	Driver string `json:"driver"`

	// DSN is the driver data source name
	DSN string `json:"dsn"`

	// MigrateOnStart applies pending migrations when the store opens
	MigrateOnStart bool `json:"migrate_on_start"`
}

// RatesConfig selects the carrier rate provider
type RatesConfig struct {
	// Provider is "static" (JSON file), "http" (remote endpoint) or "none"
	Provider string `json:"provider"`

	// Path is the JSON rate list for the static provider
	Path string `json:"path,omitempty"`

	// Endpoint receives shipments as JSON for the http provider
	Endpoint string `json:"endpoint,omitempty"`

	// Secret signs request bodies with HMAC-SHA256 when set
	Secret string `json:"secret,omitempty"`

	TimeoutSeconds int `json:"timeout_seconds"`
	RetryCount     int `json:"retry_count"`
}

// Timeout returns the request timeout as a duration
func (r RatesConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// RedisConfig contains carrier rate cache settings
type RedisConfig struct {
	Enabled    bool   `json:"enabled"`
	Addr       string `json:"addr"`
	Password   string `json:"password,omitempty"`
	DB         int    `json:"db"`
	TTLSeconds int    `json:"ttl_seconds"`
}

// TTL returns the cache TTL as a duration
func (r RedisConfig) TTL() time.Duration {
	return time.Duration(r.TTLSeconds) * time.Second
}

// ProfilesConfig selects the profile source
type ProfilesConfig struct {
	// Source is "hcl" (profile files) or "sql" (database)
	Source string `json:"source"`

	// Path is the HCL file or directory when Source is "hcl"
	Path string `json:"path"`
}

// StorageConfig contains calculation history settings
type StorageConfig struct {
	// Backend is "file", "memory" or "none"
	Backend string `json:"backend"`

	// Path is the directory for the file backend
	Path string `json:"path"`
}

// EngineConfig contains calculation engine settings
type EngineConfig struct {
	// BatchConcurrency bounds parallel evaluation in batch calls
	BatchConcurrency int `json:"batch_concurrency"`
}

// Default returns a default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	baseDir := filepath.Join(homeDir, ".embroidery-pricing")

	return &Config{
		Version: "1.0",
		Server: ServerConfig{
			Addr:               ":8080",
			ReadTimeoutSeconds: 15,
		},
		Database: DatabaseConfig{
			Driver:         "sqlite",
			DSN:            filepath.Join(baseDir, "pricing.db"),
			MigrateOnStart: true,
		},
		Rates: RatesConfig{
			Provider:       "none",
			TimeoutSeconds: 10,
			RetryCount:     2,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			TTLSeconds: 300,
		},
		Profiles: ProfilesConfig{
			Source: "hcl",
			Path:   "profiles.hcl",
		},
		Storage: StorageConfig{
			Backend: "file",
			Path:    filepath.Join(baseDir, "calculations"),
		},
		Engine: EngineConfig{
			BatchConcurrency: 8,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file and applies environment overrides.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the enumerated settings
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	switch c.Rates.Provider {
	case "none", "static":
	case "http":
		if c.Rates.Endpoint == "" {
			return fmt.Errorf("rates.endpoint is required for the http provider")
		}
	default:
		return fmt.Errorf("rates.provider must be none, static or http, got %q", c.Rates.Provider)
	}
	switch c.Profiles.Source {
	case "hcl", "sql":
	default:
		return fmt.Errorf("profiles.source must be hcl or sql, got %q", c.Profiles.Source)
	}
	switch c.Storage.Backend {
	case "file", "memory", "none":
	default:
		return fmt.Errorf("storage.backend must be file, memory or none, got %q", c.Storage.Backend)
	}
	if c.Engine.BatchConcurrency < 1 {
		return fmt.Errorf("engine.batch_concurrency must be positive, got %d", c.Engine.BatchConcurrency)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	strs := map[string]*string{
		"SERVER_ADDR":     &c.Server.Addr,
		"DATABASE_DRIVER": &c.Database.Driver,
		"DATABASE_DSN":    &c.Database.DSN,
		"RATES_PROVIDER":  &c.Rates.Provider,
		"RATES_PATH":      &c.Rates.Path,
		"RATES_ENDPOINT":  &c.Rates.Endpoint,
		"RATES_SECRET":    &c.Rates.Secret,
		"REDIS_ADDR":      &c.Redis.Addr,
		"REDIS_PASSWORD":  &c.Redis.Password,
		"PROFILES_SOURCE": &c.Profiles.Source,
		"PROFILES_PATH":   &c.Profiles.Path,
		"STORAGE_BACKEND": &c.Storage.Backend,
		"STORAGE_PATH":    &c.Storage.Path,
		"LOG_LEVEL":       &c.Logging.Level,
		"LOG_FORMAT":      &c.Logging.Format,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"REDIS_DB":          &c.Redis.DB,
		"REDIS_TTL_SECONDS": &c.Redis.TTLSeconds,
		"BATCH_CONCURRENCY": &c.Engine.BatchConcurrency,
	}
	for key, dst := range ints {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = n
		}
	}

	bools := map[string]*bool{
		"REDIS_ENABLED":    &c.Redis.Enabled,
		"MIGRATE_ON_START": &c.Database.MigrateOnStart,
	}
	for key, dst := range bools {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = b
		}
	}
	return nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
