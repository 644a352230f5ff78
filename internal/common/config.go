// Package common provides shared utilities for dcrx-kv: configuration,
// logging, and build/version metadata.
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds all process-wide configuration, read once at startup.
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Storage     StorageConfig  `toml:"storage"`
	Database    DatabaseConfig `toml:"database"`
	Auth        AuthConfig     `toml:"auth"`
	Logging     LoggingConfig  `toml:"logging"`
	Monitor     MonitorConfig  `toml:"monitor"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds job queue admission, worker, and pruning tunables.
type StorageConfig struct {
	MaxJobs           int    `toml:"max_jobs"`
	MaxPendingJobs    int    `toml:"max_pending_jobs"`
	MaxJobWorkers     int    `toml:"max_job_workers"`
	UploadTimeout     string `toml:"upload_timeout"`
	DownloadTimeout   string `toml:"download_timeout"`
	PruneInterval     string `toml:"prune_interval"`
	BlobMaxAge        string `toml:"blob_max_age"`
	MaxPendingWait    string `toml:"max_pending_wait"`
	PoolSize          int    `toml:"pool_size"`
}

// GetUploadTimeout parses StorageConfig.UploadTimeout, defaulting to 30s.
func (c *StorageConfig) GetUploadTimeout() time.Duration {
	return parseDurationOr(c.UploadTimeout, 30*time.Second)
}

// GetDownloadTimeout parses StorageConfig.DownloadTimeout, defaulting to 30s.
func (c *StorageConfig) GetDownloadTimeout() time.Duration {
	return parseDurationOr(c.DownloadTimeout, 30*time.Second)
}

// GetPruneInterval parses StorageConfig.PruneInterval, defaulting to 30s.
func (c *StorageConfig) GetPruneInterval() time.Duration {
	return parseDurationOr(c.PruneInterval, 30*time.Second)
}

// GetBlobMaxAge parses StorageConfig.BlobMaxAge, defaulting to 10m.
func (c *StorageConfig) GetBlobMaxAge() time.Duration {
	return parseDurationOr(c.BlobMaxAge, 10*time.Minute)
}

// GetMaxPendingWait parses StorageConfig.MaxPendingWait, defaulting to 5s.
func (c *StorageConfig) GetMaxPendingWait() time.Duration {
	return parseDurationOr(c.MaxPendingWait, 5*time.Second)
}

// DatabaseConfig describes the MetadataStore's backing SQL database.
type DatabaseConfig struct {
	Type               string `toml:"type"` // sqlite | postgres | mysql
	URI                string `toml:"uri"`
	Name               string `toml:"name"`
	Username           string `toml:"username"`
	Password           string `toml:"password"`
	Port               int    `toml:"port"`
	TransactionRetries int    `toml:"transaction_retries"`
}

// GetTransactionRetries returns the configured retry budget, defaulting to 3.
func (c *DatabaseConfig) GetTransactionRetries() int {
	if c.TransactionRetries <= 0 {
		return 3
	}
	return c.TransactionRetries
}

// AuthConfig holds bearer-token signing configuration.
type AuthConfig struct {
	SecretKey      string `toml:"secret_key"`
	Algorithm      string `toml:"algorithm"`
	TokenExpiry    string `toml:"token_expiration"`
}

// GetTokenExpiry parses AuthConfig.TokenExpiry, defaulting to 1h.
func (c *AuthConfig) GetTokenExpiry() time.Duration {
	return parseDurationOr(c.TokenExpiry, time.Hour)
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// MonitorConfig gates admission on sampled resource usage.
type MonitorConfig struct {
	MaxMemoryPercentUsage float64 `toml:"max_memory_percent_usage"`
	SampleInterval        string  `toml:"sample_interval"`
}

// GetSampleInterval parses MonitorConfig.SampleInterval, defaulting to 5s.
func (c *MonitorConfig) GetSampleInterval() time.Duration {
	return parseDurationOr(c.SampleInterval, 5*time.Second)
}

func parseDurationOr(spec string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(spec)
	if err != nil {
		return fallback
	}
	return d
}

// NewDefaultConfig returns a Config with sensible defaults for local
// development.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			MaxJobs:         16,
			MaxPendingJobs:  64,
			MaxJobWorkers:   4,
			UploadTimeout:   "30s",
			DownloadTimeout: "30s",
			PruneInterval:   "30s",
			BlobMaxAge:      "10m",
			MaxPendingWait:  "5s",
			PoolSize:        8,
		},
		Database: DatabaseConfig{
			Type:               "sqlite",
			Name:                "dcrx_kv.db",
			TransactionRetries: 3,
		},
		Auth: AuthConfig{
			SecretKey:   "dev-secret-change-in-production",
			Algorithm:   "HS256",
			TokenExpiry: "1h",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Monitor: MonitorConfig{
			MaxMemoryPercentUsage: 0, // 0 disables the resource-based admission gate
			SampleInterval:        "5s",
		},
	}
}

// LoadConfig loads configuration from the given path (TOML, or YAML when
// the extension is .yaml/.yml), applying it over the defaults, then
// applies environment variable overrides. A missing path is not an error —
// defaults apply.
func LoadConfig(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}

			if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
				if err := yaml.Unmarshal(data, config); err != nil {
					return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
				}
			} else if err := toml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

// applyEnvOverrides applies DCRX_KV_* environment variable overrides.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("DCRX_KV_ENV"); env != "" {
		config.Environment = env
	}
	if host := os.Getenv("DCRX_KV_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("DCRX_KV_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if level := os.Getenv("DCRX_KV_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if secret := os.Getenv("DCRX_KV_SECRET_KEY"); secret != "" {
		config.Auth.SecretKey = secret
	}
	if dbType := os.Getenv("DCRX_KV_DATABASE_TYPE"); dbType != "" {
		config.Database.Type = dbType
	}
	if dbURI := os.Getenv("DCRX_KV_DATABASE_URI"); dbURI != "" {
		config.Database.URI = dbURI
	}
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
