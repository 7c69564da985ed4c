// Package config holds the application configuration for a sync replica.
package config

import (
	"fmt"
	"path/filepath"
)

// Config represents the complete application configuration
type Config struct {
	Sync          SyncConfig          `yaml:"sync"`
	Conflict      ConflictConfig      `yaml:"conflict"`
	Storage       StorageConfig       `yaml:"storage"`
	Compression   CompressionConfig   `yaml:"compression"`
	Monitoring    MonitoringConfig    `yaml:"monitoring"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// SyncConfig contains synchronization settings
type SyncConfig struct {
	DeviceID         string `yaml:"device_id"`
	MaxBatchSize     int    `yaml:"max_batch_size"`
	OperationLogSize int    `yaml:"operation_log_size"`
}

// ConflictConfig contains conflict resolution settings
type ConflictConfig struct {
	DefaultStrategy string `yaml:"default_strategy"`
	AutoResolve     bool   `yaml:"auto_resolve"`
}

// StorageConfig contains persistence settings
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// CompressionConfig contains payload compression settings
type CompressionConfig struct {
	Enabled              bool   `yaml:"enabled"`
	PayloadSizeThreshold int    `yaml:"payload_size_threshold"`
	Algorithm            string `yaml:"algorithm"`
	Level                int    `yaml:"level"`
}

// MonitoringConfig contains the metrics HTTP server settings
type MonitoringConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// ObservabilityConfig contains observability settings
type ObservabilityConfig struct {
	OTELendpoint   string `yaml:"otel_endpoint"`
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
	TracingEnabled bool   `yaml:"tracing_enabled"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Sync: SyncConfig{
			DeviceID:         "",
			MaxBatchSize:     500,
			OperationLogSize: 10000,
		},
		Conflict: ConflictConfig{
			DefaultStrategy: "LAST_WRITER_WINS",
			AutoResolve:     true,
		},
		Storage: StorageConfig{
			DataDir: "/var/lib/proof-sync",
		},
		Compression: CompressionConfig{
			Enabled:              true,
			PayloadSizeThreshold: 4096,
			Algorithm:            "zstd",
			Level:                3,
		},
		Monitoring: MonitoringConfig{
			Enabled: true,
			Port:    9090,
		},
		Observability: ObservabilityConfig{
			OTELendpoint:   "",
			LogLevel:       "info",
			MetricsEnabled: true,
			TracingEnabled: true,
		},
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}

	if c.Sync.MaxBatchSize < 1 || c.Sync.MaxBatchSize > 10000 {
		return fmt.Errorf("max_batch_size must be between 1 and 10000")
	}
	if c.Sync.OperationLogSize < 100 {
		return fmt.Errorf("operation_log_size must be at least 100")
	}

	switch c.Conflict.DefaultStrategy {
	case "MERGE_OPERATIONS", "LAST_WRITER_WINS", "FIRST_WRITER_WINS", "USER_DECISION_REQUIRED":
	default:
		return fmt.Errorf("conflict.default_strategy must be one of: MERGE_OPERATIONS, LAST_WRITER_WINS, FIRST_WRITER_WINS, USER_DECISION_REQUIRED")
	}

	if err := c.Compression.Validate(); err != nil {
		return fmt.Errorf("compression config: %w", err)
	}

	if c.Monitoring.Enabled {
		if c.Monitoring.Port < 1024 || c.Monitoring.Port > 65535 {
			return fmt.Errorf("monitoring.port must be between 1024 and 65535")
		}
	}

	if c.Observability.LogLevel != "debug" &&
		c.Observability.LogLevel != "info" &&
		c.Observability.LogLevel != "warn" &&
		c.Observability.LogLevel != "error" {
		return fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}

	return nil
}

// Validate validates compression configuration
func (cc *CompressionConfig) Validate() error {
	if !cc.Enabled {
		return nil
	}

	if cc.PayloadSizeThreshold < 64 || cc.PayloadSizeThreshold > 10485760 {
		return fmt.Errorf("payload_size_threshold must be between 64 and 10485760 bytes")
	}

	switch cc.Algorithm {
	case "zstd":
		if cc.Level < 1 || cc.Level > 22 {
			return fmt.Errorf("zstd level must be between 1 and 22")
		}
	case "lz4":
		if cc.Level < 1 || cc.Level > 16 {
			return fmt.Errorf("lz4 level must be between 1 and 16")
		}
	case "gzip":
		if cc.Level < 1 || cc.Level > 9 {
			return fmt.Errorf("gzip level must be between 1 and 9")
		}
	case "none":
		// No level validation needed
	default:
		return fmt.Errorf("compression algorithm must be one of: zstd, lz4, gzip, none")
	}

	return nil
}

// GetDBPath returns the database file path
func (c *Config) GetDBPath() string {
	return filepath.Join(c.Storage.DataDir, "proof_sync.db")
}
