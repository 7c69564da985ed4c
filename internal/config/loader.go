package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Load from YAML file if it exists
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(cfg *Config) {
	if val := os.Getenv("PROOF_SYNC_DEVICE_ID"); val != "" {
		cfg.Sync.DeviceID = val
	}
	if val := os.Getenv("PROOF_SYNC_DATA_DIR"); val != "" {
		cfg.Storage.DataDir = val
	}
	if val := os.Getenv("PROOF_SYNC_MAX_BATCH_SIZE"); val != "" {
		if n := parseInt(val); n > 0 {
			cfg.Sync.MaxBatchSize = n
		}
	}

	// Conflict resolution
	if val := os.Getenv("PROOF_SYNC_DEFAULT_STRATEGY"); val != "" {
		cfg.Conflict.DefaultStrategy = val
	}
	if val := os.Getenv("PROOF_SYNC_AUTO_RESOLVE"); val != "" {
		cfg.Conflict.AutoResolve = val == "true" || val == "1"
	}

	// Compression settings
	if val := os.Getenv("PROOF_SYNC_COMPRESSION_ENABLED"); val != "" {
		cfg.Compression.Enabled = val == "true" || val == "1"
	}
	if val := os.Getenv("PROOF_SYNC_COMPRESSION_ALGORITHM"); val != "" {
		cfg.Compression.Algorithm = val
	}

	// Monitoring
	if val := os.Getenv("PROOF_SYNC_MONITORING_PORT"); val != "" {
		if port := parseInt(val); port > 0 {
			cfg.Monitoring.Port = port
		}
	}

	// Observability
	if val := os.Getenv("OTEL_ENDPOINT"); val != "" {
		cfg.Observability.OTELendpoint = val
	}
	if val := os.Getenv("PROOF_SYNC_LOG_LEVEL"); val != "" {
		cfg.Observability.LogLevel = val
	}
}

// parseInt parses an integer from a string, returns 0 on error
func parseInt(s string) int {
	var val int
	fmt.Sscanf(s, "%d", &val)
	return val
}
