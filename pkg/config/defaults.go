package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are handled inside the type-specific maps
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(cfg)
	applyAuditDefaults(&cfg.Audit)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets listener and timeout defaults. These mirror the
// defaults the server itself applies, so a generated sample config shows the
// effective values.
func applyServerDefaults(cfg *Config) {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":7878"
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 5 * time.Minute
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	// MaxConnections defaults to 0 (unlimited)
	// RateLimit defaults to 0 (unlimited)
}

// applyAuditDefaults sets audit store defaults.
func applyAuditDefaults(cfg *AuditConfig) {
	if cfg.Type == "" {
		cfg.Type = "fs"
	}

	// Initialize maps if nil
	if cfg.FS == nil {
		cfg.FS = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	// Apply defaults for all store types (for config file generation)
	if _, ok := cfg.FS["path"]; !ok {
		cfg.FS["path"] = "lineserve-audit.jsonl"
	}
	if _, ok := cfg.Badger["path"]; !ok {
		cfg.Badger["path"] = "lineserve-audit-db"
	}
}

// applyMetricsDefaults sets metrics endpoint defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		File: FileConfig{
			Path: "lines.txt",
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
