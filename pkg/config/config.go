package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/marmos91/lineserve/internal/server"
)

// Config represents the complete line server configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority, applied via Load overrides)
//  2. Environment variables (LINESERVE_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
//
// Audit Store Configuration Pattern:
// Each audit store implementation defines its own options. The Audit section
// contains type-specific subsections (audit.fs, audit.badger) and only the
// subsection matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains the TCP listener and connection settings
	Server server.Config `mapstructure:"server"`

	// File points at the line file served to clients
	File FileConfig `mapstructure:"file"`

	// Audit specifies the audit store type and type-specific configuration
	Audit AuditConfig `mapstructure:"audit"`

	// Metrics controls the Prometheus exposition endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// FileConfig points at the file whose lines are served.
type FileConfig struct {
	// Path is the line file. The file is indexed once at startup and
	// treated as immutable for the lifetime of the process.
	Path string `mapstructure:"path"`
}

// AuditConfig specifies audit store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type AuditConfig struct {
	// Type specifies which audit store implementation to use
	// Valid values: none, fs, badger
	Type string `mapstructure:"type" validate:"required,oneof=none fs badger"`

	// FS contains JSONL file store configuration
	// Only used when Type = "fs"
	FS map[string]any `mapstructure:"fs"`

	// Badger contains BadgerDB store configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`

	// S3 configures archival of the audit log at shutdown
	S3 S3ArchiveConfig `mapstructure:"s3"`
}

// S3ArchiveConfig configures shutdown-time archival of the audit log to S3
// or an S3-compatible endpoint.
type S3ArchiveConfig struct {
	// Enabled turns archival on. Requires Type = "fs".
	Enabled bool `mapstructure:"enabled"`

	// Region is the AWS region
	Region string `mapstructure:"region"`

	// Bucket is the destination bucket; must already exist
	Bucket string `mapstructure:"bucket"`

	// KeyPrefix is prepended to every archived object key
	KeyPrefix string `mapstructure:"key_prefix"`

	// Endpoint overrides the S3 endpoint (for MinIO, Localstack, etc.)
	Endpoint string `mapstructure:"endpoint"`

	// AccessKeyID and SecretAccessKey provide static credentials.
	// When empty, the default AWS credential chain is used.
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`

	// MaxRetries is the upload retry budget. 0 uses the default.
	MaxRetries int `mapstructure:"max_retries"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled turns metrics collection and the /metrics endpoint on
	Enabled bool `mapstructure:"enabled"`

	// Port is the metrics HTTP port
	Port int `mapstructure:"port" validate:"min=0,max=65535"`
}

// Override mutates the configuration between unmarshalling and validation.
// CLI flags are applied this way so they take precedence over the file and
// environment while still being validated.
type Override func(*Config)

// Load loads configuration from file, environment, defaults, and overrides.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//   - overrides: Applied after unmarshalling, before defaults and validation
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string, overrides ...Override) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, override := range overrides {
		override(&cfg)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use LINESERVE_ prefix and underscores
	// Example: LINESERVE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("LINESERVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is acceptable - defaults apply
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "lineserve")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "lineserve")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
