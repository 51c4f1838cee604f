package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultConfig(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Write minimal config
	configContent := `
logging:
  level: "INFO"

file:
  path: "/data/lines.txt"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.File.Path != "/data/lines.txt" {
		t.Errorf("File.Path = %q, want %q", cfg.File.Path, "/data/lines.txt")
	}
	if cfg.Server.Listen != ":7878" {
		t.Errorf("Server.Listen = %q, want %q (default)", cfg.Server.Listen, ":7878")
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want %v (default)", cfg.Server.ShutdownTimeout, 10*time.Second)
	}
	if cfg.Audit.Type != "fs" {
		t.Errorf("Audit.Type = %q, want %q (default)", cfg.Audit.Type, "fs")
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Metrics.Port = %d, want 9090 (default)", cfg.Metrics.Port)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "debug"
  output: "stderr"

server:
  listen: "127.0.0.1:9999"
  max_connections: 64
  idle_timeout: 2m
  shutdown_timeout: 5s
  rate_limit: 100
  rate_burst: 200

file:
  path: "/data/lines.txt"

audit:
  type: "badger"
  badger:
    path: "/var/lib/lineserve/audit"

metrics:
  enabled: true
  port: 9191
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Logging.Level = %q, want %q (normalized)", cfg.Logging.Level, "DEBUG")
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Logging.Output = %q, want %q", cfg.Logging.Output, "stderr")
	}
	if cfg.Server.Listen != "127.0.0.1:9999" {
		t.Errorf("Server.Listen = %q, want %q", cfg.Server.Listen, "127.0.0.1:9999")
	}
	if cfg.Server.MaxConnections != 64 {
		t.Errorf("Server.MaxConnections = %d, want 64", cfg.Server.MaxConnections)
	}
	if cfg.Server.IdleTimeout != 2*time.Minute {
		t.Errorf("Server.IdleTimeout = %v, want 2m", cfg.Server.IdleTimeout)
	}
	if cfg.Server.RateLimit != 100 {
		t.Errorf("Server.RateLimit = %d, want 100", cfg.Server.RateLimit)
	}
	if cfg.Audit.Type != "badger" {
		t.Errorf("Audit.Type = %q, want %q", cfg.Audit.Type, "badger")
	}
	if got, _ := cfg.Audit.Badger["path"].(string); got != "/var/lib/lineserve/audit" {
		t.Errorf("Audit.Badger[path] = %q, want %q", got, "/var/lib/lineserve/audit")
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Port != 9191 {
		t.Errorf("Metrics = %+v, want enabled on port 9191", cfg.Metrics)
	}
}

func TestLoad_MissingConfigFileUsesDefaults(t *testing.T) {
	// Point the default config dir at an empty directory
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("", func(c *Config) {
		c.File.Path = "/data/lines.txt"
	})
	if err != nil {
		t.Fatalf("Load() failed without a config file: %v", err)
	}

	if cfg.Server.Listen != ":7878" {
		t.Errorf("Server.Listen = %q, want default", cfg.Server.Listen)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Logging.Level = %q, want default", cfg.Logging.Level)
	}
}

func TestLoad_OverridesTakePrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  listen: ":7878"

file:
  path: "/data/lines.txt"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath, func(c *Config) {
		c.Server.Listen = "127.0.0.1:12345"
	})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Listen != "127.0.0.1:12345" {
		t.Errorf("Server.Listen = %q, want override to win", cfg.Server.Listen)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("{not: [valid"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Load() succeeded on invalid YAML, want error")
	}
}

func TestLoad_MissingFilePath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("logging:\n  level: INFO\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Load() succeeded without file.path, want validation error")
	}
}
