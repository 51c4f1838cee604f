package config

import (
	"strings"
	"testing"
)

// validConfig returns a config that passes validation, for mutation in tests.
func validConfig() *Config {
	cfg := &Config{}
	cfg.File.Path = "/data/lines.txt"
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Errorf("Validate() failed on valid config: %v", err)
	}
}

func TestValidate_MissingFilePath(t *testing.T) {
	cfg := validConfig()
	cfg.File.Path = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate() succeeded without file.path")
	}
	if !strings.Contains(err.Error(), "file") {
		t.Errorf("error %q does not mention the file section", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "VERBOSE"

	if err := Validate(cfg); err == nil {
		t.Error("Validate() accepted invalid log level")
	}
}

func TestValidate_InvalidAuditType(t *testing.T) {
	cfg := validConfig()
	cfg.Audit.Type = "postgres"

	if err := Validate(cfg); err == nil {
		t.Error("Validate() accepted unknown audit type")
	}
}

func TestValidate_S3ArchivalRules(t *testing.T) {
	t.Run("requires bucket", func(t *testing.T) {
		cfg := validConfig()
		cfg.Audit.S3.Enabled = true
		cfg.Audit.S3.Region = "us-east-1"

		if err := Validate(cfg); err == nil {
			t.Error("Validate() accepted s3 archival without a bucket")
		}
	})

	t.Run("requires region", func(t *testing.T) {
		cfg := validConfig()
		cfg.Audit.S3.Enabled = true
		cfg.Audit.S3.Bucket = "audit-logs"

		if err := Validate(cfg); err == nil {
			t.Error("Validate() accepted s3 archival without a region")
		}
	})

	t.Run("requires fs audit store", func(t *testing.T) {
		cfg := validConfig()
		cfg.Audit.Type = "badger"
		cfg.Audit.S3.Enabled = true
		cfg.Audit.S3.Bucket = "audit-logs"
		cfg.Audit.S3.Region = "us-east-1"

		if err := Validate(cfg); err == nil {
			t.Error("Validate() accepted s3 archival over a badger store")
		}
	})

	t.Run("complete configuration passes", func(t *testing.T) {
		cfg := validConfig()
		cfg.Audit.S3.Enabled = true
		cfg.Audit.S3.Bucket = "audit-logs"
		cfg.Audit.S3.Region = "us-east-1"

		if err := Validate(cfg); err != nil {
			t.Errorf("Validate() failed on complete s3 config: %v", err)
		}
	})
}

func TestValidate_MetricsPort(t *testing.T) {
	cfg := validConfig()
	cfg.Metrics.Port = 70000

	if err := Validate(cfg); err == nil {
		t.Error("Validate() accepted out-of-range metrics port")
	}
}

func TestValidate_ShutdownTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Server.ShutdownTimeout = 0

	if err := Validate(cfg); err == nil {
		t.Error("Validate() accepted zero shutdown_timeout")
	}
}
