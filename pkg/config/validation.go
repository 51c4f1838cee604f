package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for rules that cannot
// be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if cfg.File.Path == "" {
		return fmt.Errorf("file: path is required (set file.path, LINESERVE_FILE_PATH, or the -file flag)")
	}

	if cfg.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server: shutdown_timeout must be > 0")
	}

	if cfg.Audit.S3.Enabled {
		if cfg.Audit.Type != "fs" {
			return fmt.Errorf("audit: s3 archival requires type \"fs\" (got %q)", cfg.Audit.Type)
		}
		if cfg.Audit.S3.Bucket == "" {
			return fmt.Errorf("audit: s3.bucket is required when s3 archival is enabled")
		}
		if cfg.Audit.S3.Region == "" {
			return fmt.Errorf("audit: s3.region is required when s3 archival is enabled")
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Port <= 0 {
		return fmt.Errorf("metrics: port must be > 0 when metrics are enabled")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
