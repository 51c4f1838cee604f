package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/lineserve/internal/logger"
	"github.com/marmos91/lineserve/pkg/audit"
	auditBadger "github.com/marmos91/lineserve/pkg/audit/badger"
	auditFs "github.com/marmos91/lineserve/pkg/audit/fs"
	auditS3 "github.com/marmos91/lineserve/pkg/audit/s3"
)

// CreateAuditStore creates an audit store based on configuration.
//
// This factory function uses the Type field to determine which store
// implementation to create, then decodes the type-specific configuration
// from the corresponding map and passes it to the store's constructor.
//
// Supported types:
//   - "none": Discards all events
//   - "fs": Uses pkg/audit/fs (append-only JSONL file)
//   - "badger": Uses pkg/audit/badger (BadgerDB storage, queryable)
func CreateAuditStore(ctx context.Context, cfg *AuditConfig) (audit.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case "none":
		return audit.NewNopStore(), nil
	case "fs":
		return createFSAuditStore(cfg.FS)
	case "badger":
		return createBadgerAuditStore(cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown audit store type: %q (supported: none, fs, badger)", cfg.Type)
	}
}

// createFSAuditStore creates a JSONL file audit store.
func createFSAuditStore(options map[string]any) (audit.Store, error) {
	type FSAuditStoreOptions struct {
		Path string `mapstructure:"path"`
	}

	var storeOpts FSAuditStoreOptions
	if err := mapstructure.Decode(options, &storeOpts); err != nil {
		return nil, fmt.Errorf("failed to decode fs audit store options: %w", err)
	}

	store, err := auditFs.New(storeOpts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create fs audit store: %w", err)
	}

	return store, nil
}

// createBadgerAuditStore creates a BadgerDB-backed persistent audit store.
func createBadgerAuditStore(options map[string]any) (audit.Store, error) {
	type BadgerAuditStoreOptions struct {
		Path string `mapstructure:"path"`
	}

	var storeOpts BadgerAuditStoreOptions
	if err := mapstructure.Decode(options, &storeOpts); err != nil {
		return nil, fmt.Errorf("failed to decode badger audit store options: %w", err)
	}

	if storeOpts.Path == "" {
		return nil, fmt.Errorf("badger audit store: path is required")
	}

	store, err := auditBadger.New(storeOpts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger audit store: %w", err)
	}

	return store, nil
}

// FSAuditPath returns the JSONL file path of an fs audit store, or "" when
// the store writes to a standard stream or another store type is selected.
// Used by the shutdown-time S3 archiver to find the file to upload.
func (c *AuditConfig) FSAuditPath() string {
	if c.Type != "fs" {
		return ""
	}

	path, _ := c.FS["path"].(string)
	switch path {
	case "", "-", "stdout", "stderr":
		return ""
	}
	return path
}

// CreateS3Archiver creates the shutdown-time audit archiver, or nil when
// archival is disabled.
func CreateS3Archiver(ctx context.Context, cfg *S3ArchiveConfig) (*auditS3.Archiver, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 archiver: bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 archiver: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(cfg.Region))

	// Custom endpoint support (for MinIO, Localstack, etc.)
	if cfg.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	// Static credentials if provided, otherwise the default credential chain
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Path-style addressing for compatibility with MinIO/Localstack
		if cfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	archiver, err := auditS3.NewArchiver(auditS3.ArchiverConfig{
		Client:    client,
		Bucket:    cfg.Bucket,
		KeyPrefix: cfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 archiver: %w", err)
	}

	logger.Info("S3 audit archiver initialized: bucket=%s, region=%s, prefix=%s",
		cfg.Bucket, cfg.Region, cfg.KeyPrefix)

	return archiver, nil
}
