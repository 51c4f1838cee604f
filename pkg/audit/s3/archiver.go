// Package s3 archives the audit log to S3 (or S3-compatible) object storage
// at shutdown, so the event stream stays queryable long after the serving
// host is gone.
package s3

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/marmos91/lineserve/internal/logger"
)

// Archiver uploads a finished JSONL audit log as a single object.
type Archiver struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// ArchiverConfig contains configuration for the audit archiver.
type ArchiverConfig struct {
	// Client is the configured S3 client
	Client *s3.Client

	// Bucket is the destination bucket; must already exist
	Bucket string

	// KeyPrefix is prepended to every archived object key
	// Example: "lineserve/audit/" results in keys like "lineserve/audit/audit-20060102T150405Z.jsonl"
	KeyPrefix string
}

// NewArchiver creates an Archiver. The bucket is not created or verified
// here; a missing bucket surfaces as an upload error at shutdown.
func NewArchiver(cfg ArchiverConfig) (*Archiver, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	return &Archiver{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// Archive uploads body under a timestamped key and returns that key.
func (a *Archiver) Archive(ctx context.Context, body io.Reader) (string, error) {
	key := fmt.Sprintf("%saudit-%s.jsonl", a.keyPrefix, time.Now().UTC().Format("20060102T150405Z"))

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return "", fmt.Errorf("archive audit log to s3://%s/%s: %w", a.bucket, key, err)
	}

	logger.Info("Audit log archived to s3://%s/%s", a.bucket, key)
	return key, nil
}
