package config

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/lineserve/pkg/audit"
)

func TestCreateAuditStore_None(t *testing.T) {
	ctx := context.Background()

	store, err := CreateAuditStore(ctx, &AuditConfig{Type: "none"})
	if err != nil {
		t.Fatalf("CreateAuditStore() failed: %v", err)
	}
	defer store.Close()

	if _, ok := store.(*audit.NopStore); !ok {
		t.Errorf("store type = %T, want *audit.NopStore", store)
	}
}

func TestCreateAuditStore_FS(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	store, err := CreateAuditStore(ctx, &AuditConfig{
		Type: "fs",
		FS:   map[string]any{"path": path},
	})
	if err != nil {
		t.Fatalf("CreateAuditStore() failed: %v", err)
	}
	defer store.Close()

	if err := store.Append(audit.Event{Kind: audit.KindConnect, ConnectionID: 1}); err != nil {
		t.Errorf("Append() failed: %v", err)
	}
}

func TestCreateAuditStore_Badger(t *testing.T) {
	ctx := context.Background()

	store, err := CreateAuditStore(ctx, &AuditConfig{
		Type:   "badger",
		Badger: map[string]any{"path": t.TempDir()},
	})
	if err != nil {
		t.Fatalf("CreateAuditStore() failed: %v", err)
	}
	defer store.Close()

	if err := store.Append(audit.Event{Kind: audit.KindConnect, ConnectionID: 1}); err != nil {
		t.Errorf("Append() failed: %v", err)
	}
}

func TestCreateAuditStore_BadgerRequiresPath(t *testing.T) {
	ctx := context.Background()

	_, err := CreateAuditStore(ctx, &AuditConfig{
		Type:   "badger",
		Badger: map[string]any{},
	})
	if err == nil {
		t.Fatal("CreateAuditStore() succeeded without a badger path")
	}
	if !strings.Contains(err.Error(), "path is required") {
		t.Errorf("error = %q, want path requirement", err)
	}
}

func TestCreateAuditStore_UnknownType(t *testing.T) {
	ctx := context.Background()

	_, err := CreateAuditStore(ctx, &AuditConfig{Type: "kafka"})
	if err == nil {
		t.Fatal("CreateAuditStore() succeeded with unknown type")
	}
	if !strings.Contains(err.Error(), "unknown audit store type") {
		t.Errorf("error = %q, want unknown type message", err)
	}
}

func TestCreateS3Archiver_Disabled(t *testing.T) {
	ctx := context.Background()

	archiver, err := CreateS3Archiver(ctx, &S3ArchiveConfig{Enabled: false})
	if err != nil {
		t.Fatalf("CreateS3Archiver() failed: %v", err)
	}
	if archiver != nil {
		t.Error("CreateS3Archiver() returned an archiver while disabled")
	}
}

func TestCreateS3Archiver_RequiresBucketAndRegion(t *testing.T) {
	ctx := context.Background()

	if _, err := CreateS3Archiver(ctx, &S3ArchiveConfig{
		Enabled: true,
		Region:  "us-east-1",
	}); err == nil {
		t.Error("CreateS3Archiver() succeeded without a bucket")
	}

	if _, err := CreateS3Archiver(ctx, &S3ArchiveConfig{
		Enabled: true,
		Bucket:  "audit-logs",
	}); err == nil {
		t.Error("CreateS3Archiver() succeeded without a region")
	}
}

func TestCreateS3Archiver_CustomEndpoint(t *testing.T) {
	ctx := context.Background()

	archiver, err := CreateS3Archiver(ctx, &S3ArchiveConfig{
		Enabled:         true,
		Region:          "us-east-1",
		Bucket:          "audit-logs",
		KeyPrefix:       "lineserve/",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
	})
	if err != nil {
		t.Fatalf("CreateS3Archiver() failed: %v", err)
	}
	if archiver == nil {
		t.Fatal("CreateS3Archiver() returned nil archiver")
	}
}

func TestFSAuditPath(t *testing.T) {
	tests := []struct {
		name string
		cfg  AuditConfig
		want string
	}{
		{"fs with file path", AuditConfig{Type: "fs", FS: map[string]any{"path": "/tmp/a.jsonl"}}, "/tmp/a.jsonl"},
		{"fs with stdout", AuditConfig{Type: "fs", FS: map[string]any{"path": "stdout"}}, ""},
		{"fs with dash", AuditConfig{Type: "fs", FS: map[string]any{"path": "-"}}, ""},
		{"fs without path", AuditConfig{Type: "fs", FS: map[string]any{}}, ""},
		{"badger store", AuditConfig{Type: "badger", FS: map[string]any{"path": "/tmp/a.jsonl"}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.FSAuditPath(); got != tt.want {
				t.Errorf("FSAuditPath() = %q, want %q", got, tt.want)
			}
		})
	}
}
