// Package fs implements an append-only JSONL audit store backed by a local
// file, stdout, or stderr. One JSON object per line keeps the stream
// consumable by external tooling (jq, log shippers) both during and after
// the server's lifetime.
package fs

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/marmos91/lineserve/pkg/audit"
)

// FSAuditStore serializes events as JSON lines to a single writer.
//
// Thread safety: a mutex serializes Append calls so events from concurrent
// connection workers never interleave mid-line.
type FSAuditStore struct {
	mu   sync.Mutex
	w    io.Writer
	enc  *json.Encoder
	file *os.File // nil when writing to stdout/stderr
}

// New creates a JSONL audit store. path may be "-" or "stdout" for standard
// output, "stderr" for standard error, or a file path opened in append mode.
func New(path string) (*FSAuditStore, error) {
	var (
		w io.Writer
		f *os.File
	)

	switch path {
	case "", "-", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open audit log %q: %w", path, err)
		}
		w = file
		f = file
	}

	return &FSAuditStore{
		w:    w,
		enc:  json.NewEncoder(w),
		file: f,
	}, nil
}

// Append writes one event as a single JSON line.
func (s *FSAuditStore) Append(event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enc.Encode(event); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// Close syncs and closes the underlying file. Closing a stdout/stderr store
// is a no-op so the process's own streams stay usable.
func (s *FSAuditStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	if err := s.file.Sync(); err != nil {
		_ = s.file.Close()
		return fmt.Errorf("sync audit log: %w", err)
	}
	return s.file.Close()
}

// ReadEvents decodes a JSONL audit stream back into events. Used by tests
// and by external queries over an archived log.
func ReadEvents(r io.Reader) ([]audit.Event, error) {
	var events []audit.Event

	dec := json.NewDecoder(r)
	for {
		var e audit.Event
		if err := dec.Decode(&e); err == io.EOF {
			return events, nil
		} else if err != nil {
			return nil, fmt.Errorf("decode audit event %d: %w", len(events), err)
		}
		events = append(events, e)
	}
}
