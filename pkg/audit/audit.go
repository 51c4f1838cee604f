// Package audit defines the server's append-only event stream: the event
// schema, the store contract sinks implement, and a no-op store.
//
// Every connection lifecycle transition and every request/response pair
// produces exactly one event. Events within one connection are ordered by
// timestamp; no ordering is guaranteed across connections. The store is the
// external observability contract: it must remain queryable while the server
// runs and after it exits, but the server's only obligation is to emit
// complete, timestamped events.
package audit

import "time"

// Kind classifies an audit event.
type Kind string

const (
	KindConnect           Kind = "connect"
	KindRequest           Kind = "request"
	KindResponse          Kind = "response"
	KindDisconnect        Kind = "disconnect"
	KindShutdownInitiated Kind = "shutdown_initiated"
)

// Event is one entry in the audit stream. ConnectionID 0 marks
// supervisor-level events that are not tied to a single client.
type Event struct {
	Timestamp    time.Time `json:"timestamp"`
	ConnectionID uint64    `json:"connection_id"`
	Kind         Kind      `json:"kind"`

	// Peer is the client's remote address (connect/disconnect).
	Peer string `json:"peer,omitempty"`

	// Command is the decoded verb for request/response events
	// (GET, QUIT, SHUTDOWN, MALFORMED).
	Command string `json:"command,omitempty"`

	// Status is the response outcome: "ok", "err", or "fault".
	Status string `json:"status,omitempty"`

	// Detail carries free-form context: the requested line number,
	// or the fault description for storage and connection faults.
	Detail string `json:"detail,omitempty"`

	// RequestCount is the number of commands the connection processed,
	// reported on disconnect.
	RequestCount uint64 `json:"request_count,omitempty"`

	// BytesWritten is the payload size of a successful response.
	BytesWritten uint64 `json:"bytes_written,omitempty"`

	// SessionSeconds is the connection's lifetime, reported on disconnect.
	SessionSeconds float64 `json:"session_seconds,omitempty"`
}

// Store is an append-only audit sink.
//
// Append is called from every connection goroutine concurrently and must be
// safe for concurrent use. A Store failure must never take down the serving
// path; callers log and continue.
type Store interface {
	Append(event Event) error
	Close() error
}

// NopStore discards all events. Used when auditing is disabled and in tests.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (*NopStore) Append(Event) error { return nil }
func (*NopStore) Close() error       { return nil }
