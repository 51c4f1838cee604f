// Package badger implements a persistent, queryable audit store backed by
// BadgerDB.
//
// Database Key Namespace Design
// ==============================
//
// Data Type              Prefix   Key Format            Value Type
// ================================================================
// Event Stream           "e:"     e:<seq>               Event (JSON)
// Per-Connection Index   "c:"     c:<connID>:<seq>      Event (JSON)
//
// The sequence number is a zero-padded 20-digit decimal so lexicographic key
// order matches append order. The per-connection namespace duplicates the
// event value, trading a little disk for single-scan queries: reconstructing
// one connection's history (duration, request count, command activity) is a
// prefix scan with no secondary lookup.
package badger

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/lineserve/pkg/audit"
)

// Store is a BadgerDB-backed audit.Store. Events survive process exit, which
// satisfies the requirement that the audit stream stays queryable after the
// server terminates.
//
// Thread safety: Append is safe for concurrent use; sequencing goes through
// an atomic counter and Badger transactions.
type Store struct {
	db  *badger.DB
	seq atomic.Uint64
}

// New opens (or creates) the audit database at path.
//
// The sequence counter is recovered from the highest existing event key so
// append order is preserved across restarts.
func New(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts = opts.WithLogger(nil) // badger's own logging is too chatty for an audit sink

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open audit database at %q: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.recoverSequence(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func eventKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("e:%020d", seq))
}

func connKey(connID, seq uint64) []byte {
	return []byte(fmt.Sprintf("c:%020d:%020d", connID, seq))
}

func connPrefix(connID uint64) []byte {
	return []byte(fmt.Sprintf("c:%020d:", connID))
}

// recoverSequence positions the counter after the last persisted event.
func (s *Store) recoverSequence() error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		// Seek to the end of the "e:" namespace and step back to the last key.
		it.Seek([]byte("e:\xff"))
		if !it.ValidForPrefix([]byte("e:")) {
			return nil
		}

		var last uint64
		if _, err := fmt.Sscanf(string(it.Item().Key()), "e:%d", &last); err != nil {
			return fmt.Errorf("recover audit sequence from key %q: %w", it.Item().Key(), err)
		}
		s.seq.Store(last)
		return nil
	})
}

// Append persists one event under both the stream and per-connection
// namespaces in a single transaction.
func (s *Store) Append(event audit.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	seq := s.seq.Add(1)
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(eventKey(seq), data); err != nil {
			return err
		}
		return txn.Set(connKey(event.ConnectionID, seq), data)
	})
	if err != nil {
		return fmt.Errorf("append audit event %d: %w", seq, err)
	}
	return nil
}

// Events returns the full stream in append order.
func (s *Store) Events() ([]audit.Event, error) {
	return s.scan([]byte("e:"))
}

// ConnectionEvents returns one connection's events in append order.
func (s *Store) ConnectionEvents(connID uint64) ([]audit.Event, error) {
	return s.scan(connPrefix(connID))
}

func (s *Store) scan(prefix []byte) ([]audit.Event, error) {
	var events []audit.Event

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var e audit.Event
				if err := json.Unmarshal(val, &e); err != nil {
					return fmt.Errorf("unmarshal audit event at key %q: %w", it.Item().Key(), err)
				}
				events = append(events, e)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close audit database: %w", err)
	}
	return nil
}
