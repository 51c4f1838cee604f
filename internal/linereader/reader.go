// Package linereader materializes line content on demand via positioned
// reads against the backing file.
//
// The reader holds no cursor and no lock: io.ReaderAt guarantees independent
// concurrent positioned reads, and the file is never written during the
// server's lifetime, so any number of connection workers may call Read at
// the same time.
package linereader

import (
	"fmt"
	"io"

	"github.com/marmos91/lineserve/internal/lineindex"
)

// Reader fetches line bytes from an open file handle.
type Reader struct {
	src io.ReaderAt
}

// New creates a Reader over src. src must support independent concurrent
// positioned reads (os.File does).
func New(src io.ReaderAt) *Reader {
	return &Reader{src: src}
}

// Read returns exactly rec.Length bytes starting at rec.Offset.
// The terminating newline is neither read nor returned.
func (r *Reader) Read(rec lineindex.Record) ([]byte, error) {
	buf := make([]byte, rec.Length)
	n, err := r.src.ReadAt(buf, int64(rec.Offset))
	if n == len(buf) {
		// ReadAt may return io.EOF alongside a full read at end of file.
		return buf, nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return nil, fmt.Errorf("read %d bytes at offset %d: %w", rec.Length, rec.Offset, err)
}
