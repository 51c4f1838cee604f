// Package lineindex maps 1-based line numbers to byte ranges in an immutable
// newline-terminated file.
//
// The index is built once at startup with a single sequential pass and is
// read-only afterwards, so every connection can share it without locking.
// Lookup is a bare slice access, which keeps the per-request cost constant
// regardless of file size.
package lineindex

import (
	"bytes"
	"fmt"
	"io"
	"math"
)

// Record locates one line inside the backing file.
// Length excludes the terminating newline byte.
type Record struct {
	Offset uint64
	Length uint32
}

// Index is the immutable line-number-to-byte-range table.
type Index struct {
	records []Record
}

// BuildError reports a failure during the single-pass index build.
type BuildError struct {
	Offset uint64
	Err    error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("index build failed at offset %d: %v", e.Offset, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// buildChunkSize is the read granularity of the build pass. Line content is
// never retained, only offsets and lengths.
const buildChunkSize = 1 << 20

// Build scans r sequentially and records one entry per '\n'-terminated line.
// Trailing bytes without a final newline are not a line and are discarded.
func Build(r io.Reader) (*Index, error) {
	var (
		records   []Record
		buf       = make([]byte, buildChunkSize)
		pos       uint64 // absolute offset of the next unread byte
		lineStart uint64 // absolute offset of the current line's first byte
	)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			for {
				i := bytes.IndexByte(chunk, '\n')
				if i < 0 {
					pos += uint64(len(chunk))
					break
				}

				newline := pos + uint64(i)
				length := newline - lineStart
				if length > math.MaxUint32 {
					return nil, &BuildError{
						Offset: lineStart,
						Err:    fmt.Errorf("line exceeds maximum length of %d bytes", math.MaxUint32),
					}
				}

				records = append(records, Record{Offset: lineStart, Length: uint32(length)})
				pos = newline + 1
				lineStart = pos
				chunk = chunk[i+1:]
			}
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &BuildError{Offset: pos, Err: err}
		}
	}

	return &Index{records: records}, nil
}

// Lookup returns the record for the 1-based line number n.
// The second return value is false when n is outside 1..Count().
func (ix *Index) Lookup(n int64) (Record, bool) {
	if n < 1 || n > int64(len(ix.records)) {
		return Record{}, false
	}
	return ix.records[n-1], true
}

// Count returns the number of indexed lines.
func (ix *Index) Count() int {
	return len(ix.records)
}
