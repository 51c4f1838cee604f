package linereader

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/lineserve/internal/lineindex"
)

func writeTempFile(t *testing.T, content string) *os.File {
	t.Helper()

	path := filepath.Join(t.TempDir(), "lines.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	return f
}

func TestRead(t *testing.T) {
	content := "the\nquick brown\nfox jumps over the\nlazy dog\n"
	f := writeTempFile(t, content)

	ix, err := lineindex.Build(strings.NewReader(content))
	require.NoError(t, err)

	r := New(f)

	t.Run("ReturnsExactLineBytes", func(t *testing.T) {
		expected := []string{"the", "quick brown", "fox jumps over the", "lazy dog"}
		for i, want := range expected {
			rec, ok := ix.Lookup(int64(i + 1))
			require.True(t, ok)

			got, err := r.Read(rec)
			require.NoError(t, err)
			assert.Equal(t, want, string(got))
		}
	})

	t.Run("ReadsLastLineAtEOF", func(t *testing.T) {
		rec, ok := ix.Lookup(4)
		require.True(t, ok)

		got, err := r.Read(rec)
		require.NoError(t, err)
		assert.Equal(t, "lazy dog", string(got))
	})

	t.Run("FailsPastEndOfFile", func(t *testing.T) {
		_, err := r.Read(lineindex.Record{Offset: uint64(len(content)) + 100, Length: 10})
		assert.Error(t, err)
	})

	t.Run("EmptyLineReadsEmpty", func(t *testing.T) {
		got, err := r.Read(lineindex.Record{Offset: 0, Length: 0})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestConcurrentReads(t *testing.T) {
	content := "alpha\nbravo\ncharlie\ndelta\necho\n"
	f := writeTempFile(t, content)

	ix, err := lineindex.Build(strings.NewReader(content))
	require.NoError(t, err)

	r := New(f)
	lines := []string{"alpha", "bravo", "charlie", "delta", "echo"}

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				n := int64((seed+i)%len(lines)) + 1
				rec, ok := ix.Lookup(n)
				assert.True(t, ok)

				got, err := r.Read(rec)
				assert.NoError(t, err)
				assert.Equal(t, lines[n-1], string(got))
			}
		}(g)
	}
	wg.Wait()
}
