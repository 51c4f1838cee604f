package server

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPipe(t *testing.T) net.Conn {
	t.Helper()
	client, srv := net.Pipe()
	t.Cleanup(func() {
		_ = client.Close()
		_ = srv.Close()
	})
	return srv
}

func TestRegistryAddRemove(t *testing.T) {
	reg := newRegistry()
	assert.Equal(t, 0, reg.count())

	reg.add(1, testPipe(t))
	reg.add(2, testPipe(t))
	assert.Equal(t, 2, reg.count())

	reg.remove(1)
	assert.Equal(t, 1, reg.count())

	// Removing an unknown id is a no-op.
	reg.remove(99)
	assert.Equal(t, 1, reg.count())
}

func TestRegistryCloseAll(t *testing.T) {
	reg := newRegistry()

	conns := make([]net.Conn, 3)
	for i := range conns {
		client, srv := net.Pipe()
		t.Cleanup(func() { _ = client.Close() })
		conns[i] = srv
		reg.add(uint64(i+1), srv)
	}

	closed := reg.closeAll()
	assert.Equal(t, 3, closed)

	// Entries stay registered until each worker removes its own.
	assert.Equal(t, 3, reg.count())

	for _, c := range conns {
		_ = c.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		buf := make([]byte, 1)
		_, err := c.Read(buf)
		require.Error(t, err, "closed connection should not be readable")
	}
}

func TestRegistryCloseAllEmpty(t *testing.T) {
	reg := newRegistry()
	assert.Equal(t, 0, reg.closeAll())
}
