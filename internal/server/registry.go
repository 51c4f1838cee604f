package server

import (
	"net"
	"sync"
)

// registry tracks every live client connection so the shutdown path can
// force-close all of them.
//
// All access goes through one mutex: workers register/unregister as they
// come and go, and shutdown iterates the set while closing sockets. The
// mutex keeps the sweep atomic with respect to concurrent unregisters, so
// shutdown never iterates a half-modified set and never misses a connection
// accepted just before the listener closed.
type registry struct {
	mu    sync.Mutex
	conns map[uint64]net.Conn
}

func newRegistry() *registry {
	return &registry{conns: make(map[uint64]net.Conn)}
}

func (r *registry) add(id uint64, conn net.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = conn
}

func (r *registry) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

func (r *registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// closeAll force-closes every registered connection and returns how many
// were closed. Entries are left in place; each worker removes its own entry
// as it observes the closed socket and exits.
func (r *registry) closeAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	closed := 0
	for _, conn := range r.conns {
		if err := conn.Close(); err == nil {
			closed++
		}
	}
	return closed
}
