package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/lineserve/internal/lineindex"
	"github.com/marmos91/lineserve/internal/linereader"
	"github.com/marmos91/lineserve/internal/logger"
	"github.com/marmos91/lineserve/internal/ratelimiter"
	"github.com/marmos91/lineserve/pkg/audit"
	"github.com/marmos91/lineserve/pkg/metrics"
)

// LineServer accepts TCP clients and serves them lines of an immutable file
// through one worker goroutine per connection.
//
// The index and reader are built once at startup and shared read-only across
// all workers, so request handling needs no locking on the data path.
type LineServer struct {
	config  Config
	index   *lineindex.Index
	reader  *linereader.Reader
	audit   audit.Store
	metrics metrics.ServerMetrics

	registry   *registry
	nextConnID atomic.Uint64

	listenerMu sync.Mutex
	listener   net.Listener

	shutdown     chan struct{}
	shutdownOnce sync.Once

	// connSemaphore bounds concurrent connections when MaxConnections > 0.
	connSemaphore chan struct{}
}

// New creates a line server over a fully built index and its backing file.
// A nil auditStore disables auditing; a nil serverMetrics disables metrics.
// Panics on invalid configuration.
func New(
	config Config,
	index *lineindex.Index,
	reader *linereader.Reader,
	auditStore audit.Store,
	serverMetrics metrics.ServerMetrics,
) *LineServer {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid server config: %v", err))
	}

	if index == nil || reader == nil {
		panic("server requires a line index and reader")
	}
	if auditStore == nil {
		auditStore = audit.NewNopStore()
	}
	if serverMetrics == nil {
		serverMetrics = metrics.NewNoopServerMetrics()
	}

	var semaphore chan struct{}
	if config.MaxConnections > 0 {
		semaphore = make(chan struct{}, config.MaxConnections)
	}

	return &LineServer{
		config:        config,
		index:         index,
		reader:        reader,
		audit:         auditStore,
		metrics:       serverMetrics,
		registry:      newRegistry(),
		shutdown:      make(chan struct{}),
		connSemaphore: semaphore,
	}
}

// Serve binds the listener and accepts clients until the context is
// cancelled or a client issues SHUTDOWN. It returns nil after a graceful
// stop, including when some workers had to be abandoned after the drain
// window.
func (s *LineServer) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}

	s.listenerMu.Lock()
	s.listener = listener
	s.listenerMu.Unlock()

	logger.Info("Line server listening on %s (%d lines indexed)", listener.Addr(), s.index.Count())

	// Propagate external cancellation (signals) into the shutdown path.
	go func() {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received")
			s.initiateShutdown()
		case <-s.shutdown:
		}
	}()

	var wg sync.WaitGroup

	for {
		clientConn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return s.drain(&wg)
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return s.drain(&wg)
			}
			logger.Warn("Failed to accept connection: %v", err)
			continue
		}

		if s.connSemaphore != nil {
			select {
			case s.connSemaphore <- struct{}{}:
			default:
				logger.Warn("Connection limit reached (%d), rejecting %s",
					s.config.MaxConnections, clientConn.RemoteAddr())
				_ = clientConn.Close()
				continue
			}
		}

		id := s.nextConnID.Add(1)
		s.registry.add(id, clientConn)
		s.metrics.RecordConnectionAccepted()
		s.metrics.SetActiveConnections(int32(s.registry.count()))

		wg.Add(1)
		go func(id uint64, netConn net.Conn) {
			defer wg.Done()
			defer func() {
				s.registry.remove(id)
				s.metrics.RecordConnectionClosed()
				s.metrics.SetActiveConnections(int32(s.registry.count()))
				if s.connSemaphore != nil {
					<-s.connSemaphore
				}
			}()

			worker := &conn{
				server:    s,
				conn:      netConn,
				id:        id,
				startedAt: time.Now(),
				limiter:   s.newLimiter(),
			}
			worker.serve(ctx)
		}(id, clientConn)
	}
}

func (s *LineServer) newLimiter() *ratelimiter.RateLimiter {
	if s.config.RateLimit == 0 {
		return nil
	}
	return ratelimiter.New(s.config.RateLimit, s.config.RateBurst)
}

// requestShutdown is called by the worker that received SHUTDOWN. The
// initiating connection is recorded before the force-close sweep begins.
func (s *LineServer) requestShutdown(connID uint64) {
	event := audit.Event{
		Timestamp:    time.Now().UTC(),
		ConnectionID: connID,
		Kind:         audit.KindShutdownInitiated,
	}
	if err := s.audit.Append(event); err != nil {
		logger.Warn("Failed to append shutdown audit event: %v", err)
	}
	s.initiateShutdown()
}

// initiateShutdown stops accepting new connections. Safe to call multiple
// times; only the first call has any effect.
func (s *LineServer) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)

		s.listenerMu.Lock()
		listener := s.listener
		s.listenerMu.Unlock()
		if listener != nil {
			_ = listener.Close()
		}
	})
}

// drain force-closes every live connection, then waits up to
// ShutdownTimeout for workers to finish. Workers still running after the
// window are abandoned: a clean exit matters more than their cleanup.
func (s *LineServer) drain(wg *sync.WaitGroup) error {
	closed := s.registry.closeAll()
	if closed > 0 {
		logger.Info("Force-closed %d active connections", closed)
		for i := 0; i < closed; i++ {
			s.metrics.RecordConnectionForceClosed()
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("All connections drained, server stopped")
	case <-time.After(s.config.ShutdownTimeout):
		logger.Warn("Drain window of %v elapsed with %d workers still running, abandoning them",
			s.config.ShutdownTimeout, s.registry.count())
	}
	return nil
}

// Addr returns the listener's address, or nil before Serve has bound it.
func (s *LineServer) Addr() net.Addr {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
