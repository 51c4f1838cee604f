package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/marmos91/lineserve/internal/logger"
	"github.com/marmos91/lineserve/internal/protocol"
	"github.com/marmos91/lineserve/internal/ratelimiter"
	"github.com/marmos91/lineserve/pkg/audit"
)

// maxAuditDetail bounds how much of a malformed command line is copied into
// an audit event.
const maxAuditDetail = 128

// conn is one connection worker. It exclusively owns its socket and runs a
// strict FIFO read -> dispatch -> respond loop: one command is fully
// answered before the next is read, so there is no pipelining and no
// cross-talk between requests.
type conn struct {
	server       *LineServer
	conn         net.Conn
	id           uint64
	startedAt    time.Time
	requestCount uint64
	limiter      *ratelimiter.RateLimiter

	// faultDetail records a connection or storage fault for the disconnect
	// audit event. Empty on a clean close (QUIT, EOF, shutdown).
	faultDetail string
}

// serve runs the worker until the client quits, disconnects, issues
// SHUTDOWN, or the supervisor force-closes the socket.
//
// Panic recovery keeps a single misbehaving connection from crashing the
// whole server.
func (c *conn) serve(ctx context.Context) {
	peer := c.conn.RemoteAddr().String()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic in connection %d from %s: %v", c.id, peer, r)
			c.faultDetail = fmt.Sprintf("panic: %v", r)
		}
		_ = c.conn.Close()

		c.emit(audit.Event{
			Kind:           audit.KindDisconnect,
			Peer:           peer,
			RequestCount:   c.requestCount,
			SessionSeconds: time.Since(c.startedAt).Seconds(),
			Detail:         c.faultDetail,
		})
	}()

	logger.Debug("Connection %d established from %s", c.id, peer)
	c.emit(audit.Event{Kind: audit.KindConnect, Peer: peer})

	reader := bufio.NewReader(c.conn)

	for {
		// Check for shutdown before blocking on the next command.
		select {
		case <-ctx.Done():
			return
		case <-c.server.shutdown:
			return
		default:
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return
			}
		}

		raw, err := c.readCommand(reader)
		if err != nil {
			c.handleReadError(err, peer)
			return
		}

		c.requestCount++
		if !c.dispatch(raw) {
			return
		}
	}
}

// readCommand blocks until one full command line arrives or the connection
// closes. The wait is bounded by the idle timeout (or the read timeout when
// that is tighter).
func (c *conn) readCommand(reader *bufio.Reader) (string, error) {
	if d := c.waitDeadline(); d > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(d)); err != nil {
			return "", fmt.Errorf("set read deadline: %w", err)
		}
	}
	return reader.ReadString('\n')
}

func (c *conn) waitDeadline() time.Duration {
	idle := c.server.config.IdleTimeout
	read := c.server.config.ReadTimeout
	if read > 0 && (idle == 0 || read < idle) {
		return read
	}
	return idle
}

func (c *conn) handleReadError(err error, peer string) {
	switch {
	case err == io.EOF:
		logger.Debug("Connection %d from %s closed by client", c.id, peer)
	case isTimeout(err):
		logger.Debug("Connection %d from %s timed out: %v", c.id, peer, err)
		c.faultDetail = "idle timeout"
	case errors.Is(err, net.ErrClosed):
		// Force-closed by the shutdown sweep.
		logger.Debug("Connection %d from %s closed during shutdown", c.id, peer)
	default:
		logger.Debug("Error reading from connection %d (%s): %v", c.id, peer, err)
		c.faultDetail = err.Error()
	}
}

// dispatch decodes and answers one command. Returns false when the
// connection must close (QUIT, SHUTDOWN, or a fault).
func (c *conn) dispatch(raw string) bool {
	cmd := protocol.Parse(raw)
	start := time.Now()

	switch cmd.Kind {
	case protocol.KindGet:
		c.emit(audit.Event{
			Kind:    audit.KindRequest,
			Command: cmd.Kind.String(),
			Detail:  fmt.Sprintf("%d", cmd.Line),
		})
		return c.handleGet(cmd.Line, start)

	case protocol.KindQuit:
		c.emit(audit.Event{Kind: audit.KindRequest, Command: cmd.Kind.String()})
		c.server.metrics.RecordRequest(cmd.Kind.String(), time.Since(start), "ok")
		logger.Debug("Connection %d quit", c.id)
		return false

	case protocol.KindShutdown:
		c.emit(audit.Event{Kind: audit.KindRequest, Command: cmd.Kind.String()})
		c.server.metrics.RecordRequest(cmd.Kind.String(), time.Since(start), "ok")
		logger.Info("Connection %d requested shutdown", c.id)
		c.server.requestShutdown(c.id)
		return false

	default:
		c.emit(audit.Event{
			Kind:    audit.KindRequest,
			Command: cmd.Kind.String(),
			Detail:  truncate(strings.TrimRight(raw, "\r\n"), maxAuditDetail),
		})
		return c.respondErr(cmd.Kind.String(), start)
	}
}

// handleGet answers one GET. An out-of-range line number is a client data
// error (ERR, connection stays open); a failed file read is a storage fault
// that closes only this connection.
func (c *conn) handleGet(n int64, start time.Time) bool {
	record, ok := c.server.index.Lookup(n)
	if !ok {
		return c.respondErr(protocol.KindGet.String(), start)
	}

	line, err := c.server.reader.Read(record)
	if err != nil {
		logger.Error("Storage fault on connection %d reading line %d: %v", c.id, n, err)
		c.faultDetail = err.Error()
		c.emit(audit.Event{
			Kind:    audit.KindResponse,
			Command: protocol.KindGet.String(),
			Status:  "fault",
			Detail:  err.Error(),
		})
		c.server.metrics.RecordRequest(protocol.KindGet.String(), time.Since(start), "fault")
		return false
	}

	if err := c.write(protocol.EncodeOK(line)); err != nil {
		c.faultDetail = err.Error()
		return false
	}

	c.emit(audit.Event{
		Kind:         audit.KindResponse,
		Command:      protocol.KindGet.String(),
		Status:       "ok",
		BytesWritten: uint64(len(line)),
	})
	c.server.metrics.RecordRequest(protocol.KindGet.String(), time.Since(start), "ok")
	c.server.metrics.RecordBytesWritten(uint64(len(line)))
	return true
}

// respondErr answers ERR and keeps the connection open.
func (c *conn) respondErr(command string, start time.Time) bool {
	if err := c.write(protocol.EncodeErr()); err != nil {
		c.faultDetail = err.Error()
		return false
	}

	c.emit(audit.Event{
		Kind:    audit.KindResponse,
		Command: command,
		Status:  "err",
	})
	c.server.metrics.RecordRequest(command, time.Since(start), "err")
	return true
}

func (c *conn) write(data []byte) error {
	if t := c.server.config.WriteTimeout; t > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(t)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}
	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

// emit stamps and appends one audit event. Audit failures are logged and
// never interrupt serving.
func (c *conn) emit(event audit.Event) {
	event.Timestamp = time.Now().UTC()
	event.ConnectionID = c.id

	if err := c.server.audit.Append(event); err != nil {
		logger.Warn("Failed to append audit event for connection %d: %v", c.id, err)
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
