package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ServerMetrics provides observability for the line server.
//
// Implementations collect per-request and per-connection counters. The
// interface is optional - passing nil to the server installs a no-op
// implementation with zero overhead.
type ServerMetrics interface {
	// RecordRequest records a completed command with its decoded verb,
	// processing duration, and response status ("ok", "err", "fault").
	RecordRequest(command string, duration time.Duration, status string)

	// RecordBytesWritten records response payload bytes sent to a client.
	RecordBytesWritten(bytes uint64)

	// SetActiveConnections updates the current connection count.
	SetActiveConnections(count int32)

	// RecordConnectionAccepted increments the accepted-connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the closed-connections counter.
	RecordConnectionClosed()

	// RecordConnectionForceClosed counts connections force-closed during
	// shutdown.
	RecordConnectionForceClosed()
}

// NewServerMetrics creates a Prometheus-backed ServerMetrics instance, or a
// no-op implementation if metrics are disabled (InitRegistry not called).
func NewServerMetrics() ServerMetrics {
	if !IsEnabled() {
		return NewNoopServerMetrics()
	}

	reg := GetRegistry()

	return &serverMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lineserve_requests_total",
				Help: "Total number of commands processed by verb and status",
			},
			[]string{"command", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "lineserve_request_duration_milliseconds",
				Help: "Duration of command processing in milliseconds",
				Buckets: []float64{
					0.1, // 100µs
					1,   // 1ms
					10,  // 10ms
					100, // 100ms
					1000,
				},
			},
			[]string{"command"},
		),
		bytesWritten: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "lineserve_bytes_written_total",
				Help: "Total response payload bytes written to clients",
			},
		),
		activeConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "lineserve_active_connections",
				Help: "Current number of active client connections",
			},
		),
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "lineserve_connections_accepted_total",
				Help: "Total number of client connections accepted",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "lineserve_connections_closed_total",
				Help: "Total number of client connections closed",
			},
		),
		connectionsForceClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "lineserve_connections_force_closed_total",
				Help: "Total number of connections force-closed during shutdown",
			},
		),
	}
}

// serverMetrics is the Prometheus implementation of ServerMetrics.
type serverMetrics struct {
	requestsTotal          *prometheus.CounterVec
	requestDuration        *prometheus.HistogramVec
	bytesWritten           prometheus.Counter
	activeConnections      prometheus.Gauge
	connectionsAccepted    prometheus.Counter
	connectionsClosed      prometheus.Counter
	connectionsForceClosed prometheus.Counter
}

func (m *serverMetrics) RecordRequest(command string, duration time.Duration, status string) {
	m.requestsTotal.WithLabelValues(command, status).Inc()
	m.requestDuration.WithLabelValues(command).Observe(duration.Seconds() * 1000)
}

func (m *serverMetrics) RecordBytesWritten(bytes uint64) {
	m.bytesWritten.Add(float64(bytes))
}

func (m *serverMetrics) SetActiveConnections(count int32) {
	m.activeConnections.Set(float64(count))
}

func (m *serverMetrics) RecordConnectionAccepted() {
	m.connectionsAccepted.Inc()
}

func (m *serverMetrics) RecordConnectionClosed() {
	m.connectionsClosed.Inc()
}

func (m *serverMetrics) RecordConnectionForceClosed() {
	m.connectionsForceClosed.Inc()
}

// NewNoopServerMetrics returns a ServerMetrics that records nothing.
func NewNoopServerMetrics() ServerMetrics {
	return noopServerMetrics{}
}

type noopServerMetrics struct{}

func (noopServerMetrics) RecordRequest(string, time.Duration, string) {}
func (noopServerMetrics) RecordBytesWritten(uint64)                   {}
func (noopServerMetrics) SetActiveConnections(int32)                  {}
func (noopServerMetrics) RecordConnectionAccepted()                   {}
func (noopServerMetrics) RecordConnectionClosed()                     {}
func (noopServerMetrics) RecordConnectionForceClosed()                {}
