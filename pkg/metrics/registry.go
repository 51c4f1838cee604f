// Package metrics provides Prometheus metrics collection for lineserve.
//
// All metrics are optional - if the registry is never initialized, components
// receive no-op implementations with zero overhead.
//
// Usage:
//
//	// Initialize global registry (typically in main.go)
//	metrics.InitRegistry()
//
//	// Create metrics instances for components
//	serverMetrics := metrics.NewServerMetrics()
//
//	// Or use nil for no-op behavior
//	server.New(cfg, index, reader, auditStore, nil)
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// registry is the global Prometheus registry for all lineserve metrics.
	// Write-once via registryOnce, read-many afterwards.
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry. Safe to call
// multiple times; subsequent calls are ignored.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global registry, or nil if InitRegistry has not
// been called (metrics disabled).
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether metrics collection is enabled.
func IsEnabled() bool {
	return GetRegistry() != nil
}
