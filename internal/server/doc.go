// Package server implements the line server's connection engine: the
// supervisor that owns the listener and accept loop, the per-connection
// worker goroutines, and the registry that lets a SHUTDOWN reach every live
// connection.
//
// The line index and file handle are shared read-only across all workers;
// the registry is the only mutable shared state and is mutex-guarded.
package server
