package server

import (
	"fmt"
	"time"
)

// Config holds the line server's network configuration.
//
// Zero timeout values are replaced with defaults by New, except ReadTimeout,
// which stays disabled when zero.
type Config struct {
	// Listen is the <host>:<port> address the listener binds to.
	// If empty, defaults to ":7878".
	Listen string `mapstructure:"listen"`

	// MaxConnections limits concurrent client connections.
	// 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" validate:"min=0"`

	// ReadTimeout bounds the wait for the next command when tighter than
	// IdleTimeout. 0 leaves IdleTimeout as the only bound.
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"min=0"`

	// WriteTimeout is the maximum duration for writing a response.
	// 0 defaults to 30s.
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=0"`

	// IdleTimeout closes connections that send no command for this long.
	// 0 defaults to 5m.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"min=0"`

	// ShutdownTimeout is the drain window: how long shutdown waits for
	// workers to finish unregistering after their sockets are closed.
	// Workers still alive after the window are abandoned so the process
	// can exit. Must be > 0.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`

	// RateLimit caps each connection's sustained request rate in requests
	// per second. 0 means unlimited.
	RateLimit uint `mapstructure:"rate_limit"`

	// RateBurst is the per-connection burst capacity when RateLimit is set.
	// 0 defaults to RateLimit.
	RateBurst uint `mapstructure:"rate_burst"`
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":7878"
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

func (c *Config) validate() error {
	if c.MaxConnections < 0 {
		return fmt.Errorf("invalid MaxConnections %d: must be >= 0", c.MaxConnections)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("invalid ReadTimeout %v: must be >= 0", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("invalid WriteTimeout %v: must be >= 0", c.WriteTimeout)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("invalid IdleTimeout %v: must be >= 0", c.IdleTimeout)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid ShutdownTimeout %v: must be > 0", c.ShutdownTimeout)
	}
	return nil
}
