// Package ratelimiter throttles per-connection request rates using a token
// bucket, so a single aggressive client cannot starve the accept loop or the
// shared file handle.
package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter wraps golang.org/x/time/rate with the two operations the
// connection worker needs: a non-blocking check and a context-aware wait.
//
// Thread safety: all methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter allowing requestsPerSecond sustained with the
// given burst capacity. requestsPerSecond == 0 disables limiting.
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst == 0 {
		burst = requestsPerSecond
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Allow reports whether one request may proceed right now, consuming a token
// if so.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is cancelled. This is the
// worker's throttle point: a client above its sustained rate is slowed, not
// rejected.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Tokens returns the current bucket level, for logging and tests.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
