// Package ratelimit throttles the agent endpoints per client.
//
// MemoryLimiter keeps one token bucket per key in process; a shared store
// can be substituted behind the Limiter interface.
package ratelimit

import "context"

// Limiter decides whether a request identified by key should be allowed.
// Implementations must be safe for concurrent use.
type Limiter interface {
	// Allow returns true if the request should proceed. An error signals a
	// limiter malfunction; callers fail open.
	Allow(ctx context.Context, key string) (bool, error)

	// Close releases resources.
	Close() error
}

// NoopLimiter permits every request. Used when rate limiting is disabled.
type NoopLimiter struct{}

// Allow always returns true.
func (NoopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

// Close is a no-op.
func (NoopLimiter) Close() error { return nil }

// New returns a MemoryLimiter, or a NoopLimiter when disabled.
func New(enabled bool, rps float64, burst int) Limiter {
	if !enabled {
		return NoopLimiter{}
	}
	return NewMemoryLimiter(rps, burst)
}
