package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/juju/clock"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow reports whether a request may proceed right now
	Allow() bool
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
}

// TokenBucket hands out capacity tokens per refill period
type TokenBucket struct {
	clock        clock.Clock
	capacity     int
	tokens       int
	refillPeriod time.Duration
	lastRefill   time.Time
	mu           sync.Mutex
}

// NewTokenBucket creates a new token bucket rate limiter.
// A nil clock uses the wall clock.
func NewTokenBucket(capacity int, refillPeriod time.Duration, clk clock.Clock) *TokenBucket {
	if clk == nil {
		clk = clock.WallClock
	}
	return &TokenBucket{
		clock:        clk,
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		lastRefill:   clk.Now(),
	}
}

// PerMinute builds a limiter allowing n requests per minute, or nil when n <= 0
func PerMinute(n int, clk clock.Clock) Limiter {
	if n <= 0 {
		return nil
	}
	return NewTokenBucket(n, time.Minute, clk)
}

// Allow checks if a request can proceed
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for !tb.Allow() {
		tb.mu.Lock()
		untilRefill := tb.refillPeriod - tb.clock.Now().Sub(tb.lastRefill)
		tb.mu.Unlock()

		if untilRefill <= 0 {
			untilRefill = 10 * time.Millisecond
		}

		select {
		case <-tb.clock.After(untilRefill):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (tb *TokenBucket) refill() {
	now := tb.clock.Now()
	if now.Sub(tb.lastRefill) >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = now
	}
}
