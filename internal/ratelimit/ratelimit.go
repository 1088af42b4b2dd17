// Package ratelimit implements a per-caller token bucket used by the
// chat gateways. Thread-safe, no background goroutines; buckets refill
// lazily on each Allow call.
package ratelimit

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a caller has exhausted their bucket.
var ErrRateLimited = errors.New("rate limit exceeded")

// Config configures the token bucket limiter.
type Config struct {
	RequestsPerMinute int // Tokens added per minute. 0 = unlimited.
	BurstSize         int // Maximum tokens in a bucket. 0 = RequestsPerMinute.
}

// Limiter holds an independent bucket per caller, so one noisy client
// cannot exhaust another's quota.
type Limiter struct {
	mu      sync.Mutex
	callers map[string]*bucket
	rate    float64 // tokens per second
	burst   float64
}

type bucket struct {
	tokens   float64
	lastFill time.Time
}

// NewLimiter creates a limiter. RequestsPerMinute 0 means Allow always
// succeeds.
func NewLimiter(cfg Config) *Limiter {
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = cfg.RequestsPerMinute
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		callers: make(map[string]*bucket),
		rate:    float64(cfg.RequestsPerMinute) / 60.0,
		burst:   float64(burst),
	}
}

// Allow consumes one token for the caller, refilling by elapsed time
// first. Returns ErrRateLimited when the bucket is empty.
func (l *Limiter) Allow(callerID string) error {
	if l.rate <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.callers[callerID]
	if !ok {
		// First request starts with a full bucket.
		b = &bucket{tokens: l.burst, lastFill: now}
		l.callers[callerID] = b
	}

	elapsed := now.Sub(b.lastFill).Seconds()
	b.tokens += elapsed * l.rate
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.lastFill = now

	if b.tokens < 1 {
		return ErrRateLimited
	}
	b.tokens--
	return nil
}

// Prune drops buckets idle longer than maxIdle, bounding memory when
// many anonymous callers come and go.
func (l *Limiter) Prune(maxIdle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	var n int
	for id, b := range l.callers {
		if b.lastFill.Before(cutoff) {
			delete(l.callers, id)
			n++
		}
	}
	return n
}
