// Package ratelimit implements a per-key sliding-window rate limiter for
// administrative approval actions. State is process-local and cleared on
// restart.
package ratelimit

import (
	"sync"
	"time"

	"github.com/eventmaster/backend/internal/apperr"
)

// Limiter counts actions per key within a sliding window. Construct one per
// concern and inject it; tests can pass their own clock.
type Limiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	calls  map[string][]time.Time
	now    func() time.Time
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock substitutes the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a limiter allowing max actions per window per key.
func New(max int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		max:    max,
		window: window,
		calls:  make(map[string][]time.Time),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records an action under key and reports whether it is within the
// limit. Timestamps older than the window are evicted before counting.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	window := l.calls[key]
	kept := window[:0]
	for _, t := range window {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.max {
		l.calls[key] = kept
		return false
	}
	l.calls[key] = append(kept, now)
	return true
}

// Enforce is Allow returning a RateLimited taxonomy error on rejection.
func (l *Limiter) Enforce(key string) error {
	if !l.Allow(key) {
		return apperr.RateLimited("too many approval actions, please slow down")
	}
	return nil
}

// Reset clears all windows. For tests.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = make(map[string][]time.Time)
}
