// Package throttle holds the process-wide gates in front of the primary
// model provider: a minimum-interval rate limiter and a daily quota
// tracker. Both are explicitly constructed and injected so concurrent
// pipeline runs share one instance while tests build isolated ones.
package throttle

import (
	"context"
	"sync"
	"time"
)

// RateLimiter spaces calls so no more than maxPerMinute leave the process.
// A single mutex guards the whole check/wait/update sequence; concurrent
// callers serialize through it in lock acquisition order, so no caller ever
// computes its wait from a stale last-call time.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time

	// now and sleep are injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter creates a limiter allowing maxPerMinute calls per minute.
// Values <= 0 fall back to 30/min.
func NewRateLimiter(maxPerMinute int) *RateLimiter {
	if maxPerMinute <= 0 {
		maxPerMinute = 30
	}
	return &RateLimiter{
		interval: time.Minute / time.Duration(maxPerMinute),
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Acquire blocks until the minimum interval since the previous permitted
// call has elapsed, then records the new call time. It only fails on
// context cancellation, in which case the shared timestamp is not advanced.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.last.IsZero() {
		if wait := l.interval - l.now().Sub(l.last); wait > 0 {
			if err := l.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	l.last = l.now()
	return nil
}

// Interval returns the configured minimum spacing between calls.
func (l *RateLimiter) Interval() time.Duration {
	return l.interval
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
