package throttle

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// QuotaTracker records that the primary provider's daily token budget is
// exhausted. The flag self-expires after the TTL on the next read, so the
// process heals without a restart or an external cron job. One instance is
// shared by every concurrent qualification task because the budget is
// account-wide.
type QuotaTracker struct {
	mu             sync.Mutex
	exhaustedSince time.Time
	ttl            time.Duration

	now func() time.Time
}

// NewQuotaTracker creates a tracker with the given TTL. TTL <= 0 falls back
// to 24 hours, matching the provider's daily reset.
func NewQuotaTracker(ttl time.Duration) *QuotaTracker {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &QuotaTracker{ttl: ttl, now: time.Now}
}

// MarkExhausted records the current time as the start of the exhaustion
// window. Calling it again while already marked refreshes nothing: the
// first mark wins so the window is measured from the first quota signal.
func (q *QuotaTracker) MarkExhausted() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.exhaustedSince.IsZero() {
		return
	}
	q.exhaustedSince = q.now()
	zap.L().Warn("primary provider daily quota exhausted",
		zap.Duration("ttl", q.ttl),
	)
}

// IsExhausted reports whether the quota is still within its exhaustion
// window. An expired mark is lazily cleared so the next cycle starts clean.
func (q *QuotaTracker) IsExhausted() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.exhaustedSince.IsZero() {
		return false
	}
	if q.now().Sub(q.exhaustedSince) >= q.ttl {
		q.exhaustedSince = time.Time{}
		return false
	}
	return true
}

// Reset unconditionally clears the exhaustion mark.
func (q *QuotaTracker) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.exhaustedSince = time.Time{}
}
