// Package rate provides the fixed-window request limiter applied to slide
// creation.
package rate

import (
	"sync"
	"time"
)

// Limiter answers whether a caller identified by key may proceed. When the
// answer is no, retryAfter says how long until the window resets.
type Limiter interface {
	Allow(key string, limit int, window time.Duration) (allowed bool, retryAfter time.Duration)
}

// sweepInterval bounds how often Allow scans the whole map for expired
// windows.
const sweepInterval = time.Minute

// MemoryLimiter is an in-process fixed-window limiter. Expired windows are
// swept out at most once per sweepInterval, so the map is bounded by callers
// active in the recent past rather than every caller ever seen.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
	sweepAt time.Time
}

type window struct {
	seen    int
	resetAt time.Time
	span    time.Duration
}

// NewMemory returns an empty limiter.
func NewMemory() *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (m *MemoryLimiter) Allow(key string, limit int, span time.Duration) (bool, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.After(m.sweepAt) {
		for k, w := range m.windows {
			if now.After(w.resetAt) {
				delete(m.windows, k)
			}
		}
		m.sweepAt = now.Add(sweepInterval)
	}

	w, ok := m.windows[key]
	if !ok || now.After(w.resetAt) || w.span != span {
		w = &window{resetAt: now.Add(span), span: span}
		m.windows[key] = w
	}

	if w.seen >= limit {
		return false, w.resetAt.Sub(now)
	}
	w.seen++
	return true, w.resetAt.Sub(now)
}
