package app

import (
	"sync"
	"time"
)

// windowLimiter counts requests per client key within a fixed window.
// Counters reset when a new window begins.
type windowLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	counts map[string]*windowCount
	now    func() time.Time
}

type windowCount struct {
	windowStart time.Time
	requests    int
}

func newWindowLimiter(limit int, window time.Duration) *windowLimiter {
	return &windowLimiter{
		limit:  limit,
		window: window,
		counts: make(map[string]*windowCount),
		now:    time.Now,
	}
}

// Allow reports whether the client may make another request, counting it
// when permitted or not. Full windows stay counted until they expire.
func (l *windowLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	count, ok := l.counts[key]
	if !ok || now.Sub(count.windowStart) >= l.window {
		l.evictExpired(now)
		count = &windowCount{windowStart: now}
		l.counts[key] = count
	}

	count.requests++
	return count.requests <= l.limit
}

// evictExpired drops stale counters so the map stays bounded by active
// clients. Caller holds the mutex.
func (l *windowLimiter) evictExpired(now time.Time) {
	for key, count := range l.counts {
		if now.Sub(count.windowStart) >= l.window {
			delete(l.counts, key)
		}
	}
}
