// Package ratelimit implements a per-user sliding window log. Unlike a
// token bucket it remembers individual request timestamps, so a burst
// that filled the window keeps the user blocked until those exact
// events age out.
package ratelimit

import (
	"sync"
	"time"
)

type Limiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	windows map[int64][]time.Time
}

// New builds a limiter admitting at most max requests per user within
// the trailing window.
func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:     max,
		window:  window,
		windows: make(map[int64][]time.Time),
	}
}

// evict drops timestamps at or before now-window. Caller holds the
// lock. Empty windows are removed so idle users do not pin map
// entries.
func (l *Limiter) evict(user int64, now time.Time) []time.Time {
	events := l.windows[user]
	cutoff := now.Add(-l.window)

	kept := events[:0]
	for _, t := range events {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) == 0 {
		delete(l.windows, user)
		return nil
	}
	l.windows[user] = kept
	return kept
}

// Admit records the request and returns true if the user has quota
// left. Denied requests are not recorded and never consume quota. The
// check and the append are one atomic step.
func (l *Limiter) Admit(user int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	events := l.evict(user, now)
	if len(events) >= l.max {
		return false
	}
	l.windows[user] = append(events, now)
	return true
}

// Count returns the user's live request count. It evicts stale
// entries but never records anything.
func (l *Limiter) Count(user int64, now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.evict(user, now))
}

// Reset drops the user's window entirely. Unknown users are a no-op.
func (l *Limiter) Reset(user int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, user)
}

// Max returns the configured per-window quota.
func (l *Limiter) Max() int {
	return l.max
}

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration {
	return l.window
}
