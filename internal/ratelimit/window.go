package ratelimit

import (
	"sync"
	"time"
)

// window tracks request instants for one (client, path) pair.
type window struct {
	mu         sync.Mutex
	timestamps []time.Time
	lastSeen   time.Time
}

// tryRecord prunes timestamps that have aged out of the window, then admits
// the request if the remaining count is below limit. Prune, check and append
// run under one lock: two concurrent requests for the same key can never
// both take the last remaining slot.
func (w *window) tryRecord(now time.Time, size time.Duration, limit int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now, size)
	w.lastSeen = now

	if len(w.timestamps) >= limit {
		return false
	}

	w.timestamps = append(w.timestamps, now)
	return true
}

// count returns the number of requests still inside the window.
func (w *window) count(now time.Time, size time.Duration) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now, size)
	return len(w.timestamps)
}

// pruneLocked removes timestamps at or past the window boundary. Must be
// called with the lock held.
func (w *window) pruneLocked(now time.Time, size time.Duration) {
	cutoff := now.Add(-size)

	i := 0
	for i < len(w.timestamps) && !w.timestamps[i].After(cutoff) {
		i++
	}
	w.timestamps = w.timestamps[i:]
}

// idleSince reports whether the window has seen no requests since t.
func (w *window) idleSince(t time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen.Before(t)
}
