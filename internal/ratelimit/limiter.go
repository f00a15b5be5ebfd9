// Package ratelimit applies per-(client, path) sliding windows whose
// effective limits shrink as a client's threat level rises.
package ratelimit

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ledgerkit/gatekeeper/internal/threat"
)

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed    bool
	Limit      int
	RetryAfter time.Duration
}

type pathLimit struct {
	prefix string
	limit  int
}

type key struct {
	clientID string
	path     string
}

// Limiter holds one sliding window per (client, path) pair. The map-level
// lock only guards window lookup and creation; each window owns its own
// mutex, so unrelated clients never serialize each other.
type Limiter struct {
	windowSize   time.Duration
	defaultLimit int
	limits       []pathLimit // sorted by prefix length, longest first

	mu      sync.RWMutex
	windows map[key]*window
}

func New(windowSize time.Duration, defaultLimit int, overrides map[string]int) *Limiter {
	limits := make([]pathLimit, 0, len(overrides))
	for prefix, limit := range overrides {
		limits = append(limits, pathLimit{prefix: prefix, limit: limit})
	}
	sort.Slice(limits, func(i, j int) bool {
		if len(limits[i].prefix) != len(limits[j].prefix) {
			return len(limits[i].prefix) > len(limits[j].prefix)
		}
		return limits[i].prefix < limits[j].prefix
	})

	return &Limiter{
		windowSize:   windowSize,
		defaultLimit: defaultLimit,
		limits:       limits,
		windows:      make(map[key]*window),
	}
}

// BaseLimit resolves the configured limit for a path by longest-prefix
// match, falling back to the default limit.
func (l *Limiter) BaseLimit(path string) int {
	for _, pl := range l.limits {
		if strings.HasPrefix(path, pl.prefix) {
			return pl.limit
		}
	}
	return l.defaultLimit
}

// EffectiveLimit scales the base limit by the threat level multiplier. The
// result is clamped to at least 1: even a critical client gets one request
// per window admitted before the window blocks.
func EffectiveLimit(base int, level threat.Level) int {
	effective := int(float64(base) * level.Multiplier())
	if effective < 1 {
		effective = 1
	}
	return effective
}

// CheckAndRecord decides whether the request at instant now is admitted,
// recording it if so. On rejection, RetryAfter carries the full window
// duration for the Retry-After response header.
func (l *Limiter) CheckAndRecord(clientID, path string, level threat.Level, now time.Time) Decision {
	limit := EffectiveLimit(l.BaseLimit(path), level)

	w := l.window(key{clientID: clientID, path: path})
	if !w.tryRecord(now, l.windowSize, limit) {
		return Decision{Allowed: false, Limit: limit, RetryAfter: l.windowSize}
	}
	return Decision{Allowed: true, Limit: limit}
}

func (l *Limiter) window(k key) *window {
	l.mu.RLock()
	w, ok := l.windows[k]
	l.mu.RUnlock()
	if ok {
		return w
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok := l.windows[k]; ok {
		return w
	}
	w = &window{}
	l.windows[k] = w
	return w
}

// Sweep evicts windows with no requests for at least maxIdle and returns
// how many entries were removed.
func (l *Limiter) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	l.mu.Lock()
	defer l.mu.Unlock()

	evicted := 0
	for k, w := range l.windows {
		if w.idleSince(cutoff) {
			delete(l.windows, k)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of tracked (client, path) windows.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.windows)
}
