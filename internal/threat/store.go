package threat

import (
	"context"
	"time"
)

// Profile is the per-client threat state.
type Profile struct {
	Level           Level
	SuspiciousCount int
	LastActivity    time.Time
}

// Store tracks threat profiles keyed by client identity. Implementations
// must apply each Update as a single atomic transaction on that key's entry;
// updates to different keys must not serialize each other.
type Store interface {
	// Update applies one observation and returns the resulting profile.
	// A suspicious observation increments the count; a clean one decrements
	// it by at most 1, never below zero. The level is recomputed from the
	// new count and last activity is set to now.
	Update(ctx context.Context, clientID string, suspicious bool) Profile

	// Get returns the current profile without mutating it. The second
	// return value is false if the client has never been observed.
	Get(ctx context.Context, clientID string) (Profile, bool)

	// Sweep evicts profiles with no activity for at least maxIdle and
	// returns how many entries were removed.
	Sweep(ctx context.Context, maxIdle time.Duration) int
}
