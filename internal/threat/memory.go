package threat

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the default in-process Store. The map-level lock only
// guards entry lookup and creation; each entry owns its own mutex so the
// read-recompute-write sequence for one client never serializes requests
// from other clients.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*profileEntry
}

type profileEntry struct {
	mu           sync.Mutex
	count        int
	lastActivity time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*profileEntry),
	}
}

func (s *MemoryStore) entry(clientID string) *profileEntry {
	s.mu.RLock()
	e, ok := s.entries[clientID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[clientID]; ok {
		return e
	}
	e = &profileEntry{}
	s.entries[clientID] = e
	return e
}

func (s *MemoryStore) Update(_ context.Context, clientID string, suspicious bool) Profile {
	e := s.entry(clientID)

	e.mu.Lock()
	defer e.mu.Unlock()

	if suspicious {
		e.count++
	} else if e.count > 0 {
		e.count--
	}
	e.lastActivity = time.Now()

	return Profile{
		Level:           LevelForCount(e.count),
		SuspiciousCount: e.count,
		LastActivity:    e.lastActivity,
	}
}

func (s *MemoryStore) Get(_ context.Context, clientID string) (Profile, bool) {
	s.mu.RLock()
	e, ok := s.entries[clientID]
	s.mu.RUnlock()
	if !ok {
		return Profile{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return Profile{
		Level:           LevelForCount(e.count),
		SuspiciousCount: e.count,
		LastActivity:    e.lastActivity,
	}, true
}

func (s *MemoryStore) Sweep(_ context.Context, maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for clientID, e := range s.entries {
		e.mu.Lock()
		idle := e.lastActivity.Before(cutoff)
		e.mu.Unlock()

		if idle {
			delete(s.entries, clientID)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of tracked clients.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
