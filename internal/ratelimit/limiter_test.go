package ratelimit_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ledgerkit/gatekeeper/internal/ratelimit"
	"github.com/ledgerkit/gatekeeper/internal/threat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter() *ratelimit.Limiter {
	return ratelimit.New(15*time.Minute, 100, map[string]int{
		"/api/auth/login":    5,
		"/api/auth/register": 3,
		"/api/auth/":         10,
		"/api/users":         100,
	})
}

func TestBaseLimit_LongestPrefixWins(t *testing.T) {
	limiter := newTestLimiter()

	tests := []struct {
		path string
		want int
	}{
		{"/api/auth/login", 5},
		{"/api/auth/register", 3},
		{"/api/auth/refresh", 10},
		{"/api/users", 100},
		{"/api/users/42", 100},
		{"/api/invoices", 100}, // default fallback
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, limiter.BaseLimit(tt.path), "path %s", tt.path)
	}
}

func TestEffectiveLimit(t *testing.T) {
	tests := []struct {
		base  int
		level threat.Level
		want  int
	}{
		{100, threat.LevelNone, 100},
		{100, threat.LevelLow, 100},
		{100, threat.LevelMedium, 70},
		{100, threat.LevelHigh, 30},
		{100, threat.LevelCritical, 1},
		{5, threat.LevelHigh, 1}, // floor(1.5) = 1
		{3, threat.LevelMedium, 2},
	}

	for _, tt := range tests {
		got := ratelimit.EffectiveLimit(tt.base, tt.level)
		assert.Equal(t, tt.want, got, "base %d level %s", tt.base, tt.level)
	}
}

func TestCheckAndRecord_SixthLoginBlocked(t *testing.T) {
	limiter := newTestLimiter()
	now := time.Now()

	for i := 0; i < 5; i++ {
		d := limiter.CheckAndRecord("203.0.113.9", "/api/auth/login", threat.LevelNone, now.Add(time.Duration(i)*time.Minute))
		require.True(t, d.Allowed, "request %d", i+1)
	}

	d := limiter.CheckAndRecord("203.0.113.9", "/api/auth/login", threat.LevelNone, now.Add(6*time.Minute))
	assert.False(t, d.Allowed)
	assert.Equal(t, 15*time.Minute, d.RetryAfter)
}

func TestCheckAndRecord_AllowsAgainAfterWindow(t *testing.T) {
	limiter := newTestLimiter()
	now := time.Now()

	for n := 0; n < 5; n++ {
		require.True(t, limiter.CheckAndRecord("client", "/api/auth/login", threat.LevelNone, now).Allowed)
	}
	require.False(t, limiter.CheckAndRecord("client", "/api/auth/login", threat.LevelNone, now.Add(time.Minute)).Allowed)

	// All five timestamps age out of the 15 minute window.
	d := limiter.CheckAndRecord("client", "/api/auth/login", threat.LevelNone, now.Add(16*time.Minute))
	assert.True(t, d.Allowed)
}

func TestCheckAndRecord_ThreatLevelShrinksLimit(t *testing.T) {
	limiter := newTestLimiter()
	now := time.Now()

	// Base 10 on /api/auth/, scaled by 0.3 at high threat: 3 requests.
	for i := 0; i < 3; i++ {
		require.True(t, limiter.CheckAndRecord("client", "/api/auth/refresh", threat.LevelHigh, now).Allowed, "request %d", i+1)
	}
	assert.False(t, limiter.CheckAndRecord("client", "/api/auth/refresh", threat.LevelHigh, now).Allowed)
}

func TestCheckAndRecord_CriticalAdmitsOne(t *testing.T) {
	limiter := newTestLimiter()
	now := time.Now()

	assert.True(t, limiter.CheckAndRecord("client", "/api/users", threat.LevelCritical, now).Allowed)
	assert.False(t, limiter.CheckAndRecord("client", "/api/users", threat.LevelCritical, now).Allowed)
}

func TestCheckAndRecord_KeysAreIndependent(t *testing.T) {
	limiter := newTestLimiter()
	now := time.Now()

	for n := 0; n < 5; n++ {
		require.True(t, limiter.CheckAndRecord("a", "/api/auth/login", threat.LevelNone, now).Allowed)
	}
	require.False(t, limiter.CheckAndRecord("a", "/api/auth/login", threat.LevelNone, now).Allowed)

	// Same path, different client: unaffected.
	assert.True(t, limiter.CheckAndRecord("b", "/api/auth/login", threat.LevelNone, now).Allowed)
	// Same client, different path: unaffected.
	assert.True(t, limiter.CheckAndRecord("a", "/api/users", threat.LevelNone, now).Allowed)
}

func TestCheckAndRecord_ConcurrentSameKey(t *testing.T) {
	limiter := newTestLimiter()
	now := time.Now()

	const workers = 40
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	wg.Add(workers)
	for n := 0; n < workers; n++ {
		go func() {
			defer wg.Done()
			if limiter.CheckAndRecord("shared", "/api/auth/login", threat.LevelNone, now).Allowed {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, admitted)
}

func TestSweep(t *testing.T) {
	limiter := newTestLimiter()
	old := time.Now().Add(-48 * time.Hour)

	limiter.CheckAndRecord("stale", "/api/users", threat.LevelNone, old)
	limiter.CheckAndRecord("fresh", "/api/users", threat.LevelNone, time.Now())
	require.Equal(t, 2, limiter.Len())

	evicted := limiter.Sweep(24 * time.Hour)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, limiter.Len())
}

func TestManyDistinctClients(t *testing.T) {
	limiter := newTestLimiter()
	now := time.Now()

	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("198.51.100.%d", i)
		require.True(t, limiter.CheckAndRecord(id, "/api/users", threat.LevelNone, now).Allowed)
	}
	assert.Equal(t, 200, limiter.Len())
}
