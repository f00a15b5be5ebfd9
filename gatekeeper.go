// Package gatekeeper is an adaptive in-app API gate. Mounted as standard
// net/http middleware, it screens every API request through signature
// scanning, per-client threat profiles, threat-adjusted sliding-window rate
// limits, API key validation and bot heuristics, and rejects hostile
// traffic before it reaches the application handlers.
//
// Minimal usage:
//
//	gk := gatekeeper.New(gatekeeper.DefaultConfig())
//	defer gk.Close()
//	http.ListenAndServe(":8080", gk.Middleware(mux))
package gatekeeper

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ledgerkit/gatekeeper/internal/config"
	"github.com/ledgerkit/gatekeeper/internal/engine"
	"github.com/ledgerkit/gatekeeper/internal/log"
	"github.com/ledgerkit/gatekeeper/internal/polling"
	"github.com/ledgerkit/gatekeeper/internal/ratelimit"
	"github.com/ledgerkit/gatekeeper/internal/threat"
)

// Config is the gatekeeper configuration surface. Zero values fall back to
// the defaults, so callers only set what they want to change.
type Config = config.Config

// ThreatStore tracks per-client threat profiles. The in-memory store suits
// a single process; the Redis store shares profiles across replicas.
type ThreatStore = threat.Store

const (
	sweepInterval = 5 * time.Minute
	sweepMaxIdle  = 24 * time.Hour
)

// DefaultConfig returns the configuration the gatekeeper ships with.
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig builds a Config from defaults, the YAML file at path (if
// non-empty) and GATEKEEPER_* environment variables, in that precedence.
func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

// NewMemoryThreatStore returns the default single-process profile store.
func NewMemoryThreatStore() ThreatStore {
	return threat.NewMemoryStore()
}

// NewRedisThreatStore returns a profile store backed by the given Redis
// client, for deployments where several replicas must share threat state.
// Profiles idle longer than ttl expire server-side.
func NewRedisThreatStore(client *redis.Client, ttl time.Duration) (ThreatStore, error) {
	return threat.NewRedisStore(client, ttl)
}

// Gatekeeper owns the decision engine and its background maintenance.
type Gatekeeper struct {
	engine   *engine.Engine
	profiles threat.Store
	limiter  *ratelimit.Limiter
	sweeper  *polling.Routine
}

// New builds a gatekeeper with an in-memory threat store.
func New(cfg Config) *Gatekeeper {
	return NewWithStore(cfg, threat.NewMemoryStore())
}

// NewWithStore builds a gatekeeper around the given threat store. It starts
// a background sweeper that evicts state for clients idle for a day; call
// Close to stop it.
func NewWithStore(cfg Config, store ThreatStore) *Gatekeeper {
	cfg = cfg.Normalize()
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		log.Warnf("invalid log level %q, keeping current: %v", cfg.LogLevel, err)
	}

	limiter := ratelimit.New(cfg.Window(), cfg.DefaultRateLimit, cfg.EndpointRateLimits)

	g := &Gatekeeper{
		engine:   engine.New(cfg, store, limiter),
		profiles: store,
		limiter:  limiter,
	}
	g.sweeper = polling.Start(sweepInterval, g.sweep)

	return g
}

// Middleware wraps next with the full request screening pipeline.
func (g *Gatekeeper) Middleware(next http.Handler) http.Handler {
	return g.engine.Middleware(next)
}

// Close stops the background sweeper. The middleware itself keeps working
// after Close; only state eviction halts.
func (g *Gatekeeper) Close() {
	g.sweeper.Stop()
}

func (g *Gatekeeper) sweep() {
	evicted := g.profiles.Sweep(context.Background(), sweepMaxIdle)
	evicted += g.limiter.Sweep(sweepMaxIdle)
	if evicted > 0 {
		log.Debugf("evicted %d idle tracking entries", evicted)
	}
}
