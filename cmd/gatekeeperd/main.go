// Command gatekeeperd runs a standalone HTTP server with the gatekeeper
// mounted in front of a small demo API. It exists to exercise the
// middleware against real traffic; production users embed the middleware
// in their own service instead.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/ledgerkit/gatekeeper"
	"github.com/ledgerkit/gatekeeper/internal/log"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	cfg, err := gatekeeper.LoadConfig(*configPath)
	if err != nil {
		log.Errorf("load config: %v", err)
		os.Exit(1)
	}

	gk := newGatekeeper(cfg)
	defer gk.Close()

	server := &http.Server{
		Addr:              *addr,
		Handler:           gk.Middleware(newRouter(cfg.APIPrefix)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infof("listening on %s (api prefix %s)", *addr, cfg.APIPrefix)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
}

// newGatekeeper picks the threat store: Redis when GATEKEEPER_REDIS_ADDR is
// set, in-memory otherwise.
func newGatekeeper(cfg gatekeeper.Config) *gatekeeper.Gatekeeper {
	redisAddr := os.Getenv("GATEKEEPER_REDIS_ADDR")
	if redisAddr == "" {
		return gatekeeper.New(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("GATEKEEPER_REDIS_PASSWORD"),
	})
	store, err := gatekeeper.NewRedisThreatStore(client, 24*time.Hour)
	if err != nil {
		log.Errorf("redis threat store unavailable, using in-memory: %v", err)
		return gatekeeper.New(cfg)
	}

	log.Infof("threat profiles shared via redis at %s", redisAddr)
	return gatekeeper.NewWithStore(cfg, store)
}

func newRouter(apiPrefix string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	r.Route(apiPrefix, func(r chi.Router) {
		r.Get("/users", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, []map[string]any{
				{"id": 1, "name": "alice"},
				{"id": 2, "name": "bob"},
			})
		})
		r.Post("/auth/login", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, map[string]string{"token": "demo"})
		})
		r.Post("/auth/register", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
			writeJSON(w, map[string]string{"status": "registered"})
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
