// Package engine orchestrates the ordered decision stages the gatekeeper
// runs over every inbound API request: allow-list bypass, block check,
// header and content validation, threat-adjusted rate limiting, API key
// validation and bot heuristics. The first terminal stage wins.
package engine

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ledgerkit/gatekeeper/internal/classify"
	"github.com/ledgerkit/gatekeeper/internal/config"
	"github.com/ledgerkit/gatekeeper/internal/ipaddr"
	"github.com/ledgerkit/gatekeeper/internal/log"
	"github.com/ledgerkit/gatekeeper/internal/ratelimit"
	"github.com/ledgerkit/gatekeeper/internal/response"
	"github.com/ledgerkit/gatekeeper/internal/threat"
)

type Engine struct {
	cfg       config.Config
	profiles  threat.Store
	limiter   *ratelimit.Limiter
	allowList *ipaddr.MatchList
	validKeys map[string]struct{}

	now func() time.Time
}

func New(cfg config.Config, profiles threat.Store, limiter *ratelimit.Limiter) *Engine {
	validKeys := make(map[string]struct{}, len(cfg.ValidAPIKeys))
	for _, key := range cfg.ValidAPIKeys {
		validKeys[key] = struct{}{}
	}

	return &Engine{
		cfg:       cfg,
		profiles:  profiles,
		limiter:   limiter,
		allowList: ipaddr.BuildMatchList(cfg.AllowedIPs),
		validKeys: validKeys,
		now:       time.Now,
	}
}

// rejection describes a terminal decision for the current request.
type rejection struct {
	status     int
	message    string
	retryAfter time.Duration
}

// Middleware wraps next with the full decision pipeline. Requests outside
// the configured API prefix and CORS preflight requests bypass the
// gatekeeper entirely.
func (e *Engine) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, e.cfg.APIPrefix) || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		e.handle(w, r, next)
	})
}

func (e *Engine) handle(w http.ResponseWriter, r *http.Request, next http.Handler) {
	requestID := response.NewRequestID()
	req := classify.Classify(r, e.cfg.MaxBodyBytes)

	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("panic during request evaluation: %v (client=%s path=%s request=%s)",
				rec, req.ClientID, req.Path, requestID)
			response.WriteRejection(w, http.StatusInternalServerError,
				"An unexpected error occurred", requestID, 0)
		}
	}()

	if e.allowListed(req.ClientID) {
		log.Debugf("allow-listed client admitted without inspection (client=%s path=%s request=%s)",
			req.ClientID, req.Path, requestID)
		response.SetSecurityHeaders(w.Header())
		next.ServeHTTP(w, r)
		return
	}

	var suspicious bool
	if rej := e.evaluate(r.Context(), &req, &suspicious); rej != nil {
		e.profiles.Update(r.Context(), req.ClientID, true)
		log.Warnf("request rejected: %s (status=%d client=%s path=%s request=%s)",
			rej.message, rej.status, req.ClientID, req.Path, requestID)
		response.WriteRejection(w, rej.status, rej.message, requestID, rej.retryAfter)
		return
	}

	e.profiles.Update(r.Context(), req.ClientID, suspicious)
	response.SetSecurityHeaders(w.Header())

	recorder := newStatusRecorder(w)
	next.ServeHTTP(recorder, r)

	log.Infof("request allowed (status=%d client=%s path=%s request=%s)",
		recorder.status(), req.ClientID, req.Path, requestID)
}

func (e *Engine) allowListed(clientID string) bool {
	return ipaddr.IsLoopback(clientID) || e.allowList.Contains(clientID)
}

// evaluate runs the ordered decision stages. A nil result means the request
// may proceed; the suspicious flag accumulates non-terminal findings that
// still count against the client's threat profile.
func (e *Engine) evaluate(ctx context.Context, req *classify.Request, suspicious *bool) *rejection {
	if rej := e.checkBlocked(ctx, req); rej != nil {
		return rej
	}
	if rej := e.checkHeaders(req, suspicious); rej != nil {
		return rej
	}
	if rej := e.checkContent(req); rej != nil {
		return rej
	}
	if rej := e.checkRateLimit(ctx, req); rej != nil {
		return rej
	}
	if rej := e.checkAPIKey(req); rej != nil {
		return rej
	}
	if rej := e.checkBot(req, suspicious); rej != nil {
		return rej
	}
	return nil
}
