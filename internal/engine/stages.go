package engine

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/ledgerkit/gatekeeper/internal/classify"
	"github.com/ledgerkit/gatekeeper/internal/log"
	"github.com/ledgerkit/gatekeeper/internal/scanner"
	"github.com/ledgerkit/gatekeeper/internal/threat"
)

// maxForwardedHops is how many comma-separated proxy hops a forwarding
// header may plausibly carry before the chain itself looks forged.
const maxForwardedHops = 5

var forwardedHeaders = []string{"X-Forwarded-For", "X-Real-IP", "X-Originating-IP"}

var browserHeaders = []string{"Accept", "Accept-Language", "Accept-Encoding"}

var botPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(bot|crawler|spider|scraper)`),
	regexp.MustCompile(`(?i)(curl|wget|python|java|go-http)`),
	regexp.MustCompile(`(?i)(postman|insomnia|httpie)`),
	regexp.MustCompile(`(?i)(scanner|exploit|attack)`),
}

// checkBlocked rejects clients whose profile reached Critical and whose
// last activity is still inside the block window. No content inspection is
// needed to turn these away.
func (e *Engine) checkBlocked(ctx context.Context, req *classify.Request) *rejection {
	profile, ok := e.profiles.Get(ctx, req.ClientID)
	if !ok {
		return nil
	}

	if profile.Level == threat.LevelCritical && e.now().Sub(profile.LastActivity) < e.cfg.BlockDuration() {
		return &rejection{
			status:  http.StatusForbidden,
			message: "Access temporarily blocked due to suspicious activity",
		}
	}
	return nil
}

func (e *Engine) checkHeaders(req *classify.Request, suspicious *bool) *rejection {
	if e.cfg.RequireUserAgent && req.Headers.Get("User-Agent") == "" {
		return &rejection{
			status:  http.StatusBadRequest,
			message: "User-Agent header is required",
		}
	}

	for name, values := range req.Headers {
		for _, value := range values {
			if group, matched := scanner.Match(value); matched {
				log.Warnf("malicious %s signature in header %s (client=%s)", group, name, req.ClientID)
				return &rejection{
					status:  http.StatusBadRequest,
					message: "Malicious content detected in request headers",
				}
			}
		}
	}

	// An implausibly long proxy chain is a spoofing hint, not proof:
	// flag it and move on.
	for _, name := range forwardedHeaders {
		value := req.Headers.Get(name)
		if value != "" && strings.Count(value, ",")+1 > maxForwardedHops {
			log.Warnf("implausible proxy chain in %s (client=%s)", name, req.ClientID)
			*suspicious = true
		}
	}

	return nil
}

func (e *Engine) checkContent(req *classify.Request) *rejection {
	for param, values := range req.Query {
		for _, value := range values {
			if group, matched := scanner.Match(value); matched {
				log.Warnf("malicious %s signature in query parameter %s (client=%s)", group, param, req.ClientID)
				return &rejection{
					status:  http.StatusBadRequest,
					message: "Malicious content detected in request parameters",
				}
			}
		}
	}

	if req.JSONBody {
		if group, matched := scanner.Match(string(req.Body)); matched {
			log.Warnf("malicious %s signature in request body (client=%s)", group, req.ClientID)
			return &rejection{
				status:  http.StatusBadRequest,
				message: "Malicious content detected in request body",
			}
		}

		if int64(len(req.Body)) > e.cfg.MaxBodyBytes {
			return &rejection{
				status:  http.StatusRequestEntityTooLarge,
				message: "Request body too large",
			}
		}
	}

	return nil
}

func (e *Engine) checkRateLimit(ctx context.Context, req *classify.Request) *rejection {
	level := threat.LevelNone
	if profile, ok := e.profiles.Get(ctx, req.ClientID); ok {
		level = profile.Level
	}

	decision := e.limiter.CheckAndRecord(req.ClientID, req.Path, level, e.now())
	if !decision.Allowed {
		return &rejection{
			status:     http.StatusTooManyRequests,
			message:    "Rate limit exceeded. Please try again later.",
			retryAfter: decision.RetryAfter,
		}
	}
	return nil
}

func (e *Engine) checkAPIKey(req *classify.Request) *rejection {
	if !e.cfg.RequireAPIKey {
		return nil
	}
	// Login and registration cannot require a key the client is trying
	// to obtain.
	if strings.HasPrefix(req.Path, e.cfg.APIPrefix+"/auth/") {
		return nil
	}

	key := strings.TrimSpace(req.Headers.Get(e.cfg.APIKeyHeader))
	if key == "" && e.cfg.AllowAPIKeyQuery {
		key = strings.TrimSpace(req.Query.Get(e.cfg.APIKeyQueryParam))
	}

	if key == "" {
		return &rejection{status: http.StatusUnauthorized, message: "API key required"}
	}
	if _, ok := e.validKeys[key]; !ok {
		return &rejection{status: http.StatusUnauthorized, message: "Invalid API key"}
	}
	return nil
}

func (e *Engine) checkBot(req *classify.Request, suspicious *bool) *rejection {
	if !e.cfg.BotDetectionEnabled {
		return nil
	}

	userAgent := req.Headers.Get("User-Agent")
	if userAgent != "" && matchesBotPattern(userAgent) {
		if e.cfg.BotBlockingEnabled {
			return &rejection{
				status:  http.StatusForbidden,
				message: "Automated traffic not allowed",
			}
		}
		*suspicious = true
	}

	// Browsers send all three of these; automation frequently forgets.
	missing := 0
	for _, name := range browserHeaders {
		if req.Headers.Get(name) == "" {
			missing++
		}
	}
	if missing >= 2 {
		*suspicious = true
	}

	return nil
}

func matchesBotPattern(userAgent string) bool {
	for _, pattern := range botPatterns {
		if pattern.MatchString(userAgent) {
			return true
		}
	}
	return false
}
