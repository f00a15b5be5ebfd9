// Package response writes the gatekeeper's uniform rejection payloads and
// injects security headers on responses that pass through.
package response

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const apiVersion = "v1"

type rejectionBody struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"requestId"`
}

// NewRequestID returns the 8-hex-char correlation id attached to every
// gatekeeper decision.
func NewRequestID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:4])
}

// WriteRejection writes the uniform JSON rejection body with the given
// status. A positive retryAfter also sets the Retry-After header. The
// message is the only detail that reaches the client; internals never
// cross this boundary.
func WriteRejection(w http.ResponseWriter, status int, message, requestID string, retryAfter time.Duration) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Del("Server")
	h.Del("X-Powered-By")
	if retryAfter > 0 {
		h.Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	}

	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rejectionBody{
		Success:   false,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: requestID,
	})
}

// SetSecurityHeaders injects the response security headers for requests
// that pass all checks and strips server-identifying ones.
func SetSecurityHeaders(h http.Header) {
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("X-XSS-Protection", "1; mode=block")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	h.Set("X-API-Version", apiVersion)
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate")
	h.Del("Server")
	h.Del("X-Powered-By")
}
