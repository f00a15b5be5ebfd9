// Package classify turns an inbound http.Request into the scan-ready view
// the decision engine works with: a best-effort client identity plus the
// headers, query parameters and buffered body text to inspect.
package classify

import (
	"bytes"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// UnknownClient is the identity assigned when no address can be derived.
const UnknownClient = "unknown"

// Request is the classified view of an inbound request.
type Request struct {
	ClientID string
	Method   string
	Path     string
	Headers  http.Header
	Query    url.Values
	Body     []byte
	JSONBody bool
}

// Classify extracts the client identity and, for JSON requests, buffers the
// body so it can be scanned and then replayed unchanged for the downstream
// handler. It never fails: a request that cannot be fully parsed still
// yields a usable identity.
func Classify(r *http.Request, maxBody int64) Request {
	c := Request{
		ClientID: clientID(r),
		Method:   r.Method,
		Path:     r.URL.Path,
		Headers:  r.Header,
		Query:    r.URL.Query(),
	}

	if r.Body == nil || r.Body == http.NoBody || r.ContentLength <= 0 {
		return c
	}
	if !isJSON(r.Header.Get("Content-Type")) {
		return c
	}

	// Read at most one byte past the cap: enough to detect an oversized
	// body without letting a client stream unbounded data into memory.
	body, _ := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	c.Body = body
	c.JSONBody = true

	// Replay the buffered bytes (plus anything unread) for the handler.
	r.Body = replayBody{
		Reader: io.MultiReader(bytes.NewReader(body), r.Body),
		Closer: r.Body,
	}

	return c
}

type replayBody struct {
	io.Reader
	io.Closer
}

// clientID resolves the client identity: the first X-Forwarded-For hop,
// then X-Real-IP, then the transport peer address, then "unknown".
func clientID(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); strings.TrimSpace(forwarded) != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" {
			return first
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}

	return UnknownClient
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
