package classify_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ledgerkit/gatekeeper/internal/classify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const maxBody = 1 << 20

func TestClientID_ForwardedForFirstHop(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/users", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1, 10.0.0.2")
	r.Header.Set("X-Real-IP", "198.51.100.1")

	c := classify.Classify(r, maxBody)
	assert.Equal(t, "203.0.113.7", c.ClientID)
}

func TestClientID_RealIPFallback(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/users", nil)
	r.Header.Set("X-Real-IP", "198.51.100.1")

	c := classify.Classify(r, maxBody)
	assert.Equal(t, "198.51.100.1", c.ClientID)
}

func TestClientID_RemoteAddrFallback(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/users", nil)
	r.RemoteAddr = "192.0.2.44:51234"

	c := classify.Classify(r, maxBody)
	assert.Equal(t, "192.0.2.44", c.ClientID)
}

func TestClientID_EmptyForwardedForSkipped(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/users", nil)
	r.Header.Set("X-Forwarded-For", "  ")
	r.RemoteAddr = "192.0.2.44:51234"

	c := classify.Classify(r, maxBody)
	assert.Equal(t, "192.0.2.44", c.ClientID)
}

func TestClientID_Unknown(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/users", nil)
	r.RemoteAddr = ""

	c := classify.Classify(r, maxBody)
	assert.Equal(t, classify.UnknownClient, c.ClientID)
}

func TestClassify_BuffersJSONBody(t *testing.T) {
	payload := `{"name": "jane", "amount": 120}`
	r := httptest.NewRequest("POST", "/api/invoices", strings.NewReader(payload))
	r.Header.Set("Content-Type", "application/json")

	c := classify.Classify(r, maxBody)
	require.True(t, c.JSONBody)
	assert.Equal(t, payload, string(c.Body))

	// The body must replay unchanged for the downstream handler.
	replayed, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	assert.Equal(t, payload, string(replayed))
}

func TestClassify_JSONWithCharset(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/invoices", strings.NewReader(`{"a": 1}`))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")

	c := classify.Classify(r, maxBody)
	assert.True(t, c.JSONBody)
}

func TestClassify_NonJSONBodyNotBuffered(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/upload", strings.NewReader("a=1&b=2"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c := classify.Classify(r, maxBody)
	assert.False(t, c.JSONBody)
	assert.Nil(t, c.Body)

	// Untouched body still reads fully.
	data, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	assert.Equal(t, "a=1&b=2", string(data))
}

func TestClassify_OversizeBodyCapped(t *testing.T) {
	payload := `{"data": "` + strings.Repeat("x", 100) + `"}`
	r := httptest.NewRequest("POST", "/api/invoices", strings.NewReader(payload))
	r.Header.Set("Content-Type", "application/json")

	c := classify.Classify(r, 16)
	require.True(t, c.JSONBody)
	assert.Len(t, c.Body, 17) // max + 1, enough to detect oversize
}

func TestClassify_QueryAndPath(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/users?page=2&sort=name", nil)

	c := classify.Classify(r, maxBody)
	assert.Equal(t, "/api/users", c.Path)
	assert.Equal(t, "GET", c.Method)
	assert.Equal(t, "2", c.Query.Get("page"))
	assert.Equal(t, "name", c.Query.Get("sort"))
}
