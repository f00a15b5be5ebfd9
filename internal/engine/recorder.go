package engine

import (
	"net/http"
	"sync/atomic"
)

// statusRecorder captures the status code the downstream handler writes so
// the decision log can include it.
type statusRecorder struct {
	writer     http.ResponseWriter
	statusCode int
	written    atomic.Bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{writer: w}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.writer
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	// Only the first status code written matters.
	if r.written.CompareAndSwap(false, true) {
		r.statusCode = statusCode
	}
	r.writer.WriteHeader(statusCode)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	// If WriteHeader was never called, the status defaults to 200 OK.
	if r.written.CompareAndSwap(false, true) {
		r.statusCode = http.StatusOK
	}
	return r.writer.Write(b)
}

func (r *statusRecorder) Header() http.Header {
	return r.writer.Header()
}

func (r *statusRecorder) status() int {
	if !r.written.Load() {
		return http.StatusOK
	}
	return r.statusCode
}
