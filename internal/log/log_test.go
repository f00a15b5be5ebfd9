package log_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/ledgerkit/gatekeeper/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, fn func()) string {
	t.Helper()

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stdout)

	fn()
	return buf.String()
}

func TestLevelFiltering(t *testing.T) {
	require.NoError(t, log.SetLevel("WARN"))
	defer func() { _ = log.SetLevel("INFO") }()

	out := capture(t, func() {
		log.Debug("debug message")
		log.Info("info message")
		log.Warn("warn message")
		log.Error("error message")
	})

	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error message")
}

func TestFormattedOutput(t *testing.T) {
	require.NoError(t, log.SetLevel("INFO"))

	out := capture(t, func() {
		log.Infof("client %s scored %d", "10.0.0.1", 3)
	})

	assert.Contains(t, out, "[GATEKEEPER][INFO]")
	assert.Contains(t, out, "client 10.0.0.1 scored 3")
}

func TestSetLevelInvalid(t *testing.T) {
	assert.Error(t, log.SetLevel("TRACE"))
}
