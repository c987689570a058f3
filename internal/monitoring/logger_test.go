package monitoring

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLogFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestLoggerWritesJSONLinesToConfiguredFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.log")
	l := New(LoggerConfig{Level: "debug", Output: path})

	l.Info().Str("backend", "weather").Msg("started")

	content := readLogFile(t, path)
	assert.Contains(t, content, `"backend":"weather"`)
	assert.Contains(t, content, `"message":"started"`)
}

func TestLoggerLevelFiltersBelowThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.log")
	l := New(LoggerConfig{Level: "warn", Output: path})

	l.Debug().Msg("should not appear")
	l.Warn().Msg("should appear")

	content := readLogFile(t, path)
	assert.NotContains(t, content, "should not appear")
	assert.Contains(t, content, "should appear")
}

func TestLoggerInvalidLevelDefaultsToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.log")
	l := New(LoggerConfig{Level: "not-a-level", Output: path})

	l.Info().Msg("visible")
	l.Debug().Msg("hidden")

	content := readLogFile(t, path)
	assert.Contains(t, content, "visible")
	assert.NotContains(t, content, "hidden")
}

func TestRequestIDContextRoundTrips(t *testing.T) {
	ctx := WithRequestIDContext(context.Background(), "req-123")
	assert.Equal(t, "req-123", RequestIDFromContext(ctx))
}

func TestRequestIDFromContextEmptyWhenUnset(t *testing.T) {
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
}
