package monitoring

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newCapturingAlertManager(t *testing.T, cfg AlertConfig) (*AlertManager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alerts.log")
	logger := New(LoggerConfig{Level: "debug", Output: path})
	return NewAlertManager(logger, cfg), path
}

func TestFlagHighLatencySkipsBelowThreshold(t *testing.T) {
	am, path := newCapturingAlertManager(t, AlertConfig{HighLatencyThreshold: time.Second})

	am.FlagHighLatency("req-1", 100*time.Millisecond, "weather", "get_forecast")

	assert.NotContains(t, readLogFile(t, path), "high_latency")
}

func TestFlagHighLatencyLogsAboveThreshold(t *testing.T) {
	am, path := newCapturingAlertManager(t, AlertConfig{HighLatencyThreshold: time.Millisecond})

	am.FlagHighLatency("req-1", time.Second, "weather", "get_forecast")

	content := readLogFile(t, path)
	assert.Contains(t, content, "high_latency")
	assert.Contains(t, content, `"backend":"weather"`)
}

func TestNewAlertManagerDefaultsThresholdWhenZero(t *testing.T) {
	am, path := newCapturingAlertManager(t, AlertConfig{})
	assert.Equal(t, 5*time.Second, am.highLatencyThreshold)

	am.FlagHighLatency("req-1", time.Second, "weather", "get_forecast")
	assert.NotContains(t, readLogFile(t, path), "high_latency")
}

func TestFlagBackendFailureLogsError(t *testing.T) {
	am, path := newCapturingAlertManager(t, AlertConfig{})

	am.FlagBackendFailure("req-1", "weather", "get_forecast", assertError("boom"))

	content := readLogFile(t, path)
	assert.Contains(t, content, "backend_call_failed")
	assert.Contains(t, content, "boom")
}

func TestFlagCircuitOpenLogsConsecutiveFailures(t *testing.T) {
	am, path := newCapturingAlertManager(t, AlertConfig{})

	am.FlagCircuitOpen("weather", 7)

	content := readLogFile(t, path)
	assert.Contains(t, content, "circuit_open")
	assert.Contains(t, content, `"consecutive_failures":7`)
}

func TestFlagKillSwitchLogsReason(t *testing.T) {
	am, path := newCapturingAlertManager(t, AlertConfig{})

	am.FlagKillSwitch("weather", "error budget exhausted")

	content := readLogFile(t, path)
	assert.Contains(t, content, "backend_killed")
	assert.Contains(t, content, "error budget exhausted")
}

func TestFlagPanicLogsPanicValue(t *testing.T) {
	am, path := newCapturingAlertManager(t, AlertConfig{})

	am.FlagPanic("req-1", "nil pointer", "stacktrace")

	content := readLogFile(t, path)
	assert.Contains(t, content, "panic_recovered")
}

func TestFlagUpstreamTimeoutLogsTimeout(t *testing.T) {
	am, path := newCapturingAlertManager(t, AlertConfig{})

	am.FlagUpstreamTimeout("req-1", "weather", "get_forecast", 30*time.Second)

	content := readLogFile(t, path)
	assert.Contains(t, content, "upstream_timeout")
}

type simpleError string

func (e simpleError) Error() string { return string(e) }

func assertError(msg string) error { return simpleError(msg) }
