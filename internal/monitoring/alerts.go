// Package monitoring - alerts.go flags anomalies and errors.
//
// DESIGN: AlertManager logs notable events at appropriate levels:
//   - FlagHighLatency:     Warn when a backend call exceeds threshold
//   - FlagBackendFailure:  Error when a backend transport call fails
//   - FlagCircuitOpen:     Warn when a backend's circuit breaker trips
//   - FlagKillSwitch:      Error when a backend is auto-killed on budget
//   - FlagPanic:           Error on recovered panics
package monitoring

import "time"

// AlertManager flags anomalies and errors.
type AlertManager struct {
	logger               *Logger
	highLatencyThreshold time.Duration
}

// NewAlertManager creates a new alert manager.
func NewAlertManager(logger *Logger, cfg AlertConfig) *AlertManager {
	threshold := cfg.HighLatencyThreshold
	if threshold == 0 {
		threshold = 5 * time.Second
	}
	return &AlertManager{logger: logger, highLatencyThreshold: threshold}
}

// FlagHighLatency logs when backend call latency exceeds threshold.
func (am *AlertManager) FlagHighLatency(requestID string, latency time.Duration, backend, tool string) {
	if latency < am.highLatencyThreshold {
		return
	}
	am.logger.Warn().
		Str("request_id", requestID).
		Dur("latency", latency).
		Str("backend", backend).
		Str("tool", tool).
		Msg("high_latency")
}

// FlagBackendFailure logs a failed backend transport call.
func (am *AlertManager) FlagBackendFailure(requestID, backend, tool string, err error) {
	am.logger.Error().
		Str("request_id", requestID).
		Str("backend", backend).
		Str("tool", tool).
		Err(err).
		Msg("backend_call_failed")
}

// FlagCircuitOpen logs a backend's circuit breaker tripping open.
func (am *AlertManager) FlagCircuitOpen(backend string, consecutiveFailures int) {
	am.logger.Warn().
		Str("backend", backend).
		Int("consecutive_failures", consecutiveFailures).
		Msg("circuit_open")
}

// FlagKillSwitch logs a backend being auto-killed by the error budget.
func (am *AlertManager) FlagKillSwitch(backend, reason string) {
	am.logger.Error().
		Str("backend", backend).
		Str("reason", reason).
		Msg("backend_killed")
}

// FlagInvalidRequest logs an invalid request.
func (am *AlertManager) FlagInvalidRequest(requestID, reason string, details map[string]interface{}) {
	am.logger.Debug().
		Str("request_id", requestID).
		Str("reason", reason).
		Msg("invalid_request")
}

// FlagPanic logs a recovered panic.
func (am *AlertManager) FlagPanic(requestID string, panicValue interface{}, stack string) {
	am.logger.Error().
		Str("request_id", requestID).
		Interface("panic", panicValue).
		Msg("panic_recovered")
}

// FlagUpstreamTimeout logs a backend call that exceeded its deadline.
func (am *AlertManager) FlagUpstreamTimeout(requestID, backend, tool string, timeout time.Duration) {
	am.logger.Error().
		Str("request_id", requestID).
		Str("backend", backend).
		Str("tool", tool).
		Dur("timeout", timeout).
		Msg("upstream_timeout")
}
