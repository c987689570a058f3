// Package monitoring - types.go defines shared types.
//
// DESIGN: These types are used by both httpapi/ and monitoring/ packages.
// Defined here ONCE to avoid duplication and circular imports.
//
// TYPES:
//   - InvocationEvent: Telemetry data for each invoke call
//   - Config types:    TelemetryConfig, LoggerConfig, AlertConfig
package monitoring

import "time"

// =============================================================================
// EVENT TYPES - Structured data for telemetry recording
// =============================================================================

// InvocationEvent captures one meta-tool `invoke` call end to end.
type InvocationEvent struct {
	RequestID     string    `json:"request_id"`
	Timestamp     time.Time `json:"timestamp"`
	Server        string    `json:"server"`
	Tool          string    `json:"tool"`
	ClientIP      string    `json:"client_ip,omitempty"`
	SessionID     string    `json:"session_id,omitempty"`
	ArgsBytes     int       `json:"args_bytes"`
	ResultBytes   int       `json:"result_bytes"`
	CacheHit      bool      `json:"cache_hit"`
	IdempotentHit bool      `json:"idempotent_hit"`
	Success       bool      `json:"success"`
	ErrorKind     string    `json:"error_kind,omitempty"`
	TokensSaved   int       `json:"tokens_saved"`
	LatencyMs     int64     `json:"latency_ms"`
}

// =============================================================================
// CONFIG TYPES
// =============================================================================

// TelemetryConfig contains telemetry configuration.
type TelemetryConfig struct {
	Enabled            bool   `yaml:"enabled"`
	LogPath            string `yaml:"log_path"`
	LogToStdout        bool   `yaml:"log_to_stdout"`
	CompressionLogPath string `yaml:"compression_log_path"`
}

// LoggerConfig contains logging configuration.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	Output string `yaml:"output"` // stdout, stderr, or file path
}

// AlertConfig contains alert thresholds.
type AlertConfig struct {
	HighLatencyThreshold time.Duration `yaml:"high_latency_threshold"`
}
