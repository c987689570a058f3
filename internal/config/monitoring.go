// Monitoring configuration - telemetry and logging settings.
//
// DESIGN: Separates logging (zerolog) from telemetry (JSONL files).
// Logging is for operators, telemetry is for analytics/debugging of
// invoke calls.
package config

// MonitoringConfig contains all monitoring settings.
type MonitoringConfig struct {
	// Logging settings
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // json, console
	LogOutput string `yaml:"log_output"` // stdout, stderr, or file path

	// Telemetry settings
	TelemetryEnabled bool   `yaml:"telemetry_enabled"` // Enable invocation telemetry
	TelemetryPath    string `yaml:"telemetry_path"`    // Path to invocations JSONL file
	LogToStdout      bool   `yaml:"log_to_stdout"`     // Also log telemetry summaries to stdout
	VerbosePayloads  bool   `yaml:"verbose_payloads"`  // Log full request/response payloads

	FailedRequestLogPath string `yaml:"failed_request_log_path"` // Log failed invoke calls
}
