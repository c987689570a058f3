// Package monitoring - request_logger.go logs request/backend-call lifecycle.
//
// DESIGN: Structured logging for request tracing at DEBUG level:
//   - LogIncoming:    JSON-RPC request received from client
//   - LogBackendCall: Tool call forwarded to a backend transport
//   - LogResponse:    Response sent to client
//   - LogDispatch:    Meta-dispatcher stage reached during invoke
package monitoring

import (
	"net/http"
	"time"
)

// RequestLogger logs HTTP request lifecycle events.
type RequestLogger struct {
	logger *Logger
}

// NewRequestLogger creates a new request logger.
func NewRequestLogger(logger *Logger) *RequestLogger {
	return &RequestLogger{logger: logger}
}

// RequestInfo contains incoming request information.
type RequestInfo struct {
	RequestID  string
	Method     string
	Path       string
	RemoteAddr string
	BodySize   int
	StartTime  time.Time
}

// NewRequestInfo creates RequestInfo from an HTTP request.
func NewRequestInfo(r *http.Request, requestID string, bodySize int) *RequestInfo {
	return &RequestInfo{
		RequestID:  requestID,
		Method:     r.Method,
		Path:       r.URL.Path,
		RemoteAddr: r.RemoteAddr,
		BodySize:   bodySize,
		StartTime:  time.Now(),
	}
}

// LogIncoming logs an incoming request.
func (rl *RequestLogger) LogIncoming(info *RequestInfo) {
	rl.logger.Debug().
		Str("request_id", info.RequestID).
		Str("method", info.Method).
		Str("path", info.Path).
		Int("body_size", info.BodySize).
		Msg("incoming")
}

// BackendCallInfo contains information about a call forwarded to a backend.
type BackendCallInfo struct {
	RequestID string
	Backend   string
	Tool      string
	Transport string
	BodySize  int
	CacheHit  bool
}

// LogBackendCall logs a tool call forwarded to a backend.
func (rl *RequestLogger) LogBackendCall(info *BackendCallInfo) {
	event := rl.logger.Debug().
		Str("request_id", info.RequestID).
		Str("backend", info.Backend).
		Str("tool", info.Tool).
		Str("transport", info.Transport).
		Int("body_size", info.BodySize)
	if info.CacheHit {
		event = event.Bool("cache_hit", true)
	}
	event.Msg("backend_call")
}

// ResponseInfo contains response information.
type ResponseInfo struct {
	RequestID  string
	StatusCode int
	Latency    time.Duration
}

// LogResponse logs a response.
func (rl *RequestLogger) LogResponse(info *ResponseInfo) {
	rl.logger.Debug().
		Str("request_id", info.RequestID).
		Int("status", info.StatusCode).
		Dur("latency", info.Latency).
		Msg("response")
}

// DispatchStageInfo contains meta-dispatcher stage information.
type DispatchStageInfo struct {
	RequestID string
	Stage     string
	Backend   string
}

// LogDispatch logs a stage reached within the invoke dispatch algorithm
// (e.g. "idempotency_check", "circuit_check", "rate_limit", "retry").
func (rl *RequestLogger) LogDispatch(info *DispatchStageInfo) {
	rl.logger.Debug().
		Str("request_id", info.RequestID).
		Str("stage", info.Stage).
		Str("backend", info.Backend).
		Msg("dispatch")
}

// PlaybookStepInfo contains playbook step execution information.
type PlaybookStepInfo struct {
	RequestID string
	Playbook  string
	Step      string
	Backend   string
	Tool      string
	Duration  time.Duration
	Success   bool
}

// LogPlaybookStep logs a single executed playbook step.
func (rl *RequestLogger) LogPlaybookStep(info *PlaybookStepInfo) {
	rl.logger.Debug().
		Str("request_id", info.RequestID).
		Str("playbook", info.Playbook).
		Str("step", info.Step).
		Str("backend", info.Backend).
		Str("tool", info.Tool).
		Dur("duration", info.Duration).
		Bool("success", info.Success).
		Msg("playbook_step")
}
