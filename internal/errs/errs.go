// Package errs defines the gateway's typed error taxonomy.
//
// DESIGN: Every error that can reach a client carries a stable Kind so
// the JSON-RPC boundary layer can map it to a wire error code without
// string-matching messages. Kinds also drive retry classification in
// the failsafe stack (see internal/failsafe).
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies a class of gateway error.
type Kind string

const (
	InvalidArguments Kind = "invalid_arguments"
	NotFound         Kind = "not_found"
	Duplicate        Kind = "duplicate"
	Killed           Kind = "killed"
	CircuitOpen      Kind = "circuit_open"
	RateLimited      Kind = "rate_limited"
	Timeout          Kind = "timeout"
	Transport        Kind = "transport"
	ToolFailed       Kind = "tool_failed"
	Internal         Kind = "internal"
)

// jsonRPCCodes maps each Kind to a JSON-RPC 2.0 "server error" code in
// the reserved -32000..-32099 band.
var jsonRPCCodes = map[Kind]int{
	InvalidArguments: -32001,
	NotFound:         -32002,
	Duplicate:        -32003,
	Killed:           -32004,
	CircuitOpen:      -32005,
	RateLimited:      -32006,
	Timeout:          -32007,
	Transport:        -32008,
	ToolFailed:       -32009,
	Internal:         -32000,
}

// retryable reports whether a Kind is ever eligible for failsafe retry.
// Timeout is conditionally retryable (only for idempotent methods); the
// failsafe retry policy checks that condition separately.
var retryable = map[Kind]bool{
	Transport: true,
	Timeout:   true,
}

// Error is the typed error value threaded through the core.
type Error struct {
	Kind    Kind
	Message string
	Data    map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs an *Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an *Error that records an underlying cause.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithData attaches structured data and returns the receiver for chaining.
func (e *Error) WithData(data map[string]any) *Error {
	e.Data = data
	return e
}

// KindOf extracts the Kind from err, defaulting to Internal for
// untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// IsRetryable reports whether errors of this kind may ever be retried
// by the failsafe stack. Timeout additionally requires the calling
// method to be idempotent — checked by the caller.
func IsRetryable(kind Kind) bool {
	return retryable[kind]
}

// JSONRPCCode returns the wire error code for a Kind.
func JSONRPCCode(kind Kind) int {
	if code, ok := jsonRPCCodes[kind]; ok {
		return code
	}
	return jsonRPCCodes[Internal]
}
