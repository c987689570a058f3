// Package jsonrpc defines the JSON-RPC 2.0 envelope types exchanged
// with clients over /mcp and with backends over stdio/HTTP, plus the
// glue that maps internal/errs kinds to wire error codes.
package jsonrpc

import (
	"encoding/json"

	"github.com/compresr/mcp-gateway/internal/errs"
)

// Version is the fixed protocol version string on every envelope.
const Version = "2.0"

// Request is one inbound or outbound JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is one JSON-RPC 2.0 response: exactly one of Result/Error
// is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Notification is a JSON-RPC 2.0 notification (no id, no response expected).
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Success builds a successful Response echoing id.
func Success(id json.RawMessage, result any) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &Response{JSONRPC: Version, ID: id, Result: raw}, nil
}

// Failure builds an error Response from err, mapping internal/errs
// kinds to the reserved -32000..-32099 "server error" band. An untyped
// error that never went through errs is reported as errs.Internal
// (-32000).
func Failure(id json.RawMessage, err error) *Response {
	var data map[string]any
	var gwErr *errs.Error
	if asErr, ok := err.(*errs.Error); ok {
		gwErr = asErr
		data = gwErr.Data
	}

	kind := errs.KindOf(err)
	code := errs.JSONRPCCode(kind)

	return &Response{
		JSONRPC: Version,
		ID:      id,
		Error: &Error{
			Code:    code,
			Message: err.Error(),
			Data:    data,
		},
	}
}

// ParseError/InvalidRequest/MethodNotFound/InvalidParams are the
// standard JSON-RPC 2.0 pre-dispatch error codes, used before a
// request is even decoded into a gateway-level errs.Error.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// StandardError builds an error Response using one of the standard
// pre-dispatch codes above.
func StandardError(id json.RawMessage, code int, message string) *Response {
	return &Response{JSONRPC: Version, ID: id, Error: &Error{Code: code, Message: message}}
}
