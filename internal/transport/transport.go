// Package transport defines the wire-level contract shared by every
// backend kind the gateway can proxy to: subprocess (stdio), HTTP,
// and capability (declarative REST).
//
// DESIGN: One small interface, three implementations, selected by
// each backend's configured kind when the registry is built at
// startup. Every transport speaks JSON-RPC 2.0
// request/response framing at the Request boundary even when the
// underlying wire protocol (a REST endpoint, say) does not - the
// capability transport is responsible for translating its templated
// HTTP call into that shape.
package transport

import (
	"context"
	"encoding/json"
)

// Transport is the contract every backend kind implements.
type Transport interface {
	// Start brings the backend up (spawns the subprocess, or simply
	// marks an HTTP/capability backend ready - those have no process
	// to launch).
	Start(ctx context.Context) error

	// Stop tears the backend down, releasing any process or connection.
	Stop(ctx context.Context) error

	// Request performs one JSON-RPC style method call and waits for
	// its response.
	Request(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error)

	// Notify sends a one-way message with no response expected.
	Notify(ctx context.Context, method string, params json.RawMessage) error

	// IsRunning reports whether the backend is currently usable.
	IsRunning() bool
}
