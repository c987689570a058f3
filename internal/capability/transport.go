// Transport adapts an Executor to the transport.Transport contract so
// the registry can treat capability backends uniformly with stdio and
// HTTP backends: `request` dispatches one tool call; `notify` is
// rejected since REST capabilities have no fire-and-forget notion.
package capability

import (
	"context"
	"encoding/json"
	"fmt"
)

// Transport is a transport.Transport backed by an Executor. It is
// defined here rather than imported to avoid a dependency cycle:
// internal/transport stays free of capability-specific types.
type Transport struct {
	executor *Executor
}

// NewTransport wraps an Executor as a request/notify transport.
func NewTransport(executor *Executor) *Transport {
	return &Transport{executor: executor}
}

// Start is a no-op: there is no connection to establish ahead of a call.
func (t *Transport) Start(ctx context.Context) error { return nil }

// Stop is a no-op: the executor's http.Client needs no explicit shutdown.
func (t *Transport) Stop(ctx context.Context) error { return nil }

// IsRunning always reports true: reachability is only known per-call.
func (t *Transport) IsRunning() bool { return true }

// toolsListEntry mirrors the MCP "tools/list" response shape so a
// capability backend looks identical to an MCP server to the registry
// and meta dispatcher.
type toolsListEntry struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Request dispatches one capability tool call. method is the tool
// name; params decodes to the argument object. The synthetic method
// "tools/list" returns every tool declared in the capability file
// instead of dispatching an HTTP call, so the registry can refresh a
// capability backend's tool cache the same way it refreshes an MCP
// server's.
func (t *Transport) Request(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	if method == "tools/list" {
		return t.listTools()
	}

	tool := t.executor.Tool(method)
	if tool == nil {
		return nil, fmt.Errorf("capability: unknown tool %q", method)
	}

	var args map[string]any
	if len(params) > 0 {
		if err := json.Unmarshal(params, &args); err != nil {
			return nil, fmt.Errorf("capability: %s: decode arguments: %w", method, err)
		}
	}
	if args == nil {
		args = map[string]any{}
	}

	result, err := t.executor.Invoke(ctx, tool, args)
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}

func (t *Transport) listTools() (json.RawMessage, error) {
	entries := make([]toolsListEntry, len(t.executor.file.Tools))
	for i, tool := range t.executor.file.Tools {
		schema, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("capability: marshal input_schema for %q: %w", tool.Name, err)
		}
		entries[i] = toolsListEntry{Name: tool.Name, Description: tool.Description, InputSchema: schema}
	}
	return json.Marshal(map[string]any{"tools": entries})
}

// Notify is unsupported: REST capabilities have no one-way call.
func (t *Transport) Notify(ctx context.Context, method string, params json.RawMessage) error {
	return fmt.Errorf("capability: notify is not supported for REST capabilities")
}
