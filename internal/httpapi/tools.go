package httpapi

import (
	"context"
	"encoding/json"

	"github.com/compresr/mcp-gateway/internal/errs"
	"github.com/compresr/mcp-gateway/internal/registry"
)

// toolsListResult is the MCP "tools/list" response shape returned by
// every backend, regardless of transport.
type toolsListResult struct {
	Tools []struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		InputSchema json.RawMessage `json:"inputSchema"`
	} `json:"tools"`
}

// fetchTools calls a backend's "tools/list" method and decodes it
// into registry.ToolDescriptor, starting the backend first if it
// hasn't connected yet (warm-start is best-effort; list_tools is
// where a lazily-started backend actually gets its first chance).
func (g *Gateway) fetchTools(ctx context.Context, b *registry.Backend) ([]registry.ToolDescriptor, error) {
	if b.State() != registry.Running {
		if err := b.Start(ctx); err != nil {
			return nil, errs.Wrap(errs.Transport, err, "starting backend")
		}
	}

	raw, err := b.Invoke(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}

	var parsed toolsListResult
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, errs.Wrap(errs.Transport, err, "decoding tools/list response")
	}

	out := make([]registry.ToolDescriptor, len(parsed.Tools))
	for i, t := range parsed.Tools {
		out[i] = registry.ToolDescriptor{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
			Server:      b.Name,
		}
	}
	return out, nil
}
