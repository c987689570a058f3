package meta

import (
	"context"
	"encoding/json"

	"github.com/compresr/mcp-gateway/internal/errs"
	"github.com/compresr/mcp-gateway/internal/playbook"
)

// RunPlaybook executes the named playbook, routing each step's tool
// call back through Invoke so playbook steps get the same
// kill-switch/cache/idempotency/failsafe treatment as a direct invoke.
func (d *Dispatcher) RunPlaybook(ctx context.Context, store *playbook.Store, name string, inputs map[string]any, sessionID string) (*playbook.Result, error) {
	def := store.Get(name)
	if def == nil {
		return nil, errs.Newf(errs.NotFound, "unknown playbook %q", name)
	}

	invoker := func(ctx context.Context, server, tool string, args map[string]any) (any, error) {
		raw, err := playbook.MarshalArgs(args)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidArguments, err, "encoding step arguments")
		}
		res, err := d.Invoke(ctx, InvokeRequest{Server: server, Tool: tool, Arguments: raw, SessionID: sessionID})
		if err != nil {
			return nil, err
		}
		var decoded any
		if err := json.Unmarshal(res.Result, &decoded); err != nil {
			return res.Result, nil
		}
		return decoded, nil
	}

	return playbook.Run(ctx, def, inputs, invoker)
}
