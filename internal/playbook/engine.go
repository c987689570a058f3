package playbook

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/compresr/mcp-gateway/internal/errs"
)

// Run executes def's steps in order against invoke, returning the
// accumulated result. Retries inside a step share the outer
// playbook's deadline: the step's own retry loop is bounded by the
// same context, so a tight timeout can still cut a retrying step
// short.
func Run(ctx context.Context, def *Definition, inputs map[string]any, invoke Invoker) (*Result, error) {
	start := time.Now()

	if def.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, def.Timeout)
		defer cancel()
	}

	stepCtx := map[string]any{"inputs": inputs}
	result := &Result{}

	for _, step := range def.Steps {
		if def.Timeout > 0 && time.Since(start) > def.Timeout {
			return nil, errs.Newf(errs.Timeout, "playbook %q exceeded timeout before step %q", def.Name, step.Name)
		}

		ok, err := EvaluateCondition(step.Condition, stepCtx)
		if err != nil {
			return nil, errs.Wrap(errs.Internal, err, "evaluating condition")
		}
		if !ok {
			result.StepsSkipped = append(result.StepsSkipped, step.Name)
			stepCtx[step.Name] = nil
			continue
		}

		args := resolveArgs(step.Args, stepCtx)

		value, callErr := runStep(ctx, step, args, invoke)
		if callErr != nil {
			switch step.OnError {
			case Continue:
				result.StepsFailed = append(result.StepsFailed, step.Name)
				stepCtx[step.Name] = nil
				continue
			default: // Abort and exhausted Retry both fail the playbook
				return nil, callErr
			}
		}

		result.StepsCompleted = append(result.StepsCompleted, step.Name)
		stepCtx[step.Name] = value
	}

	output, err := projectOutput(def, stepCtx)
	if err != nil {
		return nil, err
	}
	result.Output = output
	result.DurationMs = time.Since(start).Milliseconds()
	return result, nil
}

// runStep dispatches one step, applying its retry error strategy.
func runStep(ctx context.Context, step Step, args map[string]any, invoke Invoker) (any, error) {
	attempts := 1
	if step.OnError == Retry {
		attempts = step.MaxRetries + 1
		if attempts < 1 {
			attempts = 1
		}
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		value, err := invoke(ctx, step.Server, step.Tool, args)
		if err == nil {
			return value, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func resolveArgs(args map[string]any, ctx map[string]any) map[string]any {
	resolved := resolveValue(args, ctx)
	if m, ok := resolved.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// projectOutput builds the playbook's output object: either the
// explicit output map (each field resolved by path + fallback), or,
// if absent, every step's result keyed by step name.
func projectOutput(def *Definition, ctx map[string]any) (map[string]any, error) {
	if len(def.Output) == 0 {
		out := make(map[string]any, len(def.Steps))
		for _, step := range def.Steps {
			out[step.Name] = ctx[step.Name]
		}
		return out, nil
	}

	out := make(map[string]any, len(def.Output))
	for field, spec := range def.Output {
		v, ok := resolveRef(strings.TrimPrefix(spec.Path, "$"), ctx)
		if !ok || v == nil {
			out[field] = spec.Fallback
			continue
		}
		out[field] = v
	}
	return out, nil
}

// MarshalArgs re-encodes a playbook arguments map as raw JSON, for
// Invoker implementations that wrap a json.RawMessage-based call such
// as the meta dispatcher's Invoke.
func MarshalArgs(args map[string]any) (json.RawMessage, error) {
	return json.Marshal(args)
}
