// Package meta implements the fixed meta-tool surface
// (list_servers, list_tools, search_tools, invoke, run_playbook,
// get_stats, kill_server, revive_server) and the invoke dispatch
// algorithm that backs it.
package meta

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/compresr/mcp-gateway/internal/cache"
	"github.com/compresr/mcp-gateway/internal/canon"
	"github.com/compresr/mcp-gateway/internal/errs"
	"github.com/compresr/mcp-gateway/internal/idempotency"
	"github.com/compresr/mcp-gateway/internal/killswitch"
	"github.com/compresr/mcp-gateway/internal/monitoring"
	"github.com/compresr/mcp-gateway/internal/ranker"
	"github.com/compresr/mcp-gateway/internal/registry"
	"github.com/compresr/mcp-gateway/internal/session"
	"github.com/compresr/mcp-gateway/internal/tagging"
)

// ToolTTL resolves the cache TTL to apply for one (server, tool) pair;
// callers that need per-tool overrides supply one, defaulting
// otherwise.
type ToolTTL func(server, tool string) time.Duration

// Dispatcher wires the registry, failsafe-adjacent collaborators, and
// ranking/tracking state behind the fixed meta-tool surface.
type Dispatcher struct {
	registry *registry.Registry
	killer   *killswitch.Switch
	guard    *idempotency.Guard
	cache    *cache.Cache
	ranker   *ranker.Ranker
	tracker  *session.Tracker

	mu       sync.Mutex
	budgets  map[string]*killswitch.ErrorBudget
	newBudget func() *killswitch.ErrorBudget

	defaultTTL ToolTTL

	metrics   *monitoring.MetricsCollector
	alerts    *monitoring.AlertManager
	telemetry *monitoring.Tracker

	invocations uint64
}

// New constructs a Dispatcher. newBudget is called once per backend
// the first time it is seen, so each backend gets an independent
// error-budget window from the shared config. metrics, alerts, and
// telemetry may all be nil - each call site is guarded so a Dispatcher
// built without monitoring collaborators (as in tests) still runs.
func New(reg *registry.Registry, killer *killswitch.Switch, guard *idempotency.Guard, c *cache.Cache, rk *ranker.Ranker, tr *session.Tracker, defaultTTL ToolTTL, newBudget func() *killswitch.ErrorBudget, metrics *monitoring.MetricsCollector, alerts *monitoring.AlertManager, telemetry *monitoring.Tracker) *Dispatcher {
	return &Dispatcher{
		registry:   reg,
		killer:     killer,
		guard:      guard,
		cache:      c,
		ranker:     rk,
		tracker:    tr,
		budgets:    make(map[string]*killswitch.ErrorBudget),
		newBudget:  newBudget,
		defaultTTL: defaultTTL,
		metrics:    metrics,
		alerts:     alerts,
		telemetry:  telemetry,
	}
}

func (d *Dispatcher) budgetFor(backend string) *killswitch.ErrorBudget {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.budgets[backend]
	if !ok {
		b = d.newBudget()
		d.budgets[backend] = b
	}
	return b
}

// InvokeRequest is the resolved target of one invoke call.
type InvokeRequest struct {
	Server    string
	Tool      string
	Arguments json.RawMessage
	SessionID string
}

// InvokeResult is the raw tool result plus the transition tracker's
// next-tool prediction.
type InvokeResult struct {
	Result        json.RawMessage `json:"result"`
	PredictedNext []session.Prediction `json:"predicted_next,omitempty"`
}

// Invoke runs the spec's 7-step invoke algorithm:
//  1. resolve target (already done by the caller into req)
//  2. kill-switch check
//  3. idempotency key + guard
//  4. response-cache lookup
//  5. resolve provider, call through the failsafe stack
//  6. on success: record error budget/health/cache/stats/ranker/transition
//  7. on failure: record error budget/health, abandon idempotency entry
func (d *Dispatcher) Invoke(ctx context.Context, req InvokeRequest) (*InvokeResult, error) {
	start := time.Now()
	backend := d.registry.Get(req.Server)
	if backend == nil {
		return nil, errs.Newf(errs.NotFound, "unknown server %q", req.Server)
	}

	if d.killer.IsKilled(req.Server) {
		return nil, errs.Newf(errs.Killed, "server %q is killed: %s", req.Server, d.killer.Reason(req.Server))
	}

	key, err := canon.Key(req.Server, req.Tool, req.Arguments)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArguments, err, "canonicalizing arguments")
	}

	outcome, cached := d.guard.Begin(key)
	switch outcome {
	case idempotency.Duplicate:
		return nil, errs.New(errs.Duplicate, "identical invocation already in flight")
	case idempotency.CachedResult:
		return d.resultFromBytes(cached, req.Tool)
	}

	if raw, ok := d.cache.Get(key); ok {
		d.guard.Complete(key, raw)
		d.recordCache(true)
		return d.finishSuccess(req, raw, start, true)
	}
	d.recordCache(false)

	result, err := backend.Invoke(ctx, req.Tool, req.Arguments)
	if err != nil {
		budget := d.budgetFor(req.Server)
		shouldKill, reason, shouldWarn := budget.RecordFailure()
		if shouldKill {
			d.killer.Kill(req.Server, reason)
			log.Warn().Str("backend", req.Server).Str("reason", reason).Msg("error budget auto-kill")
			if d.alerts != nil {
				d.alerts.FlagKillSwitch(req.Server, reason)
			}
		} else if shouldWarn {
			log.Warn().Str("backend", req.Server).Msg("error budget at 80% of threshold")
		}
		if d.alerts != nil {
			d.alerts.FlagBackendFailure(req.SessionID, req.Server, req.Tool, err)
		}
		d.guard.Abandon(key)
		d.recordTelemetry(req, start, false, string(errs.KindOf(err)), 0)
		return nil, err
	}

	d.budgetFor(req.Server).RecordSuccess()

	ttl := time.Minute
	if d.defaultTTL != nil {
		ttl = d.defaultTTL(req.Server, req.Tool)
	}
	d.cache.Set(key, result, ttl)
	d.guard.Complete(key, result)

	return d.finishSuccess(req, result, start, false)
}

func (d *Dispatcher) recordCache(hit bool) {
	if d.metrics == nil {
		return
	}
	if hit {
		d.metrics.RecordCacheHit()
	} else {
		d.metrics.RecordCacheMiss()
	}
}

func (d *Dispatcher) recordTelemetry(req InvokeRequest, start time.Time, success bool, errorKind string, tokensSaved int) {
	if d.telemetry == nil {
		return
	}
	d.telemetry.RecordInvocation(&monitoring.InvocationEvent{
		Timestamp:   time.Now(),
		Server:      req.Server,
		Tool:        req.Tool,
		SessionID:   req.SessionID,
		ArgsBytes:   len(req.Arguments),
		Success:     success,
		ErrorKind:   errorKind,
		TokensSaved: tokensSaved,
		LatencyMs:   time.Since(start).Milliseconds(),
	})
}

// finishSuccess records stats/ranker/transition bookkeeping for a
// result that just completed (whether freshly fetched or served from
// cache) and attaches the predicted_next hint.
func (d *Dispatcher) finishSuccess(req InvokeRequest, raw json.RawMessage, start time.Time, cacheHit bool) (*InvokeResult, error) {
	d.mu.Lock()
	d.invocations++
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.RecordInvocation()
	}

	d.ranker.RecordUsage(req.Server, req.Tool)

	var predicted []session.Prediction
	if d.tracker != nil && req.SessionID != "" {
		predicted = d.tracker.RecordInvocation(req.SessionID, toolKey(req.Server, req.Tool), 0, 0, 0)
	}

	event := &monitoring.InvocationEvent{
		Timestamp:   time.Now(),
		Server:      req.Server,
		Tool:        req.Tool,
		SessionID:   req.SessionID,
		ArgsBytes:   len(req.Arguments),
		ResultBytes: len(raw),
		CacheHit:    cacheHit,
		Success:     true,
		LatencyMs:   time.Since(start).Milliseconds(),
	}
	if d.telemetry != nil {
		d.telemetry.RecordInvocation(event)
	}

	return &InvokeResult{Result: raw, PredictedNext: predicted}, nil
}

func (d *Dispatcher) resultFromBytes(raw []byte, tool string) (*InvokeResult, error) {
	return &InvokeResult{Result: json.RawMessage(raw)}, nil
}

func toolKey(server, tool string) string { return server + ":" + tool }

// ServerStatus is one entry of list_servers.
type ServerStatus struct {
	Name         string `json:"name"`
	Running      bool   `json:"running"`
	Transport    string `json:"transport"`
	ToolCount    int    `json:"tool_count"`
	CircuitState string `json:"circuit_state"`
}

// ListServers reports every registered backend's status.
func (d *Dispatcher) ListServers() []ServerStatus {
	var out []ServerStatus
	for _, b := range d.registry.All() {
		tools, _ := b.CachedTools()
		out = append(out, ServerStatus{
			Name:         b.Name,
			Running:      b.IsRunning(),
			Transport:    b.TransportKind,
			ToolCount:    len(tools),
			CircuitState: b.CircuitState().String(),
		})
	}
	return out
}

// ListTools returns the tool descriptors for one server, or every
// server's tools when server is empty, after differential-description
// and auto-tag enrichment.
func (d *Dispatcher) ListTools(ctx context.Context, server string, fetch func(ctx context.Context, b *registry.Backend) ([]registry.ToolDescriptor, error)) ([]registry.ToolDescriptor, error) {
	var backends []*registry.Backend
	if server != "" {
		b := d.registry.Get(server)
		if b == nil {
			return nil, errs.Newf(errs.NotFound, "unknown server %q", server)
		}
		backends = []*registry.Backend{b}
	} else {
		backends = d.registry.All()
	}

	var all []registry.ToolDescriptor
	for _, b := range backends {
		tools, fresh := b.CachedTools()
		if !fresh {
			fetched, err := fetch(ctx, b)
			if err != nil {
				all = append(all, tools...)
				continue
			}
			b.SetTools(fetched)
			tools = fetched
		}
		all = append(all, tools...)
	}

	return enrichDescriptors(all), nil
}

// enrichDescriptors applies auto-tagging and differential descriptions
// over a flat tool list, translating to/from the tagging package's
// minimal Tool shape.
func enrichDescriptors(tools []registry.ToolDescriptor) []registry.ToolDescriptor {
	plain := make([]tagging.Tool, len(tools))
	for i, t := range tools {
		plain[i] = tagging.Tool{Server: t.Server, Name: t.Name, Description: t.Description}
	}
	tagged := tagging.ApplyAutoTags(plain)

	out := make([]registry.ToolDescriptor, len(tools))
	for i, t := range tools {
		out[i] = t
		out[i].Description = tagged[i].Description
	}
	return out
}

// KillServer adds server to the killed set.
func (d *Dispatcher) KillServer(server, reason string) error {
	if d.registry.Get(server) == nil {
		return errs.Newf(errs.NotFound, "unknown server %q", server)
	}
	d.killer.Kill(server, reason)
	return nil
}

// ReviveServer removes server from the killed set and resets its
// error budget so it starts with a clean slate.
func (d *Dispatcher) ReviveServer(server string) error {
	if d.registry.Get(server) == nil {
		return errs.Newf(errs.NotFound, "unknown server %q", server)
	}
	d.killer.Revive(server)
	d.budgetFor(server).Reset()
	return nil
}

// Invocations returns the total successful invocation count, for
// get_stats.
func (d *Dispatcher) Invocations() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.invocations
}

// Ranker exposes the search ranker for search_tools.
func (d *Dispatcher) Ranker() *ranker.Ranker { return d.ranker }
