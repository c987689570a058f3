// Package registry owns every configured backend's lifecycle: lazy
// connection, optional warm-start, tool-list caching, and the
// failsafe stack guarding its calls.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/compresr/mcp-gateway/internal/failsafe"
	"github.com/compresr/mcp-gateway/internal/transport"
)

// LifecycleState is a backend's connection state.
type LifecycleState int

const (
	Unstarted LifecycleState = iota
	Starting
	Running
	Failed
	Stopped
)

func (s LifecycleState) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Failed:
		return "failed"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ToolDescriptor mirrors the MCP tool descriptor shape, decorated with
// the owning server name.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
	Server      string          `json:"server"`
}

// Backend is one configured, possibly-connected tool source.
type Backend struct {
	Name             string
	TransportKind    string // stdio | http | capability
	ConcurrencyLimit int

	transport transport.Transport
	failsafe  *failsafe.Stack

	mu            sync.RWMutex
	state         LifecycleState
	lastErr       error
	tools         []ToolDescriptor
	toolsFetchedAt time.Time
	toolListTTL   time.Duration

	sem chan struct{} // bounds concurrent in-flight calls to this backend
}

// NewBackend constructs a Backend around its transport and failsafe policy.
func NewBackend(name, transportKind string, t transport.Transport, stack *failsafe.Stack, concurrencyLimit int, toolListTTL time.Duration) *Backend {
	return &Backend{
		Name:             name,
		TransportKind:    transportKind,
		ConcurrencyLimit: concurrencyLimit,
		transport:        t,
		failsafe:         stack,
		state:            Unstarted,
		toolListTTL:      toolListTTL,
		sem:              make(chan struct{}, concurrencyLimit),
	}
}

// Start connects the backend, transitioning Unstarted/Failed -> Running
// or Failed on error.
func (b *Backend) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.state == Running {
		b.mu.Unlock()
		return nil
	}
	b.state = Starting
	b.mu.Unlock()

	err := b.transport.Start(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.state = Failed
		b.lastErr = err
		return fmt.Errorf("backend %q: start: %w", b.Name, err)
	}
	b.state = Running
	return nil
}

// Stop disconnects the backend.
func (b *Backend) Stop(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Running {
		return nil
	}
	err := b.transport.Stop(ctx)
	b.state = Stopped
	return err
}

// State returns the backend's current lifecycle state.
func (b *Backend) State() LifecycleState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// IsRunning reports whether the backend's transport reports itself live.
func (b *Backend) IsRunning() bool {
	return b.transport.IsRunning()
}

// CachedTools returns the backend's cached tool list, stale or not
// (nil if never fetched), and whether it was fetched within toolListTTL.
func (b *Backend) CachedTools() ([]ToolDescriptor, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.tools == nil {
		return nil, false
	}
	if time.Since(b.toolsFetchedAt) > b.toolListTTL {
		return b.tools, false
	}
	return b.tools, true
}

// SetTools replaces the cached tool list and refreshes its fetch time.
func (b *Backend) SetTools(tools []ToolDescriptor) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tools = tools
	b.toolsFetchedAt = time.Now()
}

// Invoke performs one failsafe-wrapped tool call against the backend,
// bounded by the backend's concurrency limit.
func (b *Backend) Invoke(ctx context.Context, tool string, args json.RawMessage) (json.RawMessage, error) {
	select {
	case b.sem <- struct{}{}:
		defer func() { <-b.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var result json.RawMessage
	err := b.failsafe.Call(ctx, func(ctx context.Context) error {
		r, err := b.transport.Request(ctx, tool, args)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, err
}

// CircuitState exposes the backend's circuit breaker state for
// list_servers/get_stats reporting.
func (b *Backend) CircuitState() failsafe.BreakerState {
	return b.failsafe.BreakerState()
}
