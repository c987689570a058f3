// Registry is the thread-safe collection of configured backends.
//
// DESIGN: Grounded on the teacher's adapters.Registry (thread-safe
// map[string]Adapter + RWMutex, Register/Get) generalized to own full
// Backend values with lifecycle rather than stateless adapters, and
// on gateway.Pool's worker-pool idiom for bounded parallel work -
// here used once, for the warm-start fan-out, rather than as a
// reusable pool, since warm-start is a one-shot startup operation.
// The fan-out itself is a plain sync.WaitGroup rather than
// golang.org/x/sync/errgroup: errgroup appears nowhere else in the
// teacher or the rest of the example pack, while sync.WaitGroup is
// the teacher's own idiom for bounded fan-out (internal/preemptive/worker.go).
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry holds every configured backend by name.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]*Backend
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{backends: make(map[string]*Backend)}
}

// Register adds a backend, constructed and configured ahead of time.
// Backends are never shared across registries and never structurally
// mutated after registration.
func (r *Registry) Register(b *Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[b.Name] = b
}

// Get returns the named backend, or nil if unregistered.
func (r *Registry) Get(name string) *Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.backends[name]
}

// All returns every registered backend.
func (r *Registry) All() []*Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Backend, 0, len(r.backends))
	for _, b := range r.backends {
		out = append(out, b)
	}
	return out
}

// WarmStart connects every backend named in names (or every backend,
// if names contains "all") concurrently. Failed warm-starts leave
// their backend in the Failed state - list_tools retries them lazily
// rather than treating warm-start as all-or-nothing.
func (r *Registry) WarmStart(ctx context.Context, names []string) {
	targets := r.resolveWarmStartTargets(names)
	if len(targets) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, b := range targets {
		wg.Add(1)
		go func(b *Backend) {
			defer wg.Done()
			if err := b.Start(ctx); err != nil {
				log.Warn().Str("backend", b.Name).Err(err).Msg("warm start failed")
			}
		}(b)
	}
	wg.Wait()
}

func (r *Registry) resolveWarmStartTargets(names []string) []*Backend {
	if len(names) == 1 && names[0] == "all" {
		return r.All()
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []*Backend
	for _, b := range r.All() {
		if want[b.Name] {
			out = append(out, b)
		}
	}
	return out
}

// AllTools returns every registered backend's cached tool list,
// refreshing any backend whose cache is stale or unset via
// list_tools before returning.
func (r *Registry) AllTools(ctx context.Context, fetch func(ctx context.Context, b *Backend) ([]ToolDescriptor, error)) ([]ToolDescriptor, error) {
	var all []ToolDescriptor
	for _, b := range r.All() {
		tools, fresh := b.CachedTools()
		if !fresh {
			fetched, err := fetch(ctx, b)
			if err != nil {
				log.Warn().Str("backend", b.Name).Err(err).Msg("tool list refresh failed")
				all = append(all, tools...)
				continue
			}
			b.SetTools(fetched)
			tools = fetched
		}
		all = append(all, tools...)
	}
	return all, nil
}

// StopAll stops every registered backend, used during graceful shutdown.
func (r *Registry) StopAll(ctx context.Context) error {
	var firstErr error
	for _, b := range r.All() {
		if err := b.Stop(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("backend %q: %w", b.Name, err)
		}
	}
	return firstErr
}
