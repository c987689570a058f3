package httpapi

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/compresr/mcp-gateway/internal/cache"
	"github.com/compresr/mcp-gateway/internal/failsafe"
	"github.com/compresr/mcp-gateway/internal/idempotency"
	"github.com/compresr/mcp-gateway/internal/killswitch"
	"github.com/compresr/mcp-gateway/internal/meta"
	"github.com/compresr/mcp-gateway/internal/monitoring"
	"github.com/compresr/mcp-gateway/internal/playbook"
	"github.com/compresr/mcp-gateway/internal/ranker"
	"github.com/compresr/mcp-gateway/internal/registry"
	"github.com/compresr/mcp-gateway/internal/session"
)

// scriptedTransport is a local fake satisfying transport.Transport,
// mirroring the one used in internal/meta's tests.
type scriptedTransport struct {
	result  json.RawMessage
	err     error
	calls   int
	running bool
}

func (f *scriptedTransport) Start(ctx context.Context) error { f.running = true; return nil }
func (f *scriptedTransport) Stop(ctx context.Context) error  { f.running = false; return nil }
func (f *scriptedTransport) IsRunning() bool                 { return f.running }
func (f *scriptedTransport) Request(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}
func (f *scriptedTransport) Notify(ctx context.Context, method string, params json.RawMessage) error {
	return nil
}

func permissiveStack() *failsafe.Stack {
	return failsafe.NewStack(failsafe.StackConfig{
		Breaker:     failsafe.BreakerConfig{FailureThreshold: 100, ResetTimeout: time.Minute, SuccessThreshold: 1, MaxProbes: 1},
		RateLimiter: failsafe.RateLimiterConfig{RefillPerSec: 1000, Burst: 1000},
		Retry:       failsafe.RetryConfig{MaxAttempts: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
	})
}

type gatewayFixture struct {
	gw      *Gateway
	backend *registry.Backend
	killer  *killswitch.Switch
	ft      *scriptedTransport
}

// newGatewayFixture wires a full Gateway around one "weather" backend
// running the given fake transport, matching the collaborators that
// cmd/app.go assembles at boot.
func newGatewayFixture(t *testing.T, ft *scriptedTransport) *gatewayFixture {
	t.Helper()

	reg := registry.New()
	backend := registry.NewBackend("weather", "http", ft, permissiveStack(), 4, time.Minute)
	reg.Register(backend)

	killer := killswitch.New()
	guard := idempotency.New()
	t.Cleanup(guard.Close)
	c := cache.New(1000)
	t.Cleanup(c.Close)
	rk := ranker.New(t.TempDir())
	tr := session.New(t.TempDir())

	newBudget := func() *killswitch.ErrorBudget {
		return killswitch.NewErrorBudget(killswitch.BudgetConfig{WindowSize: 20, WindowAge: time.Minute, Threshold: 0.5, MinCalls: 2})
	}
	ttlFunc := func(server, tool string) time.Duration { return time.Minute }

	metrics := monitoring.NewMetricsCollector()
	t.Cleanup(metrics.Stop)
	logger := monitoring.New(monitoring.LoggerConfig{})
	alerts := monitoring.NewAlertManager(logger, monitoring.AlertConfig{})
	reqLogger := monitoring.NewRequestLogger(logger)

	d := meta.New(reg, killer, guard, c, rk, tr, ttlFunc, newBudget, metrics, alerts, nil)
	stats := meta.NewStatsCollector(d, reg, rk, metrics)
	store := playbook.NewStore()

	gw := New(nil, d, reg, store, tr, stats, metrics, alerts, reqLogger)

	return &gatewayFixture{gw: gw, backend: backend, killer: killer, ft: ft}
}
