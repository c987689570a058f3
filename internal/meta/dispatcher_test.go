package meta

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/mcp-gateway/internal/cache"
	"github.com/compresr/mcp-gateway/internal/errs"
	"github.com/compresr/mcp-gateway/internal/failsafe"
	"github.com/compresr/mcp-gateway/internal/idempotency"
	"github.com/compresr/mcp-gateway/internal/killswitch"
	"github.com/compresr/mcp-gateway/internal/ranker"
	"github.com/compresr/mcp-gateway/internal/registry"
	"github.com/compresr/mcp-gateway/internal/session"
)

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

type dispatcherFixture struct {
	dispatcher *Dispatcher
	registry   *registry.Registry
	killer     *killswitch.Switch
	backend    *registry.Backend
	ft         *scriptedTransport
}

func newDispatcherFixture(t *testing.T, ft *scriptedTransport) *dispatcherFixture {
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

	d := New(reg, killer, guard, c, rk, tr, ttlFunc, newBudget, nil, nil, nil)
	return &dispatcherFixture{dispatcher: d, registry: reg, killer: killer, backend: backend, ft: ft}
}

func TestInvokeUnknownServerReturnsNotFound(t *testing.T) {
	f := newDispatcherFixture(t, &scriptedTransport{result: json.RawMessage(`{}`)})
	_, err := f.dispatcher.Invoke(context.Background(), InvokeRequest{Server: "missing", Tool: "x", Arguments: json.RawMessage(`{}`)})
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestInvokeKilledServerReturnsKilledError(t *testing.T) {
	f := newDispatcherFixture(t, &scriptedTransport{result: json.RawMessage(`{}`)})
	f.killer.Kill("weather", "operator requested")

	_, err := f.dispatcher.Invoke(context.Background(), InvokeRequest{Server: "weather", Tool: "get_forecast", Arguments: json.RawMessage(`{}`)})
	assert.Equal(t, errs.Killed, errs.KindOf(err))
}

func TestInvokeSuccessReturnsResultAndRecordsUsage(t *testing.T) {
	f := newDispatcherFixture(t, &scriptedTransport{result: json.RawMessage(`{"temp":72}`)})

	result, err := f.dispatcher.Invoke(context.Background(), InvokeRequest{Server: "weather", Tool: "get_forecast", Arguments: json.RawMessage(`{"city":"nyc"}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"temp":72}`, string(result.Result))
	assert.Equal(t, uint64(1), f.dispatcher.Invocations())
}

func TestInvokeCachesResultAcrossIdenticalCalls(t *testing.T) {
	ft := &scriptedTransport{result: json.RawMessage(`{"temp":72}`)}
	f := newDispatcherFixture(t, ft)

	req := InvokeRequest{Server: "weather", Tool: "get_forecast", Arguments: json.RawMessage(`{"city":"nyc"}`)}
	_, err := f.dispatcher.Invoke(context.Background(), req)
	require.NoError(t, err)

	_, err = f.dispatcher.Invoke(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, ft.calls, "second identical call should be served from cache, not the transport")
}

func TestInvokeDifferentArgumentsBypassCache(t *testing.T) {
	ft := &scriptedTransport{result: json.RawMessage(`{"temp":72}`)}
	f := newDispatcherFixture(t, ft)

	_, err := f.dispatcher.Invoke(context.Background(), InvokeRequest{Server: "weather", Tool: "get_forecast", Arguments: json.RawMessage(`{"city":"nyc"}`)})
	require.NoError(t, err)
	_, err = f.dispatcher.Invoke(context.Background(), InvokeRequest{Server: "weather", Tool: "get_forecast", Arguments: json.RawMessage(`{"city":"sf"}`)})
	require.NoError(t, err)

	assert.Equal(t, 2, ft.calls)
}

func TestInvokeFailureAbandonsIdempotencyKeySoRetryReachesTransport(t *testing.T) {
	ft := &scriptedTransport{err: errors.New("backend unavailable")}
	f := newDispatcherFixture(t, ft)

	req := InvokeRequest{Server: "weather", Tool: "get_forecast", Arguments: json.RawMessage(`{"city":"nyc"}`)}
	_, err := f.dispatcher.Invoke(context.Background(), req)
	assert.Error(t, err)

	_, err = f.dispatcher.Invoke(context.Background(), req)
	assert.Error(t, err)
	assert.Equal(t, 2, ft.calls, "a failed call must not poison the idempotency guard for retries")
}

func TestInvokeRepeatedFailuresTripErrorBudgetAndKillsServer(t *testing.T) {
	f := newDispatcherFixture(t, &scriptedTransport{err: errors.New("down")})

	for i := 0; i < 3; i++ {
		req := InvokeRequest{
			Server:    "weather",
			Tool:      "get_forecast",
			Arguments: json.RawMessage(`{"attempt":` + string(rune('0'+i)) + `}`),
		}
		f.dispatcher.Invoke(context.Background(), req)
	}

	assert.True(t, f.killer.IsKilled("weather"))
}

func TestListServersReportsRegisteredBackends(t *testing.T) {
	f := newDispatcherFixture(t, &scriptedTransport{})
	statuses := f.dispatcher.ListServers()
	require.Len(t, statuses, 1)
	assert.Equal(t, "weather", statuses[0].Name)
	assert.Equal(t, "http", statuses[0].Transport)
}

func TestKillServerAndReviveServer(t *testing.T) {
	f := newDispatcherFixture(t, &scriptedTransport{})

	require.NoError(t, f.dispatcher.KillServer("weather", "manual"))
	assert.True(t, f.killer.IsKilled("weather"))

	require.NoError(t, f.dispatcher.ReviveServer("weather"))
	assert.False(t, f.killer.IsKilled("weather"))
}

func TestKillServerUnknownReturnsNotFound(t *testing.T) {
	f := newDispatcherFixture(t, &scriptedTransport{})
	err := f.dispatcher.KillServer("missing", "x")
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestListToolsEnrichesWithAutoTagKeywords(t *testing.T) {
	f := newDispatcherFixture(t, &scriptedTransport{})
	f.backend.SetTools([]registry.ToolDescriptor{
		{Name: "get_forecast", Description: "Retrieve the daily weather forecast", Server: "weather"},
	})

	tools, err := f.dispatcher.ListTools(context.Background(), "weather", func(ctx context.Context, b *registry.Backend) ([]registry.ToolDescriptor, error) {
		t.Fatal("tools are fresh, fetch should not be called")
		return nil, nil
	})
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Contains(t, tools[0].Description, "[keywords:")
}

func TestListToolsUnknownServerReturnsNotFound(t *testing.T) {
	f := newDispatcherFixture(t, &scriptedTransport{})
	_, err := f.dispatcher.ListTools(context.Background(), "missing", nil)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}
