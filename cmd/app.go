package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/compresr/mcp-gateway/internal/cache"
	"github.com/compresr/mcp-gateway/internal/capability"
	"github.com/compresr/mcp-gateway/internal/config"
	"github.com/compresr/mcp-gateway/internal/failsafe"
	"github.com/compresr/mcp-gateway/internal/httpapi"
	"github.com/compresr/mcp-gateway/internal/idempotency"
	"github.com/compresr/mcp-gateway/internal/killswitch"
	"github.com/compresr/mcp-gateway/internal/meta"
	"github.com/compresr/mcp-gateway/internal/monitoring"
	"github.com/compresr/mcp-gateway/internal/playbook"
	"github.com/compresr/mcp-gateway/internal/ranker"
	"github.com/compresr/mcp-gateway/internal/registry"
	"github.com/compresr/mcp-gateway/internal/secrets"
	"github.com/compresr/mcp-gateway/internal/session"
	"github.com/compresr/mcp-gateway/internal/transport"
)

// app bundles every long-lived collaborator the gateway needs to
// persist and close on shutdown, grounded on the teacher's
// gateway.Gateway-as-composition-root shape but split out of main so
// main.go stays a thin CLI/signal shell.
type app struct {
	gateway  *httpapi.Gateway
	registry *registry.Registry

	ranker  *ranker.Ranker
	tracker *session.Tracker
	cache   *cache.Cache
	guard   *idempotency.Guard
	telemetry *monitoring.Tracker
}

// newApp wires config into a running set of backends, the shared
// failsafe/cache/idempotency/ranker/session state, the meta
// dispatcher, and the HTTP ingress.
func newApp(cfg *config.Config) (*app, error) {
	monitoring.Global(monitoring.LoggerConfig{
		Level:  cfg.Monitoring.LogLevel,
		Format: cfg.Monitoring.LogFormat,
		Output: cfg.Monitoring.LogOutput,
	})
	logger := monitoring.New(monitoring.LoggerConfig{
		Level:  cfg.Monitoring.LogLevel,
		Format: cfg.Monitoring.LogFormat,
		Output: cfg.Monitoring.LogOutput,
	})

	metrics := monitoring.NewMetricsCollector()
	alerts := monitoring.NewAlertManager(logger, monitoring.AlertConfig{})
	requestLogger := monitoring.NewRequestLogger(logger)

	telemetry, err := monitoring.NewTracker(monitoring.TelemetryConfig{
		Enabled:     cfg.Monitoring.TelemetryEnabled,
		LogPath:     cfg.Monitoring.TelemetryPath,
		LogToStdout: cfg.Monitoring.LogToStdout,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry tracker: %w", err)
	}

	reg := registry.New()
	resolver := secrets.NewResolver(nil, secrets.EnvAuthProvider{})
	signer := secrets.NewSigV4Signer(context.Background(), "")

	for _, bc := range cfg.Backends {
		t, err := buildTransport(bc, resolver, signer)
		if err != nil {
			return nil, fmt.Errorf("backend %q: %w", bc.Name, err)
		}

		stack := failsafe.NewStack(failsafe.StackConfig{
			Breaker: failsafe.BreakerConfig{
				FailureThreshold: bc.Failsafe.FailureThreshold,
				ResetTimeout:     bc.Failsafe.ResetTimeout,
				SuccessThreshold: bc.Failsafe.SuccessThreshold,
				MaxProbes:        bc.Failsafe.MaxProbes,
			},
			RateLimiter: failsafe.RateLimiterConfig{
				RefillPerSec: bc.Failsafe.RateLimit.RefillPerSec,
				Burst:        bc.Failsafe.RateLimit.Burst,
			},
			Retry: failsafe.RetryConfig{
				MaxAttempts:    bc.Failsafe.Retry.MaxAttempts,
				InitialBackoff: bc.Failsafe.Retry.InitialBackoff,
				MaxBackoff:     bc.Failsafe.Retry.MaxBackoff,
			},
		})

		reg.Register(registry.NewBackend(bc.Name, bc.Transport, t, stack, bc.ConcurrencyLimit, cfg.Meta.ToolListTTL))
	}

	rk := ranker.New(cfg.StateDir)
	if err := rk.Load(); err != nil {
		log.Warn().Err(err).Msg("ranker: failed to load persisted usage counts")
	}

	tracker := session.New(cfg.StateDir)
	if err := tracker.Load(); err != nil {
		log.Warn().Err(err).Msg("session tracker: failed to load persisted transitions")
	}

	store := playbook.NewStore()
	if err := store.LoadDir(cfg.PlaybooksDir); err != nil {
		log.Warn().Err(err).Str("dir", cfg.PlaybooksDir).Msg("playbooks: failed to load directory")
	}

	c := cache.New(cfg.Cache.MaxEntries)
	killer := killswitch.New()
	guard := idempotency.New()

	newBudget := func() *killswitch.ErrorBudget {
		return killswitch.NewErrorBudget(killswitch.BudgetConfig{
			WindowSize: cfg.ErrorBudget.WindowSize,
			WindowAge:  cfg.ErrorBudget.WindowAge,
			Threshold:  cfg.ErrorBudget.Threshold,
			MinCalls:   cfg.ErrorBudget.MinCalls,
		})
	}

	defaultTTL := cfg.Cache.DefaultTTL
	ttlFunc := func(server, tool string) time.Duration { return defaultTTL }

	dispatcher := meta.New(reg, killer, guard, c, rk, tracker, ttlFunc, newBudget, metrics, alerts, telemetry)
	stats := meta.NewStatsCollector(dispatcher, reg, rk, metrics)

	gw := httpapi.New(cfg, dispatcher, reg, store, tracker, stats, metrics, alerts, requestLogger)

	return &app{
		gateway:   gw,
		registry:  reg,
		ranker:    rk,
		tracker:   tracker,
		cache:     c,
		guard:     guard,
		telemetry: telemetry,
	}, nil
}

// buildTransport constructs the transport.Transport matching one
// backend's configured kind.
func buildTransport(bc config.BackendConfig, resolver *secrets.Resolver, signer *secrets.SigV4Signer) (transport.Transport, error) {
	switch bc.Transport {
	case "stdio":
		return transport.NewSubprocess(bc.Name, bc.Command, bc.Args, bc.Env), nil
	case "http":
		return transport.NewHTTP(bc.Name, bc.URL, bc.Headers, 30*time.Second), nil
	case "capability":
		file, err := capability.LoadFile(bc.CapabilityFile)
		if err != nil {
			return nil, err
		}
		executor := capability.NewExecutor(file, resolver, signer, 30*time.Second)
		return capability.NewTransport(executor), nil
	default:
		return nil, fmt.Errorf("unknown transport kind %q", bc.Transport)
	}
}

// close persists usage/transition state and stops every backend and
// background sweeper, bounded by ctx's deadline.
func (a *app) close(ctx context.Context) {
	if err := a.ranker.Save(); err != nil {
		log.Error().Err(err).Msg("ranker: failed to persist usage counts")
	}
	if err := a.tracker.Save(); err != nil {
		log.Error().Err(err).Msg("session tracker: failed to persist transitions")
	}
	if err := a.registry.StopAll(ctx); err != nil {
		log.Error().Err(err).Msg("registry: error stopping backends")
	}
	a.guard.Close()
	a.cache.Close()
	if err := a.telemetry.Close(); err != nil {
		log.Error().Err(err).Msg("telemetry: close error")
	}
}
