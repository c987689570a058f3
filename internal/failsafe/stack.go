// Stack composes the circuit breaker, rate limiter, retry policy, and
// health tracker around a single backend's calls, in the fixed order
// circuit-breaker -> rate-limiter -> retry { transport }. The
// kill-switch gate sits in front of the Stack (internal/killswitch),
// checked by the meta-dispatcher before it ever reaches here.
package failsafe

import (
	"context"
	"time"

	"github.com/compresr/mcp-gateway/internal/errs"
)

// StackConfig bundles the per-backend policy knobs.
type StackConfig struct {
	Breaker     BreakerConfig
	RateLimiter RateLimiterConfig
	Retry       RetryConfig
}

// Stack is the per-backend failsafe wrapper.
type Stack struct {
	breaker     *Breaker
	rateLimiter *RateLimiter
	retry       RetryConfig
	health      *Health
}

// NewStack constructs a Stack for one backend.
func NewStack(cfg StackConfig) *Stack {
	return &Stack{
		breaker:     NewBreaker(cfg.Breaker),
		rateLimiter: NewRateLimiter(cfg.RateLimiter),
		retry:       cfg.Retry,
		health:      NewHealth(),
	}
}

// Call runs fn through the circuit breaker, rate limiter, and retry
// policy, in that order. fn should perform exactly one transport call.
func (s *Stack) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.breaker.Admit() {
		return errs.New(errs.CircuitOpen, "circuit breaker is open")
	}

	if !s.rateLimiter.TryAcquire() {
		s.breaker.Release()
		return errs.New(errs.RateLimited, "rate limit exceeded")
	}

	start := time.Now()
	err := Do(ctx, s.retry, fn)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000

	if err != nil {
		s.breaker.RecordFailure()
		s.health.RecordFailure(latencyMs)
		return err
	}

	s.breaker.RecordSuccess()
	s.health.RecordSuccess(latencyMs)
	return nil
}

// BreakerState reports the circuit breaker's current state.
func (s *Stack) BreakerState() BreakerState { return s.breaker.State() }

// IsHealthy reports the health tracker's current verdict.
func (s *Stack) IsHealthy() bool { return s.health.IsHealthy() }

// Percentiles reports the health tracker's rolling latency percentiles.
func (s *Stack) Percentiles() (p50, p95, p99 float64) { return s.health.Percentiles() }
