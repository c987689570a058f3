// Package failsafe implements the per-backend protection stack: a
// circuit breaker, token-bucket rate limiter, jittered retry policy,
// and a rolling health tracker, composed in that order around every
// backend call.
package failsafe

import (
	"sync"
	"time"
)

// BreakerState is the circuit breaker's tri-state machine.
type BreakerState int

const (
	Closed BreakerState = iota
	Open
	HalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures one backend's circuit breaker.
type BreakerConfig struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	SuccessThreshold int
	MaxProbes        int
}

// Breaker is a single backend's circuit breaker.
type Breaker struct {
	cfg BreakerConfig

	mu                  sync.Mutex
	state               BreakerState
	consecutiveFailures int
	consecutiveSuccess  int
	openedAt            time.Time
	probesInFlight      int
}

// NewBreaker constructs a Breaker in the Closed state.
func NewBreaker(cfg BreakerConfig) *Breaker {
	return &Breaker{cfg: cfg, state: Closed}
}

// Admit reports whether a call may proceed, and if the state was Open
// and reset_timeout has elapsed, transitions to HalfOpen and counts
// this call against max_probes.
func (b *Breaker) Admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if time.Since(b.openedAt) < b.cfg.ResetTimeout {
			return false
		}
		b.state = HalfOpen
		b.probesInFlight = 0
		fallthrough
	case HalfOpen:
		if b.probesInFlight >= b.cfg.MaxProbes {
			return false
		}
		b.probesInFlight++
		return true
	default:
		return false
	}
}

// Release returns an admitted call's half-open probe slot without
// recording a success or failure, for calls rejected downstream (e.g.
// by the rate limiter) before they could reach the transport.
func (b *Breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == HalfOpen && b.probesInFlight > 0 {
		b.probesInFlight--
	}
}

// RecordSuccess reports a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.probesInFlight--
		b.consecutiveSuccess++
		b.consecutiveFailures = 0
		if b.consecutiveSuccess >= b.cfg.SuccessThreshold {
			b.state = Closed
			b.consecutiveSuccess = 0
		}
	case Closed:
		b.consecutiveFailures = 0
	}
}

// RecordFailure reports a failed call.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.probesInFlight--
		b.state = Open
		b.openedAt = time.Now()
		b.consecutiveSuccess = 0
	case Closed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.cfg.FailureThreshold {
			b.state = Open
			b.openedAt = time.Now()
		}
	}
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
