// Token-bucket rate limiter for per-backend admission control.
//
// DESIGN: Same lazy-refill token bucket idiom as the teacher's
// internal/gateway/middleware.go rateLimiter (elapsed-time-based
// refill computed on access, no background ticking), generalized
// from an integer per-IP request rate to a float64 refill_per_sec
// configured per backend.
package failsafe

import (
	"sync"
	"time"
)

// RateLimiterConfig configures one backend's token bucket.
type RateLimiterConfig struct {
	RefillPerSec float64
	Burst        int
}

// RateLimiter is a single token bucket.
type RateLimiter struct {
	cfg RateLimiterConfig

	mu        sync.Mutex
	tokens    float64
	lastCheck time.Time
}

// NewRateLimiter constructs a RateLimiter starting at full burst capacity.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	return &RateLimiter{cfg: cfg, tokens: float64(cfg.Burst), lastCheck: time.Now()}
}

// TryAcquire reports whether a token was available and, if so,
// consumes it.
func (r *RateLimiter) TryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastCheck).Seconds()
	r.lastCheck = now

	r.tokens += elapsed * r.cfg.RefillPerSec
	if max := float64(r.cfg.Burst); r.tokens > max {
		r.tokens = max
	}

	if r.tokens < 1 {
		return false
	}
	r.tokens--
	return true
}
