// Backend and failsafe configuration.
//
// DESIGN: Each backend declares exactly one transport and the failsafe
// policy applied to calls against it. No cross-transport defaults are
// merged in - a misconfigured backend must fail Validate(), not start
// with a silently-wrong policy.
package config

import (
	"fmt"
	"time"
)

// BackendConfig describes one proxied tool backend.
type BackendConfig struct {
	Name      string `yaml:"name"`
	Transport string `yaml:"transport"` // stdio | http | capability

	// stdio transport
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Env     []string `yaml:"env"`

	// http transport
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`

	// capability transport
	CapabilityFile string `yaml:"capability_file"`

	ConcurrencyLimit int            `yaml:"concurrency_limit"`
	Failsafe         FailsafeConfig `yaml:"failsafe"`
}

// FailsafeConfig bundles the circuit breaker, rate limiter, and retry
// policy applied to calls against one backend.
type FailsafeConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	ResetTimeout     time.Duration `yaml:"reset_timeout"`
	SuccessThreshold int           `yaml:"success_threshold"`
	MaxProbes        int           `yaml:"max_probes"`
	RateLimit        RateLimitConfig `yaml:"rate_limit"`
	Retry            RetryConfig     `yaml:"retry"`
}

// RateLimitConfig configures the per-backend token bucket.
type RateLimitConfig struct {
	RefillPerSec float64 `yaml:"refill_per_sec"`
	Burst        int     `yaml:"burst"`
}

// RetryConfig configures exponential backoff with full jitter.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// Validate checks that the backend's transport-specific fields are
// present and the failsafe policy is internally consistent.
func (b *BackendConfig) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("name is required")
	}

	switch b.Transport {
	case "stdio":
		if b.Command == "" {
			return fmt.Errorf("backend %q: command is required for stdio transport", b.Name)
		}
	case "http":
		if b.URL == "" {
			return fmt.Errorf("backend %q: url is required for http transport", b.Name)
		}
	case "capability":
		if b.CapabilityFile == "" {
			return fmt.Errorf("backend %q: capability_file is required for capability transport", b.Name)
		}
	case "":
		return fmt.Errorf("backend %q: transport is required", b.Name)
	default:
		return fmt.Errorf("backend %q: unknown transport %q", b.Name, b.Transport)
	}

	if b.ConcurrencyLimit <= 0 {
		return fmt.Errorf("backend %q: concurrency_limit must be > 0", b.Name)
	}

	if err := b.Failsafe.Validate(); err != nil {
		return fmt.Errorf("backend %q: %w", b.Name, err)
	}

	return nil
}

// Validate checks the failsafe policy's fields are all set and sane.
func (f *FailsafeConfig) Validate() error {
	if f.FailureThreshold <= 0 {
		return fmt.Errorf("failsafe.failure_threshold must be > 0")
	}
	if f.ResetTimeout == 0 {
		return fmt.Errorf("failsafe.reset_timeout is required")
	}
	if f.SuccessThreshold <= 0 {
		return fmt.Errorf("failsafe.success_threshold must be > 0")
	}
	if f.MaxProbes <= 0 {
		return fmt.Errorf("failsafe.max_probes must be > 0")
	}
	if f.RateLimit.RefillPerSec <= 0 {
		return fmt.Errorf("failsafe.rate_limit.refill_per_sec must be > 0")
	}
	if f.RateLimit.Burst <= 0 {
		return fmt.Errorf("failsafe.rate_limit.burst must be > 0")
	}
	if f.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("failsafe.retry.max_attempts must be > 0")
	}
	if f.Retry.InitialBackoff == 0 {
		return fmt.Errorf("failsafe.retry.initial_backoff is required")
	}
	if f.Retry.MaxBackoff == 0 {
		return fmt.Errorf("failsafe.retry.max_backoff is required")
	}
	return nil
}
