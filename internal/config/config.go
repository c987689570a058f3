// Package config loads and validates the gateway configuration.
//
// DESIGN: All configuration MUST come from YAML files. No defaults.
// This ensures explicit, auditable configuration for production deployments.
//
// FILES:
//   - config.go:     Root Config struct, Load(), Validate()
//   - backends.go:   Backend and failsafe configuration
//   - monitoring.go: Logging and telemetry settings
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the MCP gateway.
// No defaults are applied: an omitted field keeps its zero value.
// Validate requires the server, backends, meta.tool_list_ttl, cache,
// error_budget.window_size/threshold, playbooks_dir and state_dir
// settings; monitoring, auth, meta.warm_start, error_budget.window_age
// and error_budget.min_calls may be omitted.
type Config struct {
	Server      ServerConfig      `yaml:"server"`       // HTTP server settings
	Backends    []BackendConfig   `yaml:"backends"`      // Proxied backend tool servers
	Meta        MetaConfig        `yaml:"meta"`          // Meta-tool dispatcher settings
	Cache       CacheConfig       `yaml:"cache"`         // Response cache settings
	ErrorBudget ErrorBudgetConfig `yaml:"error_budget"`  // Auto-kill error budget window
	PlaybooksDir string           `yaml:"playbooks_dir"` // Directory of playbook YAML files
	StateDir    string            `yaml:"state_dir"`     // Directory for usage.json/transitions.json
	Monitoring  MonitoringConfig  `yaml:"monitoring"`    // Telemetry and logging
	Auth        map[string]string `yaml:"auth"`          // Opaque auth material passed to the secret resolver
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	BindAddr        string        `yaml:"bind_addr"`        // Address to listen on, e.g. ":8080"
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // Max time to read a request
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // Max time to write a response
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // Grace period for in-flight requests on shutdown
}

// MetaConfig contains meta-tool dispatcher settings.
type MetaConfig struct {
	WarmStart  []string      `yaml:"warm_start"`   // Backend names to start eagerly, or ["all"]
	ToolListTTL time.Duration `yaml:"tool_list_ttl"` // How long a backend's cached tool list stays fresh
}

// CacheConfig contains response cache settings.
type CacheConfig struct {
	DefaultTTL time.Duration `yaml:"default_ttl"` // Default TTL for cached invoke responses
	MaxEntries int           `yaml:"max_entries"`  // Maximum number of cache entries before eviction
}

// ErrorBudgetConfig contains the sliding-window auto-kill settings.
type ErrorBudgetConfig struct {
	WindowSize int           `yaml:"window_size"` // Number of most recent calls tracked per backend
	WindowAge  time.Duration `yaml:"window_age"`  // Max age of calls counted in the window
	Threshold  float64       `yaml:"threshold"`   // Failure ratio that trips the kill switch
	MinCalls   int           `yaml:"min_calls"`   // Minimum calls in the window before the threshold applies
}

// expandEnvWithDefaults expands environment variables with support for default values.
// Supports both ${VAR} and ${VAR:-default} syntax.
func expandEnvWithDefaults(s string) string {
	// Pattern matches ${VAR:-default} or ${VAR}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name and default value
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		// Get environment variable value
		if value := os.Getenv(varName); value != "" {
			return value
		}

		// Return default if provided, otherwise empty string
		return defaultValue
	})
}

// Load reads configuration from a YAML file.
// Returns an error if the file doesn't exist or is invalid.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes parses configuration from raw YAML bytes.
// Supports ${VAR:-default} env var expansion, env overrides, and validation.
func LoadFromBytes(data []byte) (*Config, error) {
	// Expand environment variables (supports ${VAR:-default} syntax)
	expanded := expandEnvWithDefaults(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides for telemetry paths.
	// This allows operators to redirect logs without editing config files.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ExpandEnvWithDefaults expands environment variables with support for default values.
// Exported for use by backend/capability config parsing.
func ExpandEnvWithDefaults(s string) string {
	return expandEnvWithDefaults(s)
}

// applyEnvOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvOverrides() {
	if envPath := os.Getenv("GATEWAY_TELEMETRY_LOG"); envPath != "" {
		c.Monitoring.TelemetryPath = envPath
	}
	if envPath := os.Getenv("GATEWAY_FAILED_REQUEST_LOG"); envPath != "" {
		c.Monitoring.FailedRequestLogPath = envPath
	}
	if envDir := os.Getenv("GATEWAY_STATE_DIR"); envDir != "" {
		c.StateDir = envDir
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.BindAddr == "" {
		return fmt.Errorf("server.bind_addr is required")
	}
	if c.Server.ReadTimeout == 0 {
		return fmt.Errorf("server.read_timeout is required")
	}
	if c.Server.WriteTimeout == 0 {
		return fmt.Errorf("server.write_timeout is required")
	}
	if c.Server.ShutdownTimeout == 0 {
		return fmt.Errorf("server.shutdown_timeout is required")
	}

	if len(c.Backends) == 0 {
		return fmt.Errorf("at least one backend must be configured")
	}
	seen := make(map[string]bool, len(c.Backends))
	for i := range c.Backends {
		if err := c.Backends[i].Validate(); err != nil {
			return fmt.Errorf("backends[%d]: %w", i, err)
		}
		if seen[c.Backends[i].Name] {
			return fmt.Errorf("backends[%d]: duplicate backend name %q", i, c.Backends[i].Name)
		}
		seen[c.Backends[i].Name] = true
	}

	if c.Meta.ToolListTTL == 0 {
		return fmt.Errorf("meta.tool_list_ttl is required")
	}

	if c.Cache.DefaultTTL == 0 {
		return fmt.Errorf("cache.default_ttl is required")
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be > 0")
	}

	if c.ErrorBudget.WindowSize <= 0 {
		return fmt.Errorf("error_budget.window_size must be > 0")
	}
	if c.ErrorBudget.Threshold <= 0 || c.ErrorBudget.Threshold > 1 {
		return fmt.Errorf("error_budget.threshold must be in (0, 1]")
	}

	if c.PlaybooksDir == "" {
		return fmt.Errorf("playbooks_dir is required")
	}
	if c.StateDir == "" {
		return fmt.Errorf("state_dir is required")
	}

	return nil
}
