// Package playbook executes YAML-declared sequences of tool calls
// with variable interpolation, conditions, error strategies, and a
// single wall-clock deadline.
package playbook

import (
	"context"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrorStrategy controls what happens when a step's invocation fails.
type ErrorStrategy string

const (
	Abort    ErrorStrategy = "abort"
	Continue ErrorStrategy = "continue"
	Retry    ErrorStrategy = "retry"
)

// OutputField is one entry of an explicit output projection.
type OutputField struct {
	Path     string `yaml:"path"`
	Fallback any    `yaml:"fallback"`
}

// Step is one tool call in a playbook.
type Step struct {
	Name       string         `yaml:"name"`
	Server     string         `yaml:"server"`
	Tool       string         `yaml:"tool"`
	Args       map[string]any `yaml:"args"`
	Condition  string         `yaml:"condition"`
	OnError    ErrorStrategy  `yaml:"on_error"`
	MaxRetries int            `yaml:"max_retries"`
}

// Definition is a named, YAML-declared playbook.
type Definition struct {
	Name    string                 `yaml:"name"`
	Timeout time.Duration          `yaml:"timeout"`
	Steps   []Step                 `yaml:"steps"`
	Output  map[string]OutputField `yaml:"output"`
}

// LoadFile parses a playbook definition from YAML bytes.
func LoadFile(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, err
	}
	for i := range def.Steps {
		if def.Steps[i].OnError == "" {
			def.Steps[i].OnError = Abort
		}
	}
	return &def, nil
}

// Invoker dispatches one (server, tool, args) call, mirroring the
// meta dispatcher's Invoke signature but returning only the decoded
// result value so the playbook engine can store it in context.
type Invoker func(ctx context.Context, server, tool string, args map[string]any) (any, error)

// Result is the outcome of run_playbook.
type Result struct {
	Output          map[string]any `json:"output"`
	StepsCompleted  []string       `json:"steps_completed"`
	StepsSkipped    []string       `json:"steps_skipped"`
	StepsFailed     []string       `json:"steps_failed"`
	DurationMs      int64          `json:"duration_ms"`
}
