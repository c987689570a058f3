// Package capability implements the REST-endpoint-as-tool transport:
// a capability file declares one or more tools backed by templated
// HTTP calls instead of a running MCP server.
//
// DESIGN: Capability definitions are loaded via gopkg.in/yaml.v3 into
// typed, validated structs, the same idiom the teacher uses for pipe
// configuration (internal/pipes/config.go).
package capability

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the top-level structure of one capability YAML file,
// declaring every tool exposed by a single REST-backed backend.
type File struct {
	Backend string `yaml:"backend"`
	BaseURL string `yaml:"base_url"`
	Auth    string `yaml:"auth"` // "", "aws-sigv4", or an {auth:provider} name
	Tools   []Tool `yaml:"tools"`
}

// Tool declares one capability-backed tool.
type Tool struct {
	Name         string            `yaml:"name"`
	Description  string            `yaml:"description"`
	Method       string            `yaml:"method"` // GET, POST, PUT, PATCH, DELETE
	Path         string            `yaml:"path"`   // e.g. "/v1/items/{id}"
	Query        map[string]string `yaml:"query"`
	Headers      map[string]string `yaml:"headers"`
	Body         string            `yaml:"body"` // templated JSON body, "" for none
	StaticParams map[string]any    `yaml:"static_params"`
	ResponsePath string            `yaml:"response_path"` // gjson path into the response, "" for whole body
	ResponseType string            `yaml:"response_type"` // "json" (default) or "xml"
	InputSchema  map[string]any    `yaml:"input_schema"`  // JSON-Schema-ish; validated by schema.go helpers
}

// LoadFile parses and validates one capability YAML file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("capability: read %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("capability: parse %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("capability: invalid %s: %w", path, err)
	}
	return &f, nil
}

// Validate checks that the file is internally consistent.
func (f *File) Validate() error {
	if f.Backend == "" {
		return fmt.Errorf("backend is required")
	}
	if f.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if len(f.Tools) == 0 {
		return fmt.Errorf("at least one tool is required")
	}
	seen := make(map[string]bool, len(f.Tools))
	for i := range f.Tools {
		t := &f.Tools[i]
		if t.Name == "" {
			return fmt.Errorf("tools[%d]: name is required", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("tools[%d]: duplicate tool name %q", i, t.Name)
		}
		seen[t.Name] = true
		switch t.Method {
		case "GET", "POST", "PUT", "PATCH", "DELETE":
		case "":
			return fmt.Errorf("tool %q: method is required", t.Name)
		default:
			return fmt.Errorf("tool %q: unknown method %q", t.Name, t.Method)
		}
		if t.Path == "" {
			return fmt.Errorf("tool %q: path is required", t.Name)
		}
		if t.ResponseType != "" && t.ResponseType != "json" && t.ResponseType != "xml" {
			return fmt.Errorf("tool %q: unknown response_type %q", t.Name, t.ResponseType)
		}
	}
	return nil
}
