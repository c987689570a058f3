// Package secrets resolves the placeholder syntax capability files use
// to reference secret material without embedding it in YAML:
// `{env.VAR}`, `{keychain.NAME}`, `{auth:provider}`.
//
// DESIGN: A single regex-driven substitution pass, in the style of
// the teacher's config.expandEnvWithDefaults (internal/config/config.go)
// - small regex, ReplaceAllStringFunc callback, explicit per-kind
// lookup. Keychain access is abstracted behind an interface so the
// gateway can run on a platform without a real OS keychain in tests.
package secrets

import (
	"fmt"
	"os"
	"regexp"
)

// Keychain looks up a named secret from an OS-provided secret store.
type Keychain interface {
	Get(name string) (string, error)
}

// AuthProvider resolves `{auth:provider}` placeholders to a credential
// value - e.g. a bearer token obtained via OAuth, or a static API key
// configured elsewhere.
type AuthProvider interface {
	Resolve(provider string) (string, error)
}

// placeholderPattern matches {env.VAR}, {keychain.NAME}, {auth:provider}.
var placeholderPattern = regexp.MustCompile(`\{(env|keychain|auth)[.:]([A-Za-z0-9_\-]+)\}`)

// Resolver substitutes secret placeholders found in capability
// templates (URLs, headers, query params, body fields).
type Resolver struct {
	keychain Keychain
	auth     AuthProvider
}

// NewResolver builds a Resolver. Either dependency may be nil; a nil
// keychain or auth provider causes a matching placeholder to resolve
// with an error rather than a panic.
func NewResolver(keychain Keychain, auth AuthProvider) *Resolver {
	return &Resolver{keychain: keychain, auth: auth}
}

// Resolve expands every placeholder in s, returning an error that
// names the first unresolvable reference.
func (r *Resolver) Resolve(s string) (string, error) {
	var firstErr error
	result := placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}
		parts := placeholderPattern.FindStringSubmatch(match)
		kind, name := parts[1], parts[2]

		switch kind {
		case "env":
			val, ok := os.LookupEnv(name)
			if !ok {
				firstErr = fmt.Errorf("secrets: environment variable %q is not set", name)
				return match
			}
			return val
		case "keychain":
			if r.keychain == nil {
				firstErr = fmt.Errorf("secrets: no keychain configured, cannot resolve %q", name)
				return match
			}
			val, err := r.keychain.Get(name)
			if err != nil {
				firstErr = fmt.Errorf("secrets: keychain lookup %q: %w", name, err)
				return match
			}
			return val
		case "auth":
			if r.auth == nil {
				firstErr = fmt.Errorf("secrets: no auth provider configured, cannot resolve %q", name)
				return match
			}
			val, err := r.auth.Resolve(name)
			if err != nil {
				firstErr = fmt.Errorf("secrets: auth provider %q: %w", name, err)
				return match
			}
			return val
		default:
			firstErr = fmt.Errorf("secrets: unknown placeholder kind %q", kind)
			return match
		}
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// HasPlaceholder reports whether s contains any secret placeholder.
func HasPlaceholder(s string) bool {
	return placeholderPattern.MatchString(s)
}

// EnvAuthProvider resolves `{auth:NAME}` by reading the environment
// variable `NAME_AUTH_TOKEN`, the simplest possible provider and the
// default used when a capability's auth config names no richer
// integration.
type EnvAuthProvider struct{}

// Resolve implements AuthProvider.
func (EnvAuthProvider) Resolve(provider string) (string, error) {
	envVar := provider + "_AUTH_TOKEN"
	val, ok := os.LookupEnv(envVar)
	if !ok {
		return "", fmt.Errorf("no token found for provider %q (expected env var %s)", provider, envVar)
	}
	return val, nil
}
