// Executor renders a capability definition and an argument object into
// an HTTP request, dispatches it, and extracts the result.
//
// DESIGN: Argument validation (schema.go/validate.go) runs strictly
// before substitution, substitution before secret resolution, so a
// caller's bad argument never even reaches an outbound HTTP call.
package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/compresr/mcp-gateway/internal/errs"
	"github.com/compresr/mcp-gateway/internal/secrets"
)

// argPlaceholder matches {arg_name} - a bare identifier, distinguished
// from secrets.placeholderPattern's "{kind.name}"/"{kind:name}" shapes
// by having no '.'/':' separator.
var argPlaceholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Executor dispatches calls against one capability file's tools.
type Executor struct {
	file     *File
	resolver *secrets.Resolver
	signer   *secrets.SigV4Signer
	client   *http.Client
}

// NewExecutor builds an Executor for a loaded capability file.
func NewExecutor(file *File, resolver *secrets.Resolver, signer *secrets.SigV4Signer, timeout time.Duration) *Executor {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Executor{file: file, resolver: resolver, signer: signer, client: &http.Client{Timeout: timeout}}
}

// Tool returns the declared tool named name, or nil.
func (e *Executor) Tool(name string) *Tool {
	for i := range e.file.Tools {
		if e.file.Tools[i].Name == name {
			return &e.file.Tools[i]
		}
	}
	return nil
}

// Invoke validates args against tool's schema, renders the request,
// dispatches it, and returns the extracted result.
func (e *Executor) Invoke(ctx context.Context, tool *Tool, args map[string]any) (any, error) {
	if err := ValidateArgs(tool.InputSchema, args); err != nil {
		return nil, fmt.Errorf("capability: %s: %w", tool.Name, err)
	}

	path, err := substituteArgs(tool.Path, args)
	if err != nil {
		return nil, err
	}
	path, err = e.resolveSecrets(path)
	if err != nil {
		return nil, err
	}

	fullURL := strings.TrimRight(e.file.BaseURL, "/") + path

	query := url.Values{}
	for k, v := range tool.StaticParams {
		query.Set(k, fmt.Sprintf("%v", v))
	}
	for k, v := range tool.Query {
		rendered, err := substituteArgs(v, args)
		if err != nil {
			return nil, err
		}
		rendered, err = e.resolveSecrets(rendered)
		if err != nil {
			return nil, err
		}
		query.Set(k, rendered)
	}
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	var bodyBytes []byte
	if tool.Body != "" {
		rendered, err := substituteArgs(tool.Body, args)
		if err != nil {
			return nil, err
		}
		rendered, err = e.resolveSecrets(rendered)
		if err != nil {
			return nil, err
		}
		bodyBytes = []byte(rendered)
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, tool.Method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("capability: %s: build request: %w", tool.Name, err)
	}
	if tool.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range tool.Headers {
		rendered, err := substituteArgs(v, args)
		if err != nil {
			return nil, err
		}
		rendered, err = e.resolveSecrets(rendered)
		if err != nil {
			return nil, err
		}
		req.Header.Set(k, rendered)
	}

	if e.file.Auth == "aws-sigv4" {
		if e.signer == nil || !e.signer.IsConfigured() {
			return nil, fmt.Errorf("capability: %s: aws-sigv4 auth declared but signer is not configured", tool.Name)
		}
		service := req.Header.Get("X-Amz-Target-Service")
		if service == "" {
			service = "execute-api"
		}
		if err := e.signer.Sign(ctx, req, service, bodyBytes); err != nil {
			return nil, fmt.Errorf("capability: %s: %w", tool.Name, err)
		}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.Transport, err, fmt.Sprintf("capability: %s: http request", tool.Name))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return nil, errs.Wrap(errs.Transport, err, fmt.Sprintf("capability: %s: read response", tool.Name))
	}
	if resp.StatusCode >= 500 {
		return nil, errs.Newf(errs.Transport, "capability: %s: http %d: %s", tool.Name, resp.StatusCode, truncateStr(data, 500))
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("capability: %s: http %d: %s", tool.Name, resp.StatusCode, truncateStr(data, 500))
	}

	var result any
	contentType := resp.Header.Get("Content-Type")
	isXML := tool.ResponseType == "xml" || strings.Contains(contentType, "xml")
	if isXML {
		result, err = xmlToJSON(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("capability: %s: decode xml response: %w", tool.Name, err)
		}
	} else if len(data) > 0 {
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("capability: %s: decode json response: %w", tool.Name, err)
		}
	}

	if tool.ResponsePath == "" {
		return result, nil
	}

	// gjson operates on raw JSON text; re-marshal XML-derived results
	// so response_path extraction is uniform across both content types.
	raw := data
	if isXML {
		raw, err = json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("capability: %s: re-marshal xml result: %w", tool.Name, err)
		}
	}
	extracted := gjson.GetBytes(raw, tool.ResponsePath)
	if !extracted.Exists() {
		return nil, fmt.Errorf("capability: %s: response_path %q not found in response", tool.Name, tool.ResponsePath)
	}
	return extracted.Value(), nil
}

func (e *Executor) resolveSecrets(s string) (string, error) {
	if !secrets.HasPlaceholder(s) {
		return s, nil
	}
	return e.resolver.Resolve(s)
}

// substituteArgs replaces {arg_name} placeholders with the
// corresponding argument value, failing if an argument is referenced
// but absent.
func substituteArgs(template string, args map[string]any) (string, error) {
	var firstErr error
	result := argPlaceholder.ReplaceAllStringFunc(template, func(match string) string {
		if firstErr != nil {
			return match
		}
		name := match[1 : len(match)-1]
		val, ok := args[name]
		if !ok {
			firstErr = fmt.Errorf("missing required argument %q", name)
			return match
		}
		return fmt.Sprintf("%v", val)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

func truncateStr(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
