// HTTP transport - sends JSON-RPC requests to a backend's HTTP endpoint.
//
// DESIGN: Follows the teacher's external/llm.go HTTP-client idiom:
// one shared *http.Client with an explicit timeout, bytes.Reader
// request bodies, io.LimitReader on responses to cap memory use.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/compresr/mcp-gateway/internal/errs"
)

// maxHTTPResponseBytes caps a backend's response body to guard against
// a misbehaving or malicious backend exhausting memory.
const maxHTTPResponseBytes = 10 * 1024 * 1024

// HTTP is a Transport that proxies JSON-RPC calls over plain HTTP POST.
type HTTP struct {
	name    string
	url     string
	headers map[string]string
	client  *http.Client
}

// NewHTTP constructs an HTTP transport for the given backend.
func NewHTTP(name, url string, headers map[string]string, timeout time.Duration) *HTTP {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTP{
		name:    name,
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: timeout},
	}
}

// Start is a no-op: there is no process to launch, only a URL to call.
func (h *HTTP) Start(ctx context.Context) error { return nil }

// Stop is a no-op: the shared *http.Client needs no explicit shutdown.
func (h *HTTP) Stop(ctx context.Context) error { return nil }

// IsRunning always reports true: reachability is only known per-call.
func (h *HTTP) IsRunning() bool { return true }

// Request posts a JSON-RPC 2.0 envelope and decodes the result field.
func (h *HTTP) Request(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.Transport, err, fmt.Sprintf("backend %s: http request", h.name))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxHTTPResponseBytes))
	if err != nil {
		return nil, errs.Wrap(errs.Transport, err, fmt.Sprintf("backend %s: read response", h.name))
	}

	if resp.StatusCode >= 500 {
		return nil, errs.Newf(errs.Transport, "backend %s: http %d: %s", h.name, resp.StatusCode, truncate(data, 500))
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("backend %s: http %d: %s", h.name, resp.StatusCode, truncate(data, 500))
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("backend %s: malformed response: %w", h.name, err)
	}
	if envelope.Error != nil {
		return nil, fmt.Errorf("backend %s: %s (code %d)", h.name, envelope.Error.Message, envelope.Error.Code)
	}
	return envelope.Result, nil
}

// Notify posts a JSON-RPC notification and ignores the response body.
func (h *HTTP) Notify(ctx context.Context, method string, params json.RawMessage) error {
	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return errs.Wrap(errs.Transport, err, fmt.Sprintf("backend %s: http notify", h.name))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
