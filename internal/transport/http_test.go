package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/mcp-gateway/internal/errs"
)

func TestHTTPRequestReturnsDecodedResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"temp":72}}`))
	}))
	t.Cleanup(srv.Close)

	tr := NewHTTP("weather", srv.URL, nil, time.Second)
	raw, err := tr.Request(t.Context(), "get_forecast", json.RawMessage(`{"city":"nyc"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"temp":72}`, string(raw))
}

func TestHTTPRequestSendsConfiguredHeaders(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))
	}))
	t.Cleanup(srv.Close)

	tr := NewHTTP("weather", srv.URL, map[string]string{"Authorization": "Bearer xyz"}, time.Second)
	_, err := tr.Request(t.Context(), "get_forecast", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer xyz", gotAuth)
}

func TestHTTPRequestPropagatesEnvelopeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32001,"message":"bad args"}}`))
	}))
	t.Cleanup(srv.Close)

	tr := NewHTTP("weather", srv.URL, nil, time.Second)
	_, err := tr.Request(t.Context(), "get_forecast", nil)
	assert.ErrorContains(t, err, "bad args")
}

func TestHTTPRequestPropagatesHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	t.Cleanup(srv.Close)

	tr := NewHTTP("weather", srv.URL, nil, time.Second)
	_, err := tr.Request(t.Context(), "get_forecast", nil)
	assert.ErrorContains(t, err, "http 502")
	assert.Equal(t, errs.Transport, errs.KindOf(err), "a 5xx must be retryable by the failsafe stack")
}

func TestHTTPRequestDoesNotClassify4xxAsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	tr := NewHTTP("weather", srv.URL, nil, time.Second)
	_, err := tr.Request(t.Context(), "get_forecast", nil)
	assert.NotEqual(t, errs.Transport, errs.KindOf(err))
}

func TestHTTPRequestConnectionFailureClassifiesAsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	tr := NewHTTP("weather", srv.URL, nil, time.Second)
	srv.Close()

	_, err := tr.Request(t.Context(), "get_forecast", nil)
	assert.Equal(t, errs.Transport, errs.KindOf(err))
}

func TestHTTPRequestRejectsMalformedResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	t.Cleanup(srv.Close)

	tr := NewHTTP("weather", srv.URL, nil, time.Second)
	_, err := tr.Request(t.Context(), "get_forecast", nil)
	assert.ErrorContains(t, err, "malformed response")
}

func TestHTTPNotifyIgnoresResponseBody(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Write([]byte(`{"ignored":"body"}`))
	}))
	t.Cleanup(srv.Close)

	tr := NewHTTP("weather", srv.URL, nil, time.Second)
	err := tr.Notify(t.Context(), "fire_and_forget", nil)
	require.NoError(t, err)
	assert.True(t, called)
}

func TestHTTPIsRunningAlwaysTrue(t *testing.T) {
	tr := NewHTTP("weather", "http://unused.invalid", nil, time.Second)
	assert.True(t, tr.IsRunning())
	require.NoError(t, tr.Start(t.Context()))
	require.NoError(t, tr.Stop(t.Context()))
}

func TestNewHTTPDefaultsTimeoutWhenZero(t *testing.T) {
	tr := NewHTTP("weather", "http://unused.invalid", nil, 0)
	assert.Equal(t, 30*time.Second, tr.client.Timeout)
}
