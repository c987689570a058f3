package capability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/mcp-gateway/internal/errs"
	"github.com/compresr/mcp-gateway/internal/secrets"
)

func newTestExecutor(t *testing.T, tools []Tool, handler http.HandlerFunc) *Executor {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	file := &File{Backend: "weather", BaseURL: srv.URL, Tools: tools}
	resolver := secrets.NewResolver(nil, secrets.EnvAuthProvider{})
	return NewExecutor(file, resolver, nil, 2*time.Second)
}

func TestInvokeSubstitutesPathArgument(t *testing.T) {
	var gotPath string
	exec := newTestExecutor(t, []Tool{
		{Name: "get_forecast", Method: "GET", Path: "/v1/forecast/{city}"},
	}, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"temp":72}`))
	})

	result, err := exec.Invoke(t.Context(), exec.Tool("get_forecast"), map[string]any{"city": "nyc"})
	require.NoError(t, err)
	assert.Equal(t, "/v1/forecast/nyc", gotPath)
	assert.Equal(t, map[string]any{"temp": float64(72)}, result)
}

func TestInvokeMissingPathArgumentFails(t *testing.T) {
	exec := newTestExecutor(t, []Tool{
		{Name: "get_forecast", Method: "GET", Path: "/v1/forecast/{city}"},
	}, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach the server")
	})

	_, err := exec.Invoke(t.Context(), exec.Tool("get_forecast"), map[string]any{})
	assert.ErrorContains(t, err, `missing required argument "city"`)
}

func TestInvokeSetsQueryParamsFromStaticAndTemplated(t *testing.T) {
	var gotQuery string
	exec := newTestExecutor(t, []Tool{
		{
			Name:         "get_forecast",
			Method:       "GET",
			Path:         "/v1/forecast",
			Query:        map[string]string{"city": "{city}"},
			StaticParams: map[string]any{"units": "imperial"},
		},
	}, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{}`))
	})

	_, err := exec.Invoke(t.Context(), exec.Tool("get_forecast"), map[string]any{"city": "nyc"})
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "city=nyc")
	assert.Contains(t, gotQuery, "units=imperial")
}

func TestInvokeExtractsResponsePath(t *testing.T) {
	exec := newTestExecutor(t, []Tool{
		{Name: "get_forecast", Method: "GET", Path: "/v1/forecast", ResponsePath: "data.temp"},
	}, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"temp":72}}`))
	})

	result, err := exec.Invoke(t.Context(), exec.Tool("get_forecast"), nil)
	require.NoError(t, err)
	assert.Equal(t, float64(72), result)
}

func TestInvokeMissingResponsePathFails(t *testing.T) {
	exec := newTestExecutor(t, []Tool{
		{Name: "get_forecast", Method: "GET", Path: "/v1/forecast", ResponsePath: "data.nope"},
	}, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"temp":72}}`))
	})

	_, err := exec.Invoke(t.Context(), exec.Tool("get_forecast"), nil)
	assert.ErrorContains(t, err, "response_path")
}

func TestInvokePropagatesHTTPErrorStatus(t *testing.T) {
	exec := newTestExecutor(t, []Tool{
		{Name: "get_forecast", Method: "GET", Path: "/v1/forecast"},
	}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	})

	_, err := exec.Invoke(t.Context(), exec.Tool("get_forecast"), nil)
	assert.ErrorContains(t, err, "http 500")
	assert.Equal(t, errs.Transport, errs.KindOf(err), "a 5xx must classify as transient/retryable")
}

func TestInvoke4xxDoesNotClassifyAsTransient(t *testing.T) {
	exec := newTestExecutor(t, []Tool{
		{Name: "get_forecast", Method: "GET", Path: "/v1/forecast"},
	}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := exec.Invoke(t.Context(), exec.Tool("get_forecast"), nil)
	assert.NotEqual(t, errs.Transport, errs.KindOf(err))
}

func TestInvokeConnectionFailureClassifiesAsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	file := &File{Backend: "weather", BaseURL: srv.URL, Tools: []Tool{
		{Name: "get_forecast", Method: "GET", Path: "/v1/forecast"},
	}}
	resolver := secrets.NewResolver(nil, secrets.EnvAuthProvider{})
	exec := NewExecutor(file, resolver, nil, 2*time.Second)
	srv.Close()

	_, err := exec.Invoke(t.Context(), exec.Tool("get_forecast"), nil)
	assert.Equal(t, errs.Transport, errs.KindOf(err))
}

func TestInvokeDecodesXMLResponse(t *testing.T) {
	exec := newTestExecutor(t, []Tool{
		{Name: "get_forecast", Method: "GET", Path: "/v1/forecast", ResponseType: "xml"},
	}, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(`<forecast><temp>72</temp></forecast>`))
	})

	result, err := exec.Invoke(t.Context(), exec.Tool("get_forecast"), nil)
	require.NoError(t, err)
	m, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "72", m["temp"])
}

func TestInvokeSendsJSONBodyWithContentType(t *testing.T) {
	var gotContentType, gotBody string
	exec := newTestExecutor(t, []Tool{
		{Name: "create_alert", Method: "POST", Path: "/v1/alerts", Body: `{"city":"{city}"}`},
	}, func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		buf := make([]byte, 256)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		w.Write([]byte(`{"ok":true}`))
	})

	_, err := exec.Invoke(t.Context(), exec.Tool("create_alert"), map[string]any{"city": "nyc"})
	require.NoError(t, err)
	assert.Equal(t, "application/json", gotContentType)
	assert.Contains(t, gotBody, `"city":"nyc"`)
}

func TestInvokeRejectsAWSSigV4WhenSignerNotConfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach the server")
	}))
	t.Cleanup(srv.Close)

	file := &File{Backend: "aws-svc", BaseURL: srv.URL, Auth: "aws-sigv4", Tools: []Tool{
		{Name: "call", Method: "GET", Path: "/x"},
	}}
	exec := NewExecutor(file, secrets.NewResolver(nil, nil), nil, time.Second)

	_, err := exec.Invoke(t.Context(), exec.Tool("call"), nil)
	assert.ErrorContains(t, err, "aws-sigv4")
}

func TestToolLooksUpByName(t *testing.T) {
	file := &File{Tools: []Tool{{Name: "a"}, {Name: "b"}}}
	exec := NewExecutor(file, secrets.NewResolver(nil, nil), nil, time.Second)

	assert.Equal(t, "b", exec.Tool("b").Name)
	assert.Nil(t, exec.Tool("missing"))
}
