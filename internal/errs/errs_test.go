package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	e := New(NotFound, "unknown server")
	assert.Equal(t, "not_found: unknown server", e.Error())

	wrapped := Wrap(Transport, errors.New("dial tcp: refused"), "connecting")
	assert.Equal(t, "transport: connecting: dial tcp: refused", wrapped.Error())
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	e := Wrap(Internal, cause, "failed")
	assert.Equal(t, cause, errors.Unwrap(e))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, CircuitOpen, KindOf(New(CircuitOpen, "open")))
	assert.Equal(t, Internal, KindOf(errors.New("plain error")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Transport))
	assert.True(t, IsRetryable(Timeout))
	assert.False(t, IsRetryable(InvalidArguments))
	assert.False(t, IsRetryable(CircuitOpen))
}

func TestJSONRPCCode(t *testing.T) {
	assert.Equal(t, -32001, JSONRPCCode(InvalidArguments))
	assert.Equal(t, -32000, JSONRPCCode(Internal))
	assert.Equal(t, -32000, JSONRPCCode(Kind("unknown_kind")))
}

func TestNewf(t *testing.T) {
	e := Newf(NotFound, "unknown server %q", "weather")
	assert.Equal(t, `not_found: unknown server "weather"`, e.Error())
}

func TestWithData(t *testing.T) {
	e := New(InvalidArguments, "bad args").WithData(map[string]any{"field": "query"})
	assert.Equal(t, "query", e.Data["field"])
}
