package idempotency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBeginFirstCallerProceeds(t *testing.T) {
	g := New()
	defer g.Close()

	outcome, value := g.Begin("key")
	assert.Equal(t, Proceed, outcome)
	assert.Nil(t, value)
}

func TestBeginWhileInFlightIsDuplicate(t *testing.T) {
	g := New()
	defer g.Close()

	g.Begin("key")
	outcome, _ := g.Begin("key")
	assert.Equal(t, Duplicate, outcome)
}

func TestCompleteThenBeginReturnsCachedResult(t *testing.T) {
	g := New()
	defer g.Close()

	g.Begin("key")
	g.Complete("key", []byte(`{"ok":true}`))

	outcome, value := g.Begin("key")
	assert.Equal(t, CachedResult, outcome)
	assert.Equal(t, []byte(`{"ok":true}`), value)
}

func TestAbandonAllowsResubmission(t *testing.T) {
	g := New()
	defer g.Close()

	g.Begin("key")
	g.Abandon("key")

	outcome, _ := g.Begin("key")
	assert.Equal(t, Proceed, outcome)
}

func TestCloseIsIdempotent(t *testing.T) {
	g := New()
	g.Close()
	assert.NotPanics(t, func() { g.Close() })
}
