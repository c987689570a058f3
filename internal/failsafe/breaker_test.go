package failsafe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func breakerFixture() *Breaker {
	return NewBreaker(BreakerConfig{
		FailureThreshold: 3,
		ResetTimeout:     20 * time.Millisecond,
		SuccessThreshold: 2,
		MaxProbes:        1,
	})
}

func TestBreakerStartsClosedAndAdmitsCalls(t *testing.T) {
	b := breakerFixture()
	assert.Equal(t, Closed, b.State())
	assert.True(t, b.Admit())
}

func TestBreakerOpensAfterFailureThreshold(t *testing.T) {
	b := breakerFixture()
	for i := 0; i < 3; i++ {
		assert.True(t, b.Admit())
		b.RecordFailure()
	}
	assert.Equal(t, Open, b.State())
	assert.False(t, b.Admit())
}

func TestBreakerClosedResetsConsecutiveFailuresOnSuccess(t *testing.T) {
	b := breakerFixture()
	b.Admit()
	b.RecordFailure()
	b.Admit()
	b.RecordFailure()
	b.Admit()
	b.RecordSuccess()

	for i := 0; i < 2; i++ {
		assert.True(t, b.Admit())
		b.RecordFailure()
	}
	assert.Equal(t, Closed, b.State(), "success should have reset the streak")
}

func TestBreakerTransitionsToHalfOpenAfterResetTimeout(t *testing.T) {
	b := breakerFixture()
	for i := 0; i < 3; i++ {
		b.Admit()
		b.RecordFailure()
	}
	require := assert.New(t)
	require.Equal(Open, b.State())
	require.False(b.Admit())

	time.Sleep(25 * time.Millisecond)
	require.True(b.Admit())
	require.Equal(HalfOpen, b.State())
}

func TestBreakerHalfOpenLimitsConcurrentProbes(t *testing.T) {
	b := breakerFixture()
	for i := 0; i < 3; i++ {
		b.Admit()
		b.RecordFailure()
	}
	time.Sleep(25 * time.Millisecond)

	assert.True(t, b.Admit())
	assert.False(t, b.Admit(), "max_probes is 1, second concurrent probe should be rejected")
}

func TestBreakerHalfOpenClosesAfterSuccessThreshold(t *testing.T) {
	b := breakerFixture()
	for i := 0; i < 3; i++ {
		b.Admit()
		b.RecordFailure()
	}
	time.Sleep(25 * time.Millisecond)

	b.Admit()
	b.RecordSuccess()
	assert.Equal(t, HalfOpen, b.State())

	b.Admit()
	b.RecordSuccess()
	assert.Equal(t, Closed, b.State())
}

func TestBreakerHalfOpenReopensOnFailure(t *testing.T) {
	b := breakerFixture()
	for i := 0; i < 3; i++ {
		b.Admit()
		b.RecordFailure()
	}
	time.Sleep(25 * time.Millisecond)

	b.Admit()
	b.RecordFailure()
	assert.Equal(t, Open, b.State())
}

func TestBreakerReleaseFreesHalfOpenProbeSlot(t *testing.T) {
	b := breakerFixture()
	for i := 0; i < 3; i++ {
		b.Admit()
		b.RecordFailure()
	}
	time.Sleep(25 * time.Millisecond)

	assert.True(t, b.Admit())
	b.Release()
	assert.True(t, b.Admit(), "releasing the probe slot should allow another probe")
}

func TestBreakerStateStringer(t *testing.T) {
	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "half_open", HalfOpen.String())
}
