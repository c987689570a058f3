package failsafe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/mcp-gateway/internal/errs"
)

func TestDoReturnsNilOnFirstSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}, func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoDoesNotRetryNonRetryableErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), RetryConfig{MaxAttempts: 5, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}, func(ctx context.Context) error {
		calls++
		return errs.New(errs.InvalidArguments, "bad args")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesRetryableErrorsUpToMaxAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), RetryConfig{MaxAttempts: 4, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}, func(ctx context.Context) error {
		calls++
		return errs.New(errs.Transport, "connection reset")
	})
	assert.Error(t, err)
	assert.Equal(t, 4, calls)
}

func TestDoSucceedsAfterTransientRetryableFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), RetryConfig{MaxAttempts: 5, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errs.New(errs.Timeout, "slow backend")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsEarlyWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, RetryConfig{MaxAttempts: 10, InitialBackoff: 50 * time.Millisecond, MaxBackoff: 50 * time.Millisecond}, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			cancel()
		}
		return errs.New(errs.Transport, "down")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDoTreatsUntypedErrorsAsNonRetryable(t *testing.T) {
	calls := 0
	err := Do(context.Background(), RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}, func(ctx context.Context) error {
		calls++
		return errors.New("some plain error")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
