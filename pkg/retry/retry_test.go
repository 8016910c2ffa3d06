package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Policy{Attempts: 3, Backoff: time.Millisecond}.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	}, nil)

	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	boom := errors.New("transient")
	calls := 0
	err := Policy{Attempts: 3, Backoff: time.Millisecond}.Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	}, func(error) bool { return true })

	require.ErrorIs(t, err, boom)
	require.Equal(t, 3, calls)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	permanent := errors.New("bad request")
	calls := 0
	err := Policy{Attempts: 3, Backoff: time.Millisecond}.Do(context.Background(), func(context.Context) error {
		calls++
		return permanent
	}, func(err error) bool { return false })

	require.ErrorIs(t, err, permanent)
	require.Equal(t, 1, calls)
}

func TestDoLinearBackoff(t *testing.T) {
	start := time.Now()
	err := Policy{Attempts: 3, Backoff: 10 * time.Millisecond}.Do(context.Background(), func(context.Context) error {
		return errors.New("transient")
	}, func(error) bool { return true })

	require.Error(t, err)
	// Waits 10ms after attempt 1 and 20ms after attempt 2.
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestDoHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := DefaultPolicy().Do(ctx, func(context.Context) error {
		return errors.New("transient")
	}, func(error) bool { return true })

	require.ErrorIs(t, err, context.Canceled)
}
