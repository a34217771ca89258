package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFailoverFirstSuccessWins(t *testing.T) {
	failover := NewFailover([]string{"a", "b", "c"}, time.Second)
	var tried []string
	err := failover.Do(context.Background(), func(_ context.Context, endpoint string) error {
		tried = append(tried, endpoint)
		if endpoint == "b" {
			return nil
		}
		return errors.New("unreachable")
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, tried)
}

func TestFailoverExhaustedCarriesLastError(t *testing.T) {
	failover := NewFailover([]string{"a", "b"}, time.Second)
	lastErr := errors.New("b down")
	err := failover.Do(context.Background(), func(_ context.Context, endpoint string) error {
		if endpoint == "a" {
			return errors.New("a down")
		}
		return lastErr
	})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 2, exhausted.Attempts)
	require.ErrorIs(t, err, lastErr)
}

func TestFailoverNoEndpoints(t *testing.T) {
	failover := NewFailover(nil, time.Second)
	err := failover.Do(context.Background(), func(context.Context, string) error {
		t.Fatal("should not be called")
		return nil
	})
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Zero(t, exhausted.Attempts)
}

func TestFailoverHonoursCancelledContext(t *testing.T) {
	failover := NewFailover([]string{"a", "b"}, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := failover.Do(ctx, func(_ context.Context, _ string) error {
		calls++
		cancel()
		return errors.New("down")
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestFailoverAppliesPerAttemptTimeout(t *testing.T) {
	failover := NewFailover([]string{"a"}, 10*time.Millisecond)
	err := failover.Do(context.Background(), func(ctx context.Context, _ string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.ErrorIs(t, exhausted.Last, context.DeadlineExceeded)
}
