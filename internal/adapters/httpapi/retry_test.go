package httpapi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrierSleepsBetweenAttemptsOnly(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{}
	retrier := Retrier{Attempts: 3, BackoffFactor: 2, Clock: clock}

	calls := 0
	err := retrier.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return errors.New("boom")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clock.Sleeps())
}

func TestRetrierStopsOnFirstSuccess(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{}
	metrics := newCountingMetrics()
	retrier := Retrier{Attempts: 3, BackoffFactor: 2, Clock: clock, Metrics: metrics}

	calls := 0
	err := retrier.Do(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{time.Second}, clock.Sleeps())
	assert.Equal(t, 1, metrics.retries["op"])
}

func TestRetrierAbortsWhenContextCancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	retrier := Retrier{Attempts: 3, Clock: &fakeClock{}}
	err := retrier.Do(ctx, "op", func(context.Context) error {
		calls++
		return errors.New("boom")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetrierBackoffDefaults(t *testing.T) {
	t.Parallel()

	retrier := Retrier{}
	assert.Equal(t, time.Second, retrier.Backoff(1))
	assert.Equal(t, 2*time.Second, retrier.Backoff(2))
	assert.Equal(t, 4*time.Second, retrier.Backoff(3))

	slow := Retrier{BackoffFactor: 3}
	assert.Equal(t, 9*time.Second, slow.Backoff(3))
}
