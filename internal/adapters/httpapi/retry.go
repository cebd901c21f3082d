package httpapi

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/bnema/stars-relay/internal/ports"
	"github.com/rs/zerolog"
)

const (
	DefaultAttempts      = 3
	DefaultBackoffFactor = 2
)

var ErrAttemptsExhausted = errors.New("api attempts exhausted")

// Retrier runs an attempt up to Attempts times. Before attempt k+1 it waits
// BackoffFactor^(k-1) seconds; there is no wait after the final attempt.
type Retrier struct {
	Attempts      int
	BackoffFactor float64
	Clock         ports.Clock
	Metrics       ports.Metrics
	Logger        zerolog.Logger
}

func (r Retrier) Do(ctx context.Context, op string, attempt func(ctx context.Context) error) error {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		err := attempt(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		r.metrics().APIRetry(op)
		r.Logger.Warn().Err(err).Str("op", op).Int("attempt", i).Int("attempts", attempts).Msg("api attempt failed")

		if i == attempts {
			break
		}
		if err := r.clock().Sleep(ctx, r.Backoff(i)); err != nil {
			return errors.Join(lastErr, err)
		}
	}

	return errors.Join(ErrAttemptsExhausted, lastErr)
}

// Backoff is the wait after the given failed attempt (1-based).
func (r Retrier) Backoff(attempt int) time.Duration {
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = DefaultBackoffFactor
	}

	return time.Duration(math.Pow(factor, float64(attempt-1)) * float64(time.Second))
}

func (r Retrier) clock() ports.Clock {
	if r.Clock != nil {
		return r.Clock
	}
	return ports.SystemClock{}
}

func (r Retrier) metrics() ports.Metrics {
	if r.Metrics != nil {
		return r.Metrics
	}
	return ports.NopMetrics{}
}
