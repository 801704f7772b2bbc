package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleeper struct {
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

var errTransient = errors.New("transient")

func alwaysRetry(p Policy) Classifier {
	return func(err error, attempt int) (Decision, error) {
		return Decision{Retry: true, Wait: p.Backoff(attempt)}, nil
	}
}

func TestPolicy_Backoff(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{4, 40 * time.Second},
		{5, 60 * time.Second},
		{10, 60 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Backoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestPolicy_WithDefaults(t *testing.T) {
	p := Policy{MaxAttempts: 5}.WithDefaults()
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, 5*time.Second, p.InitialBackoff)
	assert.Equal(t, 60*time.Second, p.RateLimitWait)
}

func TestDo_SucceedsAfterRetry(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := DefaultPolicy()
	calls := 0

	err := Do(context.Background(), p, sleeper, func(ctx context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return errTransient
		}
		return nil
	}, alwaysRetry(p))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, sleeper.waits)
}

func TestDo_Exhausted(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := DefaultPolicy()
	calls := 0

	err := Do(context.Background(), p, sleeper, func(ctx context.Context, attempt int) error {
		calls++
		return errTransient
	}, alwaysRetry(p))

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
	assert.Len(t, sleeper.waits, 2, "no sleep after the last attempt")
}

func TestDo_NotRetryable(t *testing.T) {
	sleeper := &recordingSleeper{}
	errFatal := errors.New("fatal")
	calls := 0

	err := Do(context.Background(), DefaultPolicy(), sleeper, func(ctx context.Context, attempt int) error {
		calls++
		return errFatal
	}, func(err error, attempt int) (Decision, error) {
		return Decision{}, nil
	})

	assert.Equal(t, errFatal, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.waits)
}

func TestDo_ClassifierAborts(t *testing.T) {
	errAbort := errors.New("abort")
	err := Do(context.Background(), DefaultPolicy(), &recordingSleeper{}, func(ctx context.Context, attempt int) error {
		return errTransient
	}, func(err error, attempt int) (Decision, error) {
		return Decision{}, errAbort
	})
	assert.Equal(t, errAbort, err)
}

func TestClockSleeper_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ClockSleeper{}.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
