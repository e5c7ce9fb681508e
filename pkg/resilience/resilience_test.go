package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/errors"
)

var errTransient = errors.New("connection reset")

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "read", RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhausted(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "read", RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}, func() error {
		calls++
		return errTransient
	})
	assert.ErrorIs(t, err, errTransient)
	assert.Contains(t, err.Error(), "all 2 attempts failed")
	assert.Equal(t, 2, calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("not found")
	calls := 0
	err := Retry(context.Background(), "read", RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		Retryable:    func(err error) bool { return !errors.Is(err, permanent) },
	}, func() error {
		calls++
		return permanent
	})
	assert.Same(t, permanent, err)
	assert.Equal(t, 1, calls)
}

func TestRetryAbortsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, "read", RetryConfig{MaxAttempts: 3, InitialDelay: time.Second}, func() error {
		return errTransient
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCircuitBreakerTripsAndRecovers(t *testing.T) {
	cb := NewCircuitBreaker("store", CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: 20 * time.Millisecond})

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return errTransient }), errTransient)
	}
	assert.Equal(t, StateOpen, cb.GetState())
	assert.ErrorIs(t, cb.Execute(func() error { return nil }), ErrCircuitOpen)

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreakerIgnoresFilteredErrors(t *testing.T) {
	permanent := errors.New("not found")
	cb := NewCircuitBreaker("store", CircuitBreakerConfig{
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return !errors.Is(err, permanent) },
	})
	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return permanent }), permanent)
	}
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, "read", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "read", te.Op)

	block := make(chan struct{})
	defer close(block)
	err = WithTimeout(context.Background(), 10*time.Millisecond, "stuck", func(context.Context) error {
		<-block
		return nil
	})
	assert.ErrorIs(t, err, apperrors.ErrTimeout, "returns even when fn ignores its context")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = WithTimeout(ctx, time.Second, "read", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, apperrors.ErrTimeout)

	err = WithTimeout(context.Background(), 0, "read", func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestCircuitBreakerHalfOpenProbe(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker("s3", CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})
	clock := time.Unix(1000, 0)
	cb.now = func() time.Time { return clock }

	assert.ErrorIs(t, cb.Execute(func() error { return errTransient }), errTransient)
	assert.ErrorIs(t, cb.Execute(func() error { return nil }), ErrCircuitOpen)

	clock = clock.Add(time.Minute)
	release := make(chan struct{})
	probeDone := make(chan error)
	go func() {
		probeDone <- cb.Execute(func() error {
			<-release
			return errTransient
		})
	}()
	require.Eventually(t, func() bool { return cb.GetState() == StateHalfOpen }, time.Second, time.Millisecond)
	assert.ErrorIs(t, cb.Execute(func() error { return nil }), ErrCircuitOpen, "only one probe at a time")

	close(release)
	assert.ErrorIs(t, <-probeDone, errTransient)
	assert.Equal(t, StateOpen, cb.GetState())

	clock = clock.Add(time.Minute)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, []string{
		"s3:closed->open",
		"s3:open->half-open",
		"s3:half-open->open",
		"s3:open->half-open",
		"s3:half-open->closed",
	}, transitions)
}

func TestBackoff(t *testing.T) {
	cfg := RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2, JitterFraction: 0.1}
	for i := 0; i < 50; i++ {
		d := cfg.Backoff(2)
		assert.GreaterOrEqual(t, d, 180*time.Millisecond)
		assert.LessOrEqual(t, d, 220*time.Millisecond)
	}
	assert.Equal(t, time.Second, cfg.Backoff(10))
}
