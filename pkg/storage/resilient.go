package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/resilience"
)

// ResilienceConfig tunes the read path of a Resilient store.
type ResilienceConfig struct {
	ReadTimeout time.Duration
	Retry       resilience.RetryConfig
	Breaker     resilience.CircuitBreakerConfig
}

// Resilient wraps a Store so reads get a per-attempt timeout, bounded retries
// with backoff and a circuit breaker. Missing objects, invalid names and
// caller cancellation are permanent and neither retried nor counted against
// the breaker. Writes and listings pass through unchanged.
type Resilient struct {
	Store
	cfg     ResilienceConfig
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

// NewResilient wraps store. name identifies the breaker in logs.
func NewResilient(name string, store Store, cfg ResilienceConfig) *Resilient {
	cfg.Retry.Retryable = isTransient
	cfg.Breaker.IsFailure = isTransient
	return &Resilient{
		Store:   store,
		cfg:     cfg,
		breaker: resilience.NewCircuitBreaker(name, cfg.Breaker),
		logger:  slog.Default().With("component", "storage", "store", name),
	}
}

func (r *Resilient) ReadBytes(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := resilience.Retry(ctx, "read "+name, r.cfg.Retry, func() error {
		return r.breaker.Execute(func() error {
			// attempt is abandoned, never read, if the timeout fires first.
			var attempt []byte
			err := resilience.WithTimeout(ctx, r.cfg.ReadTimeout, "read "+name, func(ctx context.Context) error {
				d, err := r.Store.ReadBytes(ctx, name)
				attempt = d
				return err
			})
			if err == nil {
				data = attempt
			}
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// BreakerState reports the breaker state, for health checks.
func (r *Resilient) BreakerState() resilience.State {
	return r.breaker.GetState()
}

func isTransient(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidName),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}
