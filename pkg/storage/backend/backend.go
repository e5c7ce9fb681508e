// Package backend opens the storage.Store selected by configuration and
// wraps remote backends in the resilient read path.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/storage"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/storage/minio"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/storage/pgstore"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/storage/redisstore"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/storage/s3"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Backend is an opened store plus the connections it owns.
type Backend struct {
	storage.Store
	Name    string
	pinger  pinger
	closers []func() error
}

// Ping checks the underlying service. Local backends always succeed.
func (b *Backend) Ping(ctx context.Context) error {
	if b.pinger == nil {
		return nil
	}
	return b.pinger.Ping(ctx)
}

// Close releases every connection the backend opened.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Option configures Open.
type Option func(*options)

type options struct {
	metrics *metrics.Metrics
}

// WithMetrics exports the read-path breaker state as the
// circuit_breaker_state gauge, labelled with the backend name.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// Open builds the store named by cfg.Storage.Backend.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Backend, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	sc := cfg.Storage
	b := &Backend{Name: sc.Backend}

	var raw storage.Store
	switch sc.Backend {
	case config.BackendMemory:
		raw = storage.NewMemoryStore()
	case config.BackendFile:
		fs, err := storage.NewFileStore(sc.Dir)
		if err != nil {
			return nil, err
		}
		raw = fs
	case config.BackendS3:
		st, err := s3.NewFromConfig(ctx, sc)
		if err != nil {
			return nil, fmt.Errorf("opening s3 store: %w", err)
		}
		raw, b.pinger = st, st
	case config.BackendMinio:
		st, err := minio.NewFromConfig(sc)
		if err != nil {
			return nil, fmt.Errorf("opening minio store: %w", err)
		}
		raw, b.pinger = st, st
	case config.BackendPostgres:
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		b.closers = append(b.closers, client.Close)
		st, err := pgstore.NewStore(client, sc.Table)
		if err != nil {
			b.Close()
			return nil, err
		}
		if err := st.EnsureSchema(ctx); err != nil {
			b.Close()
			return nil, err
		}
		raw, b.pinger = st, st
	case config.BackendRedis:
		client, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("opening redis store: %w", err)
		}
		b.closers = append(b.closers, client.Close)
		st := redisstore.NewStore(client, sc.Prefix)
		raw, b.pinger = st, st
	default:
		return nil, fmt.Errorf("unknown storage backend %q", sc.Backend)
	}

	if sc.Backend == config.BackendMemory {
		b.Store = raw
	} else {
		rc := ResilienceFromConfig(sc)
		if m := o.metrics; m != nil {
			m.CircuitBreakerState.WithLabelValues(sc.Backend).Set(float64(resilience.StateClosed))
			rc.Breaker.OnStateChange = func(name string, _, to resilience.State) {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		}
		b.Store = storage.NewResilient(sc.Backend, raw, rc)
	}
	slog.Info("storage backend opened", "backend", sc.Backend)
	return b, nil
}

// ResilienceFromConfig maps the storage section onto the read-path settings.
func ResilienceFromConfig(sc config.StorageConfig) storage.ResilienceConfig {
	return storage.ResilienceConfig{
		ReadTimeout: sc.ReadTimeout,
		Retry: resilience.RetryConfig{
			MaxAttempts:  sc.RetryAttempts,
			InitialDelay: sc.RetryInitialDelay,
		},
		Breaker: resilience.CircuitBreakerConfig{
			FailureThreshold: sc.BreakerThreshold,
			ResetTimeout:     sc.BreakerResetTimeout,
		},
	}
}

// BreakerState reports the read-path breaker state. ok is false for backends
// without one.
func (b *Backend) BreakerState() (state resilience.State, ok bool) {
	r, ok := b.Store.(*storage.Resilient)
	if !ok {
		return resilience.StateClosed, false
	}
	return r.BreakerState(), true
}
