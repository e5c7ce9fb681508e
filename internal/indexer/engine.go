// Package indexer runs multi-object indexing passes: it lists the objects
// under a prefix, fans extraction out over a bounded worker group, merges
// every term list into one in-memory inverted index and persists the result
// as a segment.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/storage"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/tracing"
)

// maxLoggedSpans caps the per-object spans logged after a traced run.
const maxLoggedSpans = 20

// Option configures an Engine.
type Option func(*Engine)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithObserver adds an observer. Observers are called in the order added.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// WithTracing makes every pass open a root span and log the span tree when
// the pass ends.
func WithTracing(enabled bool) Option {
	return func(e *Engine) {
		e.tracing = enabled
	}
}

type Engine struct {
	cfg       config.IndexerConfig
	store     storage.Store
	metrics   *metrics.Metrics
	observers []Observer
	tracing   bool
	logger    *slog.Logger
}

func NewEngine(cfg config.IndexerConfig, store storage.Store, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("creating engine: %w", apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "store is required"))
	}
	if cfg.Concurrency <= 0 {
		return nil, fmt.Errorf("creating engine: concurrency must be positive, got %d", cfg.Concurrency)
	}
	e := &Engine{
		cfg:    cfg,
		store:  store,
		logger: slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// MultiIndex indexes every object under prefix with fn. The output object
// and other segments under the prefix are skipped. When output is non-empty
// and the pass succeeds, the index is encoded and written to output.
//
// With FailFast the first failing object cancels the pass and its error is
// returned. Otherwise failures are collected in Result.Failures and the
// remaining objects are still indexed. Cancelling ctx always aborts the pass.
func (e *Engine) MultiIndex(ctx context.Context, prefix, output string, fn ExtractFunc) (*Result, error) {
	if fn == nil {
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "extract function is required")
	}
	start := time.Now()
	log := e.logger.With("prefix", prefix, "output", output)
	if requestID := logger.RequestID(ctx); requestID != "" {
		log = log.With("request_id", requestID)
	}

	if e.tracing {
		var span *tracing.Span
		ctx, span = tracing.StartSpan(ctx, "multi_index", logger.RequestID(ctx))
		span.SetAttr("prefix", prefix)
		defer func() {
			span.End()
			span.Log(log, maxLoggedSpans)
		}()
	}

	result, err := e.run(ctx, prefix, output, fn, log)
	status := "success"
	if err != nil {
		status = "failed"
	}
	if e.metrics != nil {
		e.metrics.IndexRunsTotal.WithLabelValues(status).Inc()
		e.metrics.IndexRunDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		log.Error("indexing pass failed", "error", err, "duration", time.Since(start))
		return nil, err
	}

	result.Duration = time.Since(start)
	if e.metrics != nil {
		e.metrics.IndexTermCount.Set(float64(result.Terms))
	}
	log.Info("indexing pass complete",
		"objects", result.Objects,
		"indexed", result.Indexed,
		"failed", len(result.Failures),
		"terms", result.Terms,
		"duration", result.Duration,
	)
	return result, nil
}

func (e *Engine) run(ctx context.Context, prefix, output string, fn ExtractFunc, log *slog.Logger) (*Result, error) {
	names, err := e.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing objects under %q: %w", prefix, err)
	}
	objects := selectObjects(names, output)
	log.Info("indexing pass starting", "objects", len(objects), "concurrency", e.cfg.Concurrency)

	memIndex := index.NewMemoryIndex()
	var (
		indexed  atomic.Int64
		failMu   sync.Mutex
		failures []Failure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for _, obj := range objects {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			terms, err := e.extract(gctx, fn, obj)
			if err != nil {
				if gctx.Err() != nil && errors.Is(err, gctx.Err()) {
					return err
				}
				e.recordFailure(gctx, obj, err)
				if e.cfg.FailFast {
					return fmt.Errorf("indexing %s: %w", obj.Name, err)
				}
				failMu.Lock()
				failures = append(failures, Failure{
					Object: obj.Name,
					Kind:   apperrors.Kind(err),
					Error:  err.Error(),
					Err:    err,
				})
				failMu.Unlock()
				return nil
			}

			memIndex.AddDocument(obj.Name, terms)
			indexed.Add(1)
			e.recordSuccess(gctx, obj, terms)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(failures, func(i, j int) bool {
		return failures[i].Object < failures[j].Object
	})
	result := &Result{
		Index:    memIndex,
		Output:   output,
		Objects:  len(objects),
		Indexed:  int(indexed.Load()),
		Failures: failures,
		Terms:    memIndex.Terms(),
	}
	if output != "" {
		if err := e.persist(ctx, memIndex, output); err != nil {
			return nil, err
		}
		log.Info("index persisted", "terms", result.Terms, "docs", memIndex.DocCount())
	}
	return result, nil
}

func (e *Engine) extract(ctx context.Context, fn ExtractFunc, obj Object) ([]string, error) {
	if e.metrics != nil {
		e.metrics.ObjectsInFlight.Inc()
		defer e.metrics.ObjectsInFlight.Dec()
	}
	return fn(ctx, e.store, obj)
}

func (e *Engine) recordSuccess(ctx context.Context, obj Object, terms []string) {
	if e.metrics != nil {
		e.metrics.ObjectsIndexedTotal.Inc()
		e.metrics.TermsExtractedTotal.Add(float64(len(terms)))
	}
	for _, o := range e.observers {
		o.ObjectIndexed(ctx, obj, len(terms))
	}
}

func (e *Engine) recordFailure(ctx context.Context, obj Object, err error) {
	e.logger.Warn("object not indexed", "doc_id", obj.Name, "error", err)
	if e.metrics != nil {
		e.metrics.ObjectsFailedTotal.WithLabelValues(apperrors.Kind(err)).Inc()
	}
	for _, o := range e.observers {
		o.ObjectFailed(ctx, obj, err)
	}
}

func (e *Engine) persist(ctx context.Context, memIndex *index.MemoryIndex, output string) error {
	data, err := segment.Encode(memIndex.Snapshot(), memIndex.DocCount())
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := e.store.WriteBytes(ctx, output, data); err != nil {
		return fmt.Errorf("writing index to %s: %w", output, err)
	}
	return nil
}

// selectObjects drops the output object and existing segments, then pairs
// each remaining name with output.
func selectObjects(names []string, output string) []Object {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	objects := make([]Object, 0, len(sorted))
	for _, name := range sorted {
		if name == output || strings.HasSuffix(name, segment.Extension) {
			continue
		}
		objects = append(objects, Object{Name: name, Output: output})
	}
	return objects
}

// LoadIndex reads a persisted index for lookups.
func LoadIndex(ctx context.Context, store storage.Reader, name string) (*segment.Reader, error) {
	data, err := store.ReadBytes(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("reading index %s: %w", name, err)
	}
	reader, err := segment.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding index %s: %w", name, err)
	}
	return reader, nil
}
