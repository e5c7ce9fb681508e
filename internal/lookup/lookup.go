// Package lookup serves get-by-term queries over an index persisted by the
// indexer. Queries are normalised with the same rules as documents, so a
// lookup of "Fox." finds documents indexed under "fox".
package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/storage"
)

// Cache is the optional result cache in front of the index. Entries are
// scoped to an index version so a reload never serves stale lists, even when
// Invalidate fails.
type Cache interface {
	GetOrCompute(ctx context.Context, version, term string, compute func() ([]string, error)) ([]string, bool, error)
	Invalidate(ctx context.Context) error
	Stats() (hits, misses int64)
}

// Result is the answer to one lookup.
type Result struct {
	Query  string   `json:"query"`
	Term   string   `json:"term"`
	DocIDs []string `json:"doc_ids"`
	Count  int      `json:"count"`
	Cached bool     `json:"cached"`
}

// Info describes the loaded index.
type Info struct {
	Output   string    `json:"output"`
	Loaded   bool      `json:"loaded"`
	Terms    int       `json:"terms"`
	Docs     uint32    `json:"docs"`
	Version  string    `json:"version"`
	Created  time.Time `json:"created_at"`
	LoadedAt time.Time `json:"loaded_at"`
}

type Service struct {
	store    storage.Reader
	output   string
	cache    Cache
	metrics  *metrics.Metrics
	mu       sync.RWMutex
	reader   *segment.Reader
	loadedAt time.Time
	logger   *slog.Logger
}

// NewService creates a Service for the index stored under output. cache and
// m may be nil. Nothing is read until Load.
func NewService(store storage.Reader, output string, cache Cache, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		output:  output,
		cache:   cache,
		metrics: m,
		logger:  slog.Default().With("component", "lookup", "output", output),
	}
}

// Load reads the index from storage and swaps it in, then drops cached
// results of the previous index. On error the previous index stays active.
func (s *Service) Load(ctx context.Context) error {
	reader, err := indexer.LoadIndex(ctx, s.store, s.output)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %w", apperrors.ErrIndexNotLoaded, err)
		}
		return err
	}
	s.mu.Lock()
	s.reader = reader
	s.loadedAt = time.Now()
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("cache invalidation after reload failed", "error", err)
		}
	}
	if s.metrics != nil {
		s.metrics.IndexTermCount.Set(float64(reader.Terms()))
	}
	s.logger.Info("index loaded", "terms", reader.Terms(), "docs", reader.DocCount())
	return nil
}

// Get returns the sorted identifiers of documents containing the term that
// query normalises to. query must normalise to exactly one term.
func (s *Service) Get(ctx context.Context, query string) (*Result, error) {
	start := time.Now()
	terms := tokenizer.Terms(query)
	if len(terms) != 1 {
		s.observe("error", "none", start)
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"query %q must normalise to exactly one term, got %d", query, len(terms))
	}
	term := terms[0]

	s.mu.RLock()
	reader := s.reader
	s.mu.RUnlock()
	if reader == nil {
		s.observe("error", "none", start)
		return nil, apperrors.ErrIndexNotLoaded
	}

	compute := func() ([]string, error) {
		ids, err := reader.Get(term)
		if err != nil {
			return nil, fmt.Errorf("looking up %q: %w", term, err)
		}
		if ids == nil {
			ids = []string{}
		}
		return ids, nil
	}

	var (
		ids    []string
		cached bool
		err    error
	)
	if s.cache != nil {
		ids, cached, err = s.cache.GetOrCompute(ctx, reader.Version(), term, compute)
	} else {
		ids, err = compute()
	}
	cacheStatus := "disabled"
	if s.cache != nil {
		cacheStatus = "miss"
		if cached {
			cacheStatus = "hit"
		}
	}
	if err != nil {
		s.observe("error", cacheStatus, start)
		return nil, err
	}

	resultType := "miss"
	switch {
	case cached:
		resultType = "hit"
	case len(ids) == 0:
		resultType = "zero_result"
	}
	s.observe(resultType, cacheStatus, start)
	logger.FromContext(ctx).Debug("lookup completed",
		"term", term,
		"count", len(ids),
		"cache_hit", cached,
	)
	return &Result{
		Query:  query,
		Term:   term,
		DocIDs: ids,
		Count:  len(ids),
		Cached: cached,
	}, nil
}

func (s *Service) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info := Info{Output: s.output}
	if s.reader == nil {
		return info
	}
	info.Loaded = true
	info.Terms = s.reader.Terms()
	info.Docs = s.reader.DocCount()
	info.Version = s.reader.Version()
	info.Created = s.reader.CreatedAt()
	info.LoadedAt = s.loadedAt
	return info
}

// CacheStats reports cache hits and misses, and false when caching is off.
func (s *Service) CacheStats() (hits, misses int64, enabled bool) {
	if s.cache == nil {
		return 0, 0, false
	}
	hits, misses = s.cache.Stats()
	return hits, misses, true
}

func (s *Service) observe(resultType, cacheStatus string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.LookupsTotal.WithLabelValues(resultType).Inc()
	s.metrics.LookupLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
}
