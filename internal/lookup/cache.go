package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/redis"
)

const keyPrefix = "lookup:"

// kvStore is the subset of the Redis client the cache needs.
type kvStore interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// TermCache caches the document list of each term of one index in Redis.
// Keys carry the index version, so entries written for a replaced index are
// never served for the new one. Concurrent misses for the same key share a
// single computation.
type TermCache struct {
	client  kvStore
	ttl     time.Duration
	output  string
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewTermCache creates a cache for the index persisted under output. m may
// be nil.
func NewTermCache(client *pkgredis.Client, cfg config.RedisConfig, output string, m *metrics.Metrics) *TermCache {
	return newTermCache(client, cfg.CacheTTL, output, m)
}

func newTermCache(client kvStore, ttl time.Duration, output string, m *metrics.Metrics) *TermCache {
	return &TermCache{
		client:  client,
		ttl:     ttl,
		output:  output,
		metrics: m,
		logger:  logger.WithComponent("lookup-cache"),
	}
}

type cacheResult struct {
	ids    []string
	cached bool
}

// GetOrCompute returns the cached list for term in the given index version,
// or computes, stores and returns it. The bool reports a cache hit. Each call
// counts exactly one hit or one miss.
func (c *TermCache) GetOrCompute(ctx context.Context, version, term string, compute func() ([]string, error)) ([]string, bool, error) {
	key := c.key(version, term)
	if ids, ok := c.read(ctx, key); ok {
		c.record(true)
		return ids, true, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if ids, ok := c.read(ctx, key); ok {
			return cacheResult{ids: ids, cached: true}, nil
		}
		ids, err := compute()
		if err != nil {
			return nil, err
		}
		c.write(ctx, key, ids)
		return cacheResult{ids: ids}, nil
	})
	if err != nil {
		c.record(false)
		return nil, false, err
	}
	res := val.(cacheResult)
	c.record(res.cached)
	return res.ids, res.cached, nil
}

// Invalidate drops every cached term of this index, across all versions.
func (c *TermCache) Invalidate(ctx context.Context) error {
	pattern := pkgredis.EscapePattern(keyPrefix+c.output+":") + "*"
	deleted, err := c.client.FlushByPattern(ctx, pattern)
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *TermCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *TermCache) read(ctx context.Context, key string) ([]string, bool) {
	data, err := c.client.GetBytes(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	c.logger.Debug("cache hit", "key", key)
	return ids, true
}

func (c *TermCache) write(ctx context.Context, key string, ids []string) {
	data, err := json.Marshal(ids)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

func (c *TermCache) key(version, term string) string {
	return keyPrefix + c.output + ":" + version + ":" + term
}

func (c *TermCache) record(hit bool) {
	if hit {
		c.hits.Add(1)
		if c.metrics != nil {
			c.metrics.CacheHitsTotal.Inc()
		}
		return
	}
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}
