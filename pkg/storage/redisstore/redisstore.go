// Package redisstore provides a storage.Store that keeps each object as a
// Redis string value under a key prefix.
package redisstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	pkgredis "github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/storage"
)

const defaultKeyPrefix = "objects:"

// Store implements storage.Store on Redis. Objects never expire.
type Store struct {
	client    *pkgredis.Client
	keyPrefix string
}

// NewStore creates a Store whose keys are keyPrefix + object name. An empty
// prefix defaults to "objects:".
func NewStore(client *pkgredis.Client, keyPrefix string) *Store {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &Store{client: client, keyPrefix: keyPrefix}
}

func (s *Store) ReadBytes(ctx context.Context, name string) ([]byte, error) {
	data, err := s.client.GetBytes(ctx, s.keyPrefix+name)
	if err != nil {
		if pkgredis.IsNilError(err) {
			return nil, fmt.Errorf("object %q: %w", name, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("redis get %s: %w", name, err)
	}
	return data, nil
}

func (s *Store) WriteBytes(ctx context.Context, name string, data []byte) error {
	if err := storage.ValidateName(name); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.keyPrefix+name, data, 0); err != nil {
		return fmt.Errorf("redis set %s: %w", name, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.client.Keys(ctx, pkgredis.EscapePattern(s.keyPrefix+prefix)+"*")
	if err != nil {
		return nil, fmt.Errorf("redis list %s: %w", prefix, err)
	}
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		names = append(names, strings.TrimPrefix(key, s.keyPrefix))
	}
	sort.Strings(names)
	// SCAN may return a key more than once.
	return slices.Compact(names), nil
}

// Ping checks the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}
