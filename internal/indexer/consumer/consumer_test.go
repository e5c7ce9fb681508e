package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/indexer/wordindex"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/storage"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []kafka.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, event kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

type failingIndexer struct{}

func (failingIndexer) MultiIndex(context.Context, string, string, indexer.ExtractFunc) (*indexer.Result, error) {
	return nil, errors.New("listing objects: bucket gone")
}

var defaults = config.IndexerConfig{Concurrency: 2, Prefix: "docs/", Output: "docs/words.spdx"}

func newHandler(t *testing.T, pub Publisher) (*Handler, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.WriteBytes(ctx, "docs/a.txt", []byte("alpha beta")))
	require.NoError(t, store.WriteBytes(ctx, "docs/b.txt", []byte("beta \xff")))
	engine, err := indexer.NewEngine(defaults, store)
	require.NoError(t, err)
	return NewHandler(engine, wordindex.IndexByWords, pub, defaults), store
}

func TestRunAppliesDefaultsAndPublishes(t *testing.T) {
	pub := &fakePublisher{}
	h, store := newHandler(t, pub)

	event, err := h.Run(context.Background(), IndexRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, event.RequestID)
	assert.Equal(t, "docs/", event.Prefix)
	assert.Equal(t, "docs/words.spdx", event.Output)
	assert.Equal(t, StatusSucceeded, event.Status)
	assert.Equal(t, 2, event.Objects)
	assert.Equal(t, 1, event.Indexed)
	assert.Equal(t, 1, event.Failed)
	require.Len(t, event.Failures, 1)
	assert.Equal(t, "docs/b.txt", event.Failures[0].Object)
	assert.Equal(t, "decode", event.Failures[0].Kind)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "docs/words.spdx", pub.events[0].Key)
	assert.Same(t, event, pub.events[0].Value)

	_, err = indexer.LoadIndex(context.Background(), store, "docs/words.spdx")
	require.NoError(t, err)
}

func TestHandleMessage(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		pub := &fakePublisher{}
		h, _ := newHandler(t, pub)
		err := h.HandleMessage()(context.Background(), []byte("k"), []byte(`{"request_id":"r-1","prefix":"docs/a","output":"out/a.spdx"}`))
		require.NoError(t, err)
		require.Len(t, pub.events, 1)
		event := pub.events[0].Value.(*IndexCompleteEvent)
		assert.Equal(t, "r-1", event.RequestID)
		assert.Equal(t, 1, event.Indexed)
		assert.Zero(t, event.Failed)
	})
	t.Run("malformed request is committed", func(t *testing.T) {
		pub := &fakePublisher{}
		h, _ := newHandler(t, pub)
		err := h.HandleMessage()(context.Background(), nil, []byte(`{not json`))
		assert.NoError(t, err)
		assert.Empty(t, pub.events)
	})
	t.Run("failed pass publishes failure and commits", func(t *testing.T) {
		pub := &fakePublisher{}
		h := NewHandler(failingIndexer{}, wordindex.IndexByWords, pub, defaults)
		err := h.HandleMessage()(context.Background(), nil, []byte(`{"request_id":"r-2"}`))
		assert.NoError(t, err)
		require.Len(t, pub.events, 1)
		event := pub.events[0].Value.(*IndexCompleteEvent)
		assert.Equal(t, StatusFailed, event.Status)
		assert.Contains(t, event.Error, "bucket gone")
	})
	t.Run("publish failure leaves message uncommitted", func(t *testing.T) {
		pub := &fakePublisher{err: errors.New("broker down")}
		h, _ := newHandler(t, pub)
		err := h.HandleMessage()(context.Background(), nil, []byte(`{"request_id":"r-3"}`))
		assert.ErrorContains(t, err, "broker down")
	})
}

func TestRunWithoutPublisher(t *testing.T) {
	h, _ := newHandler(t, nil)
	event, err := h.Run(context.Background(), IndexRequest{RequestID: "local"})
	require.NoError(t, err)
	assert.Equal(t, "local", event.RequestID)
}
