package status

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/postgres"
)

func TestNilDBRecordsNothing(t *testing.T) {
	r := New(nil)
	ctx := context.Background()
	require.NoError(t, r.EnsureSchema(ctx))
	assert.NotPanics(t, func() {
		r.ObjectIndexed(ctx, indexer.Object{Name: "a.txt"}, 3)
		r.ObjectFailed(ctx, indexer.Object{Name: "b.txt"}, errors.New("boom"))
	})
	_, err := r.Get(ctx, "a.txt", "")
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}

// TestRecorder_Integration requires PostgreSQL reachable with the default
// development config.
func TestRecorder_Integration(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	client, err := postgres.New(cfg.Postgres)
	if err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	r := New(client.DB)
	require.NoError(t, r.EnsureSchema(ctx))
	_, err = client.DB.ExecContext(ctx, `DELETE FROM index_status WHERE output_name = 'it/words.spdx'`)
	require.NoError(t, err)

	obj := indexer.Object{Name: "it/a.txt", Output: "it/words.spdx"}
	r.ObjectFailed(ctx, obj, errors.New("reading it/a.txt: timeout"))
	entry, err := r.Get(ctx, obj.Name, obj.Output)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, entry.Status)
	assert.Contains(t, entry.Error, "timeout")

	r.ObjectIndexed(ctx, obj, 12)
	entry, err = r.Get(ctx, obj.Name, obj.Output)
	require.NoError(t, err)
	assert.Equal(t, StatusIndexed, entry.Status)
	assert.Empty(t, entry.Error)
	assert.Equal(t, 12, entry.Terms)

	_, err = r.Get(ctx, "it/none.txt", obj.Output)
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}
