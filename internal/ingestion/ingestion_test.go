package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/storage"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		object  string
		size    int
		wantErr string
	}{
		{name: "valid", object: "docs/a.txt", size: 10},
		{name: "empty body is allowed", object: "docs/empty.txt", size: 0},
		{name: "empty name", object: "", wantErr: "name"},
		{name: "traversal", object: "docs/../etc", wantErr: "name"},
		{name: "segment suffix reserved", object: "docs/index.spdx", wantErr: "reserved"},
		{name: "too large", object: "docs/big.txt", size: MaxObjectSize + 1, wantErr: "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.object, make([]byte, tt.size))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestUploadStoresAndRequestsReindex(t *testing.T) {
	store := storage.NewMemoryStore()
	pub := &recordingPublisher{}
	u := NewUploader(store, pub)

	resp, err := u.Upload(context.Background(), "docs/a.txt", []byte("hello world"), true)
	require.NoError(t, err)
	assert.Equal(t, 11, resp.Size)
	assert.NotEmpty(t, resp.RequestID)

	data, err := store.ReadBytes(context.Background(), "docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	require.Len(t, pub.events, 1)
	req, ok := pub.events[0].Value.(consumer.IndexRequest)
	require.True(t, ok)
	assert.Equal(t, "docs/", req.Prefix)
	assert.Equal(t, resp.RequestID, req.RequestID)
}

func TestUploadTopLevelPrefix(t *testing.T) {
	pub := &recordingPublisher{}
	u := NewUploader(storage.NewMemoryStore(), pub)

	_, err := u.Upload(context.Background(), "a.txt", []byte("x"), true)
	require.NoError(t, err)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "", pub.events[0].Value.(consumer.IndexRequest).Prefix)
}

func TestUploadPublishFailureKeepsObject(t *testing.T) {
	store := storage.NewMemoryStore()
	u := NewUploader(store, &recordingPublisher{err: errors.New("broker down")})

	resp, err := u.Upload(context.Background(), "docs/a.txt", []byte("abc"), true)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Empty(t, resp.RequestID)

	_, err = store.ReadBytes(context.Background(), "docs/a.txt")
	assert.NoError(t, err)
}

func TestHandlerUpload(t *testing.T) {
	store := storage.NewMemoryStore()
	mux := http.NewServeMux()
	NewHandler(NewUploader(store, nil)).Register(mux)

	t.Run("stores body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/objects/docs/b.txt", strings.NewReader("quick fox"))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp UploadResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "docs/b.txt", resp.Name)

		data, err := store.ReadBytes(context.Background(), "docs/b.txt")
		require.NoError(t, err)
		assert.Equal(t, "quick fox", string(data))
	})

	t.Run("reserved name rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/objects/out.spdx", strings.NewReader("x"))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("name refused by the store", func(t *testing.T) {
		fs, err := storage.NewFileStore(t.TempDir())
		require.NoError(t, err)
		fsMux := http.NewServeMux()
		NewHandler(NewUploader(fs, nil)).Register(fsMux)

		req := httptest.NewRequest(http.MethodPut, "/api/v1/objects/.staging/x", strings.NewReader("x"))
		rec := httptest.NewRecorder()
		fsMux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("reindex without kafka", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/objects/docs/c.txt?reindex=true", strings.NewReader("x"))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("bad reindex flag", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/objects/docs/c.txt?reindex=maybe", strings.NewReader("x"))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
