// Package ingestion accepts documents over HTTP and writes them to the
// object store the indexer reads from. An upload can also ask for a
// re-index of its prefix by publishing an index request to Kafka.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/storage"
)

// MaxObjectSize is the largest accepted document, in bytes.
const MaxObjectSize = 32 << 20

// UploadResponse is returned after a document is stored.
type UploadResponse struct {
	Name      string `json:"name"`
	Size      int    `json:"size"`
	RequestID string `json:"request_id,omitempty"`
}

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// Validate checks an upload before it reaches the store. Segment names are
// reserved for indexes.
func Validate(name string, data []byte) error {
	errs := make(map[string]string)
	if err := storage.ValidateName(name); err != nil {
		errs["name"] = err.Error()
	} else if strings.HasSuffix(name, segment.Extension) {
		errs["name"] = fmt.Sprintf("names ending in %s are reserved for indexes", segment.Extension)
	}
	if len(data) > MaxObjectSize {
		errs["body"] = fmt.Sprintf("body must be at most %d bytes", MaxObjectSize)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// Uploader stores documents and optionally requests re-indexing.
type Uploader struct {
	store     storage.Writer
	publisher consumer.Publisher
	logger    *slog.Logger
}

// NewUploader creates an Uploader. Without a publisher, re-index requests
// are refused.
func NewUploader(store storage.Writer, publisher consumer.Publisher) *Uploader {
	return &Uploader{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent("uploader"),
	}
}

// CanReindex reports whether re-index requests can be published.
func (u *Uploader) CanReindex() bool {
	return u.publisher != nil
}

// Upload validates and writes data under name. When reindex is set, an
// index request for the object's directory is published afterwards; a
// publish failure is returned but the object stays stored.
func (u *Uploader) Upload(ctx context.Context, name string, data []byte, reindex bool) (*UploadResponse, error) {
	if err := Validate(name, data); err != nil {
		return nil, err
	}
	if err := u.store.WriteBytes(ctx, name, data); err != nil {
		return nil, fmt.Errorf("storing %s: %w", name, err)
	}
	resp := &UploadResponse{Name: name, Size: len(data)}
	if !reindex || u.publisher == nil {
		return resp, nil
	}

	req := consumer.IndexRequest{
		RequestID: fmt.Sprintf("upload-%d", time.Now().UnixNano()),
		Prefix:    prefixOf(name),
	}
	if err := u.publisher.Publish(ctx, kafka.Event{Key: req.Prefix, Value: req}); err != nil {
		u.logger.Error("failed to publish index request",
			"doc_id", name,
			"error", err,
		)
		return resp, fmt.Errorf("requesting re-index of %s: %w", req.Prefix, err)
	}
	resp.RequestID = req.RequestID
	return resp, nil
}

// prefixOf returns the directory of name with a trailing slash, or "" for
// top-level names.
func prefixOf(name string) string {
	dir := path.Dir(name)
	if dir == "." {
		return ""
	}
	return dir + "/"
}
