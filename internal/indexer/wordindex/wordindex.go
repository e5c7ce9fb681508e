// Package wordindex adapts the tokenizer to the indexing engine: it reads one
// stored object and returns its term list.
package wordindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/storage"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/tracing"
)

// StorageReadError reports that a document could not be fetched.
type StorageReadError struct {
	DocID string
	Err   error
}

func (e *StorageReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.DocID, e.Err)
}

func (e *StorageReadError) Unwrap() error {
	return e.Err
}

func (e *StorageReadError) Is(target error) bool {
	return target == apperrors.ErrStorageRead
}

// DecodeError reports that a document is not valid UTF-8. Offset is the
// first invalid byte.
type DecodeError struct {
	DocID  string
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.DocID, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == apperrors.ErrDecode
}

// IndexByWords fetches obj from store and extracts its terms. It keeps no
// state between calls and is safe for concurrent use.
func IndexByWords(ctx context.Context, store storage.Reader, obj indexer.Object) ([]string, error) {
	ctx, span := tracing.StartChildSpan(ctx, "index_by_words")
	defer span.End()
	span.SetAttr("doc_id", obj.Name)

	log := logger.FromContext(ctx).With("component", "wordindex")
	log.Info("indexing by words", "doc_id", obj.Name)

	data, err := store.ReadBytes(ctx, obj.Name)
	if err != nil {
		span.SetError(err)
		return nil, &StorageReadError{DocID: obj.Name, Err: err}
	}

	terms, err := tokenizer.Extract(data)
	if err != nil {
		span.SetError(err)
		decodeErr := &DecodeError{DocID: obj.Name, Err: err}
		var utfErr *tokenizer.UTF8Error
		if errors.As(err, &utfErr) {
			decodeErr.Offset = utfErr.Offset
		}
		return nil, decodeErr
	}
	span.SetAttr("term_count", len(terms))
	log.Debug("terms extracted", "doc_id", obj.Name, "term_count", len(terms))
	return terms, nil
}

var _ indexer.ExtractFunc = IndexByWords
