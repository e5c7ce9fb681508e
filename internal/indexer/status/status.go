// Package status records per-object indexing outcomes in PostgreSQL so
// operators can see which documents made it into an index and why others
// did not.
package status

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/errors"
)

const (
	StatusIndexed = "INDEXED"
	StatusFailed  = "FAILED"
)

// Entry is one row of index_status.
type Entry struct {
	Object    string
	Output    string
	Status    string
	Error     string
	Terms     int
	UpdatedAt time.Time
}

// Recorder implements indexer.Observer on an index_status table. Write
// failures are logged and never fail the pass.
type Recorder struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a Recorder. A nil db yields a Recorder that records nothing.
func New(db *sql.DB) *Recorder {
	return &Recorder{
		db:     db,
		logger: slog.Default().With("component", "index-status"),
	}
}

func (r *Recorder) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS index_status (
		object_name TEXT NOT NULL,
		output_name TEXT NOT NULL,
		status      TEXT NOT NULL,
		error       TEXT NOT NULL DEFAULT '',
		terms       INTEGER NOT NULL DEFAULT 0,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (object_name, output_name)
	)`)
	if err != nil {
		return fmt.Errorf("creating index_status table: %w", err)
	}
	return nil
}

func (r *Recorder) ObjectIndexed(ctx context.Context, obj indexer.Object, terms int) {
	r.upsert(ctx, obj, StatusIndexed, "", terms)
}

func (r *Recorder) ObjectFailed(ctx context.Context, obj indexer.Object, err error) {
	r.upsert(ctx, obj, StatusFailed, err.Error(), 0)
}

// Get returns the recorded entry for object within output.
func (r *Recorder) Get(ctx context.Context, object, output string) (*Entry, error) {
	if r.db == nil {
		return nil, apperrors.ErrDocumentNotFound
	}
	e := &Entry{Object: object, Output: output}
	err := r.db.QueryRowContext(ctx,
		`SELECT status, error, terms, updated_at FROM index_status
		WHERE object_name = $1 AND output_name = $2`,
		object, output,
	).Scan(&e.Status, &e.Error, &e.Terms, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("status of %s: %w", object, apperrors.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("querying status of %s: %w", object, err)
	}
	return e, nil
}

func (r *Recorder) upsert(ctx context.Context, obj indexer.Object, status, errMsg string, terms int) {
	if r.db == nil {
		return
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO index_status (object_name, output_name, status, error, terms, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (object_name, output_name) DO UPDATE
		SET status = EXCLUDED.status, error = EXCLUDED.error, terms = EXCLUDED.terms, updated_at = NOW()`,
		obj.Name, obj.Output, status, errMsg, terms,
	)
	if err != nil {
		r.logger.Error("failed to update index status",
			"doc_id", obj.Name,
			"status", status,
			"error", err,
		)
	}
}

var _ indexer.Observer = (*Recorder)(nil)
