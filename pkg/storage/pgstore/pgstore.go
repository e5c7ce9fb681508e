// Package pgstore provides a storage.Store that keeps objects as BYTEA rows
// in a PostgreSQL table.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/fulltext-indexer/pkg/storage"
)

// Store implements storage.Store on a table with columns
// (name TEXT PRIMARY KEY, data BYTEA, updated_at TIMESTAMPTZ).
type Store struct {
	client *postgres.Client
	table  string
}

// NewStore creates a Store over table. The table name is quoted, so any
// identifier is accepted.
func NewStore(client *postgres.Client, table string) (*Store, error) {
	if table == "" {
		return nil, fmt.Errorf("pgstore: table name is required")
	}
	return &Store{
		client: client,
		table:  pq.QuoteIdentifier(table),
	}, nil
}

// EnsureSchema creates the objects table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.client.DB.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		name       TEXT PRIMARY KEY,
		data       BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`, s.table))
	if err != nil {
		return fmt.Errorf("creating objects table: %w", err)
	}
	return nil
}

func (s *Store) ReadBytes(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.client.DB.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT data FROM %s WHERE name = $1`, s.table),
		name,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("object %q: %w", name, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("selecting object %s: %w", name, err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func (s *Store) WriteBytes(ctx context.Context, name string, data []byte) error {
	if err := storage.ValidateName(name); err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	_, err := s.client.DB.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (name, data, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`, s.table),
		name, data,
	)
	if err != nil {
		return fmt.Errorf("upserting object %s: %w", name, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.client.DB.QueryContext(ctx,
		fmt.Sprintf(`SELECT name FROM %s WHERE name LIKE $1 ESCAPE '\'`, s.table),
		escapeLike(prefix)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning object name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating objects: %w", err)
	}
	// byte order, not the database collation
	sort.Strings(names)
	return names, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func escapeLike(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix)
}
