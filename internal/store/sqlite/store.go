// Package sqlite provides the durable store.Store backed by SQLite via the
// pure-Go modernc.org/sqlite driver. Records are stored as JSON documents
// keyed by (table, partition key, sort key), which keeps the partial-update
// and prefix-query semantics independent of any SQL schema per table.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/credvoice/persona-service/internal/domain"
	"github.com/credvoice/persona-service/internal/store"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

const schema = `
CREATE TABLE IF NOT EXISTS records (
	tbl TEXT NOT NULL,
	pk  TEXT NOT NULL,
	sk  TEXT NOT NULL DEFAULT '',
	doc TEXT NOT NULL,
	PRIMARY KEY (tbl, pk, sk)
);
`

// Store is the SQLite-backed implementation of store.Store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and prepares the
// schema. Use ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// The driver serializes access per connection; a single connection
	// avoids SQLITE_BUSY on concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetItem implements store.Store.
func (s *Store) GetItem(ctx context.Context, table, partitionKey, sortKey string) (store.Record, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM records WHERE tbl = ? AND pk = ? AND sk = ?`,
		table, partitionKey, sortKey,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get %s/%s: %w", table, partitionKey, err)
	}
	return decodeRecord(doc)
}

// PutItem implements store.Store.
func (s *Store) PutItem(ctx context.Context, table, partitionKey, sortKey string, rec store.Record) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sqlite: encode record: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (tbl, pk, sk, doc) VALUES (?, ?, ?, ?)
		 ON CONFLICT (tbl, pk, sk) DO UPDATE SET doc = excluded.doc`,
		table, partitionKey, sortKey, string(doc),
	)
	if err != nil {
		return fmt.Errorf("sqlite: put %s/%s: %w", table, partitionKey, err)
	}
	return nil
}

// UpdateItem implements store.Store. The read-merge-write runs inside one
// transaction so concurrent updates to the same record do not interleave.
func (s *Store) UpdateItem(ctx context.Context, table, partitionKey, sortKey string, fields map[string]any) (store.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin update: %w", err)
	}
	defer tx.Rollback()

	var doc string
	err = tx.QueryRowContext(ctx,
		`SELECT doc FROM records WHERE tbl = ? AND pk = ? AND sk = ?`,
		table, partitionKey, sortKey,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: read for update %s/%s: %w", table, partitionKey, err)
	}

	rec, err := decodeRecord(doc)
	if err != nil {
		return nil, err
	}
	for name, value := range fields {
		rec[name] = value
	}

	updated, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encode record: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE records SET doc = ? WHERE tbl = ? AND pk = ? AND sk = ?`,
		string(updated), table, partitionKey, sortKey,
	); err != nil {
		return nil, fmt.Errorf("sqlite: write update %s/%s: %w", table, partitionKey, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: commit update: %w", err)
	}

	// Round-trip through JSON so the caller sees the same value shapes a
	// subsequent GetItem would return.
	return decodeRecord(string(updated))
}

// QueryByPrefix implements store.Store.
func (s *Store) QueryByPrefix(ctx context.Context, table, partitionKey, sortKeyPrefix string) ([]store.Record, error) {
	// substr comparison instead of LIKE: sort keys may contain characters
	// LIKE treats as wildcards.
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM records
		 WHERE tbl = ? AND pk = ? AND substr(sk, 1, ?) = ?
		 ORDER BY sk`,
		table, partitionKey, len(sortKeyPrefix), sortKeyPrefix,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query %s/%s: %w", table, partitionKey, err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// Scan implements store.Store.
func (s *Store) Scan(ctx context.Context, table string) ([]store.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM records WHERE tbl = ?`, table)
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan %s: %w", table, err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

func collectRecords(rows *sql.Rows) ([]store.Record, error) {
	var result []store.Record
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("sqlite: scan row: %w", err)
		}
		rec, err := decodeRecord(doc)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate rows: %w", err)
	}
	return result, nil
}

func decodeRecord(doc string) (store.Record, error) {
	var rec store.Record
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		return nil, fmt.Errorf("sqlite: decode record: %w", err)
	}
	return rec, nil
}

// Ensure Store implements the interface.
var _ store.Store = (*Store)(nil)
