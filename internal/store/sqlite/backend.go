// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

// Package sqlite implements the store backend on a single SQLite database:
// items in an ordinary table, vectors in a sqlite-vec vec0 virtual table.
// Sharing one database is what lets a value write and its index write commit
// as a single transaction.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/cairn-dev/cairn/internal/store"
)

func init() {
	sqlite_vec.Auto()
}

// Compile-time interface check.
var _ store.Backend = (*Backend)(nil)

// Backend implements store.Backend over one SQLite database file.
type Backend struct {
	db         *sql.DB
	dimensions int
	items      *ItemStore
	vectors    *VectorIndex
}

// NewBackend opens (or creates) the database at dbPath and initialises the
// items table, the vector key mapping table, and the vec0 virtual table with
// the given embedding dimensionality.
func NewBackend(dbPath string, dimensions int) (*Backend, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if err := migrate(db, dimensions); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating sqlite db: %w", err)
	}

	b := &Backend{db: db, dimensions: dimensions}
	b.items = &ItemStore{db: db}
	b.vectors = &VectorIndex{db: db, dimensions: dimensions}
	return b, nil
}

func migrate(db *sql.DB, dimensions int) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS items (
	ns         TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (ns, key)
);

CREATE TABLE IF NOT EXISTS vector_keys (
	rowid INTEGER PRIMARY KEY AUTOINCREMENT,
	ns    TEXT NOT NULL,
	key   TEXT NOT NULL,
	UNIQUE (ns, key)
);

CREATE INDEX IF NOT EXISTS idx_vector_keys_ns ON vector_keys(ns);
`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("creating item tables: %w", err)
	}

	// vec0 rows share rowids with vector_keys; cosine distance so similarity
	// is 1 - distance.
	vecDDL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS item_vectors USING vec0(embedding float[%d] distance_metric=cosine)`,
		dimensions,
	)
	if _, err := db.Exec(vecDDL); err != nil {
		return fmt.Errorf("creating item_vectors virtual table: %w", err)
	}

	return nil
}

// Items returns the primary value store.
func (b *Backend) Items() store.ItemStore { return b.items }

// Vectors returns the vector index.
func (b *Backend) Vectors() store.VectorIndex { return b.vectors }

// PutIndexed writes the item and its embedding record in one transaction.
// A nil record writes the item alone and clears any stale vector, so a
// put with indexing newly disabled cannot leave an outdated vector
// searchable.
func (b *Backend) PutIndexed(ctx context.Context, item *store.Item, rec *store.EmbeddingRecord) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertItem(ctx, tx, item); err != nil {
		return err
	}

	if rec != nil {
		if err := upsertVector(ctx, tx, rec.Namespace, rec.Key, rec.Vector); err != nil {
			return err
		}
	} else {
		if err := removeVector(ctx, tx, item.Namespace, item.Key); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing indexed put: %w", err)
	}
	return nil
}

// DeleteIndexed removes the item and any embedding record in one
// transaction. Idempotent.
func (b *Backend) DeleteIndexed(ctx context.Context, ns store.Namespace, key string) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE ns = ? AND key = ?`, ns.Encode(), key); err != nil {
		return fmt.Errorf("deleting item %s/%s: %w", ns.String(), key, err)
	}

	if err := removeVector(ctx, tx, ns, key); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing indexed delete: %w", err)
	}
	return nil
}

// Close closes the shared database connection.
func (b *Backend) Close() error {
	return b.db.Close()
}

// execer covers *sql.DB and *sql.Tx so the item and vector write paths can
// run standalone or inside the atomic put/delete transactions.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// nsPrefixWhere returns the SQL fragment and arguments matching encoded
// namespaces under the prefix: the prefix itself, or anything starting with
// the prefix plus the U+001F separator. The half-open range [enc+"\x1f",
// enc+"\x20") covers exactly those, since segments cannot contain characters
// below U+0020.
func nsPrefixWhere(column string, prefix store.Namespace) (string, []any) {
	enc := prefix.Encode()
	cond := fmt.Sprintf("(%s = ? OR (%s >= ? AND %s < ?))", column, column, column)
	return cond, []any{enc, enc + "\x1f", enc + "\x20"}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
