// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cairn-dev/cairn/internal/store"
	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

// Compile-time interface check.
var _ store.ItemStore = (*ItemStore)(nil)

// ItemStore implements store.ItemStore over the shared database.
type ItemStore struct {
	db *sql.DB
}

func upsertItem(ctx context.Context, ex execer, item *store.Item) error {
	value, err := json.Marshal(item.Value)
	if err != nil {
		return cairnerr.Wrapf(err, cairnerr.CodeStoreKeyInvalid,
			"serializing value for %s/%s", item.Namespace.String(), item.Key)
	}

	// Full replace on conflict; created_at keeps its original value.
	const q = `INSERT INTO items (ns, key, value, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(ns, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	_, err = ex.ExecContext(ctx, q,
		item.Namespace.Encode(),
		item.Key,
		string(value),
		formatTime(item.CreatedAt),
		formatTime(item.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting item %s/%s: %w", item.Namespace.String(), item.Key, err)
	}
	return nil
}

// Put upserts exactly one item, replacing any prior value at the identity.
func (s *ItemStore) Put(ctx context.Context, item *store.Item) error {
	return upsertItem(ctx, s.db, item)
}

// Get returns the item or a not-found error wrapping store.ErrNotFound.
func (s *ItemStore) Get(ctx context.Context, ns store.Namespace, key string) (*store.Item, error) {
	const q = `SELECT ns, key, value, created_at, updated_at FROM items WHERE ns = ? AND key = ?`

	item, err := scanItem(s.db.QueryRowContext(ctx, q, ns.Encode(), key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cairnerr.Wrapf(store.ErrNotFound, cairnerr.CodeStoreItemNotFound,
			"item %s/%s", ns.String(), key)
	}
	if err != nil {
		return nil, fmt.Errorf("getting item %s/%s: %w", ns.String(), key, err)
	}
	return item, nil
}

// Delete removes the item if present. Deleting an absent item is not an error.
func (s *ItemStore) Delete(ctx context.Context, ns store.Namespace, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE ns = ? AND key = ?`, ns.Encode(), key); err != nil {
		return fmt.Errorf("deleting item %s/%s: %w", ns.String(), key, err)
	}
	return nil
}

// SearchByPrefix pages over items under the prefix in (namespace, key)
// order. The encoded namespace column sorts identically to the segment-wise
// namespace order, so ORDER BY ns, key is deterministic and stable across
// pages absent concurrent writes.
func (s *ItemStore) SearchByPrefix(ctx context.Context, prefix store.Namespace, opts store.SearchOpts) ([]*store.Item, int64, error) {
	cond, args := nsPrefixWhere("ns", prefix)

	var total int64
	countQ := `SELECT COUNT(*) FROM items WHERE ` + cond
	if err := s.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting items under %s: %w", prefix.String(), err)
	}

	listQ := `SELECT ns, key, value, created_at, updated_at FROM items WHERE ` + cond +
		` ORDER BY ns, key LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, listQ, append(args, opts.Limit, opts.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing items under %s: %w", prefix.String(), err)
	}
	defer func() { _ = rows.Close() }()

	var items []*store.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating items: %w", err)
	}

	return items, total, nil
}

// Close is a no-op; the Backend owns the shared connection.
func (s *ItemStore) Close() error { return nil }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*store.Item, error) {
	var encNS, key, value, createdAt, updatedAt string
	if err := row.Scan(&encNS, &key, &value, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	ns, err := store.DecodeNamespace(encNS)
	if err != nil {
		return nil, err
	}

	var val map[string]any
	if err := json.Unmarshal([]byte(value), &val); err != nil {
		return nil, fmt.Errorf("deserializing value for %s/%s: %w", ns.String(), key, err)
	}

	return &store.Item{
		Namespace: ns,
		Key:       key,
		Value:     val,
		CreatedAt: parseTime(createdAt),
		UpdatedAt: parseTime(updatedAt),
	}, nil
}
