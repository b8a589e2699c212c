// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/cairn-dev/cairn/internal/store"
	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

// Compile-time interface check.
var _ store.VectorIndex = (*VectorIndex)(nil)

// VectorIndex implements store.VectorIndex over the shared database. vec0
// virtual tables key rows by integer rowid, so vector_keys maps each
// (namespace, key) identity to the rowid carrying its embedding.
type VectorIndex struct {
	db         *sql.DB
	dimensions int
}

func upsertVector(ctx context.Context, ex execer, ns store.Namespace, key string, vector []float32) error {
	blob, err := sqlite_vec.SerializeFloat32(vector)
	if err != nil {
		return fmt.Errorf("serializing embedding for %s/%s: %w", ns.String(), key, err)
	}

	var rowID int64
	err = ex.QueryRowContext(ctx,
		`SELECT rowid FROM vector_keys WHERE ns = ? AND key = ?`, ns.Encode(), key,
	).Scan(&rowID)

	switch {
	case err == nil:
		// vec0 does not support UPDATE; replace via DELETE + INSERT.
		if _, err := ex.ExecContext(ctx, `DELETE FROM item_vectors WHERE rowid = ?`, rowID); err != nil {
			return fmt.Errorf("deleting stale embedding for %s/%s: %w", ns.String(), key, err)
		}
	case errors.Is(err, sql.ErrNoRows):
		res, err := ex.ExecContext(ctx,
			`INSERT INTO vector_keys (ns, key) VALUES (?, ?)`, ns.Encode(), key)
		if err != nil {
			return fmt.Errorf("inserting vector key for %s/%s: %w", ns.String(), key, err)
		}
		rowID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("resolving rowid for %s/%s: %w", ns.String(), key, err)
		}
	default:
		return fmt.Errorf("looking up vector key for %s/%s: %w", ns.String(), key, err)
	}

	if _, err := ex.ExecContext(ctx,
		`INSERT INTO item_vectors (rowid, embedding) VALUES (?, ?)`, rowID, blob); err != nil {
		return fmt.Errorf("inserting embedding for %s/%s: %w", ns.String(), key, err)
	}
	return nil
}

func removeVector(ctx context.Context, ex execer, ns store.Namespace, key string) error {
	var rowID int64
	err := ex.QueryRowContext(ctx,
		`SELECT rowid FROM vector_keys WHERE ns = ? AND key = ?`, ns.Encode(), key,
	).Scan(&rowID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("looking up vector key for %s/%s: %w", ns.String(), key, err)
	}

	if _, err := ex.ExecContext(ctx, `DELETE FROM item_vectors WHERE rowid = ?`, rowID); err != nil {
		return fmt.Errorf("deleting embedding for %s/%s: %w", ns.String(), key, err)
	}
	if _, err := ex.ExecContext(ctx, `DELETE FROM vector_keys WHERE rowid = ?`, rowID); err != nil {
		return fmt.Errorf("deleting vector key for %s/%s: %w", ns.String(), key, err)
	}
	return nil
}

// Upsert replaces any existing vector for the identity.
func (v *VectorIndex) Upsert(ctx context.Context, ns store.Namespace, key string, vector []float32) error {
	if len(vector) != v.dimensions {
		return cairnerr.Errorf(cairnerr.CodeStoreIndexMismatch,
			"vector for %s/%s has %d dimensions, index configured for %d", ns.String(), key, len(vector), v.dimensions)
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertVector(ctx, tx, ns, key, vector); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing vector upsert: %w", err)
	}
	return nil
}

// Remove deletes the vector for the identity if present. Idempotent.
func (v *VectorIndex) Remove(ctx context.Context, ns store.Namespace, key string) error {
	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := removeVector(ctx, tx, ns, key); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing vector remove: %w", err)
	}
	return nil
}

// Nearest ranks candidates under the prefix by cosine similarity. The KNN
// query is constrained to the prefix's rowids, fetches offset+limit
// neighbors, and re-sorts in Go so equal scores tie-break deterministically
// by (namespace, key).
func (v *VectorIndex) Nearest(ctx context.Context, prefix store.Namespace, query []float32, opts store.SearchOpts) ([]store.VectorMatch, error) {
	if len(query) != v.dimensions {
		return nil, cairnerr.Errorf(cairnerr.CodeStoreIndexMismatch,
			"query vector has %d dimensions, index configured for %d", len(query), v.dimensions)
	}

	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, fmt.Errorf("serializing query vector: %w", err)
	}

	cond, condArgs := nsPrefixWhere("ns", prefix)
	k := opts.Offset + opts.Limit

	q := `SELECT vk.ns, vk.key, iv.distance
FROM item_vectors iv
JOIN vector_keys vk ON vk.rowid = iv.rowid
WHERE iv.embedding MATCH ?
  AND iv.k = ?
  AND iv.rowid IN (SELECT rowid FROM vector_keys WHERE ` + cond + `)
ORDER BY iv.distance`

	args := append([]any{blob, k}, condArgs...)
	rows, err := v.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("searching vectors under %s: %w", prefix.String(), err)
	}
	defer func() { _ = rows.Close() }()

	var matches []store.VectorMatch
	for rows.Next() {
		var encNS, key string
		var distance float64
		if err := rows.Scan(&encNS, &key, &distance); err != nil {
			return nil, fmt.Errorf("scanning vector match: %w", err)
		}

		ns, err := store.DecodeNamespace(encNS)
		if err != nil {
			return nil, err
		}

		// Cosine distance is 1 - similarity.
		matches = append(matches, store.VectorMatch{
			Namespace: ns,
			Key:       key,
			Score:     1 - distance,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vector matches: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if c := matches[i].Namespace.Compare(matches[j].Namespace); c != 0 {
			return c < 0
		}
		return matches[i].Key < matches[j].Key
	})

	if opts.Offset >= len(matches) {
		return nil, nil
	}
	return matches[opts.Offset:], nil
}

// Close is a no-op; the Backend owns the shared connection.
func (v *VectorIndex) Close() error { return nil }
