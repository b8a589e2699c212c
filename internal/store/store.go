// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

// Package store implements the namespaced object store: durable item
// persistence keyed by (namespace, key) with an optional derived vector
// index for similarity search scoped to a namespace prefix.
package store

import "context"

// ItemStore is the primary value store: durable persistence of exact JSON
// values keyed by (namespace, key). It owns the Item lifecycle.
type ItemStore interface {
	// Put upserts exactly one Item, overwriting entirely any prior value at
	// the same identity. CreatedAt is preserved on overwrite.
	Put(ctx context.Context, item *Item) error

	// Get returns the item or a not-found error wrapping ErrNotFound.
	Get(ctx context.Context, ns Namespace, key string) (*Item, error)

	// Delete is idempotent: deleting an absent item is not an error.
	Delete(ctx context.Context, ns Namespace, key string) error

	// SearchByPrefix lists items whose namespace has the given prefix,
	// ordered deterministically by (namespace, key), along with the exact
	// count of all matching items.
	SearchByPrefix(ctx context.Context, prefix Namespace, opts SearchOpts) ([]*Item, int64, error)

	Close() error
}

// VectorIndex is the derived secondary store mapping embedding vectors back
// to (namespace, key). At most one current vector exists per identity.
type VectorIndex interface {
	// Upsert replaces any existing vector for the identity.
	Upsert(ctx context.Context, ns Namespace, key string, vector []float32) error

	// Remove is idempotent.
	Remove(ctx context.Context, ns Namespace, key string) error

	// Nearest ranks candidates under the namespace prefix by cosine
	// similarity (higher = more similar), tie-breaking by (namespace, key).
	// An offset beyond the available results yields an empty slice.
	Nearest(ctx context.Context, prefix Namespace, query []float32, opts SearchOpts) ([]VectorMatch, error)

	Close() error
}

// Backend bundles the two stores over one durability layer. PutIndexed and
// DeleteIndexed commit the value write and the index write for one identity
// as a single atomic unit, so a concurrent reader never observes a new value
// with a stale vector or vice versa.
type Backend interface {
	Items() ItemStore
	Vectors() VectorIndex

	// PutIndexed writes the item and its embedding record atomically.
	// A nil record writes the item alone and removes any stale vector.
	PutIndexed(ctx context.Context, item *Item, rec *EmbeddingRecord) error

	// DeleteIndexed removes the item and any embedding record atomically.
	// Idempotent.
	DeleteIndexed(ctx context.Context, ns Namespace, key string) error

	Close() error
}

// Embedder maps text to a fixed-length vector. The adapter in
// internal/embedding implements this over the configured provider with
// timeout and dimension enforcement.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}
