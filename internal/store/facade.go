// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

// Store is the single entry point for item operations. It coordinates the
// primary value store and the vector index and applies namespace validation.
// Callers must pass fully resolved namespaces: identity-derived scoping is
// the transport layer's job, never inferred here.
type Store struct {
	backend  Backend
	index    IndexConfig
	embedder Embedder
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Store façade. When indexing is enabled the embedder is
// required and its output dimensionality must match the index configuration;
// a mismatch fails construction rather than poisoning the index at runtime.
func New(backend Backend, index IndexConfig, embedder Embedder, logger *slog.Logger) (*Store, error) {
	if backend == nil {
		return nil, cairnerr.New(cairnerr.CodeServerConfigInvalid, "store: backend is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if index.Enabled {
		if embedder == nil {
			return nil, cairnerr.New(cairnerr.CodeEmbeddingConfigInvalid, "store: embedder is required when indexing is enabled")
		}
		if got := embedder.Dimensions(); got != index.Dimensions {
			return nil, cairnerr.Errorf(cairnerr.CodeStoreIndexMismatch,
				"store: embedder produces %d dimensions, index configured for %d", got, index.Dimensions)
		}
	}

	return &Store{
		backend:  backend,
		index:    index,
		embedder: embedder,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// PutItem stores a value under (ns, key), replacing any prior value. When
// indexing is enabled the embedding is derived and written in the same
// atomic unit as the value: an embedding failure fails the whole put, so a
// caller never ends up with a silently un-indexed write.
func (s *Store) PutItem(ctx context.Context, ns Namespace, key string, value map[string]any) error {
	item := &Item{
		Namespace: ns,
		Key:       key,
		Value:     value,
		CreatedAt: s.now().UTC(),
		UpdatedAt: s.now().UTC(),
	}
	if err := item.Validate(); err != nil {
		return err
	}

	if !s.index.Enabled {
		return s.backend.PutIndexed(ctx, item, nil)
	}

	text, err := s.index.EmbeddableText(value)
	if err != nil {
		return err
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return cairnerr.With(err, cairnerr.FieldNamespace(ns.String()), cairnerr.FieldKey(key))
	}

	rec := &EmbeddingRecord{
		Namespace:    ns,
		Key:          key,
		Vector:       vector,
		SourceFields: s.index.Fields,
	}
	return s.backend.PutIndexed(ctx, item, rec)
}

// GetItem returns the stored item or a not-found error.
func (s *Store) GetItem(ctx context.Context, ns Namespace, key string) (*Item, error) {
	if len(ns) == 0 {
		return nil, cairnerr.New(cairnerr.CodeStoreNamespaceInvalid, "namespace is required")
	}
	if key == "" {
		return nil, cairnerr.New(cairnerr.CodeStoreKeyInvalid, "key is required")
	}
	return s.backend.Items().Get(ctx, ns, key)
}

// DeleteItem removes the item and any derived embedding record. Idempotent:
// deleting an absent identity succeeds.
func (s *Store) DeleteItem(ctx context.Context, ns Namespace, key string) error {
	if len(ns) == 0 {
		return cairnerr.New(cairnerr.CodeStoreNamespaceInvalid, "namespace is required")
	}
	if key == "" {
		return cairnerr.New(cairnerr.CodeStoreKeyInvalid, "key is required")
	}
	return s.backend.DeleteIndexed(ctx, ns, key)
}

// SearchItems lists items under the namespace prefix. With no query (or with
// indexing disabled) it pages lexically over the prefix and total is the
// exact count of matching items. With a query and indexing enabled it ranks
// by similarity to the embedded query; total is then the size of the ranked
// candidate set for the requested page window, because similarity ranking
// has no stable universe size independent of limit.
func (s *Store) SearchItems(ctx context.Context, prefix Namespace, query string, opts SearchOpts) ([]*Item, int64, error) {
	if len(prefix) == 0 {
		return nil, 0, cairnerr.New(cairnerr.CodeStoreNamespaceInvalid, "namespace prefix is required")
	}

	opts, err := opts.Normalize()
	if err != nil {
		return nil, 0, err
	}

	if query == "" || !s.index.Enabled {
		return s.backend.Items().SearchByPrefix(ctx, prefix, opts)
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, 0, cairnerr.With(err, cairnerr.FieldNamespace(prefix.String()))
	}

	matches, err := s.backend.Vectors().Nearest(ctx, prefix, vector, opts)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*Item, 0, len(matches))
	for _, m := range matches {
		item, err := s.backend.Items().Get(ctx, m.Namespace, m.Key)
		if err != nil {
			if errors.Is(err, ErrNotFound) || cairnerr.IsNotFound(err) {
				// Vector hit without a backing item: residue of a prior
				// partial failure. Skip it and surface via logs, never to
				// the caller.
				s.logger.Warn("skipping orphaned vector index entry",
					"namespace", m.Namespace.String(),
					"key", m.Key,
				)
				continue
			}
			return nil, 0, err
		}
		items = append(items, item)
	}

	return items, int64(len(matches)), nil
}

// IndexingEnabled reports whether this store derives embeddings on put.
func (s *Store) IndexingEnabled() bool {
	return s.index.Enabled
}

// Close releases the underlying backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
