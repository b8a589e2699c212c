// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package store

import (
	"time"

	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

// Pagination bounds for search operations.
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

// Item is the unit of storage: one (namespace, key) → value record.
// An Item is created or fully replaced on put; there is no partial merge.
type Item struct {
	Namespace Namespace
	Key       string
	Value     map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks that the Item has a well-formed identity and a value.
func (it Item) Validate() error {
	if len(it.Namespace) == 0 {
		return cairnerr.New(cairnerr.CodeStoreNamespaceInvalid, "item: namespace is required")
	}
	if it.Key == "" {
		return cairnerr.New(cairnerr.CodeStoreKeyInvalid, "item: key is required")
	}
	if it.Value == nil {
		return cairnerr.New(cairnerr.CodeStoreKeyInvalid, "item: value is required")
	}
	return nil
}

// EmbeddingRecord is the vector derived from an Item when indexing is
// enabled. It has no independent lifetime: it is replaced on re-put and
// removed when its source Item is deleted.
type EmbeddingRecord struct {
	Namespace    Namespace
	Key          string
	Vector       []float32
	SourceFields []string
}

// VectorMatch is one ranked candidate from a nearest-neighbor search.
// Score is cosine similarity: higher = more similar.
type VectorMatch struct {
	Namespace Namespace
	Key       string
	Score     float64
}

// SearchOpts provides pagination parameters for search operations.
type SearchOpts struct {
	Limit  int
	Offset int
}

// Normalize applies the default limit and validates bounds. Limits above
// MaxSearchLimit are rejected, not clamped, so a caller's perceived page
// size is never silently wrong.
func (o SearchOpts) Normalize() (SearchOpts, error) {
	if o.Limit == 0 {
		o.Limit = DefaultSearchLimit
	}
	if o.Limit < 0 {
		return SearchOpts{}, cairnerr.Errorf(cairnerr.CodeStoreSearchInvalid, "limit must be positive, got %d", o.Limit)
	}
	if o.Limit > MaxSearchLimit {
		return SearchOpts{}, cairnerr.Errorf(cairnerr.CodeStoreSearchInvalid, "limit %d exceeds maximum %d", o.Limit, MaxSearchLimit)
	}
	if o.Offset < 0 {
		return SearchOpts{}, cairnerr.Errorf(cairnerr.CodeStoreSearchInvalid, "offset must be >= 0, got %d", o.Offset)
	}
	return o, nil
}
