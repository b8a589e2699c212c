// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package store

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

func init() {
	RegisterBackend("memory", func(cfg BackendConfig) (Backend, error) {
		return NewMemoryBackend(cfg.Dimensions), nil
	})
}

// Compile-time interface checks.
var (
	_ Backend     = (*MemoryBackend)(nil)
	_ ItemStore   = (*memoryItems)(nil)
	_ VectorIndex = (*memoryVectors)(nil)
)

// MemoryBackend keeps items and vectors in process memory. Similarity search
// is an exact brute-force cosine scan, which makes it the reference backend
// for tests and fine for small ephemeral deployments.
type MemoryBackend struct {
	mu         sync.RWMutex
	items      map[string]*Item // keyed by identity (encoded ns + key)
	vectors    map[string][]float32
	dimensions int
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend(dimensions int) *MemoryBackend {
	return &MemoryBackend{
		items:      make(map[string]*Item),
		vectors:    make(map[string][]float32),
		dimensions: dimensions,
	}
}

func (b *MemoryBackend) Items() ItemStore     { return (*memoryItems)(b) }
func (b *MemoryBackend) Vectors() VectorIndex { return (*memoryVectors)(b) }

func (b *MemoryBackend) PutIndexed(_ context.Context, item *Item, rec *EmbeddingRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := identityKey(item.Namespace, item.Key)
	b.putItemLocked(id, item)
	if rec != nil {
		b.vectors[id] = append([]float32(nil), rec.Vector...)
	} else {
		delete(b.vectors, id)
	}
	return nil
}

func (b *MemoryBackend) DeleteIndexed(_ context.Context, ns Namespace, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := identityKey(ns, key)
	delete(b.items, id)
	delete(b.vectors, id)
	return nil
}

func (b *MemoryBackend) Close() error { return nil }

// putItemLocked upserts preserving CreatedAt, mirroring the durable backends.
func (b *MemoryBackend) putItemLocked(id string, item *Item) {
	stored := &Item{
		Namespace: item.Namespace,
		Key:       item.Key,
		Value:     item.Value,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
	if prev, ok := b.items[id]; ok {
		stored.CreatedAt = prev.CreatedAt
	}
	b.items[id] = stored
}

// identityKey encodes (namespace, key) into one map key. The U+001F join is
// unambiguous because segments cannot contain it.
func identityKey(ns Namespace, key string) string {
	return ns.Encode() + nsSeparator + key
}

// --- ItemStore ---

type memoryItems MemoryBackend

func (m *memoryItems) Put(_ context.Context, item *Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backend().putItemLocked(identityKey(item.Namespace, item.Key), item)
	return nil
}

func (m *memoryItems) Get(_ context.Context, ns Namespace, key string) (*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[identityKey(ns, key)]
	if !ok {
		return nil, cairnerr.Wrapf(ErrNotFound, cairnerr.CodeStoreItemNotFound,
			"item %s/%s", ns.String(), key)
	}
	return item, nil
}

func (m *memoryItems) Delete(_ context.Context, ns Namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, identityKey(ns, key))
	return nil
}

func (m *memoryItems) SearchByPrefix(_ context.Context, prefix Namespace, opts SearchOpts) ([]*Item, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*Item
	for _, item := range m.items {
		if prefix.IsPrefixOf(item.Namespace) {
			matched = append(matched, item)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if c := matched[i].Namespace.Compare(matched[j].Namespace); c != 0 {
			return c < 0
		}
		return matched[i].Key < matched[j].Key
	})

	total := int64(len(matched))
	return page(matched, opts), total, nil
}

func (m *memoryItems) Close() error { return nil }

func (m *memoryItems) backend() *MemoryBackend { return (*MemoryBackend)(m) }

// --- VectorIndex ---

type memoryVectors MemoryBackend

func (m *memoryVectors) Upsert(_ context.Context, ns Namespace, key string, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors[identityKey(ns, key)] = append([]float32(nil), vector...)
	return nil
}

func (m *memoryVectors) Remove(_ context.Context, ns Namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vectors, identityKey(ns, key))
	return nil
}

func (m *memoryVectors) Nearest(_ context.Context, prefix Namespace, query []float32, opts SearchOpts) ([]VectorMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []VectorMatch
	for id, vec := range m.vectors {
		ns, key, err := splitIdentityKey(id)
		if err != nil {
			return nil, err
		}
		if !prefix.IsPrefixOf(ns) {
			continue
		}
		if len(vec) != len(query) {
			return nil, cairnerr.Errorf(cairnerr.CodeStoreIndexMismatch,
				"stored vector for %s/%s has %d dimensions, query has %d", ns.String(), key, len(vec), len(query))
		}
		matches = append(matches, VectorMatch{
			Namespace: ns,
			Key:       key,
			Score:     cosineSimilarity(query, vec),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if c := matches[i].Namespace.Compare(matches[j].Namespace); c != 0 {
			return c < 0
		}
		return matches[i].Key < matches[j].Key
	})

	return page(matches, opts), nil
}

func (m *memoryVectors) Close() error { return nil }

// page applies offset/limit with an empty remainder past the end.
func page[T any](all []T, opts SearchOpts) []T {
	if opts.Offset >= len(all) {
		return nil
	}
	end := opts.Offset + opts.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[opts.Offset:end]
}

func splitIdentityKey(id string) (Namespace, string, error) {
	idx := strings.LastIndex(id, nsSeparator)
	if idx < 0 {
		return nil, "", cairnerr.Errorf(cairnerr.CodeStoreDatabaseFailure, "malformed identity key %q", id)
	}
	ns, err := DecodeNamespace(id[:idx])
	if err != nil {
		return nil, "", err
	}
	return ns, id[idx+1:], nil
}

// cosineSimilarity ranks candidates; zero-magnitude vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
