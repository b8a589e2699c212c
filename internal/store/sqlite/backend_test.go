// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairn-dev/cairn/internal/store"
	"github.com/cairn-dev/cairn/internal/store/sqlite"
	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

func newTestBackend(t *testing.T, dimensions int) *sqlite.Backend {
	t.Helper()
	backend, err := sqlite.NewBackend(filepath.Join(t.TempDir(), "cairn.db"), dimensions)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return backend
}

func mustNS(t *testing.T, s string) store.Namespace {
	t.Helper()
	ns, err := store.ParseNamespaceString(s)
	require.NoError(t, err)
	return ns
}

func newItem(t *testing.T, ns, key string, value map[string]any) *store.Item {
	t.Helper()
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	return &store.Item{
		Namespace: mustNS(t, ns),
		Key:       key,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestBackend_PutIndexedAtomicLifecycle(t *testing.T) {
	backend := newTestBackend(t, 3)
	ctx := context.Background()
	ns := mustNS(t, "users.alice")

	item := newItem(t, "users.alice", "k", map[string]any{"text": "coffee"})
	rec := &store.EmbeddingRecord{Namespace: ns, Key: "k", Vector: []float32{1, 0, 0}}
	require.NoError(t, backend.PutIndexed(ctx, item, rec))

	got, err := backend.Items().Get(ctx, ns, "k")
	require.NoError(t, err)
	assert.Equal(t, item.Value, got.Value)

	matches, err := backend.Vectors().Nearest(ctx, ns, []float32{1, 0, 0}, store.SearchOpts{Limit: 10})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "k", matches[0].Key)

	// A nil record clears any stale vector while keeping the value.
	require.NoError(t, backend.PutIndexed(ctx, item, nil))
	matches, err = backend.Vectors().Nearest(ctx, ns, []float32{1, 0, 0}, store.SearchOpts{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, matches)

	_, err = backend.Items().Get(ctx, ns, "k")
	require.NoError(t, err)
}

func TestBackend_DeleteIndexed(t *testing.T) {
	backend := newTestBackend(t, 3)
	ctx := context.Background()
	ns := mustNS(t, "users.alice")

	item := newItem(t, "users.alice", "k", map[string]any{"text": "coffee"})
	rec := &store.EmbeddingRecord{Namespace: ns, Key: "k", Vector: []float32{0, 1, 0}}
	require.NoError(t, backend.PutIndexed(ctx, item, rec))

	require.NoError(t, backend.DeleteIndexed(ctx, ns, "k"))

	_, err := backend.Items().Get(ctx, ns, "k")
	assert.True(t, cairnerr.IsNotFound(err))

	matches, err := backend.Vectors().Nearest(ctx, ns, []float32{0, 1, 0}, store.SearchOpts{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, matches)

	// Idempotent.
	require.NoError(t, backend.DeleteIndexed(ctx, ns, "k"))
}

func TestBackend_ReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cairn.db")
	ctx := context.Background()
	ns := mustNS(t, "users.alice")

	backend, err := sqlite.NewBackend(path, 3)
	require.NoError(t, err)

	item := newItem(t, "users.alice", "k", map[string]any{"v": "persisted"})
	rec := &store.EmbeddingRecord{Namespace: ns, Key: "k", Vector: []float32{1, 0, 0}}
	require.NoError(t, backend.PutIndexed(ctx, item, rec))
	require.NoError(t, backend.Close())

	reopened, err := sqlite.NewBackend(path, 3)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Items().Get(ctx, ns, "k")
	require.NoError(t, err)
	assert.Equal(t, item.Value, got.Value)

	matches, err := reopened.Vectors().Nearest(ctx, ns, []float32{1, 0, 0}, store.SearchOpts{Limit: 10})
	require.NoError(t, err)
	require.Len(t, matches, 1)
}
