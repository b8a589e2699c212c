// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairn-dev/cairn/internal/server"
	"github.com/cairn-dev/cairn/internal/store"
)

// fakeEmbedder returns canned vectors per input text so rankings are
// deterministic without a provider round-trip.
type fakeEmbedder struct {
	dims    int
	vectors map[string][]float32
}

func (f *fakeEmbedder) Dimensions() int { return f.dims }

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	v := make([]float32, f.dims)
	v[0] = 1
	return v, nil
}

type testEnv struct {
	srv *server.Server
	st  *store.Store
}

// newTestEnv builds a server over a memory backend with indexing on the
// "text" field at 3 dimensions.
func newTestEnv(t *testing.T, tokens map[string]string) *testEnv {
	t.Helper()

	idx, err := store.NewIndexConfig(true, 3, "openai/text-embedding-3-small", []string{"text"})
	require.NoError(t, err)

	emb := &fakeEmbedder{dims: 3, vectors: map[string][]float32{
		"coffee brewing": {1, 0, 0},
		"espresso shots": {0.9, 0.1, 0},
		"tax filing":     {0, 1, 0},
		"hot drinks":     {0.95, 0.05, 0},
	}}

	st, err := store.New(store.NewMemoryBackend(3), idx, emb, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	srv, err := server.New(server.Config{
		ListenAddr: "127.0.0.1:0",
		AuthTokens: tokens,
	})
	require.NoError(t, err)
	srv.RegisterStore(st)

	return &testEnv{srv: srv, st: st}
}

// do performs a JSON request against the in-process handler.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), "body: %s", w.Body.String())
}

func TestHealth_NoAuthRequired(t *testing.T) {
	env := newTestEnv(t, map[string]string{"tok-1": "alice"})

	w := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status string `json:"status"`
	}
	decodeBody(t, w, &body)
	assert.Equal(t, "ok", body.Status)
}

func TestAuth_MissingToken(t *testing.T) {
	env := newTestEnv(t, map[string]string{"tok-1": "alice"})

	w := env.do(t, http.MethodGet, "/v1/store/items?key=k", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing bearer token")
}

func TestAuth_InvalidToken(t *testing.T) {
	env := newTestEnv(t, map[string]string{"tok-1": "alice"})

	w := env.do(t, http.MethodGet, "/v1/store/items?key=k", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid bearer token")
}

func TestAuth_DisabledRunsAsLocal(t *testing.T) {
	env := newTestEnv(t, nil)

	put := map[string]any{"key": "greeting", "value": map[string]any{"text": "hello"}}
	w := env.do(t, http.MethodPut, "/v1/store/items", "", put)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Scoped under users.local when no namespace is given.
	w = env.do(t, http.MethodGet, "/v1/store/items?key=greeting&namespace=users.local", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestPutGetDelete_Roundtrip(t *testing.T) {
	env := newTestEnv(t, map[string]string{"tok-1": "alice"})

	value := map[string]any{"text": "coffee brewing", "rating": float64(5)}
	put := map[string]any{"namespace": "users.alice.notes", "key": "note-1", "value": value}

	w := env.do(t, http.MethodPut, "/v1/store/items", "tok-1", put)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"stored"`)

	w = env.do(t, http.MethodGet, "/v1/store/items?key=note-1&namespace=users.alice.notes", "tok-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got server.ItemPayload
	decodeBody(t, w, &got)
	assert.Equal(t, "users.alice.notes", got.Namespace)
	assert.Equal(t, "note-1", got.Key)
	assert.Equal(t, value, got.Value)
	assert.False(t, got.CreatedAt.IsZero())

	del := map[string]any{"namespace": "users.alice.notes", "key": "note-1"}
	w = env.do(t, http.MethodDelete, "/v1/store/items", "tok-1", del)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"deleted"`)

	w = env.do(t, http.MethodGet, "/v1/store/items?key=note-1&namespace=users.alice.notes", "tok-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Deleting again still succeeds.
	w = env.do(t, http.MethodDelete, "/v1/store/items", "tok-1", del)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPut_DefaultNamespaceScoping(t *testing.T) {
	env := newTestEnv(t, map[string]string{"tok-1": "alice"})

	put := map[string]any{"key": "prefs", "value": map[string]any{"text": "dark mode"}}
	w := env.do(t, http.MethodPut, "/v1/store/items", "tok-1", put)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/v1/store/items?key=prefs&namespace=users.alice", "tok-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got server.ItemPayload
	decodeBody(t, w, &got)
	assert.Equal(t, "users.alice", got.Namespace)
}

func TestPut_InvalidNamespace(t *testing.T) {
	env := newTestEnv(t, map[string]string{"tok-1": "alice"})

	put := map[string]any{"namespace": "users..alice", "key": "k", "value": map[string]any{"text": "x"}}
	w := env.do(t, http.MethodPut, "/v1/store/items", "tok-1", put)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestPut_MissingKeyRejected(t *testing.T) {
	env := newTestEnv(t, map[string]string{"tok-1": "alice"})

	put := map[string]any{"namespace": "users.alice", "value": map[string]any{"text": "x"}}
	w := env.do(t, http.MethodPut, "/v1/store/items", "tok-1", put)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
}

func TestDelete_MissingKeyRejected(t *testing.T) {
	env := newTestEnv(t, map[string]string{"tok-1": "alice"})

	w := env.do(t, http.MethodDelete, "/v1/store/items", "tok-1", map[string]any{"namespace": "users.alice"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
}

func TestSearch_LexicalListing(t *testing.T) {
	env := newTestEnv(t, map[string]string{"tok-1": "alice"})

	for i := range 5 {
		put := map[string]any{
			"namespace": "users.alice.notes",
			"key":       fmt.Sprintf("note-%d", i),
			"value":     map[string]any{"text": "hot drinks"},
		}
		w := env.do(t, http.MethodPut, "/v1/store/items", "tok-1", put)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	// Sibling namespace must not leak into the prefix listing.
	put := map[string]any{"namespace": "users.bob.notes", "key": "note-0", "value": map[string]any{"text": "hot drinks"}}
	w := env.do(t, http.MethodPut, "/v1/store/items", "tok-1", put)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	search := map[string]any{"namespace_prefix": "users.alice", "limit": 2, "offset": 2}
	w = env.do(t, http.MethodPost, "/v1/store/items/search", "tok-1", search)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Items  []server.ItemPayload `json:"items"`
		Total  int64                `json:"total"`
		Limit  int                  `json:"limit"`
		Offset int                  `json:"offset"`
	}
	decodeBody(t, w, &body)
	assert.Equal(t, int64(5), body.Total)
	assert.Equal(t, 2, body.Limit)
	assert.Equal(t, 2, body.Offset)
	require.Len(t, body.Items, 2)
	assert.Equal(t, "note-2", body.Items[0].Key)
	assert.Equal(t, "note-3", body.Items[1].Key)
}

func TestSearch_DefaultLimitEchoed(t *testing.T) {
	env := newTestEnv(t, map[string]string{"tok-1": "alice"})

	search := map[string]any{"namespace_prefix": "users.alice"}
	w := env.do(t, http.MethodPost, "/v1/store/items/search", "tok-1", search)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Limit int `json:"limit"`
	}
	decodeBody(t, w, &body)
	assert.Equal(t, store.DefaultSearchLimit, body.Limit)
}

func TestSearch_LimitOverMaxRejected(t *testing.T) {
	env := newTestEnv(t, map[string]string{"tok-1": "alice"})

	search := map[string]any{"namespace_prefix": "users.alice", "limit": 101}
	w := env.do(t, http.MethodPost, "/v1/store/items/search", "tok-1", search)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
}

func TestSearch_Semantic(t *testing.T) {
	env := newTestEnv(t, map[string]string{"tok-1": "alice"})

	puts := []struct {
		key, text string
	}{
		{"coffee", "coffee brewing"},
		{"espresso", "espresso shots"},
		{"taxes", "tax filing"},
	}
	for _, p := range puts {
		put := map[string]any{
			"namespace": "users.alice.notes",
			"key":       p.key,
			"value":     map[string]any{"text": p.text},
		}
		w := env.do(t, http.MethodPut, "/v1/store/items", "tok-1", put)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	search := map[string]any{"namespace_prefix": "users.alice", "query": "hot drinks", "limit": 2}
	w := env.do(t, http.MethodPost, "/v1/store/items/search", "tok-1", search)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Items []server.ItemPayload `json:"items"`
		Total int64                `json:"total"`
	}
	decodeBody(t, w, &body)
	require.Len(t, body.Items, 2)
	assert.Equal(t, "coffee", body.Items[0].Key)
	assert.Equal(t, "espresso", body.Items[1].Key)
	assert.Equal(t, int64(2), body.Total)
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/health", "", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", rec.Header().Get("X-Request-ID"))
}

func TestNew_RequiresListenAddr(t *testing.T) {
	_, err := server.New(server.Config{})
	require.Error(t, err)
}
