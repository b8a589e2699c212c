// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairn-dev/cairn/internal/embedding/openai"
	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

func TestNew_MissingAPIKey(t *testing.T) {
	_, err := openai.New(openai.Config{})
	require.Error(t, err)
	assert.True(t, cairnerr.HasCode(err, cairnerr.CodeEmbeddingConfigInvalid))
}

func TestNew_KnownModelDefaultsDimensions(t *testing.T) {
	p, err := openai.New(openai.Config{APIKey: "sk-test", Model: "text-embedding-3-large"})
	require.NoError(t, err)
	assert.Equal(t, 3072, p.Dimensions())
}

func TestNew_UnknownModelRequiresDimensions(t *testing.T) {
	_, err := openai.New(openai.Config{APIKey: "sk-test", Model: "some-future-model"})
	require.Error(t, err)
	assert.True(t, cairnerr.HasCode(err, cairnerr.CodeEmbeddingConfigInvalid))

	p, err := openai.New(openai.Config{APIKey: "sk-test", Model: "some-future-model", Dimensions: 256})
	require.NoError(t, err)
	assert.Equal(t, 256, p.Dimensions())
}

func TestEmbedBatch_MockServer(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "/embeddings", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		inputs, _ := req["input"].([]any)

		resp := map[string]any{
			"object": "list",
			"model":  req["model"],
			"usage":  map[string]any{"prompt_tokens": 2, "total_tokens": 2},
			"data": []map[string]any{
				{"object": "embedding", "index": 1, "embedding": []float64{0, 1, 0}},
				{"object": "embedding", "index": 0, "embedding": []float64{1, 0, 0}},
			},
		}
		require.Len(t, inputs, 2)
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	p, err := openai.New(openai.Config{
		APIKey:     "sk-test",
		Model:      "text-embedding-3-small",
		BaseURL:    server.URL,
		Dimensions: 3,
	})
	require.NoError(t, err)

	vectors, err := p.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)

	// The response arrives index-shuffled; output order must follow input order.
	assert.Equal(t, []float32{1, 0, 0}, vectors[0])
	assert.Equal(t, []float32{0, 1, 0}, vectors[1])
	assert.Equal(t, "Bearer sk-test", gotAuth)
}

func TestEmbedBatch_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"object": "list",
			"model":  "text-embedding-3-small",
			"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": []float64{1, 0, 0}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	p, err := openai.New(openai.Config{APIKey: "sk-test", BaseURL: server.URL, Dimensions: 3})
	require.NoError(t, err)

	_, err = p.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.True(t, cairnerr.HasCode(err, cairnerr.CodeEmbeddingResponseInvalid))
}

func TestEmbedBatch_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid input","type":"invalid_request_error"}}`, http.StatusBadRequest)
	}))
	defer server.Close()

	p, err := openai.New(openai.Config{APIKey: "sk-test", BaseURL: server.URL, Dimensions: 3})
	require.NoError(t, err)

	_, err = p.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, cairnerr.IsUpstreamFailure(err))
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	p, err := openai.New(openai.Config{APIKey: "sk-test", Dimensions: 3})
	require.NoError(t, err)

	vectors, err := p.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}
