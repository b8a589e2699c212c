// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package embedding_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairn-dev/cairn/internal/embedding"
	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

func TestNewProvider_Unsupported(t *testing.T) {
	_, err := embedding.NewProvider(embedding.Config{Provider: "cohere", APIKey: "k"})
	require.Error(t, err)
	assert.True(t, cairnerr.HasCode(err, cairnerr.CodeEmbeddingProviderUnsupported))
}

func TestNewProvider_OpenAI(t *testing.T) {
	p, err := embedding.NewProvider(embedding.Config{
		Provider: "openai",
		Model:    "text-embedding-3-small",
		APIKey:   "sk-test",
	})
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, 1536, p.Dimensions())
}

func TestNewProvider_EmptyDefaultsToOpenAI(t *testing.T) {
	p, err := embedding.NewProvider(embedding.Config{APIKey: "sk-test"})
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	assert.Equal(t, "openai", p.Name())
}

func TestNewProvider_MissingKey(t *testing.T) {
	for _, provider := range []string{"openai", "google"} {
		_, err := embedding.NewProvider(embedding.Config{Provider: provider})
		require.Error(t, err, provider)
		assert.True(t, cairnerr.HasCode(err, cairnerr.CodeEmbeddingConfigInvalid), provider)
	}
}
