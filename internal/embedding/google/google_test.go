// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package google_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairn-dev/cairn/internal/embedding/google"
	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

func TestNew_MissingAPIKey(t *testing.T) {
	_, err := google.New(google.Config{})
	require.Error(t, err)
	assert.True(t, cairnerr.HasCode(err, cairnerr.CodeEmbeddingConfigInvalid))
}

func TestNew_Defaults(t *testing.T) {
	p, err := google.New(google.Config{APIKey: "test-key"})
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	assert.Equal(t, "google", p.Name())
	assert.Equal(t, 3072, p.Dimensions())
}

func TestNew_ExplicitDimensions(t *testing.T) {
	p, err := google.New(google.Config{APIKey: "test-key", Model: "gemini-embedding-001", Dimensions: 768})
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	assert.Equal(t, 768, p.Dimensions())
}
