// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

// Package embedding abstracts external embedding models behind one
// capability interface. The core never branches on provider identity beyond
// selecting which implementation to construct.
package embedding

import (
	"context"
)

// Provider is the core interface for embedding providers.
type Provider interface {
	Name() string

	// Dimensions is the fixed output vector length for the configured model.
	Dimensions() int

	// Embed maps text to a vector of exactly Dimensions() length.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch maps each text to its vector, preserving order. Used to
	// amortize round-trips on bulk writes; not required for correctness.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	Close() error
}

// Config selects and parameterizes a provider.
type Config struct {
	// Provider is "openai" or "google".
	Provider string
	// Model is the provider's embedding model ID.
	Model string
	// APIKey authenticates against the provider.
	APIKey string
	// BaseURL overrides the provider endpoint; useful for testing against a
	// mock server. Only honored by providers that support it.
	BaseURL string
	// Dimensions is the expected output dimensionality. Providers that
	// support dimension reduction request it; all output is verified
	// against it by the Adapter regardless.
	Dimensions int
}
