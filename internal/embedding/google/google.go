// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package google

import (
	"context"

	"google.golang.org/genai"

	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

// Default model when none is configured.
const defaultModel = "gemini-embedding-001"

// defaultDimensions is gemini-embedding-001's native output length.
const defaultDimensions = 3072

// Config holds Google embedding provider configuration.
type Config struct {
	APIKey     string
	Model      string
	Dimensions int // optional dimension reduction; 0 uses the model's native size
}

// Provider implements the embedding provider interface using the Google
// Gemini API.
type Provider struct {
	client     *genai.Client
	model      string
	dimensions int
}

// New creates a new Google embedding provider. Returns an error if the API
// key is missing.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, cairnerr.New(cairnerr.CodeEmbeddingConfigInvalid, "google: missing api_key in config", cairnerr.FieldProvider("google"))
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, cairnerr.Wrapf(err, cairnerr.CodeEmbeddingUpstreamFailure, "google: creating client")
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	dims := cfg.Dimensions
	if dims == 0 {
		dims = defaultDimensions
	}

	return &Provider{
		client:     client,
		model:      model,
		dimensions: dims,
	}, nil
}

func (p *Provider) Name() string { return "google" }

func (p *Provider) Dimensions() int { return p.dimensions }

// Embed maps one text to its embedding vector.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch maps each text to its vector in one API call, preserving order.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	dims := int32(p.dimensions)
	resp, err := p.client.Models.EmbedContent(ctx, p.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, cairnerr.Wrapf(err, cairnerr.CodeEmbeddingUpstreamFailure,
			"google: embedding %d texts with %s", len(texts), p.model)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, cairnerr.Errorf(cairnerr.CodeEmbeddingResponseInvalid,
			"google: got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil {
			return nil, cairnerr.Errorf(cairnerr.CodeEmbeddingResponseInvalid,
				"google: missing embedding at index %d", i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

// Close is a no-op; the client holds no persistent connections.
func (p *Provider) Close() error { return nil }
