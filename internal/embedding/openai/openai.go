// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package openai

import (
	"context"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

// Default model when none is configured.
const defaultModel = "text-embedding-3-small"

// modelDimensions maps known embedding models to their native output length.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config holds OpenAI embedding provider configuration.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string // optional, useful for testing against a mock server
	Dimensions int    // optional dimension reduction; 0 uses the model's native size
}

// Provider implements the embedding provider interface using the OpenAI
// Embeddings API.
type Provider struct {
	client     openaisdk.Client
	model      string
	dimensions int
}

// New creates a new OpenAI embedding provider. Returns an error if the API
// key is missing.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, cairnerr.New(cairnerr.CodeEmbeddingConfigInvalid, "openai: missing api_key in config", cairnerr.FieldProvider("openai"))
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	dims := cfg.Dimensions
	if dims == 0 {
		native, ok := modelDimensions[model]
		if !ok {
			return nil, cairnerr.Errorf(cairnerr.CodeEmbeddingConfigInvalid,
				"openai: unknown model %q requires explicit dimensions", model)
		}
		dims = native
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Provider{
		client:     openaisdk.NewClient(opts...),
		model:      model,
		dimensions: dims,
	}, nil
}

func (p *Provider) Name() string { return "openai" }

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

	params := openaisdk.EmbeddingNewParams{
		Input:          openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:          openaisdk.EmbeddingModel(p.model),
		EncodingFormat: openaisdk.EmbeddingNewParamsEncodingFormatFloat,
	}
	// text-embedding-3 models support server-side dimension reduction.
	if native, ok := modelDimensions[p.model]; !ok || native != p.dimensions {
		params.Dimensions = openaisdk.Int(int64(p.dimensions))
	}

	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, cairnerr.Wrapf(err, cairnerr.CodeEmbeddingUpstreamFailure,
			"openai: embedding %d texts with %s", len(texts), p.model)
	}

	if len(resp.Data) != len(texts) {
		return nil, cairnerr.Errorf(cairnerr.CodeEmbeddingResponseInvalid,
			"openai: got %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(vectors) {
			return nil, cairnerr.Errorf(cairnerr.CodeEmbeddingResponseInvalid,
				"openai: embedding index %d out of range", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		vectors[d.Index] = vec
	}
	return vectors, nil
}

// Close is a no-op; the client holds no persistent connections.
func (p *Provider) Close() error { return nil }
