// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package embedding

import (
	"github.com/cairn-dev/cairn/internal/embedding/google"
	"github.com/cairn-dev/cairn/internal/embedding/openai"
	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

// NewProvider constructs the configured embedding provider. This is the only
// place provider identity is examined.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "openai", "":
		return openai.New(openai.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	case "google":
		return google.New(google.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
	default:
		return nil, cairnerr.Errorf(cairnerr.CodeEmbeddingProviderUnsupported,
			"unsupported embedding provider: %q", cfg.Provider)
	}
}
