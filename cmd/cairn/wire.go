// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cairn-dev/cairn/internal/config"
	"github.com/cairn-dev/cairn/internal/embedding"
	"github.com/cairn-dev/cairn/internal/secrets"
	"github.com/cairn-dev/cairn/internal/store"
	cairnerr "github.com/cairn-dev/cairn/pkg/errors"

	// Registers the sqlite backend.
	_ "github.com/cairn-dev/cairn/internal/store/sqlite"
)

// buildStore assembles the store façade from configuration: storage backend,
// index configuration, and (when indexing is enabled) the embedding provider
// behind its dimension-enforcing adapter.
func buildStore(cfg *config.Config, sec secrets.Store) (*store.Store, error) {
	idx, err := store.NewIndexConfig(cfg.Index.Enabled, cfg.Index.Dimensions, cfg.Index.Model, cfg.Index.Fields)
	if err != nil {
		return nil, err
	}

	path := cfg.Storage.Path
	if path == "" && cfg.Storage.Backend != "memory" {
		path, err = config.DefaultDataPath()
		if err != nil {
			return nil, err
		}
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, cairnerr.Wrapf(err, cairnerr.CodeStoreDatabaseFailure, "creating data directory for %s", path)
		}
	}

	backend, err := store.Open(store.BackendConfig{
		Backend:    cfg.Storage.Backend,
		Path:       path,
		Dimensions: cfg.Index.Dimensions,
	})
	if err != nil {
		return nil, err
	}

	var embedder store.Embedder
	if cfg.Index.Enabled {
		embedder, err = buildEmbedder(cfg, sec)
		if err != nil {
			_ = backend.Close()
			return nil, err
		}
	}

	return store.New(backend, idx, embedder, slog.Default())
}

// buildEmbedder resolves provider credentials (including keyring:// URIs)
// and wraps the provider in the timeout/dimension adapter.
func buildEmbedder(cfg *config.Config, sec secrets.Store) (store.Embedder, error) {
	providerName := config.ProviderFromModel(cfg.Index.Model)
	pc, ok := cfg.Providers[providerName]
	if !ok {
		return nil, cairnerr.Errorf(cairnerr.CodeEmbeddingConfigInvalid,
			"no credentials configured for provider %q", providerName)
	}

	apiKey, err := secrets.ResolveKeyringURI(sec, pc.APIKey)
	if err != nil {
		return nil, err
	}

	provider, err := embedding.NewProvider(embedding.Config{
		Provider:   providerName,
		Model:      config.ModelID(cfg.Index.Model),
		APIKey:     apiKey,
		BaseURL:    pc.Endpoint,
		Dimensions: cfg.Index.Dimensions,
	})
	if err != nil {
		return nil, err
	}

	return embedding.NewAdapter(provider, cfg.Index.Dimensions, time.Duration(cfg.Index.TimeoutSeconds)*time.Second)
}
