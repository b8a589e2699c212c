// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package store

import (
	"sync"

	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

// defaultVectorDimensions is used when no dimensionality is configured
// (matches OpenAI text-embedding-3-small).
const defaultVectorDimensions = 1536

// BackendConfig selects and parameterizes a storage backend.
type BackendConfig struct {
	Backend    string // "sqlite" (default) or "memory".
	Path       string // Data file path; ignored by the memory backend.
	Dimensions int    // Embedding dimensions; 0 uses the default.
}

// BackendFactory creates a Backend from its configuration.
type BackendFactory func(cfg BackendConfig) (Backend, error)

var (
	backendFactories = map[string]BackendFactory{}
	factoriesMu      sync.RWMutex
)

// RegisterBackend registers a factory for a named storage backend.
// Backend packages call this from init(). Goroutine-safe.
func RegisterBackend(name string, factory BackendFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	backendFactories[name] = factory
}

// Open creates the configured Backend, defaulting to "sqlite".
func Open(cfg BackendConfig) (Backend, error) {
	name := cfg.Backend
	if name == "" {
		name = "sqlite"
	}

	factoriesMu.RLock()
	factory, ok := backendFactories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, cairnerr.Errorf(cairnerr.CodeStoreBackendUnsupported, "unsupported storage backend: %q", name)
	}

	if cfg.Dimensions <= 0 {
		cfg.Dimensions = defaultVectorDimensions
	}

	return factory(cfg)
}
