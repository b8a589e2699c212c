// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package embedding

import (
	"context"
	"errors"
	"time"

	"github.com/cairn-dev/cairn/internal/store"
	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
	"github.com/cairn-dev/cairn/pkg/health"
)

// DefaultTimeout bounds a single provider call. The embedding call is the
// dominant latency source in a put, so it never runs unbounded.
const DefaultTimeout = 10 * time.Second

// Compile-time interface check.
var _ store.Embedder = (*Adapter)(nil)

// Adapter wraps a Provider with a per-call timeout and strict output
// dimension enforcement. A mismatched-length response is a hard failure —
// never truncated or padded — so a dimension-confused provider can never
// poison the index.
type Adapter struct {
	provider   Provider
	dimensions int
	timeout    time.Duration
	health     *health.Tracker
}

// NewAdapter creates an Adapter expecting the given dimensionality.
// A zero timeout uses DefaultTimeout.
func NewAdapter(provider Provider, dimensions int, timeout time.Duration) (*Adapter, error) {
	if provider == nil {
		return nil, cairnerr.New(cairnerr.CodeEmbeddingConfigInvalid, "embedding adapter: provider is required")
	}
	if dimensions <= 0 {
		return nil, cairnerr.Errorf(cairnerr.CodeEmbeddingConfigInvalid, "embedding adapter: dimensions must be positive, got %d", dimensions)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Adapter{
		provider:   provider,
		dimensions: dimensions,
		timeout:    timeout,
		health:     health.NewTracker(0),
	}, nil
}

// Dimensions returns the enforced output vector length.
func (a *Adapter) Dimensions() int { return a.dimensions }

// Embed calls the provider under the adapter timeout and verifies the
// output length. Timeout expiry is classified as a transient provider
// error; callers decide retry policy.
func (a *Adapter) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	vector, err := a.provider.Embed(ctx, text)
	if err != nil {
		a.health.RecordFailure()
		return nil, a.classify(err)
	}
	a.health.RecordSuccess()

	if len(vector) != a.dimensions {
		return nil, cairnerr.Errorf(cairnerr.CodeEmbeddingResponseInvalid,
			"provider %s returned %d dimensions, expected %d", a.provider.Name(), len(vector), a.dimensions)
	}
	return vector, nil
}

// EmbedBatch is the batch form of Embed with the same contract per element.
func (a *Adapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	vectors, err := a.provider.EmbedBatch(ctx, texts)
	if err != nil {
		a.health.RecordFailure()
		return nil, a.classify(err)
	}
	a.health.RecordSuccess()

	if len(vectors) != len(texts) {
		return nil, cairnerr.Errorf(cairnerr.CodeEmbeddingResponseInvalid,
			"provider %s returned %d vectors for %d texts", a.provider.Name(), len(vectors), len(texts))
	}
	for i, vector := range vectors {
		if len(vector) != a.dimensions {
			return nil, cairnerr.Errorf(cairnerr.CodeEmbeddingResponseInvalid,
				"provider %s returned %d dimensions at index %d, expected %d", a.provider.Name(), len(vector), i, a.dimensions)
		}
	}
	return vectors, nil
}

// Health reports the provider's current availability metrics.
func (a *Adapter) Health() health.Metrics {
	return a.health.Snapshot()
}

// Close releases the underlying provider.
func (a *Adapter) Close() error {
	return a.provider.Close()
}

func (a *Adapter) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return cairnerr.Wrapf(err, cairnerr.CodeEmbeddingTimeout,
			"provider %s timed out after %s", a.provider.Name(), a.timeout)
	}
	if cairnerr.CodeOf(err) != "" {
		return err
	}
	return cairnerr.Wrapf(err, cairnerr.CodeEmbeddingUpstreamFailure,
		"provider %s", a.provider.Name())
}
