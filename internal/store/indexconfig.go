// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package store

import (
	"encoding/json"
	"sort"
	"strings"

	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

// WholeDocumentSelector embeds the canonical serialization of the entire value.
const WholeDocumentSelector = "$"

// IndexConfig controls semantic indexing. It is constructed once at process
// start from static configuration and never mutated afterwards.
type IndexConfig struct {
	// Enabled turns embedding derivation on for puts and semantic search.
	Enabled bool
	// Dimensions is the expected embedding vector length. Must match the
	// configured provider's output exactly; mismatches fail writes.
	Dimensions int
	// Model identifies the provider model, e.g. "openai/text-embedding-3-small".
	Model string
	// Fields are the value selectors whose text is embedded. "$" selects the
	// whole document; dotted selectors traverse nested objects.
	Fields []string
}

// NewIndexConfig validates and normalizes an IndexConfig. Field selectors are
// deduplicated and sorted so EmbeddableText output is deterministic for a
// given configuration.
func NewIndexConfig(enabled bool, dimensions int, model string, fields []string) (IndexConfig, error) {
	cfg := IndexConfig{Enabled: enabled, Dimensions: dimensions, Model: model}
	if !enabled {
		return cfg, nil
	}

	if dimensions <= 0 {
		return IndexConfig{}, cairnerr.Errorf(cairnerr.CodeStoreIndexMismatch, "index dimensions must be positive, got %d", dimensions)
	}
	if model == "" {
		return IndexConfig{}, cairnerr.New(cairnerr.CodeEmbeddingConfigInvalid, "index model is required when indexing is enabled")
	}

	if len(fields) == 0 {
		fields = []string{WholeDocumentSelector}
	}
	seen := make(map[string]struct{}, len(fields))
	normalized := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "" {
			return IndexConfig{}, cairnerr.New(cairnerr.CodeEmbeddingConfigInvalid, "index field selector must not be empty")
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		normalized = append(normalized, f)
	}
	sort.Strings(normalized)
	cfg.Fields = normalized

	return cfg, nil
}

// EmbeddableText extracts the text to embed for a value. Selected fields are
// concatenated in sorted-selector order, so repeated calls on an unchanged
// value produce byte-identical output. Missing fields contribute nothing; a
// value with no selected content yields the empty string.
func (c IndexConfig) EmbeddableText(value map[string]any) (string, error) {
	if !c.Enabled {
		return "", cairnerr.New(cairnerr.CodeEmbeddingConfigInvalid, "indexing is not enabled")
	}

	var parts []string
	for _, selector := range c.Fields {
		if selector == WholeDocumentSelector {
			text, err := canonicalJSON(value)
			if err != nil {
				return "", err
			}
			parts = append(parts, text)
			continue
		}

		field, ok := lookupField(value, selector)
		if !ok {
			continue
		}
		text, err := fieldText(field)
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}

	return strings.Join(parts, "\n"), nil
}

// lookupField resolves a dotted selector against nested maps.
func lookupField(value map[string]any, selector string) (any, bool) {
	segments := strings.Split(selector, ".")
	var current any = value
	for _, seg := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// fieldText renders a selected field: strings pass through, everything else
// serializes canonically.
func fieldText(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return canonicalJSON(v)
}

// canonicalJSON serializes deterministically: encoding/json sorts map keys,
// which is all the canonicalization JSON-compatible values need here.
func canonicalJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", cairnerr.Wrapf(err, cairnerr.CodeEmbeddingConfigInvalid, "serializing value for embedding")
	}
	return string(data), nil
}
