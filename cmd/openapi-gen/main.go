// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

// Command openapi-gen writes the OpenAPI document that huma derives from the
// registered store routes. Output format follows the file extension: .yaml
// or .yml emits YAML, anything else JSON.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cairn-dev/cairn/internal/server"
	"github.com/cairn-dev/cairn/internal/store"
	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

func main() {
	outPath := "api/openapi/spec.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	spec, err := generateSpec(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, spec, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing spec: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI spec written to %s\n", outPath)
}

// generateSpec creates a server with all store routes registered and extracts
// the OpenAPI document huma generates from the Go type annotations. Handlers
// are never invoked, so a bare memory-backed façade suffices.
func generateSpec(outPath string) ([]byte, error) {
	idx, err := store.NewIndexConfig(false, 0, "", nil)
	if err != nil {
		return nil, err
	}
	st, err := store.New(store.NewMemoryBackend(0), idx, nil, slog.Default())
	if err != nil {
		return nil, cairnerr.Errorf(cairnerr.CodeCLISetupFailure, "creating store: %w", err)
	}

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	if err != nil {
		return nil, cairnerr.Errorf(cairnerr.CodeCLISetupFailure, "creating server: %w", err)
	}
	srv.RegisterStore(st)

	data, err := json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
	if err != nil {
		return nil, cairnerr.Errorf(cairnerr.CodeCLISetupFailure, "encoding spec: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(outPath))
	if ext != ".yaml" && ext != ".yml" {
		return data, nil
	}

	// Round-trip through a map so YAML output mirrors the JSON field names.
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, cairnerr.Errorf(cairnerr.CodeCLISetupFailure, "decoding spec: %w", err)
	}
	return yaml.Marshal(doc)
}
