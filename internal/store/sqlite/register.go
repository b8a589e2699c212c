// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package sqlite

import (
	"github.com/cairn-dev/cairn/internal/store"
)

func init() {
	store.RegisterBackend("sqlite", func(cfg store.BackendConfig) (store.Backend, error) {
		return NewBackend(cfg.Path, cfg.Dimensions)
	})
}
