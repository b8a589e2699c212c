// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cairn-dev/cairn/internal/config"
	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented default config file",
		RunE:  runInit,
	}

	cmd.Flags().String("path", "", "destination path (default ~/.config/cairn/cairn.yaml)")
	cmd.Flags().Bool("force", false, "overwrite an existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("path")
	force, _ := cmd.Flags().GetBool("force")

	if path == "" {
		var err error
		path, err = config.DefaultConfigPath()
		if err != nil {
			return err
		}
	}

	if _, err := os.Stat(path); err == nil && !force {
		return cairnerr.Errorf(cairnerr.CodeCLIInputInvalid,
			"config file %s already exists (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return cairnerr.Errorf(cairnerr.CodeCLISetupFailure, "creating config directory: %w", err)
	}
	if err := os.WriteFile(path, config.DefaultConfigYAML, 0o600); err != nil {
		return cairnerr.Errorf(cairnerr.CodeCLISetupFailure, "writing config: %w", err)
	}

	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", path)
	return err
}
