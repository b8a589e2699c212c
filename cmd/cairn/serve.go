// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cairn-dev/cairn/internal/config"
	"github.com/cairn-dev/cairn/internal/secrets"
	"github.com/cairn-dev/cairn/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the cairn store daemon",
		Long:  "Load configuration, open the storage backend, and serve the store API over HTTP until interrupted.",
		RunE:  runServe,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")
	_ = viper.BindPFlag("server.listen", cmd.Flags().Lookup("listen"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath == "" {
		cfgPath = viper.ConfigFileUsed()
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	config.WarnInsecurePermissions(cfgPath)

	// Apply any flag/env overrides that Viper resolved.
	if listen := viper.GetString("server.listen"); listen != "" {
		cfg.Server.Listen = listen
	}

	st, err := buildStore(cfg, secrets.NewKeyringStore())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			slog.Warn("closing store", "error", cerr)
		}
	}()

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Server.Listen,
		CORSOrigins: cfg.Server.CORSOrigins,
		AuthTokens:  cfg.Auth.Tokens,
	})
	if err != nil {
		return err
	}
	srv.RegisterStore(st)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("cairn listening",
		"addr", cfg.Server.Listen,
		"backend", cfg.Storage.Backend,
		"indexing", st.IndexingEnabled(),
	)
	return srv.Start(ctx)
}
