// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sigil-dev/horizon/internal/config"
	"github.com/sigil-dev/horizon/internal/telemetry"
	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the horizon server",
		Long:  "Load configuration, open storage, wire the context engine and serve the HTTP API.",
		RunE:  runStart,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	v := viper.GetViper()
	if f := cmd.Flags().Lookup("listen"); f != nil && f.Changed {
		v.Set("networking.listen", f.Value.String())
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return hzerr.Wrap(err, hzerr.CodeCLISetupFailure, "loading config")
	}

	level := cfg.Logging.Level
	if v.GetBool("verbose") {
		level = "debug"
	}
	logger, err := telemetry.NewLogger(level, cfg.Logging.Format, cmd.ErrOrStderr())
	if err != nil {
		return hzerr.Wrap(err, hzerr.CodeCLISetupFailure, "creating logger")
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TracingConfig{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("flushing traces failed", "error", err)
		}
	}()

	svc, err := WireService(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("closing storage failed", "error", err)
		}
	}()

	logger.Info("starting horizon", "listen", cfg.Networking.Listen, "version", version)
	return svc.Start(ctx)
}
