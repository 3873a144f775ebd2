// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/civitas/internal/config"
	"github.com/tomtom215/civitas/internal/logging"
	"github.com/tomtom215/civitas/internal/supervisor"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Civitas with supervisor tree")
	logging.Info().
		Str("store", cfg.Store.Driver).
		Str("events", cfg.Events.Transport).
		Str("navigation_store", cfg.Navigation.Store).
		Str("auth_mode", cfg.Security.AuthMode).
		Str("environment", cfg.Server.Environment).
		Msg("Configuration loaded")

	if cfg.Security.AuthMode == "none" {
		logging.Warn().Msg("Authentication is DISABLED (auth_mode=none). Callers are identified by header only.")
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED")
	}
	for _, origin := range cfg.Security.CORSOrigins {
		if origin == "*" {
			logging.Warn().Msg("CORS allows any origin (cors_origins=*). Set explicit origins in production.")
			break
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logging.Logger()
	app, err := wire(ctx, cfg, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize components")
	}
	logging.Info().
		Int("dimensions", app.resolver.Dimensions()).
		Str("embedding_chain", app.resolver.Chain()).
		Msg("Components initialized")

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(cfg.Supervisor))
	if err != nil {
		_ = app.close()
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	app.supervise(tree, cfg, logger)

	logging.Info().Str("addr", app.server.Addr).Msg("Supervisor tree starting")
	errCh := tree.ServeBackground(ctx)

	exitCode := 0
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received")
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree stopped with error")
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree terminated")
			exitCode = 1
		}
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within timeout")
		}
	}

	if err := app.close(); err != nil {
		logging.Error().Err(err).Msg("Error releasing resources")
	}
	logging.Info().Msg("Civitas stopped")
	if exitCode != 0 {
		stop()
		os.Exit(exitCode) //nolint:gocritic // stop already called
	}
}
