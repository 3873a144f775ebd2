// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/civitas/internal/api"
	"github.com/tomtom215/civitas/internal/auth"
	"github.com/tomtom215/civitas/internal/authz"
	"github.com/tomtom215/civitas/internal/config"
	"github.com/tomtom215/civitas/internal/discovery"
	"github.com/tomtom215/civitas/internal/embedding"
	"github.com/tomtom215/civitas/internal/events"
	"github.com/tomtom215/civitas/internal/ingest"
	"github.com/tomtom215/civitas/internal/navigation"
	"github.com/tomtom215/civitas/internal/ranking"
	"github.com/tomtom215/civitas/internal/store"
	"github.com/tomtom215/civitas/internal/summarize"
	"github.com/tomtom215/civitas/internal/supervisor"
	"github.com/tomtom215/civitas/internal/supervisor/services"
	ws "github.com/tomtom215/civitas/internal/websocket"
)

// purgeBatch caps hard deletes per tombstone-purge run.
const purgeBatch = 500

// app holds every wired component. close releases them in reverse order.
type app struct {
	store     store.Store
	resolver  *embedding.Resolver
	bus       *events.Bus
	discovery *discovery.Engine
	ranking   *ranking.Engine
	navStore  navigation.StateStore
	machine   *navigation.Machine
	ingest    *ingest.Service
	hub       *ws.Hub
	enforcer  *authz.Enforcer
	handler   *api.Handler
	server    *http.Server

	closers []func() error
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func closeFunc(fn func()) func() error {
	return func() error { fn(); return nil }
}

// wire builds the component graph. On error everything opened so far is
// closed.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func wire(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (a *app, err error) {
	a = &app{}
	defer func() {
		if err != nil {
			_ = a.close()
			a = nil
		}
	}()

	if a.store, err = store.Open(ctx, cfg.Store); err != nil {
		return nil, fmt.Errorf("open content store: %w", err)
	}
	a.onClose(a.store.Close)

	if a.resolver, err = embedding.NewResolverFromConfig(cfg.Embedding); err != nil {
		return nil, fmt.Errorf("build embedding resolver: %w", err)
	}
	a.onClose(closeFunc(a.resolver.Close))

	if a.bus, err = events.Open(cfg.Events, logger); err != nil {
		return nil, fmt.Errorf("open event bus: %w", err)
	}
	a.onClose(a.bus.Close)

	opts := discovery.Options{
		Discovery:         cfg.Discovery,
		Dimensions:        a.resolver.Dimensions(),
		SummarizerTimeout: cfg.Summarizer.Timeout,
		MaxPayloadRunes:   cfg.Summarizer.MaxPayloadRunes,
	}
	if cfg.Discovery.SharedCooldown {
		gate, err := discovery.OpenRedisGate(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("open shared discovery cooldown: %w", err)
		}
		a.onClose(gate.Close)
		opts.Gate = gate
	}
	a.discovery, err = discovery.NewEngine(opts, a.store, summarize.NewClient(cfg.Summarizer), logger)
	if err != nil {
		return nil, fmt.Errorf("build discovery engine: %w", err)
	}
	a.onClose(closeFunc(a.discovery.Close))

	if a.ranking, err = ranking.NewEngine(cfg.Ranking, a.store, logger); err != nil {
		return nil, fmt.Errorf("build ranking engine: %w", err)
	}
	a.onClose(closeFunc(a.ranking.Close))

	if a.navStore, err = navigation.OpenStore(ctx, cfg.Navigation, cfg.Redis); err != nil {
		return nil, fmt.Errorf("open navigation store: %w", err)
	}
	a.onClose(a.navStore.Close)

	if a.machine, err = navigation.NewMachine(cfg.Navigation, a.discovery, a.ranking, a.store, a.navStore, logger); err != nil {
		return nil, fmt.Errorf("build navigation machine: %w", err)
	}

	a.ingest = ingest.NewService(a.store, a.resolver, a.bus, logger, ingest.Options{})
	a.ingest.Register(a.bus, a.discovery)

	a.hub = ws.NewHub(a.discovery.Trending, logger)
	a.discovery.Subscribe(a.hub)

	if a.enforcer, err = authz.NewEnforcer(authz.EnforcerConfig{PolicyPath: cfg.Security.PolicyPath}); err != nil {
		return nil, fmt.Errorf("build authorization enforcer: %w", err)
	}
	a.onClose(closeFunc(a.enforcer.Close))

	authenticator, err := auth.NewAuthenticator(cfg.Security)
	if err != nil {
		return nil, fmt.Errorf("build authenticator: %w", err)
	}
	authn := auth.NewMiddleware(authenticator, cfg.Security.DefaultRole, api.Deny)
	az := authz.NewMiddleware(a.enforcer, api.Deny)

	a.handler = api.NewHandler(a.discovery, a.machine, a.ingest, az, a.hub, api.HandlerConfig{
		TrendingCacheTTL: cfg.Server.TrendingCacheTTL,
		AllowedOrigins:   cfg.Security.CORSOrigins,
	}, a.healthChecks()...)
	a.onClose(closeFunc(a.handler.Close))

	router := api.NewRouter(a.handler, authn, az, api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(cfg.Security)))
	a.server = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}
	return a, nil
}

func (a *app) healthChecks() []api.HealthCheck {
	return []api.HealthCheck{
		{Name: "content_store", Check: a.store.Ping},
		{Name: "navigation_store", Check: func(ctx context.Context) error {
			_, _, err := a.navStore.Load(ctx, "__readiness__")
			return err
		}},
	}
}

// supervise registers every long-running service with tree.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (a *app) supervise(tree *supervisor.SupervisorTree, cfg *config.Config, logger zerolog.Logger) {
	tree.AddDataService(services.NewBackfillService(a.ingest, cfg.Embedding.BackfillInterval, cfg.Embedding.BackfillBatch, logger))
	tree.AddDataService(services.NewPurgeService(a.ingest, a.discovery.Referenced, cfg.Discovery.PurgeInterval, purgeBatch, logger))

	tree.AddMessagingService(services.NewEventBusService(a.bus))
	tree.AddMessagingService(services.NewWebSocketHubService(a.hub))
	tree.AddMessagingService(services.NewDiscoveryService(a.discovery, cfg.Discovery.Cadence, cfg.Discovery.RunOnStartup, logger))

	tree.AddAPIService(services.NewHTTPServerService(a.server, cfg.Supervisor.ShutdownTimeout))
}
