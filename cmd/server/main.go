// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/trailmark/internal/activity"
	"github.com/tomtom215/trailmark/internal/annotations"
	"github.com/tomtom215/trailmark/internal/api"
	"github.com/tomtom215/trailmark/internal/auth"
	"github.com/tomtom215/trailmark/internal/authz"
	"github.com/tomtom215/trailmark/internal/cache"
	"github.com/tomtom215/trailmark/internal/config"
	"github.com/tomtom215/trailmark/internal/database"
	"github.com/tomtom215/trailmark/internal/flags"
	"github.com/tomtom215/trailmark/internal/insights"
	"github.com/tomtom215/trailmark/internal/logging"
	"github.com/tomtom215/trailmark/internal/middleware"
	"github.com/tomtom215/trailmark/internal/organizations"
	"github.com/tomtom215/trailmark/internal/sessions"
	"github.com/tomtom215/trailmark/internal/supervisor"
	"github.com/tomtom215/trailmark/internal/supervisor/services"
	ws "github.com/tomtom215/trailmark/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

//nolint:gocyclo // sequential wiring
func run(cfg *config.Config) error {
	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Str("events_transport", cfg.Events.Transport).
		Bool("cloud", cfg.Flags.Cloud).
		Msg("Configuration loaded")

	db, err := database.New(&cfg.Database, database.WithBackfillChunkSize(cfg.Insights.BackfillChunkSize))
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Activity bus. A broken bus disables reporting instead of the server.
	var reporter *activity.Reporter
	bus, err := activity.NewBus(&cfg.Events)
	if err != nil {
		logging.Warn().Err(err).Msg("Activity bus unavailable, user action reporting disabled")
	} else {
		defer func() {
			if err := bus.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing activity bus")
			}
		}()
		reporter = activity.NewReporter(bus.Publisher, cfg.Events.Topic)
	}

	// Feature flags.
	evaluator := flags.NewEvaluator()
	source, defCache, err := flagSource(&cfg.Flags)
	if err != nil {
		return err
	}
	if defCache != nil {
		defer func() {
			if err := defCache.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing flag definition cache")
			}
		}()
	}
	poller := flags.NewPoller(source, evaluator, cfg.Flags.PollInterval)
	if err := poller.Refresh(ctx); err != nil {
		logging.Warn().Err(err).Msg("Initial flag load failed, gates stay closed until the next poll")
	}
	gate := flags.NewGate(cfg.Flags, evaluator)

	// Authentication and authorization.
	mode, err := auth.ParseAuthMode(cfg.Security.AuthMode)
	if err != nil {
		return err
	}
	tokens, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return fmt.Errorf("initialize JWT manager: %w", err)
	}
	if mode == auth.AuthModeNone {
		logging.Warn().Msg("Authentication is DISABLED (AUTH_MODE=none); every request acts as the organization owner")
	}
	loginLimiter := auth.NewLoginLimiter(cfg.Security.LoginAttemptsPerMinute)
	enforcer, err := authz.NewEnforcer()
	if err != nil {
		return fmt.Errorf("initialize authorization: %w", err)
	}

	hub := ws.NewHub()
	sessionsCache := cache.New("sessions", cfg.Cache.TTL, cfg.Cache.CleanupInterval)

	svc := api.Services{
		Annotations:   annotations.NewService(db, reporterOrNil(reporter), hub),
		Insights:      insights.NewService(db, gate, reporterOrNil(reporter)),
		Sessions:      sessions.NewService(db, sessionsCache),
		Organizations: organizations.NewService(db, enforcer, reporterOrNil(reporter)),
		Gate:          gate,
		Authenticator: auth.NewAuthenticator(db, tokens, loginLimiter),
		Tokens:        tokens,
	}

	perfMon := middleware.NewPerformanceMonitor(1000, time.Second)
	handler := api.NewHandler(db, svc, cfg, hub, perfMon)
	router := api.NewRouter(handler,
		auth.NewMiddleware(tokens, db, mode, api.WriteError),
		authz.NewMiddleware(enforcer, db, api.WriteError),
		api.NewChiMiddlewareFromConfig(&cfg.Security),
	)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	components := supervisor.Components{
		HTTP:         services.NewHTTPServerService(server, 10*time.Second),
		LoginLimiter: loginLimiter,
		Hub:          hub,
		FlagPoller:   poller,
		Janitors:     []suture.Service{sessionsCache},
	}
	if bus != nil {
		components.ActivityConsumer = activity.NewConsumer(bus.Subscriber, bus.Publisher, activity.ConsumerConfigFrom(&cfg.Events), db, hub)
	}
	tree.AddComponents(components)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}
	for err := range errCh {
		if serveErr == nil {
			serveErr = err
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", serveErr)
	}
	return nil
}

// flagSource picks where flag definitions come from: a remote endpoint
// (with an optional badger cache), a YAML file, or nothing.
func flagSource(cfg *config.FlagsConfig) (flags.Source, *flags.DefinitionCache, error) {
	switch {
	case cfg.RemoteURL != "":
		var defCache *flags.DefinitionCache
		if cfg.CacheDir != "" {
			c, err := flags.OpenDefinitionCache(cfg.CacheDir)
			if err != nil {
				return nil, nil, fmt.Errorf("open flag definition cache: %w", err)
			}
			defCache = c
		}
		src := flags.NewRemoteSource(flags.RemoteSourceConfig{
			URL:     cfg.RemoteURL,
			Token:   cfg.RemoteToken,
			Timeout: cfg.FetchTimeout,
		}, defCache)
		logging.Info().Str("url", cfg.RemoteURL).Bool("cached", defCache != nil).Msg("Loading feature flags from remote endpoint")
		return src, defCache, nil

	case cfg.File != "":
		logging.Info().Str("path", cfg.File).Msg("Loading feature flags from file")
		return flags.FileSource{Path: cfg.File}, nil, nil

	default:
		return flags.StaticSource(nil), nil, nil
	}
}

// reporterOrNil keeps a nil *activity.Reporter from becoming a non-nil
// interface value.
func reporterOrNil(r *activity.Reporter) interface {
	annotations.Reporter
	insights.Reporter
	organizations.Reporter
} {
	if r == nil {
		return nil
	}
	return r
}
