// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

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

	_ "github.com/outboundlabs/prospectus/docs" // Import generated swagger docs
	"github.com/outboundlabs/prospectus/internal/api"
	"github.com/outboundlabs/prospectus/internal/config"
	"github.com/outboundlabs/prospectus/internal/database"
	"github.com/outboundlabs/prospectus/internal/logging"
	"github.com/outboundlabs/prospectus/internal/models"
	"github.com/outboundlabs/prospectus/internal/platform/airtable"
	"github.com/outboundlabs/prospectus/internal/platform/phoneburner"
	"github.com/outboundlabs/prospectus/internal/queue"
	"github.com/outboundlabs/prospectus/internal/scheduler"
	"github.com/outboundlabs/prospectus/internal/supervisor"
	"github.com/outboundlabs/prospectus/internal/supervisor/services"
	syncengine "github.com/outboundlabs/prospectus/internal/sync"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Bool("phoneburner_enabled", cfg.PhoneBurner.Enabled).
		Bool("airtable_enabled", cfg.Airtable.Enabled).
		Bool("queue_enabled", cfg.Queue.Enabled).
		Str("auth_mode", cfg.Security.AuthMode).
		Str("db_path", cfg.Database.Path).
		Msg("Starting Prospectus")

	// The JWT secret keys the credential encryptor for stored platform API
	// keys, so it is required even when authentication is disabled.
	if cfg.Security.JWTSecret == "" {
		logging.Fatal().Msg("PROSPECTUS_JWT_SECRET is required: it keys credential encryption for stored platform API keys, even with PROSPECTUS_AUTH_MODE=none")
	}
	encryptor, err := config.NewCredentialEncryptor(cfg.Security.JWTSecret)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize credential encryptor")
	}

	db, err := database.New(&cfg.Database, encryptor)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	// Context for graceful shutdown; cancellation unwinds the supervisor tree.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seedBootstrapConnections(ctx, db, cfg)

	// Platform clients. Each is optional; the engine handles a missing
	// client by failing only the phases that need it.
	var dialer syncengine.DialerClient
	if cfg.PhoneBurner.Enabled {
		client := phoneburner.NewClient(&cfg.PhoneBurner)
		if err := client.Ping(ctx); err != nil {
			logging.Warn().Err(err).Msg("PhoneBurner unreachable at startup (sync will retry)")
		} else {
			logging.Info().Msg("Connected to PhoneBurner")
		}
		dialer = client
	}

	var tabular syncengine.MetricsClient
	if cfg.Airtable.Enabled {
		client := airtable.NewClient(&cfg.Airtable)
		if err := client.Ping(ctx); err != nil {
			logging.Warn().Err(err).Msg("Airtable unreachable at startup (sync will retry)")
		} else {
			logging.Info().Msg("Connected to Airtable")
		}
		tabular = client
	}

	engine := syncengine.NewEngine(db, dialer, tabular, &cfg.Sync)

	// Continuation queue (embedded NATS JetStream via Watermill). Without it,
	// interrupted syncs resume on the next scheduler tick or manual run.
	var (
		queueComponents *queue.Components
		queuePinger     api.QueuePinger
		enqueuer        scheduler.Enqueuer
	)
	if cfg.Queue.Enabled {
		queueComponents, err = queue.Start(ctx, &cfg.Queue, engine)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to start continuation queue")
		}
		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), cfg.Queue.RouterCloseTimeout)
			defer closeCancel()
			if err := queueComponents.Close(closeCtx); err != nil {
				logging.Error().Err(err).Msg("Error closing queue")
			}
		}()
		engine.SetContinuer(queueComponents.Publisher())
		queuePinger = queueComponents
		enqueuer = queueComponents.Publisher()
	} else {
		logging.Info().Msg("Continuation queue disabled; interrupted syncs resume via scheduler")
	}

	var authManager *api.AuthManager
	switch cfg.Security.AuthMode {
	case "jwt":
		authManager, err = api.NewAuthManager(&cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize authentication")
		}
		logging.Info().Msg("JWT authentication enabled")
	case "none":
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: Authentication is DISABLED (AUTH_MODE=none)")
		logging.Warn().Msg("  All endpoints are publicly accessible without authentication!")
		logging.Warn().Msg("  This mode should ONLY be used for local development or")
		logging.Warn().Msg("  completely isolated private networks.")
		logging.Warn().Msg("============================================================")
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (PROSPECTUS_DISABLE_RATE_LIMIT=true)")
	}
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS is configured with a wildcard origin while authentication is enabled. Set PROSPECTUS_CORS_ORIGINS to specific origins in production.")
	}

	handler := api.NewHandler(db, engine, queuePinger, &cfg.API, &cfg.Sync, version)
	router := api.NewRouter(handler, authManager, api.NewChiMiddleware(&cfg.Security))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(db, enqueuer, engine, &cfg.Scheduler)
		tree.AddDataService(sched)
		logging.Info().
			Dur("interval", cfg.Scheduler.Interval).
			Dur("stale_after", cfg.Scheduler.StaleAfter).
			Msg("Scheduler added to supervisor tree")
	} else {
		logging.Info().Msg("Scheduler disabled (PROSPECTUS_SCHEDULER_ENABLED=false)")
	}

	if queueComponents != nil {
		tree.AddMessagingService(services.NewQueueService(queueComponents))
		logging.Info().Msg("Queue consumer added to supervisor tree")
	}

	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor finishes shutting down.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}

// seedBootstrapConnections creates sync connections for env-configured
// platforms in the default workspace. Existing connections win: runtime
// edits through the connections API are never overwritten by env config.
func seedBootstrapConnections(ctx context.Context, db *database.DB, cfg *config.Config) {
	type seed struct {
		platform string
		apiKey   string
		enabled  bool
	}
	seeds := []seed{
		{models.PlatformPhoneBurner, cfg.PhoneBurner.APIKey, cfg.PhoneBurner.Enabled},
		{models.PlatformAirtable, cfg.Airtable.APIKey, cfg.Airtable.Enabled},
	}

	for _, s := range seeds {
		if !s.enabled {
			continue
		}
		conn := &models.SyncConnection{
			WorkspaceID: cfg.Sync.DefaultWorkspace,
			Platform:    s.platform,
			APIKey:      s.apiKey,
			IsActive:    true,
		}
		err := db.CreateSyncConnection(ctx, conn)
		switch {
		case errors.Is(err, database.ErrConnectionExists):
			logging.Debug().
				Str("workspace_id", conn.WorkspaceID).
				Str("platform", s.platform).
				Msg("Bootstrap connection already present")
		case err != nil:
			logging.Fatal().Err(err).
				Str("platform", s.platform).
				Msg("Failed to seed bootstrap connection")
		default:
			logging.Info().
				Str("workspace_id", conn.WorkspaceID).
				Str("platform", s.platform).
				Msg("Bootstrap connection seeded from environment")
		}
	}
}
