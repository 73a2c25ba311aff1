// Copyright (c) 2026 IP Platform. All rights reserved.

// Command api is the entry point for the IP Platform HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire domain services and HTTP handlers.
//  7. Seed the bootstrap administrator.
//  8. Start the credential sweeper and HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ipplatform/backend/internal/api"
	"github.com/ipplatform/backend/internal/iam/admin"
	"github.com/ipplatform/backend/internal/iam/application"
	"github.com/ipplatform/backend/internal/iam/auth"
	"github.com/ipplatform/backend/internal/patent"
	"github.com/ipplatform/backend/internal/platform/config"
	"github.com/ipplatform/backend/internal/platform/constants"
	"github.com/ipplatform/backend/internal/platform/mail"
	"github.com/ipplatform/backend/internal/platform/migration"
	pgstore "github.com/ipplatform/backend/internal/platform/postgres"
	redisstore "github.com/ipplatform/backend/internal/platform/redis"
	"github.com/ipplatform/backend/internal/platform/sec"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Token Service ──────────────────────────────────────────────────
	jwtSvc, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
	must(log, err, "initialize jwt service")

	// ── 7. Health Handlers (wired with real dependency checkers) ─────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		},
		CheckCache: func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		},
	}, log)

	// ── 8. Outbound Adapters ──────────────────────────────────────────────
	var notifier mail.Notifier
	if cfg.SMTPHost == "" {
		log.Warn("smtp_not_configured", slog.String("fallback", "log mailer"))
		notifier = mail.NewLogMailer(log)
	} else {
		notifier = mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	}

	var googleVerifier auth.GoogleVerifier
	if cfg.GoogleClientID != "" {
		googleVerifier = sec.NewGoogleVerifier(cfg.GoogleClientID)
	} else {
		log.Warn("google_signin_not_configured")
	}

	// ── 9. Domain Wiring ──────────────────────────────────────────────────
	accountRepository := auth.NewAccountRepository(pool)
	adminRepository := auth.NewAdminRepository(pool)
	sessionRepository := auth.NewSessionRepository(pool)
	resetTokenRepository := auth.NewResetTokenRepository(pool)
	applicationRepository := application.NewRepository(pool)
	documentRepository := application.NewDocumentRepository(pool)
	assetRepository := patent.NewAssetRepository(pool)

	applicationService := application.NewService(
		applicationRepository,
		documentRepository,
		accountRepository,
		sessionRepository,
		notifier,
		log,
	)

	authService := auth.NewService(
		accountRepository,
		adminRepository,
		sessionRepository,
		resetTokenRepository,
		applicationService,
		jwtSvc,
		googleVerifier,
		notifier,
		log,
		auth.Options{
			RefreshTTL:    time.Duration(cfg.RefreshTokenDays) * 24 * time.Hour,
			RememberMeTTL: time.Duration(cfg.RememberMeDays) * 24 * time.Hour,
			ResetTokenTTL: time.Duration(cfg.PasswordResetMins) * time.Minute,
			FrontendURL:   cfg.FrontendURL,
		},
	)

	adminService := admin.NewService(accountRepository, sessionRepository, log)
	patentClient := patent.NewClient(rdb, cfg.PatentAPIBaseURL, cfg.PatentAPIKey)
	patentService := patent.NewService(patentClient, assetRepository)

	must(log, authService.EnsureSeedAdmin(startupCtx, cfg.SeedAdminUsername, cfg.SeedAdminEmail, cfg.SeedAdminPassword), "seed administrator")

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:    liveness,
		Readiness:   readiness,
		Auth:        auth.NewHandler(authService),
		Application: application.NewHandler(applicationService),
		Admin:       admin.NewHandler(adminService),
		Patent:      patent.NewHandler(patentService),
	}

	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	server := api.NewServer(serverCtx, cfg, log, jwtSvc, handlers)

	// ── 11. Credential Sweeper ────────────────────────────────────────────
	// Purges expired refresh sessions and reset tokens so dead rows do not
	// accumulate between deployments.
	go runCredentialSweeper(serverCtx, authService, log)

	// ── 12. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// runCredentialSweeper periodically deletes expired refresh sessions and
// password reset tokens. A sweep failure is logged and retried on the next
// tick; it never stops the server.
func runCredentialSweeper(ctx context.Context, authService *auth.Service, log *slog.Logger) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(constants.SweepInitialDelay):
	}

	ticker := time.NewTicker(constants.SweepInterval)
	defer ticker.Stop()

	for {
		removed, err := authService.SweepCredentials(ctx)
		if err != nil {
			log.Error("credential_sweep_failed", slog.Any("error", err))
		} else {
			log.Info("credential_sweep_completed", slog.Int64("removed", removed))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
