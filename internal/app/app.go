// Package app wires every component together and starts the selected run
// mode. It is the only place in the module that knows about every package at
// once — everything else depends on narrower interfaces.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/fleetbeacon/fleetbeacon/internal/apierr"
	"github.com/fleetbeacon/fleetbeacon/internal/auth"
	"github.com/fleetbeacon/fleetbeacon/internal/config"
	"github.com/fleetbeacon/fleetbeacon/internal/delivery"
	"github.com/fleetbeacon/fleetbeacon/internal/enrollment"
	"github.com/fleetbeacon/fleetbeacon/internal/httpserver"
	"github.com/fleetbeacon/fleetbeacon/internal/idempotency"
	"github.com/fleetbeacon/fleetbeacon/internal/jobs"
	"github.com/fleetbeacon/fleetbeacon/internal/orgcache"
	"github.com/fleetbeacon/fleetbeacon/internal/outbox"
	"github.com/fleetbeacon/fleetbeacon/internal/platform"
	"github.com/fleetbeacon/fleetbeacon/internal/scheduler"
	"github.com/fleetbeacon/fleetbeacon/internal/telemetry"
	"github.com/fleetbeacon/fleetbeacon/pkg/adminsvc"
	"github.com/fleetbeacon/fleetbeacon/pkg/devicesvc"
	"github.com/fleetbeacon/fleetbeacon/pkg/invitesvc"
	"github.com/fleetbeacon/fleetbeacon/pkg/publicsvc"
	"github.com/fleetbeacon/fleetbeacon/pkg/unlocksvc"
	"github.com/fleetbeacon/fleetbeacon/pkg/webhooksvc"
)

// Run is the main application entry point. It reads config, connects to
// infrastructure, and starts the selected run mode.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting fleetbeacon", "mode", cfg.Mode, "listen", cfg.ListenAddr())

	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	metricsReg := telemetry.NewMetricsRegistry(telemetry.All()...)

	bootstrapper := &auth.Bootstrapper{Pool: db, Logger: logger}
	if err := bootstrapper.Bootstrap(ctx, cfg.AdminBootstrapEmail, cfg.AdminBootstrapPassword); err != nil {
		return fmt.Errorf("running admin bootstrap: %w", err)
	}

	switch cfg.Mode {
	case "api":
		return runAPI(ctx, cfg, logger, db, rdb, metricsReg)
	case "worker":
		return runWorker(ctx, cfg, logger, db, rdb)
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry) error {
	authStore := auth.NewPGStore(db)

	rateLimiter := auth.NewRedisFailureLimiter(rdb, logger, 10, 15*time.Minute)

	resolver := &auth.Resolver{
		APIKey:    &auth.APIKeyResolver{Store: authStore, Logger: logger},
		Device:    &auth.DeviceTokenResolver{Store: authStore, Logger: logger},
		Session:   buildSessionResolver(ctx, cfg, logger),
		Logger:    logger,
		RateLimit: rateLimiter,
	}

	requireAuth := resolver.Require
	requireAdminAuth := composeMiddleware(resolver.Require, requireUserSession)

	srv := httpserver.NewServer(cfg, logger, db, rdb, metricsReg, requireAuth, requireAdminAuth)

	// Enrollment engine + device/location writes.
	engine := &enrollment.Engine{Pool: db, Logger: logger}
	locations := devicesvc.NewLocationStore(db)

	webhookStore := webhooksvc.NewStore(db)
	outboxStore := outbox.NewStore(db)
	enqueuer := &webhooksvc.Enqueuer{Endpoints: webhookStore, Outbox: outboxStore, Logger: logger}

	orgSettings, err := orgcache.New(1024, organizationSettingsLoader(db))
	if err != nil {
		return fmt.Errorf("creating organization settings cache: %w", err)
	}

	deviceHandler := devicesvc.NewHandler(logger, engine, locations, orgSettings, enqueuer)

	idempotencyStore := idempotency.NewStore(db)
	replay := idempotency.Middleware(idempotencyStore, logger)

	srv.PublicRouter.With(replay).Post("/devices/enroll", deviceHandler.HandleEnroll)
	srv.PublicRouter.Get("/config/public", publicsvc.NewHandler(cfg).HandleGet)

	srv.APIRouter.With(httpserver.FeatureGate(cfg.FeatureEnrollment), replay).Post("/locations", deviceHandler.HandleLocation)
	srv.APIRouter.With(httpserver.FeatureGate(cfg.FeatureEnrollment), replay).Post("/locations/batch", deviceHandler.HandleLocationBatch)

	// Invite preview/redeem sit outside the organization-admin surface: the
	// code itself, not a URL path, carries the organization scope.
	inviteHandler := invitesvc.NewHandler(logger, db)
	srv.PublicRouter.Get("/invites/{code}", inviteHandler.HandlePublicInfo)
	srv.APIRouter.Post("/invites/{code}/redeem", inviteHandler.HandleRedeem)

	// Unlock requests are created by the device holder and decided by an
	// organization admin; the create route is mounted here so it can see
	// the same orgSettings cache the enrollment notification fan-out uses.
	srv.APIRouter.Mount("/unlock-requests", unlocksvc.NewHandler(logger, db, orgSettings).DeviceRoutes())

	srv.AdminRouter.Route("/organizations/{orgID}", func(r chi.Router) {
		r.Mount("/", adminsvc.NewHandler(logger, db, cfg.FeatureWebhooks).Routes())
	})

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func runWorker(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client) error {
	logger.Info("worker started")

	outboxStore := outbox.NewStore(db)
	webhookStore := webhooksvc.NewStore(db)
	deliveryWorker := &delivery.Worker{
		Outbox:     outboxStore,
		Endpoints:  webhookStore,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		Logger:     logger,
	}

	sched := scheduler.New(logger)
	sched.Register(&jobs.WebhookRetry{Worker: deliveryWorker, BatchSize: 50})
	sched.Register(&jobs.WebhookCleanup{Store: outboxStore, RetentionDays: cfg.WebhookRetentionDays, Logger: logger})
	sched.Register(&jobs.CleanupLocations{Pool: db, RetentionDays: cfg.LocationRetentionDays})
	sched.Register(&jobs.CleanupIdempotencyKeys{Store: idempotency.NewStore(db), Logger: logger})
	sched.Register(&jobs.RefreshViews{Pool: db})
	// Report generation/cleanup are not registered: no concrete
	// jobs.ReportStore/jobs.ReportRenderer implementation exists in this
	// deployment — rendering reports to durable storage is an external
	// collaborator contract, same as FCM push delivery.

	sched.Start()
	defer sched.WaitForShutdown(30 * time.Second)

	<-ctx.Done()
	logger.Info("worker shutting down")
	sched.Shutdown()
	return nil
}

// buildSessionResolver returns a SessionResolver backed by a JWKS fetched
// from the configured external identity provider. Returns nil when no OIDC
// issuer is configured (a session signing secret on its own does not enable
// session auth) or the validator cannot be initialized — user-session auth is
// then unavailable, API keys and device tokens still work.
func buildSessionResolver(ctx context.Context, cfg *config.Config, logger *slog.Logger) *auth.SessionResolver {
	leeway, err := time.ParseDuration(cfg.SessionClockLeeway)
	if err != nil {
		leeway = 30 * time.Second
	}

	if cfg.OIDCIssuerURL != "" {
		validator, err := auth.NewJWKSValidator(ctx, cfg.OIDCIssuerURL, cfg.OIDCClientID, leeway)
		if err != nil {
			logger.Error("initializing OIDC session validator, user sessions disabled", "error", err)
			return nil
		}
		logger.Info("user-session authentication enabled via OIDC", "issuer", cfg.OIDCIssuerURL)
		return &auth.SessionResolver{Validator: validator}
	}

	if cfg.SessionSigningSecret == "" {
		logger.Info("user-session authentication disabled (no OIDC issuer or session signing key configured)")
		return nil
	}

	// HMAC-style shared secrets are not a supported static key type for
	// go-jose's asymmetric verifier; this branch is reserved for a future
	// PEM-encoded public key. Until then, an internally-issued session
	// secret with no OIDC issuer configured disables session auth rather
	// than silently accepting unverifiable tokens.
	logger.Warn("PM__JWT__SESSION_SECRET is set but no asymmetric public key is wired; user-session authentication remains disabled")
	return nil
}

// requireUserSession rejects any principal that is not a user session. It
// runs after Require, which has already rejected unauthenticated requests.
func requireUserSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := auth.FromContext(r.Context())
		if p == nil || p.Kind != auth.KindUserSession {
			httpserver.RespondAPIErr(w, apierr.Forbidden("user session required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// composeMiddleware chains middleware in the order given: the first wraps
// outermost.
func composeMiddleware(mws ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// organizationSettingsLoader reads one row from organization_settings on a
// cache miss.
func organizationSettingsLoader(db *pgxpool.Pool) orgcache.Loader {
	return func(ctx context.Context, organizationID uuid.UUID) (orgcache.OrganizationSettings, error) {
		var s orgcache.OrganizationSettings
		s.OrganizationID = organizationID
		var pinHash *string
		err := db.QueryRow(ctx, `
			SELECT unlock_pin_hash_argon2, default_daily_limit_minutes, notifications_enabled, auto_approve_unlock_requests
			FROM organization_settings
			WHERE organization_id = $1
		`, organizationID).Scan(&pinHash, &s.DefaultDailyLimitMinutes, &s.NotificationsEnabled, &s.AutoApproveUnlockRequests)
		if err != nil {
			return orgcache.OrganizationSettings{}, fmt.Errorf("app: loading organization settings for %s: %w", organizationID, err)
		}
		if pinHash != nil {
			s.UnlockPinHashArgon2 = *pinHash
		}
		return s, nil
	}
}
