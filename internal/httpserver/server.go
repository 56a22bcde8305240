package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/fleetbeacon/fleetbeacon/internal/config"
)

// Server holds the HTTP server dependencies and the three chi sub-routers
// domain handlers mount on.
type Server struct {
	Router       *chi.Mux
	PublicRouter chi.Router // unauthenticated /api/v1 routes (config, enroll)
	APIRouter    chi.Router // device/org/user-scoped, authentication required
	AdminRouter  chi.Router // /api/admin/v1, user-session principal required
	Logger       *slog.Logger
	DB           *pgxpool.Pool
	Redis        *redis.Client
	Metrics      *prometheus.Registry
	startedAt    time.Time
}

// AuthMiddleware authenticates a request and stores the resulting Principal
// in context, or rejects it. internal/auth imports internal/httpserver, so
// NewServer takes the middleware as a plain func(http.Handler) http.Handler
// instead of importing internal/auth, which would create an import cycle.
type AuthMiddleware func(http.Handler) http.Handler

// NewServer creates an HTTP server with middleware and health/metrics endpoints.
// Domain handlers are mounted on PublicRouter/APIRouter/AdminRouter after this
// call returns.
func NewServer(cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry, requireAuth, requireAdminAuth AuthMiddleware) *Server {
	s := &Server{
		Router:    chi.NewRouter(),
		Logger:    logger,
		DB:        db,
		Redis:     rdb,
		Metrics:   metricsReg,
		startedAt: time.Now(),
	}

	s.Router.Use(RequestID)
	s.Router.Use(Logger(logger))
	s.Router.Use(Metrics)
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (unauthenticated). The spec names both /health/*
	// (client-facing) and /healthz /readyz (operator-facing); both resolve
	// to the same handlers.
	s.Router.Get("/health", s.handleHealthz)
	s.Router.Get("/health/live", s.handleHealthz)
	s.Router.Get("/health/ready", s.handleReadyz)
	s.Router.Get("/healthz", s.handleHealthz)
	s.Router.Get("/readyz", s.handleReadyz)

	// Prometheus metrics (unauthenticated).
	s.Router.Handle("/metrics", promhttp.HandlerFor(metricsReg, promhttp.HandlerOpts{}))

	s.Router.Route("/api/v1", func(r chi.Router) {
		s.PublicRouter = r.Group(func(pub chi.Router) {})

		s.APIRouter = r.Group(func(api chi.Router) {
			api.Use(requireAuth)
		})
	})

	s.Router.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(requireAdminAuth)
		s.AdminRouter = r
	})

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.DB.Ping(ctx); err != nil {
		s.Logger.Error("readiness check: database ping failed", "error", err)
		RespondError(w, http.StatusServiceUnavailable, "unavailable", "database not ready")
		return
	}

	if err := s.Redis.Ping(ctx).Err(); err != nil {
		s.Logger.Error("readiness check: redis ping failed", "error", err)
		RespondError(w, http.StatusServiceUnavailable, "unavailable", "redis not ready")
		return
	}

	Respond(w, http.StatusOK, map[string]string{"status": "ready"})
}
