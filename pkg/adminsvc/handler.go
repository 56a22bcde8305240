package adminsvc

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetbeacon/fleetbeacon/internal/httpserver"
	"github.com/fleetbeacon/fleetbeacon/pkg/apikey"
	"github.com/fleetbeacon/fleetbeacon/pkg/invitesvc"
	"github.com/fleetbeacon/fleetbeacon/pkg/unlocksvc"
	"github.com/fleetbeacon/fleetbeacon/pkg/webhooksvc"
)

// Handler implements the organization-admin HTTP surface. Every route
// requires a user-session principal; that check is applied by the router
// this Handler is mounted under, not by this package.
type Handler struct {
	logger          *slog.Logger
	tokens          *EnrollmentTokenService
	apiKeys         *apikey.Handler
	hooks           *webhooksvc.Handler
	invites         *invitesvc.Handler
	unlocks         *unlocksvc.Handler
	webhooksEnabled bool
}

// NewHandler creates an adminsvc Handler backed by the given pool.
// webhooksEnabled gates the /webhooks sub-route with a 404 when the
// webhooks feature flag is off, leaving enrollment tokens and API keys
// reachable regardless.
func NewHandler(logger *slog.Logger, pool *pgxpool.Pool, webhooksEnabled bool) *Handler {
	return &Handler{
		logger:          logger,
		tokens:          NewEnrollmentTokenService(pool, logger),
		apiKeys:         apikey.NewHandler(logger, pool),
		hooks:           webhooksvc.NewHandler(logger, pool),
		invites:         invitesvc.NewHandler(logger, pool),
		unlocks:         unlocksvc.NewHandler(logger, pool, nil),
		webhooksEnabled: webhooksEnabled,
	}
}

// Routes returns a chi.Router with every organization-admin route mounted.
// The caller mounts it under a path carrying an "orgID" URL parameter.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/enrollment-tokens", h.handleCreateEnrollmentToken)
	r.Mount("/api-keys", h.apiKeys.Routes())
	r.With(httpserver.FeatureGate(h.webhooksEnabled)).Mount("/webhooks", h.hooks.Routes())
	r.Mount("/invites", h.invites.Routes())
	r.Mount("/unlock-requests", h.unlocks.AdminRoutes())
	return r
}

func (h *Handler) handleCreateEnrollmentToken(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid organization ID")
		return
	}

	var req CreateEnrollmentTokenRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.tokens.Create(r.Context(), orgID, req)
	if err != nil {
		h.logger.Error("creating enrollment token", "error", err, "organization_id", orgID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to create enrollment token")
		return
	}

	httpserver.Respond(w, http.StatusCreated, resp)
}
