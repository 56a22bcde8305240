package unlocksvc

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetbeacon/fleetbeacon/internal/apierr"
	"github.com/fleetbeacon/fleetbeacon/internal/auth"
	"github.com/fleetbeacon/fleetbeacon/internal/httpserver"
	"github.com/fleetbeacon/fleetbeacon/internal/orgcache"
)

// Handler implements both the device-facing request endpoint and the
// organization-admin approve/deny/list surface.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler creates an unlocksvc Handler backed by the given pool.
// orgSettings may be nil, which disables auto-approve for requests created
// through this Handler.
func NewHandler(logger *slog.Logger, pool *pgxpool.Pool, orgSettings *orgcache.Cache) *Handler {
	return &Handler{logger: logger, service: NewService(pool, orgSettings, logger)}
}

// DeviceRoutes returns a chi.Router with the device-facing create endpoint
// mounted. The caller mounts it on a router that has already authenticated
// a device-token principal.
func (h *Handler) DeviceRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleCreate)
	return r
}

// AdminRoutes returns a chi.Router with the organization-admin list/approve/
// deny endpoints mounted. The caller mounts it under a path carrying an
// "orgID" URL parameter.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleListPending)
	r.Post("/{id}/approve", h.handleApprove)
	r.Post("/{id}/deny", h.handleDeny)
	return r
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())
	if p == nil || p.Kind != auth.KindDeviceToken {
		httpserver.RespondAPIErr(w, apierr.Unauthorized("device token required"))
		return
	}

	var req CreateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	resp, apiErr := h.service.Request(r.Context(), p.DeviceID, req)
	if apiErr != nil {
		httpserver.RespondAPIErr(w, apiErr)
		return
	}
	httpserver.Respond(w, http.StatusCreated, resp)
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid organization ID")
		return
	}

	items, err := h.service.ListPending(r.Context(), orgID)
	if err != nil {
		h.logger.Error("listing unlock requests", "error", err, "organization_id", orgID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list unlock requests")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"unlock_requests": items, "count": len(items)})
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.respondTo(w, r, h.service.Approve)
}

func (h *Handler) handleDeny(w http.ResponseWriter, r *http.Request) {
	h.respondTo(w, r, h.service.Deny)
}

// respondTo implements the shared shape of the approve/deny handlers: parse
// the id, require a user-session principal, decode the optional note, then
// call decide.
func (h *Handler) respondTo(w http.ResponseWriter, r *http.Request, decide func(ctx context.Context, id, respondedBy uuid.UUID, req RespondRequest) (Response, *apierr.Error)) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid unlock request ID")
		return
	}

	p := auth.FromContext(r.Context())
	if p == nil || p.Kind != auth.KindUserSession {
		httpserver.RespondAPIErr(w, apierr.Unauthorized("user session required"))
		return
	}

	var req RespondRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	resp, apiErr := decide(r.Context(), id, p.UserID, req)
	if apiErr != nil {
		httpserver.RespondAPIErr(w, apiErr)
		return
	}
	httpserver.Respond(w, http.StatusOK, resp)
}
