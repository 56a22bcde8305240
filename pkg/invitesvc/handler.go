package invitesvc

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetbeacon/fleetbeacon/internal/apierr"
	"github.com/fleetbeacon/fleetbeacon/internal/auth"
	"github.com/fleetbeacon/fleetbeacon/internal/httpserver"
)

// Handler provides both the organization-admin invite CRUD surface and the
// unauthenticated/redeem endpoints a would-be member hits directly.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler creates an invitesvc Handler backed by the given pool.
func NewHandler(logger *slog.Logger, pool *pgxpool.Pool) *Handler {
	return &Handler{logger: logger, service: NewService(pool, logger)}
}

// Routes returns a chi.Router with the organization-admin invite routes
// mounted. The caller mounts it under a path carrying an "orgID" URL
// parameter.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Delete("/{id}", h.handleRevoke)
	return r
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid organization ID")
		return
	}

	var req CreateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	var invitedBy *uuid.UUID
	if p := auth.FromContext(r.Context()); p != nil && p.UserID != uuid.Nil {
		invitedBy = &p.UserID
	}

	resp, err := h.service.Create(r.Context(), orgID, invitedBy, req)
	if err != nil {
		h.logger.Error("creating invite", "error", err, "organization_id", orgID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to create invite")
		return
	}
	httpserver.Respond(w, http.StatusCreated, resp)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid organization ID")
		return
	}

	items, err := h.service.ListActive(r.Context(), orgID)
	if err != nil {
		h.logger.Error("listing invites", "error", err, "organization_id", orgID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list invites")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"invites": items, "count": len(items)})
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid invite ID")
		return
	}

	if err := h.service.Revoke(r.Context(), id); err != nil {
		h.logger.Error("revoking invite", "error", err, "id", id)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to revoke invite")
		return
	}
	httpserver.Respond(w, http.StatusNoContent, nil)
}

// HandlePublicInfo implements GET /api/v1/invites/{code}. It carries no
// auth requirement — a client previews an invite before its holder has any
// credential at all.
func (h *Handler) HandlePublicInfo(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	info, apiErr := h.service.GetPublicInfo(r.Context(), code)
	if apiErr != nil {
		httpserver.RespondAPIErr(w, apiErr)
		return
	}
	httpserver.Respond(w, http.StatusOK, info)
}

// HandleRedeem implements POST /api/v1/invites/{code}/redeem. The caller
// must hold a user-session principal — redemption attaches the invite to an
// existing account, it does not create one.
func (h *Handler) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())
	if p == nil || p.Kind != auth.KindUserSession {
		httpserver.RespondAPIErr(w, apierr.Unauthorized("user session required"))
		return
	}

	code := chi.URLParam(r, "code")
	resp, apiErr := h.service.Redeem(r.Context(), code, p.UserID)
	if apiErr != nil {
		httpserver.RespondAPIErr(w, apiErr)
		return
	}
	httpserver.Respond(w, http.StatusOK, resp)
}
