package webhooksvc

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetbeacon/fleetbeacon/internal/apierr"
	"github.com/fleetbeacon/fleetbeacon/internal/httpserver"
)

// uniqueViolation is Postgres's SQLSTATE for a unique-constraint violation.
const uniqueViolation = "23505"

// Handler provides the admin HTTP handlers for one organization's webhook
// endpoints. It is mounted under an organization-scoped admin route.
type Handler struct {
	logger *slog.Logger
	store  *Store
}

// NewHandler creates a webhook endpoint Handler backed by the given pool.
func NewHandler(logger *slog.Logger, pool *pgxpool.Pool) *Handler {
	return &Handler{logger: logger, store: NewStore(pool)}
}

// Routes returns a chi.Router with all webhook endpoint routes mounted. The
// caller mounts it under a path carrying an "orgID" URL parameter.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Delete("/{id}", h.handleDelete)
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

	row, err := h.store.Create(r.Context(), CreateParams{
		OwnerKey:   orgID.String(),
		Name:       req.Name,
		TargetURL:  req.TargetURL,
		HMACSecret: req.Secret,
		EventTypes: req.EventTypes,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			httpserver.RespondAPIErr(w, apierr.Conflict("a webhook with this name already exists"))
			return
		}
		h.logger.Error("creating webhook endpoint", "error", err, "organization_id", orgID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to create webhook")
		return
	}

	httpserver.Respond(w, http.StatusCreated, row.ToResponse())
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid organization ID")
		return
	}

	rows, err := h.store.ListByOwner(r.Context(), orgID.String())
	if err != nil {
		h.logger.Error("listing webhook endpoints", "error", err, "organization_id", orgID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list webhooks")
		return
	}

	items := make([]Response, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].ToResponse())
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"webhooks": items, "count": len(items)})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid webhook ID")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "webhook not found")
			return
		}
		h.logger.Error("deleting webhook endpoint", "error", err, "id", id)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to delete webhook")
		return
	}

	httpserver.Respond(w, http.StatusNoContent, nil)
}
