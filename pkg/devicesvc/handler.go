package devicesvc

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/fleetbeacon/fleetbeacon/internal/apierr"
	"github.com/fleetbeacon/fleetbeacon/internal/auth"
	"github.com/fleetbeacon/fleetbeacon/internal/enrollment"
	"github.com/fleetbeacon/fleetbeacon/internal/httpserver"
	"github.com/fleetbeacon/fleetbeacon/internal/orgcache"
	"github.com/fleetbeacon/fleetbeacon/internal/telemetry"
	"github.com/fleetbeacon/fleetbeacon/internal/usage"
	"github.com/fleetbeacon/fleetbeacon/pkg/webhooksvc"
)

// deviceEnrolledEvent is the webhook event type fired after a successful
// enrollment, when the organization has notifications enabled.
const deviceEnrolledEvent = "device.enrolled"

// Handler implements the device enrollment exchange and location uploads.
type Handler struct {
	logger      *slog.Logger
	engine      *enrollment.Engine
	locations   *LocationStore
	orgSettings *orgcache.Cache
	hooks       *webhooksvc.Enqueuer
}

// NewHandler creates a devicesvc Handler. orgSettings and hooks are optional
// (nil disables the post-enrollment notification fan-out without affecting
// the enrollment exchange itself).
func NewHandler(logger *slog.Logger, engine *enrollment.Engine, locations *LocationStore, orgSettings *orgcache.Cache, hooks *webhooksvc.Enqueuer) *Handler {
	return &Handler{logger: logger, engine: engine, locations: locations, orgSettings: orgSettings, hooks: hooks}
}

// HandleEnroll implements POST /api/v1/devices/enroll. It carries no auth
// requirement of its own — the enrollment token in the body is the
// credential.
func (h *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	resp, apiErr := h.engine.Enroll(r.Context(), enrollment.Request{
		EnrollmentTokenPlain: req.EnrollmentToken,
		DeviceUUID:           req.DeviceUUID,
		DisplayName:          req.DisplayName,
		DeviceInfo:           req.DeviceInfo,
		FCMToken:             req.FCMToken,
		Platform:             req.Platform,
	})
	if apiErr != nil {
		outcome := "error"
		if apierr.Is(apiErr, apierr.KindNotFound) {
			outcome = "not_found"
		} else if apierr.Is(apiErr, apierr.KindConflict) {
			outcome = "conflict"
		} else if apierr.Is(apiErr, apierr.KindGone) {
			outcome = "gone"
		}
		telemetry.EnrollmentOutcomes.WithLabelValues(outcome).Inc()
		if apierr.Is(apiErr, apierr.KindInternal) {
			h.logger.Error("enrollment failed", "error", apiErr)
		}
		httpserver.RespondAPIErr(w, apiErr)
		return
	}
	telemetry.EnrollmentOutcomes.WithLabelValues("created").Inc()
	h.notifyEnrolled(r.Context(), resp)

	httpserver.Respond(w, http.StatusCreated, EnrollResponse{
		Device:               resp.Device,
		DeviceToken:          resp.DeviceToken,
		DeviceTokenExpiresAt: resp.DeviceTokenExpiresAt,
		Policy:               resp.Policy,
		Group:                resp.Group,
	})
}

// HandleLocation implements POST /api/v1/locations. The caller must hold a
// device token whose device_id matches the body's device_id.
func (h *Handler) HandleLocation(w http.ResponseWriter, r *http.Request) {
	var req LocationRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	if apiErr := h.checkOwnsDevice(r, req.DeviceID); apiErr != nil {
		httpserver.RespondAPIErr(w, apiErr)
		return
	}

	n, err := h.locations.InsertOne(r.Context(), req)
	if err != nil {
		h.logger.Error("inserting location", "error", err, "device_id", req.DeviceID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to record location")
		return
	}

	httpserver.Respond(w, http.StatusOK, LocationResponse{Success: true, ProcessedCount: n})
}

// HandleLocationBatch implements POST /api/v1/locations/batch.
func (h *Handler) HandleLocationBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchLocationRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	if apiErr := h.checkOwnsDevice(r, req.DeviceID); apiErr != nil {
		httpserver.RespondAPIErr(w, apiErr)
		return
	}
	if len(req.Locations) > usage.DefaultMaxBatchLocationPoints {
		httpserver.RespondAPIErr(w, apierr.Validation(
			"too many locations in one batch",
			apierr.Detail{Field: "locations", Message: "must contain at most 50 entries"},
		))
		return
	}

	n, err := h.locations.InsertBatch(r.Context(), req.Locations)
	if err != nil {
		h.logger.Error("inserting location batch", "error", err, "device_id", req.DeviceID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to record locations")
		return
	}

	httpserver.Respond(w, http.StatusOK, LocationResponse{Success: true, ProcessedCount: n})
}

// notifyEnrolled publishes a device.enrolled webhook event for the device's
// organization, but only when that organization's settings have
// notifications enabled. A lookup or publish failure is logged and swallowed
// — it must never turn a successful enrollment into a failed response.
func (h *Handler) notifyEnrolled(ctx context.Context, resp *enrollment.Response) {
	if h.orgSettings == nil || h.hooks == nil || resp.Device.OrganizationID == uuid.Nil {
		return
	}

	settings, err := h.orgSettings.Get(ctx, resp.Device.OrganizationID)
	if err != nil {
		h.logger.Warn("loading organization settings for enrollment notification", "error", err, "organization_id", resp.Device.OrganizationID)
		return
	}
	if !settings.NotificationsEnabled {
		return
	}

	if _, err := h.hooks.Publish(ctx, resp.Device.OrganizationID.String(), deviceEnrolledEvent, nil, map[string]any{
		"device_id":   resp.Device.ID,
		"device_uuid": resp.Device.DeviceUUID,
		"group_id":    resp.Device.GroupID,
	}); err != nil {
		h.logger.Warn("publishing enrollment notification", "error", err, "organization_id", resp.Device.OrganizationID)
	}
}

// checkOwnsDevice enforces that the authenticated device token principal
// matches the device_id the request body targets.
func (h *Handler) checkOwnsDevice(r *http.Request, deviceID int64) *apierr.Error {
	p := auth.FromContext(r.Context())
	if p == nil || p.Kind != auth.KindDeviceToken {
		return apierr.Unauthorized("device token required")
	}
	if p.DeviceID != deviceID {
		return apierr.Forbidden("device token does not match device_id")
	}
	return nil
}
