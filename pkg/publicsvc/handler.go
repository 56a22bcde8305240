package publicsvc

import (
	"net/http"

	"github.com/fleetbeacon/fleetbeacon/internal/config"
	"github.com/fleetbeacon/fleetbeacon/internal/httpserver"
)

// Handler serves the public config discovery endpoint.
type Handler struct {
	cfg *config.Config
}

// NewHandler creates a publicsvc Handler reading from cfg.
func NewHandler(cfg *config.Config) *Handler {
	return &Handler{cfg: cfg}
}

// HandleGet implements GET /api/v1/config/public.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	httpserver.Respond(w, http.StatusOK, Response{
		AuthModes: AuthModes{
			APIKey:      true,
			DeviceToken: true,
			UserSession: true,
			OIDC:        h.cfg.OIDCIssuerURL != "",
		},
		Features: Features{
			Webhooks:   h.cfg.FeatureWebhooks,
			Enrollment: h.cfg.FeatureEnrollment,
			Reports:    h.cfg.FeatureReports,
		},
	})
}
