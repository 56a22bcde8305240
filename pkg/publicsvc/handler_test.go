package publicsvc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fleetbeacon/fleetbeacon/internal/config"
)

func TestHandleGet(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
		want Response
	}{
		{
			name: "no oidc, all features off",
			cfg:  &config.Config{},
			want: Response{
				AuthModes: AuthModes{APIKey: true, DeviceToken: true, UserSession: true, OIDC: false},
				Features:  Features{Webhooks: false, Enrollment: false, Reports: false},
			},
		},
		{
			name: "oidc configured, all features on",
			cfg: &config.Config{
				OIDCIssuerURL:     "https://idp.example.com",
				FeatureWebhooks:   true,
				FeatureEnrollment: true,
				FeatureReports:    true,
			},
			want: Response{
				AuthModes: AuthModes{APIKey: true, DeviceToken: true, UserSession: true, OIDC: true},
				Features:  Features{Webhooks: true, Enrollment: true, Reports: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(tt.cfg)
			r := httptest.NewRequest(http.MethodGet, "/api/v1/config/public", nil)
			w := httptest.NewRecorder()

			h.HandleGet(w, r)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}

			var got Response
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if got != tt.want {
				t.Fatalf("response = %+v, want %+v", got, tt.want)
			}
		})
	}
}
