package unlocksvc

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRowIsExpired(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name string
		row  Row
		want bool
	}{
		{"pending, not expired", Row{Status: StatusPending, ExpiresAt: now.Add(time.Hour)}, false},
		{"pending, past expiry", Row{Status: StatusPending, ExpiresAt: now.Add(-time.Hour)}, true},
		{"approved, past expiry", Row{Status: StatusApproved, ExpiresAt: now.Add(-time.Hour)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.row.IsExpired(now); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRowToResponse(t *testing.T) {
	now := time.Now().UTC()
	respondedBy := uuid.New()
	row := Row{
		ID:             uuid.New(),
		DeviceID:       42,
		OrganizationID: uuid.New(),
		SettingKey:     "screen_time_limit",
		Status:         StatusApproved,
		RespondedBy:    &respondedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(time.Hour),
	}

	resp := row.ToResponse()
	if resp.DeviceID != row.DeviceID || resp.SettingKey != row.SettingKey || resp.Status != row.Status {
		t.Fatalf("response = %+v, does not mirror row fields", resp)
	}
	if resp.RespondedBy == nil || *resp.RespondedBy != respondedBy {
		t.Fatalf("response RespondedBy = %v, want %v", resp.RespondedBy, respondedBy)
	}
}
