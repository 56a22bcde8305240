package invitesvc

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRowIsValid(t *testing.T) {
	now := time.Now().UTC()
	accepted := now.Add(-time.Hour)

	tests := []struct {
		name string
		row  Row
		want bool
	}{
		{"pending, not expired", Row{ExpiresAt: now.Add(time.Hour)}, true},
		{"accepted", Row{ExpiresAt: now.Add(time.Hour), AcceptedAt: &accepted}, false},
		{"expired", Row{ExpiresAt: now.Add(-time.Hour)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.row.IsValid(now); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRowToPublicInfoOmitsEmailAndInviter(t *testing.T) {
	now := time.Now().UTC()
	invitedBy := uuid.New()
	row := Row{
		OrganizationID: uuid.New(),
		Code:           "ABC-DEF-GHJ",
		Email:          "secret@example.com",
		Role:           "member",
		InvitedBy:      &invitedBy,
		ExpiresAt:      now.Add(time.Hour),
	}

	info := row.ToPublicInfo(now)
	if !info.IsValid {
		t.Fatal("expected a pending, unexpired invite to be valid")
	}
	if info.OrganizationID != row.OrganizationID || info.Role != row.Role || !info.ExpiresAt.Equal(row.ExpiresAt) {
		t.Fatalf("public info = %+v, does not mirror row fields", info)
	}
}

func TestRowToResponse(t *testing.T) {
	now := time.Now().UTC()
	row := Row{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		Code:           "ABC-DEF-GHJ",
		Email:          "invitee@example.com",
		Role:           "admin",
		ExpiresAt:      now.Add(time.Hour),
		CreatedAt:      now,
	}

	resp := row.ToResponse()
	if resp.Code != row.Code || resp.Email != row.Email || resp.Role != row.Role {
		t.Fatalf("response = %+v, does not mirror row fields", resp)
	}
}
