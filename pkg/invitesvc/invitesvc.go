// Package invitesvc implements organization-member invite codes: an admin
// mints a code for an email address, the invitee redeems it once to join the
// organization. The code format matches the core's other opaque tokens but
// is human-typeable: three dash-separated groups of three characters drawn
// from an alphabet with ambiguous characters removed.
package invitesvc

import (
	"time"

	"github.com/google/uuid"
)

// CreateRequest is the JSON body for POST .../invites.
type CreateRequest struct {
	Email          string  `json:"email" validate:"required,email"`
	Role           string  `json:"role" validate:"required,oneof=member admin"`
	ExpiresInHours int     `json:"expires_in_hours" validate:"omitempty,min=1,max=168"`
	Note           *string `json:"note" validate:"omitempty,max=500"`
}

// Response is the JSON response for one invite.
type Response struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	Code           string     `json:"code"`
	Email          string     `json:"email"`
	Role           string     `json:"role"`
	InvitedBy      *uuid.UUID `json:"invited_by,omitempty"`
	ExpiresAt      time.Time  `json:"expires_at"`
	AcceptedAt     *time.Time `json:"accepted_at,omitempty"`
	AcceptedBy     *uuid.UUID `json:"accepted_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	Note           *string    `json:"note,omitempty"`
}

// PublicInfo is the unauthenticated preview a client shows before redeeming
// a code — it never reveals the invitee's email or the inviting admin.
type PublicInfo struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	Role           string    `json:"role"`
	ExpiresAt      time.Time `json:"expires_at"`
	IsValid        bool      `json:"is_valid"`
}

// Row is an org_member_invites table row.
type Row struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Code           string
	Email          string
	Role           string
	InvitedBy      *uuid.UUID
	ExpiresAt      time.Time
	AcceptedAt     *time.Time
	AcceptedBy     *uuid.UUID
	CreatedAt      time.Time
	Note           *string
}

// ToResponse converts a Row to its public DTO.
func (r *Row) ToResponse() Response {
	return Response{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		Code:           r.Code,
		Email:          r.Email,
		Role:           r.Role,
		InvitedBy:      r.InvitedBy,
		ExpiresAt:      r.ExpiresAt,
		AcceptedAt:     r.AcceptedAt,
		AcceptedBy:     r.AcceptedBy,
		CreatedAt:      r.CreatedAt,
		Note:           r.Note,
	}
}

// IsValid reports whether the invite can still be redeemed: not yet
// accepted and not expired.
func (r *Row) IsValid(now time.Time) bool {
	return r.AcceptedAt == nil && r.ExpiresAt.After(now)
}

// ToPublicInfo converts a Row to the unauthenticated preview DTO.
func (r *Row) ToPublicInfo(now time.Time) PublicInfo {
	return PublicInfo{
		OrganizationID: r.OrganizationID,
		Role:           r.Role,
		ExpiresAt:      r.ExpiresAt,
		IsValid:        r.IsValid(now),
	}
}
