// Package adminsvc implements the organization-admin HTTP surface: minting
// enrollment tokens, and the mount points for the api-key and webhook-endpoint
// admin CRUD surfaces (pkg/apikey, pkg/webhooksvc). Every route here requires
// a user-session principal; fine-grained per-organization authorization
// beyond "is authenticated" is an external collaborator contract this
// package does not own.
package adminsvc

import (
	"time"

	"github.com/google/uuid"
)

// CreateEnrollmentTokenRequest is the JSON body for
// POST /api/admin/v1/organizations/{id}/enrollment-tokens.
type CreateEnrollmentTokenRequest struct {
	GroupID               *string `json:"group_id,omitempty"`
	PolicyID              *uuid.UUID `json:"policy_id,omitempty"`
	MaxUses               *int    `json:"max_uses,omitempty"`
	ExpiresInDays         *int    `json:"expires_in_days,omitempty"`
	AutoAssignUserByEmail bool    `json:"auto_assign_user_by_email"`
}

// EnrollmentTokenResponse is the JSON response for a newly minted enrollment
// token. TokenPlain is shown exactly once.
type EnrollmentTokenResponse struct {
	ID                    uuid.UUID  `json:"id"`
	OrganizationID        uuid.UUID  `json:"organization_id"`
	TokenPlain            string     `json:"token_plain"`
	TokenPrefix           string     `json:"token_prefix"`
	GroupID               *string    `json:"group_id,omitempty"`
	PolicyID              *uuid.UUID `json:"policy_id,omitempty"`
	MaxUses               *int       `json:"max_uses,omitempty"`
	CurrentUses           int        `json:"current_uses"`
	ExpiresAt             *time.Time `json:"expires_at,omitempty"`
	AutoAssignUserByEmail bool       `json:"auto_assign_user_by_email"`
	CreatedAt             time.Time  `json:"created_at"`
}
