// Package apikey implements the admin-facing CRUD surface over the
// api_keys table shared with the internal/auth credential resolver: this
// package mints and revokes keys, auth.APIKeyResolver only ever reads them.
package apikey

import (
	"time"

	"github.com/google/uuid"
)

// CreateRequest is the JSON body for
// POST /api/admin/v1/organizations/{orgID}/api-keys.
type CreateRequest struct {
	// OrganizationID scopes the key to one organization. The handler always
	// overwrites it with the organization from the URL.
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	// UserID attributes the key to an individual user, independent of
	// organization scoping.
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Admin     bool       `json:"admin"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Response is the JSON response for a single API key (without the raw key).
type Response struct {
	ID             int64      `json:"id"`
	KeyPrefix      string     `json:"key_prefix"`
	IsActive       bool       `json:"is_active"`
	IsAdmin        bool       `json:"is_admin"`
	UserID         *uuid.UUID `json:"user_id,omitempty"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty"`
}

// CreateResponse includes the raw key, shown to the caller exactly once.
type CreateResponse struct {
	Response
	RawKey string `json:"raw_key"`
}

// Row represents a row of the public.api_keys table.
type Row struct {
	ID             int64
	KeyHashSHA256  string
	KeyPrefix      string
	IsActive       bool
	IsAdmin        bool
	UserID         *uuid.UUID
	OrganizationID *uuid.UUID
	CreatedAt      time.Time
	ExpiresAt      *time.Time
	LastUsedAt     *time.Time
}

// ToResponse converts a Row to its public DTO.
func (r *Row) ToResponse() Response {
	return Response{
		ID:             r.ID,
		KeyPrefix:      r.KeyPrefix,
		IsActive:       r.IsActive,
		IsAdmin:        r.IsAdmin,
		UserID:         r.UserID,
		OrganizationID: r.OrganizationID,
		CreatedAt:      r.CreatedAt,
		ExpiresAt:      r.ExpiresAt,
		LastUsedAt:     r.LastUsedAt,
	}
}
