package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// APIKeyRow is the subset of the api_keys table the resolver needs.
type APIKeyRow struct {
	ID             int64
	IsActive       bool
	IsAdmin        bool
	OrganizationID *uuid.UUID
	ExpiresAt      *time.Time
}

// DeviceTokenRow is the subset of the device_tokens table the resolver needs.
type DeviceTokenRow struct {
	ID        int64
	DeviceID  int64
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Store abstracts the database operations the credential resolvers need, so
// this package stays decoupled from the concrete schema.
type Store interface {
	// GetAPIKeyByHash returns the row for an active lookup by its SHA-256
	// hash. Implementations return (nil, nil) on no match — "not found" is
	// not itself an error here; the resolver maps that to Unauthorized.
	GetAPIKeyByHash(ctx context.Context, hash string) (*APIKeyRow, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id int64) error

	GetDeviceTokenByHash(ctx context.Context, hash string) (*DeviceTokenRow, error)
	UpdateDeviceTokenLastUsed(ctx context.Context, id int64) error
}
