// Package auth implements the polymorphic credential resolver: API keys,
// device tokens, and signed user sessions all produce a Principal through a
// single middleware pipeline.
package auth

import (
	"context"

	"github.com/google/uuid"
)

// Kind tags which credential produced a Principal.
type Kind string

const (
	KindAPIKey      Kind = "api_key"
	KindDeviceToken Kind = "device_token"
	KindUserSession Kind = "user_session"
)

// Principal is the authenticated identity of one request. It is derived, not
// persisted, and lives only for the request's duration.
type Principal struct {
	Kind Kind

	// Populated when Kind == KindAPIKey.
	APIKeyID       int64
	IsAdmin        bool
	OrganizationID *uuid.UUID

	// Populated when Kind == KindDeviceToken.
	DeviceID int64

	// Populated when Kind == KindUserSession.
	UserID uuid.UUID
	JTI    string
}

type ctxKey string

const principalKey ctxKey = "fleetbeacon_principal"

// NewContext returns a copy of ctx carrying p.
func NewContext(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// FromContext extracts the Principal stored by the auth middleware. It
// returns nil if no principal is present (unauthenticated route, or an
// optional extractor that did not match).
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}
