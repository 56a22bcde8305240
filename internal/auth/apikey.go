package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fleetbeacon/fleetbeacon/internal/apierr"
	"github.com/fleetbeacon/fleetbeacon/internal/cryptoutil"
)

// APIKeyPrefix identifies the brand prefix all raw API keys must start with.
const APIKeyPrefix = "pm_"

// minAPIKeyLen is the minimum acceptable length of a raw API key, prefix
// included.
const minAPIKeyLen = 11

// APIKeyResolver validates the X-API-Key credential.
type APIKeyResolver struct {
	Store  Store
	Logger *slog.Logger
}

// Resolve validates rawKey and returns the Principal it authenticates. It
// fails closed: any lookup miss, expiry, or inactive row returns
// Unauthorized. lastUsedAt is updated fire-and-forget and never affects the
// outcome of this call.
func (a *APIKeyResolver) Resolve(ctx context.Context, rawKey string) (*Principal, *apierr.Error) {
	if !strings.HasPrefix(rawKey, APIKeyPrefix) || len(rawKey) < minAPIKeyLen {
		return nil, apierr.Unauthorized("invalid credentials")
	}

	hash := cryptoutil.SHA256Hex(rawKey)

	row, err := a.Store.GetAPIKeyByHash(ctx, hash)
	if err != nil {
		return nil, apierr.Internal("looking up API key", err)
	}
	if row == nil || !row.IsActive {
		return nil, apierr.Unauthorized("invalid credentials")
	}
	if row.ExpiresAt != nil && row.ExpiresAt.Before(time.Now()) {
		return nil, apierr.Unauthorized("invalid credentials")
	}

	go func() {
		if err := a.Store.UpdateAPIKeyLastUsed(context.Background(), row.ID); err != nil {
			a.Logger.Warn("updating api key last_used_at", "api_key_id", row.ID, "error", err)
		}
	}()

	return &Principal{
		Kind:           KindAPIKey,
		APIKeyID:       row.ID,
		IsAdmin:        row.IsAdmin,
		OrganizationID: row.OrganizationID,
	}, nil
}
