package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fleetbeacon/fleetbeacon/internal/apierr"
	"github.com/fleetbeacon/fleetbeacon/internal/cryptoutil"
)

// DeviceTokenPrefix identifies the brand prefix all raw device tokens start with.
const DeviceTokenPrefix = "dt_"

// DeviceTokenResolver validates the `Authorization: Bearer dt_...` credential.
type DeviceTokenResolver struct {
	Store  Store
	Logger *slog.Logger
}

// Resolve validates rawToken and returns the Principal it authenticates.
func (d *DeviceTokenResolver) Resolve(ctx context.Context, rawToken string) (*Principal, *apierr.Error) {
	if !strings.HasPrefix(rawToken, DeviceTokenPrefix) || len(rawToken) < minAPIKeyLen {
		return nil, apierr.Unauthorized("invalid credentials")
	}

	hash := cryptoutil.SHA256Hex(rawToken)

	row, err := d.Store.GetDeviceTokenByHash(ctx, hash)
	if err != nil {
		return nil, apierr.Internal("looking up device token", err)
	}
	if row == nil || row.RevokedAt != nil || row.ExpiresAt.Before(time.Now()) {
		return nil, apierr.Unauthorized("invalid credentials")
	}

	go func() {
		if err := d.Store.UpdateDeviceTokenLastUsed(context.Background(), row.ID); err != nil {
			d.Logger.Warn("updating device token last_used_at", "device_token_id", row.ID, "error", err)
		}
	}()

	return &Principal{
		Kind:     KindDeviceToken,
		DeviceID: row.DeviceID,
	}, nil
}
