package enrollment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetbeacon/fleetbeacon/internal/apierr"
	"github.com/fleetbeacon/fleetbeacon/internal/cryptoutil"
)

// Engine performs the enroll exchange as one atomic transaction.
type Engine struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
}

type tokenRow struct {
	id                    uuid.UUID
	organizationID        uuid.UUID
	groupID               *string
	policyID              *uuid.UUID
	maxUses               *int
	currentUses           int
	expiresAt             *time.Time
	autoAssignUserByEmail bool
	revokedAt             *time.Time
}

func (t tokenRow) validityError() *apierr.Error {
	now := time.Now()
	switch {
	case t.revokedAt != nil:
		return apierr.Gone("enrollment token has been revoked")
	case t.expiresAt != nil && t.expiresAt.Before(now):
		return apierr.Gone("enrollment token has expired")
	case t.maxUses != nil && t.currentUses >= *t.maxUses:
		return apierr.Gone("enrollment token has reached its maximum uses")
	default:
		return nil
	}
}

// Enroll runs the full enrollment exchange described by req.
func (e *Engine) Enroll(ctx context.Context, req Request) (*Response, *apierr.Error) {
	tx, err := e.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, apierr.Internal("enrollment: starting transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tokenHash := cryptoutil.SHA256Hex(req.EnrollmentTokenPlain)
	token, err := e.loadToken(ctx, tx, tokenHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apierr.NotFound("enrollment token not found")
		}
		return nil, apierr.Internal("enrollment: loading token", err)
	}
	if apiErr := token.validityError(); apiErr != nil {
		return nil, apiErr
	}

	existing, err := e.loadDeviceByUUID(ctx, tx, req.DeviceUUID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.Internal("enrollment: loading existing device", err)
	}
	if existing != nil && existing.OrganizationID != uuid.Nil && existing.OrganizationID != token.organizationID {
		return nil, apierr.Conflict("device is already enrolled in a different organization")
	}

	groupID := ""
	if token.groupID != nil && *token.groupID != "" {
		groupID = *token.groupID
	} else {
		groupID = "org_" + token.organizationID.String()
	}

	device, err := e.upsertDevice(ctx, tx, req, token, groupID, existing)
	if err != nil {
		return nil, apierr.Internal("enrollment: writing device", err)
	}

	affected, err := e.incrementTokenUsage(ctx, tx, token.id)
	if err != nil {
		return nil, apierr.Internal("enrollment: incrementing token usage", err)
	}
	if !affected {
		return nil, apierr.Gone("enrollment token reached maximum uses")
	}

	rawDeviceToken, err := cryptoutil.GenerateToken(DeviceTokenPrefix, deviceTokenEntropyBytes)
	if err != nil {
		return nil, apierr.Internal("enrollment: generating device token", err)
	}
	deviceTokenExpiresAt := time.Now().Add(deviceTokenTTL)
	if err := e.insertDeviceToken(ctx, tx, device.ID, token.organizationID, rawDeviceToken, deviceTokenExpiresAt); err != nil {
		return nil, apierr.Internal("enrollment: storing device token", err)
	}

	var policy *PolicySnapshot
	if token.policyID != nil {
		policy, err = e.loadPolicySnapshot(ctx, tx, *token.policyID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apierr.Internal("enrollment: loading policy snapshot", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apierr.Internal("enrollment: committing transaction", err)
	}

	return &Response{
		Device:               *device,
		DeviceToken:          rawDeviceToken,
		DeviceTokenExpiresAt: deviceTokenExpiresAt,
		Policy:               policy,
		Group:                &Group{ID: groupID},
	}, nil
}

func (e *Engine) loadToken(ctx context.Context, tx pgx.Tx, tokenHash string) (tokenRow, error) {
	var t tokenRow
	err := tx.QueryRow(ctx, `
		SELECT id, organization_id, group_id, policy_id, max_uses, current_uses,
		       expires_at, auto_assign_user_by_email, revoked_at
		FROM enrollment_tokens
		WHERE token_hash_sha256 = $1
	`, tokenHash).Scan(
		&t.id, &t.organizationID, &t.groupID, &t.policyID, &t.maxUses, &t.currentUses,
		&t.expiresAt, &t.autoAssignUserByEmail, &t.revokedAt,
	)
	return t, err
}

func (e *Engine) loadDeviceByUUID(ctx context.Context, tx pgx.Tx, deviceUUID string) (*Device, error) {
	var d Device
	var orgID *uuid.UUID
	err := tx.QueryRow(ctx, `
		SELECT id, device_uuid, display_name, group_id, platform, organization_id,
		       policy_id, enrollment_status, created_at, updated_at
		FROM devices
		WHERE device_uuid = $1
	`, deviceUUID).Scan(
		&d.ID, &d.DeviceUUID, &d.DisplayName, &d.GroupID, &d.Platform, &orgID,
		&d.PolicyID, &d.EnrollmentStatus, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if orgID != nil {
		d.OrganizationID = *orgID
	}
	return &d, nil
}

func (e *Engine) upsertDevice(ctx context.Context, tx pgx.Tx, req Request, token tokenRow, groupID string, existing *Device) (*Device, error) {
	var deviceInfo []byte
	if req.DeviceInfo != nil {
		b, err := json.Marshal(req.DeviceInfo)
		if err != nil {
			return nil, fmt.Errorf("marshaling device info: %w", err)
		}
		deviceInfo = b
	}

	var d Device
	if existing != nil {
		err := tx.QueryRow(ctx, `
			UPDATE devices
			SET organization_id = $2,
			    group_id = $3,
			    policy_id = $4,
			    enrollment_status = 'enrolled',
			    display_name = $5,
			    platform = $6,
			    fcm_token = nullif($7, ''),
			    device_info = coalesce($8, device_info),
			    updated_at = now()
			WHERE id = $1
			RETURNING id, device_uuid, display_name, group_id, platform, organization_id,
			          policy_id, enrollment_status, created_at, updated_at
		`, existing.ID, token.organizationID, groupID, token.policyID, req.DisplayName, req.Platform, req.FCMToken, deviceInfo,
		).Scan(&d.ID, &d.DeviceUUID, &d.DisplayName, &d.GroupID, &d.Platform, &d.OrganizationID,
			&d.PolicyID, &d.EnrollmentStatus, &d.CreatedAt, &d.UpdatedAt)
		return &d, err
	}

	err := tx.QueryRow(ctx, `
		INSERT INTO devices (
			device_uuid, display_name, group_id, platform, fcm_token, device_info,
			organization_id, policy_id, enrollment_status, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, nullif($5, ''), $6, $7, $8, 'enrolled', true, now(), now())
		RETURNING id, device_uuid, display_name, group_id, platform, organization_id,
		          policy_id, enrollment_status, created_at, updated_at
	`, req.DeviceUUID, req.DisplayName, groupID, req.Platform, req.FCMToken, deviceInfo,
		token.organizationID, token.policyID,
	).Scan(&d.ID, &d.DeviceUUID, &d.DisplayName, &d.GroupID, &d.Platform, &d.OrganizationID,
		&d.PolicyID, &d.EnrollmentStatus, &d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

// incrementTokenUsage bumps current_uses by one, guarded so a concurrent
// enrollment cannot push it past max_uses. Returns false if the guard
// rejected the increment (token already exhausted by a concurrent winner).
func (e *Engine) incrementTokenUsage(ctx context.Context, tx pgx.Tx, tokenID uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE enrollment_tokens
		SET current_uses = current_uses + 1
		WHERE id = $1 AND (max_uses IS NULL OR current_uses < max_uses)
	`, tokenID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (e *Engine) insertDeviceToken(ctx context.Context, tx pgx.Tx, deviceID int64, organizationID uuid.UUID, rawToken string, expiresAt time.Time) error {
	tokenHash := cryptoutil.SHA256Hex(rawToken)
	tokenPrefix := rawToken[:min(len(rawToken), 8)]
	_, err := tx.Exec(ctx, `
		INSERT INTO device_tokens (device_id, organization_id, token_hash_sha256, token_prefix, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, deviceID, organizationID, tokenHash, tokenPrefix, expiresAt)
	return err
}

func (e *Engine) loadPolicySnapshot(ctx context.Context, tx pgx.Tx, policyID uuid.UUID) (*PolicySnapshot, error) {
	var p PolicySnapshot
	var settingsRaw []byte
	err := tx.QueryRow(ctx, `
		SELECT id, name, settings, locked_settings FROM policies WHERE id = $1
	`, policyID).Scan(&p.ID, &p.Name, &settingsRaw, &p.LockedSettings)
	if err != nil {
		return nil, err
	}
	if len(settingsRaw) > 0 {
		if err := json.Unmarshal(settingsRaw, &p.Settings); err != nil {
			return nil, fmt.Errorf("unmarshaling policy settings: %w", err)
		}
	}
	return &p, nil
}
