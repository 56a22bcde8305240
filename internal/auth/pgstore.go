package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implements Store against the api_keys and device_tokens tables.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a PGStore backed by the given pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// GetAPIKeyByHash implements Store.
func (s *PGStore) GetAPIKeyByHash(ctx context.Context, hash string) (*APIKeyRow, error) {
	var row APIKeyRow
	err := s.pool.QueryRow(ctx, `
		SELECT id, is_active, is_admin, organization_id, expires_at
		FROM api_keys
		WHERE key_hash_sha256 = $1
	`, hash).Scan(&row.ID, &row.IsActive, &row.IsAdmin, &row.OrganizationID, &row.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auth: looking up api key by hash: %w", err)
	}
	return &row, nil
}

// UpdateAPIKeyLastUsed implements Store.
func (s *PGStore) UpdateAPIKeyLastUsed(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("auth: updating api key last_used_at: %w", err)
	}
	return nil
}

// GetDeviceTokenByHash implements Store.
func (s *PGStore) GetDeviceTokenByHash(ctx context.Context, hash string) (*DeviceTokenRow, error) {
	var row DeviceTokenRow
	err := s.pool.QueryRow(ctx, `
		SELECT id, device_id, expires_at, revoked_at
		FROM device_tokens
		WHERE token_hash_sha256 = $1
	`, hash).Scan(&row.ID, &row.DeviceID, &row.ExpiresAt, &row.RevokedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auth: looking up device token by hash: %w", err)
	}
	return &row, nil
}

// UpdateDeviceTokenLastUsed implements Store.
func (s *PGStore) UpdateDeviceTokenLastUsed(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE device_tokens SET last_used_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("auth: updating device token last_used_at: %w", err)
	}
	return nil
}

var _ Store = (*PGStore)(nil)
