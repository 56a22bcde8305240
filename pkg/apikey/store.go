package apikey

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const apiKeyColumns = `id, key_hash_sha256, key_prefix, is_active, is_admin, user_id, organization_id, created_at, expires_at, last_used_at`

// Store provides database operations for API keys against the global pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates an API key Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateParams holds parameters for creating an API key.
type CreateParams struct {
	KeyHashSHA256  string
	KeyPrefix      string
	IsAdmin        bool
	UserID         *uuid.UUID
	OrganizationID *uuid.UUID
	ExpiresAt      *time.Time
}

func scanRow(row pgx.Row) (Row, error) {
	var r Row
	err := row.Scan(
		&r.ID, &r.KeyHashSHA256, &r.KeyPrefix, &r.IsActive, &r.IsAdmin,
		&r.UserID, &r.OrganizationID, &r.CreatedAt, &r.ExpiresAt, &r.LastUsedAt,
	)
	return r, err
}

func scanRows(rows pgx.Rows) ([]Row, error) {
	defer rows.Close()
	var items []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning api key row: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating api key rows: %w", err)
	}
	return items, nil
}

// ListByOrganization returns all API keys scoped to organizationID.
func (s *Store) ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]Row, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE organization_id = $1 ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}
	return scanRows(rows)
}

// Create inserts a new API key row and returns it.
func (s *Store) Create(ctx context.Context, p CreateParams) (Row, error) {
	query := `INSERT INTO api_keys (key_hash_sha256, key_prefix, is_active, is_admin, user_id, organization_id, expires_at)
	VALUES ($1, $2, true, $3, $4, $5, $6)
	RETURNING ` + apiKeyColumns

	row := s.pool.QueryRow(ctx, query,
		p.KeyHashSHA256, p.KeyPrefix, p.IsAdmin, p.UserID, p.OrganizationID, p.ExpiresAt,
	)
	return scanRow(row)
}

// Revoke marks an API key inactive without deleting its row, preserving the
// audit trail of what it once authorized.
func (s *Store) Revoke(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE api_keys SET is_active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("revoking api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
