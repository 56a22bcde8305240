package invitesvc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const inviteColumns = `id, organization_id, code, email, role, invited_by, expires_at,
	accepted_at, accepted_by, created_at, note`

// Store provides database operations for organization-member invites.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanRow(row pgx.Row) (Row, error) {
	var r Row
	err := row.Scan(
		&r.ID, &r.OrganizationID, &r.Code, &r.Email, &r.Role, &r.InvitedBy, &r.ExpiresAt,
		&r.AcceptedAt, &r.AcceptedBy, &r.CreatedAt, &r.Note,
	)
	return r, err
}

// CreateParams holds parameters for creating an invite.
type CreateParams struct {
	OrganizationID uuid.UUID
	Code           string
	Email          string
	Role           string
	InvitedBy      *uuid.UUID
	ExpiresAt      time.Time
	Note           *string
}

// Create inserts a new invite row and returns it. The code column is unique;
// a collision surfaces as a unique-violation the caller retries with a fresh
// code.
func (s *Store) Create(ctx context.Context, p CreateParams) (Row, error) {
	query := `INSERT INTO org_member_invites (id, organization_id, code, email, role, invited_by, expires_at, created_at, note)
	VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, now(), $7)
	RETURNING ` + inviteColumns

	row := s.pool.QueryRow(ctx, query, p.OrganizationID, p.Code, p.Email, p.Role, p.InvitedBy, p.ExpiresAt, p.Note)
	r, err := scanRow(row)
	if err != nil {
		return Row{}, fmt.Errorf("invitesvc: creating invite: %w", err)
	}
	return r, nil
}

// GetByCode loads an invite by its redemption code.
func (s *Store) GetByCode(ctx context.Context, code string) (Row, error) {
	query := `SELECT ` + inviteColumns + ` FROM org_member_invites WHERE code = $1`
	row, err := scanRow(s.pool.QueryRow(ctx, query, code))
	if err != nil {
		return Row{}, fmt.Errorf("invitesvc: loading invite %s: %w", code, err)
	}
	return row, nil
}

// ListActiveByOrganization returns every not-yet-accepted, not-yet-expired
// invite scoped to organizationID.
func (s *Store) ListActiveByOrganization(ctx context.Context, organizationID uuid.UUID) ([]Row, error) {
	query := `SELECT ` + inviteColumns + ` FROM org_member_invites
		WHERE organization_id = $1 AND accepted_at IS NULL AND expires_at > now()
		ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("invitesvc: listing invites: %w", err)
	}
	defer rows.Close()

	var items []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("invitesvc: scanning invite row: %w", err)
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// MarkAccepted atomically accepts a pending, unexpired invite and returns
// the updated row. 0 rows affected (pgx.ErrNoRows) means the invite does not
// exist, is already accepted, or has expired.
func (s *Store) MarkAccepted(ctx context.Context, code string, acceptedBy uuid.UUID) (Row, error) {
	query := `UPDATE org_member_invites
		SET accepted_at = now(), accepted_by = $2
		WHERE code = $1 AND accepted_at IS NULL AND expires_at > now()
		RETURNING ` + inviteColumns

	row, err := scanRow(s.pool.QueryRow(ctx, query, code, acceptedBy))
	if err != nil {
		return Row{}, err
	}
	return row, nil
}

// Revoke permanently removes a pending invite.
func (s *Store) Revoke(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM org_member_invites WHERE id = $1 AND accepted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("invitesvc: revoking invite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
