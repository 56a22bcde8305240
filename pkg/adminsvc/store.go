package adminsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnrollmentTokenPrefix is the brand prefix all raw enrollment tokens start with.
const EnrollmentTokenPrefix = "enroll_"

const enrollmentTokenColumns = `id, organization_id, token_prefix, group_id, policy_id, max_uses,
	current_uses, expires_at, auto_assign_user_by_email, created_at`

// EnrollmentTokenStore provides database operations for enrollment tokens.
type EnrollmentTokenStore struct {
	pool *pgxpool.Pool
}

// NewEnrollmentTokenStore creates an EnrollmentTokenStore backed by pool.
func NewEnrollmentTokenStore(pool *pgxpool.Pool) *EnrollmentTokenStore {
	return &EnrollmentTokenStore{pool: pool}
}

// CreateParams holds parameters for minting a new enrollment token.
type CreateParams struct {
	OrganizationID        uuid.UUID
	TokenHashSHA256       string
	TokenPrefix           string
	GroupID               *string
	PolicyID              *uuid.UUID
	MaxUses               *int
	ExpiresAt             *time.Time
	AutoAssignUserByEmail bool
}

// row is what Create reads back, minus the hash (never re-read after insert).
type row struct {
	ID                    uuid.UUID
	OrganizationID        uuid.UUID
	TokenPrefix           string
	GroupID               *string
	PolicyID              *uuid.UUID
	MaxUses               *int
	CurrentUses           int
	ExpiresAt             *time.Time
	AutoAssignUserByEmail bool
	CreatedAt             time.Time
}

// Create inserts a new enrollment token row and returns it (without the hash).
func (s *EnrollmentTokenStore) Create(ctx context.Context, p CreateParams) (row, error) {
	query := `INSERT INTO enrollment_tokens
		(id, organization_id, token_hash_sha256, token_prefix, group_id, policy_id, max_uses, current_uses, expires_at, auto_assign_user_by_email, created_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, 0, $7, $8, now())
		RETURNING ` + enrollmentTokenColumns

	var r row
	err := s.pool.QueryRow(ctx, query,
		p.OrganizationID, p.TokenHashSHA256, p.TokenPrefix, p.GroupID, p.PolicyID, p.MaxUses, p.ExpiresAt, p.AutoAssignUserByEmail,
	).Scan(&r.ID, &r.OrganizationID, &r.TokenPrefix, &r.GroupID, &r.PolicyID, &r.MaxUses,
		&r.CurrentUses, &r.ExpiresAt, &r.AutoAssignUserByEmail, &r.CreatedAt)
	if err != nil {
		return row{}, fmt.Errorf("adminsvc: creating enrollment token: %w", err)
	}
	return r, nil
}
