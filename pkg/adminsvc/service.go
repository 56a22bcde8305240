package adminsvc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetbeacon/fleetbeacon/internal/cryptoutil"
)

// enrollmentTokenDisplayPrefixLen mirrors pkg/apikey's display-prefix
// convention: enough characters to tell tokens apart in a list without
// exposing the secret.
const enrollmentTokenDisplayPrefixLen = 8

// EnrollmentTokenService encapsulates enrollment-token minting.
type EnrollmentTokenService struct {
	store  *EnrollmentTokenStore
	logger *slog.Logger
}

// NewEnrollmentTokenService creates an EnrollmentTokenService backed by pool.
func NewEnrollmentTokenService(pool *pgxpool.Pool, logger *slog.Logger) *EnrollmentTokenService {
	return &EnrollmentTokenService{
		store:  NewEnrollmentTokenStore(pool),
		logger: logger,
	}
}

// Create mints a new enrollment token, stores only its hash, and returns the
// raw value once — it is never recoverable after this call returns.
func (s *EnrollmentTokenService) Create(ctx context.Context, organizationID uuid.UUID, req CreateEnrollmentTokenRequest) (EnrollmentTokenResponse, error) {
	raw, err := cryptoutil.GenerateToken(EnrollmentTokenPrefix, 32)
	if err != nil {
		return EnrollmentTokenResponse{}, fmt.Errorf("generating enrollment token: %w", err)
	}
	hash := cryptoutil.SHA256Hex(raw)
	prefix := enrollmentTokenDisplayPrefix(raw)

	var expiresAt *time.Time
	if req.ExpiresInDays != nil {
		t := time.Now().UTC().AddDate(0, 0, *req.ExpiresInDays)
		expiresAt = &t
	}

	row, err := s.store.Create(ctx, CreateParams{
		OrganizationID:        organizationID,
		TokenHashSHA256:       hash,
		TokenPrefix:           prefix,
		GroupID:               req.GroupID,
		PolicyID:              req.PolicyID,
		MaxUses:               req.MaxUses,
		ExpiresAt:             expiresAt,
		AutoAssignUserByEmail: req.AutoAssignUserByEmail,
	})
	if err != nil {
		return EnrollmentTokenResponse{}, fmt.Errorf("creating enrollment token: %w", err)
	}

	return EnrollmentTokenResponse{
		ID:                    row.ID,
		OrganizationID:        row.OrganizationID,
		TokenPlain:            raw,
		TokenPrefix:           row.TokenPrefix,
		GroupID:               row.GroupID,
		PolicyID:              row.PolicyID,
		MaxUses:               row.MaxUses,
		CurrentUses:           row.CurrentUses,
		ExpiresAt:             row.ExpiresAt,
		AutoAssignUserByEmail: row.AutoAssignUserByEmail,
		CreatedAt:             row.CreatedAt,
	}, nil
}

// enrollmentTokenDisplayPrefix returns the first few characters of raw after
// its brand prefix.
func enrollmentTokenDisplayPrefix(raw string) string {
	body := raw[len(EnrollmentTokenPrefix):]
	if len(body) > enrollmentTokenDisplayPrefixLen {
		body = body[:enrollmentTokenDisplayPrefixLen]
	}
	return EnrollmentTokenPrefix + body
}
