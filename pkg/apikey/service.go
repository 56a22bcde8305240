package apikey

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetbeacon/fleetbeacon/internal/auth"
	"github.com/fleetbeacon/fleetbeacon/internal/cryptoutil"
)

// displayPrefixLen is how many characters after the brand prefix are kept
// for display, enough to tell keys apart in a list without exposing enough
// of the secret to matter.
const displayPrefixLen = 8

// Service encapsulates API key business logic.
type Service struct {
	store  *Store
	logger *slog.Logger
}

// NewService creates an API key Service backed by the given global pool.
func NewService(pool *pgxpool.Pool, logger *slog.Logger) *Service {
	return &Service{
		store:  NewStore(pool),
		logger: logger,
	}
}

// ListByOrganization returns all API keys scoped to organizationID.
func (s *Service) ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]Response, error) {
	rows, err := s.store.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}

	items := make([]Response, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].ToResponse())
	}
	return items, nil
}

// Create mints a new API key, stores only its hash, and returns the raw
// value once — it is never recoverable after this call returns.
func (s *Service) Create(ctx context.Context, req CreateRequest) (CreateResponse, error) {
	raw, err := cryptoutil.GenerateToken(auth.APIKeyPrefix, 32)
	if err != nil {
		return CreateResponse{}, fmt.Errorf("generating api key: %w", err)
	}
	hash := cryptoutil.SHA256Hex(raw)
	prefix := displayPrefix(raw)

	row, err := s.store.Create(ctx, CreateParams{
		KeyHashSHA256:  hash,
		KeyPrefix:      prefix,
		IsAdmin:        req.Admin,
		UserID:         req.UserID,
		OrganizationID: req.OrganizationID,
		ExpiresAt:      req.ExpiresAt,
	})
	if err != nil {
		return CreateResponse{}, fmt.Errorf("creating api key: %w", err)
	}

	return CreateResponse{
		Response: row.ToResponse(),
		RawKey:   raw,
	}, nil
}

// Revoke marks an API key inactive. The row is kept for audit history.
func (s *Service) Revoke(ctx context.Context, id int64) error {
	if err := s.store.Revoke(ctx, id); err != nil {
		return fmt.Errorf("revoking api key: %w", err)
	}
	return nil
}

// displayPrefix returns the first displayPrefixLen characters of raw after
// its brand prefix, used so a listing can distinguish keys at a glance.
func displayPrefix(raw string) string {
	body := raw[len(auth.APIKeyPrefix):]
	if len(body) > displayPrefixLen {
		body = body[:displayPrefixLen]
	}
	return auth.APIKeyPrefix + body
}
