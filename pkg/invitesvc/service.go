package invitesvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetbeacon/fleetbeacon/internal/apierr"
	"github.com/fleetbeacon/fleetbeacon/internal/cryptoutil"
)

// uniqueViolation is Postgres's SQLSTATE for a unique-constraint violation.
const uniqueViolation = "23505"

// defaultExpiresInHours matches the original system's invite default.
const defaultExpiresInHours = 24

// maxCodeCollisionRetries bounds the retry loop on a code collision — with
// 32^9 possible codes a second collision in the same call is
// vanishingly unlikely.
const maxCodeCollisionRetries = 5

// Service mints and redeems organization-member invites.
type Service struct {
	store  *Store
	logger *slog.Logger
}

// NewService creates a Service backed by pool.
func NewService(pool *pgxpool.Pool, logger *slog.Logger) *Service {
	return &Service{store: NewStore(pool), logger: logger}
}

// Create mints a new invite for organizationID, retrying on a code
// collision.
func (s *Service) Create(ctx context.Context, organizationID uuid.UUID, invitedBy *uuid.UUID, req CreateRequest) (Response, error) {
	expiresInHours := req.ExpiresInHours
	if expiresInHours == 0 {
		expiresInHours = defaultExpiresInHours
	}
	expiresAt := time.Now().UTC().Add(time.Duration(expiresInHours) * time.Hour)

	var row Row
	var err error
	for attempt := 0; attempt < maxCodeCollisionRetries; attempt++ {
		code, genErr := cryptoutil.GenerateInviteCode()
		if genErr != nil {
			return Response{}, fmt.Errorf("generating invite code: %w", genErr)
		}

		row, err = s.store.Create(ctx, CreateParams{
			OrganizationID: organizationID,
			Code:           code,
			Email:          req.Email,
			Role:           req.Role,
			InvitedBy:      invitedBy,
			ExpiresAt:      expiresAt,
			Note:           req.Note,
		})
		if err == nil {
			return row.ToResponse(), nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			s.logger.Warn("invite code collision, retrying", "attempt", attempt)
			continue
		}
		return Response{}, fmt.Errorf("creating invite: %w", err)
	}
	return Response{}, fmt.Errorf("creating invite: exhausted %d code collision retries", maxCodeCollisionRetries)
}

// GetPublicInfo returns the unauthenticated preview for a code.
func (s *Service) GetPublicInfo(ctx context.Context, code string) (PublicInfo, *apierr.Error) {
	row, err := s.store.GetByCode(ctx, code)
	if errors.Is(err, pgx.ErrNoRows) {
		return PublicInfo{}, apierr.NotFound("invite not found")
	}
	if err != nil {
		return PublicInfo{}, apierr.Internal("loading invite", err)
	}
	return row.ToPublicInfo(time.Now().UTC()), nil
}

// Redeem accepts a pending, unexpired invite on behalf of acceptedBy.
func (s *Service) Redeem(ctx context.Context, code string, acceptedBy uuid.UUID) (Response, *apierr.Error) {
	row, err := s.store.MarkAccepted(ctx, code, acceptedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return Response{}, apierr.Gone("invite not found, already accepted, or expired")
	}
	if err != nil {
		return Response{}, apierr.Internal("redeeming invite", err)
	}
	return row.ToResponse(), nil
}

// ListActive returns every redeemable invite for organizationID.
func (s *Service) ListActive(ctx context.Context, organizationID uuid.UUID) ([]Response, error) {
	rows, err := s.store.ListActiveByOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	items := make([]Response, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].ToResponse())
	}
	return items, nil
}

// Revoke deletes a pending invite.
func (s *Service) Revoke(ctx context.Context, id uuid.UUID) error {
	return s.store.Revoke(ctx, id)
}
