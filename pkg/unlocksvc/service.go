package unlocksvc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetbeacon/fleetbeacon/internal/apierr"
	"github.com/fleetbeacon/fleetbeacon/internal/orgcache"
)

// Service requests and resolves unlock requests. orgSettings is optional:
// a nil cache disables auto-approve, leaving every request pending for an
// admin.
type Service struct {
	store       *Store
	orgSettings *orgcache.Cache
	logger      *slog.Logger
}

// NewService creates a Service backed by pool.
func NewService(pool *pgxpool.Pool, orgSettings *orgcache.Cache, logger *slog.Logger) *Service {
	return &Service{store: NewStore(pool), orgSettings: orgSettings, logger: logger}
}

// Request creates an unlock request on behalf of deviceID, auto-approving
// immediately when the owning organization has opted into
// AutoApproveUnlockRequests.
func (s *Service) Request(ctx context.Context, deviceID int64, req CreateRequest) (Response, *apierr.Error) {
	organizationID, err := s.store.OrganizationIDForDevice(ctx, deviceID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Response{}, apierr.NotFound("device not found")
	}
	if err != nil {
		return Response{}, apierr.Internal("resolving device organization", err)
	}

	status := StatusPending
	if s.orgSettings != nil {
		settings, err := s.orgSettings.Get(ctx, organizationID)
		if err != nil {
			s.logger.Warn("loading organization settings for unlock request, defaulting to manual approval", "error", err, "organization_id", organizationID)
		} else if settings.AutoApproveUnlockRequests {
			status = StatusApproved
		}
	}

	row, err := s.store.Create(ctx, CreateParams{
		DeviceID:   deviceID,
		SettingKey: req.SettingKey,
		Reason:     req.Reason,
		Status:     status,
		ExpiresAt:  time.Now().UTC().Add(defaultTTL),
	})
	if err != nil {
		return Response{}, apierr.Internal("creating unlock request", err)
	}
	return row.ToResponse(), nil
}

// ListPending returns every request awaiting a decision for organizationID.
func (s *Service) ListPending(ctx context.Context, organizationID uuid.UUID) ([]Response, error) {
	rows, err := s.store.ListPendingByOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	items := make([]Response, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].ToResponse())
	}
	return items, nil
}

// Approve grants a pending request.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, respondedBy uuid.UUID, req RespondRequest) (Response, *apierr.Error) {
	return s.respond(ctx, id, StatusApproved, respondedBy, req)
}

// Deny rejects a pending request.
func (s *Service) Deny(ctx context.Context, id uuid.UUID, respondedBy uuid.UUID, req RespondRequest) (Response, *apierr.Error) {
	return s.respond(ctx, id, StatusDenied, respondedBy, req)
}

func (s *Service) respond(ctx context.Context, id uuid.UUID, status Status, respondedBy uuid.UUID, req RespondRequest) (Response, *apierr.Error) {
	row, err := s.store.Respond(ctx, id, status, respondedBy, req.Note)
	if errors.Is(err, pgx.ErrNoRows) {
		return Response{}, apierr.Conflict("unlock request already decided or not found")
	}
	if err != nil {
		return Response{}, apierr.Internal("responding to unlock request", err)
	}
	return row.ToResponse(), nil
}
