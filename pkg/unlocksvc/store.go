package unlocksvc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const requestColumns = `id, device_id, organization_id, setting_key, status, reason,
	responded_by, response_note, created_at, updated_at, expires_at, responded_at`

// Store provides database operations for unlock requests.
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
		&r.ID, &r.DeviceID, &r.OrganizationID, &r.SettingKey, &r.Status, &r.Reason,
		&r.RespondedBy, &r.ResponseNote, &r.CreatedAt, &r.UpdatedAt, &r.ExpiresAt, &r.RespondedAt,
	)
	return r, err
}

// CreateParams holds parameters for creating an unlock request.
type CreateParams struct {
	DeviceID   int64
	SettingKey string
	Reason     *string
	Status     Status
	ExpiresAt  time.Time
}

// Create inserts a new unlock request scoped to the device's organization.
// Status is caller-supplied so the service can create an already-approved
// row when the organization auto-approves.
func (s *Store) Create(ctx context.Context, p CreateParams) (Row, error) {
	query := `
		INSERT INTO unlock_requests (id, device_id, organization_id, setting_key, status, reason,
			responded_at, created_at, updated_at, expires_at)
		SELECT gen_random_uuid(), $1, d.organization_id, $2, $3, $4,
			CASE WHEN $3 = 'approved' THEN now() END, now(), now(), $5
		FROM devices d
		WHERE d.id = $1
		RETURNING ` + requestColumns

	row := s.pool.QueryRow(ctx, query, p.DeviceID, p.SettingKey, p.Status, p.Reason, p.ExpiresAt)
	r, err := scanRow(row)
	if err != nil {
		return Row{}, fmt.Errorf("unlocksvc: creating unlock request: %w", err)
	}
	return r, nil
}

// OrganizationIDForDevice returns the organization a device belongs to, so
// the service can consult that organization's auto-approve setting before
// the row is created.
func (s *Store) OrganizationIDForDevice(ctx context.Context, deviceID int64) (uuid.UUID, error) {
	var organizationID uuid.UUID
	err := s.pool.QueryRow(ctx, `SELECT organization_id FROM devices WHERE id = $1`, deviceID).Scan(&organizationID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("unlocksvc: loading organization for device %d: %w", deviceID, err)
	}
	return organizationID, nil
}

// GetByID returns one unlock request by its id.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (Row, error) {
	query := `SELECT ` + requestColumns + ` FROM unlock_requests WHERE id = $1`
	r, err := scanRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return Row{}, fmt.Errorf("unlocksvc: loading unlock request %s: %w", id, err)
	}
	return r, nil
}

// ListPendingByOrganization returns every request still awaiting a
// decision, oldest first, for the admin queue.
func (s *Store) ListPendingByOrganization(ctx context.Context, organizationID uuid.UUID) ([]Row, error) {
	query := `SELECT ` + requestColumns + ` FROM unlock_requests
		WHERE organization_id = $1 AND status = 'pending'
		ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("unlocksvc: listing pending unlock requests: %w", err)
	}
	defer rows.Close()

	var items []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("unlocksvc: scanning unlock request row: %w", err)
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// Respond moves a pending request to approved or denied, recording who
// decided it and why. Returns pgx.ErrNoRows if the request was not pending
// (already decided, or expired).
func (s *Store) Respond(ctx context.Context, id uuid.UUID, status Status, respondedBy uuid.UUID, note *string) (Row, error) {
	query := `
		UPDATE unlock_requests
		SET status = $2, responded_by = $3, response_note = $4, responded_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'pending' AND expires_at > now()
		RETURNING ` + requestColumns

	row := s.pool.QueryRow(ctx, query, id, status, respondedBy, note)
	r, err := scanRow(row)
	if err != nil {
		return Row{}, err
	}
	return r, nil
}
