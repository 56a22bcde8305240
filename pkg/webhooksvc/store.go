package webhooksvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetbeacon/fleetbeacon/internal/breaker"
	"github.com/fleetbeacon/fleetbeacon/internal/delivery"
)

const endpointColumns = `id, owner_key, name, target_url, hmac_secret, enabled, event_types,
	consecutive_failures, circuit_open_until, created_at, updated_at`

// Store provides database operations for webhook endpoints. ownerKey is
// either a deviceId or an organizationId string, depending on who owns the
// endpoint; this package treats it as an opaque scoping key.
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
		&r.ID, &r.OwnerKey, &r.Name, &r.TargetURL, &r.HMACSecret, &r.Enabled, &r.EventTypes,
		&r.ConsecutiveFailures, &r.CircuitOpenUntil, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

// CreateParams holds parameters for creating a webhook endpoint.
type CreateParams struct {
	OwnerKey   string
	Name       string
	TargetURL  string
	HMACSecret string
	EventTypes []string
}

// Create inserts a new webhook endpoint, enabled by default with a clear
// breaker state. The (owner_key, name) pair is unique case-insensitively;
// a collision surfaces as a unique-violation the caller maps to Conflict.
func (s *Store) Create(ctx context.Context, p CreateParams) (Row, error) {
	query := `INSERT INTO webhook_endpoints (id, owner_key, name, target_url, hmac_secret, enabled, event_types, consecutive_failures, created_at, updated_at)
	VALUES (gen_random_uuid(), $1, $2, $3, $4, true, $5, 0, now(), now())
	RETURNING ` + endpointColumns

	row := s.pool.QueryRow(ctx, query, p.OwnerKey, p.Name, p.TargetURL, p.HMACSecret, p.EventTypes)
	r, err := scanRow(row)
	if err != nil {
		return Row{}, fmt.Errorf("webhooksvc: creating endpoint: %w", err)
	}
	return r, nil
}

// ListByOwner returns every webhook endpoint scoped to ownerKey.
func (s *Store) ListByOwner(ctx context.Context, ownerKey string) ([]Row, error) {
	query := `SELECT ` + endpointColumns + ` FROM webhook_endpoints WHERE owner_key = $1 ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, query, ownerKey)
	if err != nil {
		return nil, fmt.Errorf("webhooksvc: listing endpoints: %w", err)
	}
	defer rows.Close()

	var items []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("webhooksvc: scanning endpoint row: %w", err)
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// ListActiveByOwnerAndEvent returns enabled endpoints scoped to ownerKey
// that subscribe to eventType, the set the enqueue glue fans a new domain
// event out to.
func (s *Store) ListActiveByOwnerAndEvent(ctx context.Context, ownerKey, eventType string) ([]Row, error) {
	query := `SELECT ` + endpointColumns + ` FROM webhook_endpoints
		WHERE owner_key = $1 AND enabled AND $2 = ANY(event_types)`
	rows, err := s.pool.Query(ctx, query, ownerKey, eventType)
	if err != nil {
		return nil, fmt.Errorf("webhooksvc: listing active endpoints: %w", err)
	}
	defer rows.Close()

	var items []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("webhooksvc: scanning endpoint row: %w", err)
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// Delete permanently removes a webhook endpoint.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM webhook_endpoints WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("webhooksvc: deleting endpoint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// GetEndpoint implements delivery.EndpointStore.
func (s *Store) GetEndpoint(ctx context.Context, webhookID uuid.UUID) (*delivery.Endpoint, error) {
	var e delivery.Endpoint
	err := s.pool.QueryRow(ctx, `
		SELECT id, target_url, hmac_secret, enabled, consecutive_failures, circuit_open_until
		FROM webhook_endpoints
		WHERE id = $1
	`, webhookID).Scan(&e.ID, &e.TargetURL, &e.HMACSecret, &e.Enabled,
		&e.Breaker.ConsecutiveFailures, &e.Breaker.CircuitOpenUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("webhooksvc: endpoint %s: %w", webhookID, pgx.ErrNoRows)
	}
	if err != nil {
		return nil, fmt.Errorf("webhooksvc: loading endpoint %s: %w", webhookID, err)
	}
	return &e, nil
}

// UpdateBreakerState implements delivery.EndpointStore.
func (s *Store) UpdateBreakerState(ctx context.Context, webhookID uuid.UUID, state breaker.State) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE webhook_endpoints
		SET consecutive_failures = $2, circuit_open_until = $3, updated_at = now()
		WHERE id = $1
	`, webhookID, state.ConsecutiveFailures, state.CircuitOpenUntil)
	if err != nil {
		return fmt.Errorf("webhooksvc: updating breaker state for %s: %w", webhookID, err)
	}
	return nil
}

var _ delivery.EndpointStore = (*Store)(nil)
