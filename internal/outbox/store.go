package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const deliveryColumns = `delivery_id, webhook_id, event_id, event_type, payload, status,
	attempts, last_attempt_at, next_retry_at, response_code, error_message, created_at`

// Store provides the delivery outbox's database operations.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanDelivery(row pgx.Row) (Delivery, error) {
	var d Delivery
	err := row.Scan(
		&d.DeliveryID, &d.WebhookID, &d.EventID, &d.EventType, &d.Payload, &d.Status,
		&d.Attempts, &d.LastAttemptAt, &d.NextRetryAt, &d.ResponseCode, &d.ErrorMessage, &d.CreatedAt,
	)
	return d, err
}

// Enqueue inserts a new pending delivery row for immediate claim.
func (s *Store) Enqueue(ctx context.Context, webhookID uuid.UUID, eventType string, eventID *uuid.UUID, payload []byte) (Delivery, error) {
	query := `
		INSERT INTO webhook_deliveries (delivery_id, webhook_id, event_id, event_type, payload, status, attempts, created_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, 'pending', 0, now())
		RETURNING ` + deliveryColumns

	row := s.pool.QueryRow(ctx, query, webhookID, eventID, eventType, payload)
	d, err := scanDelivery(row)
	if err != nil {
		return Delivery{}, fmt.Errorf("outbox: enqueueing delivery: %w", err)
	}
	return d, nil
}

// ClaimDue returns up to limit pending deliveries whose next_retry_at has
// elapsed (or was never set), for endpoints whose circuit is not open,
// ordered so older pending events win ties. Uses FOR UPDATE SKIP LOCKED so
// multiple worker instances never double-claim the same row.
func (s *Store) ClaimDue(ctx context.Context, limit int) ([]Delivery, error) {
	query := `
		SELECT ` + deliveryColumns + `
		FROM webhook_deliveries d
		JOIN webhook_endpoints e ON e.id = d.webhook_id
		WHERE d.status = 'pending'
		  AND (d.next_retry_at IS NULL OR d.next_retry_at <= now())
		  AND e.enabled
		  AND (e.circuit_open_until IS NULL OR e.circuit_open_until <= now())
		ORDER BY COALESCE(d.next_retry_at, d.created_at) ASC
		LIMIT $1
		FOR UPDATE OF d SKIP LOCKED
	`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("outbox: claiming due deliveries: %w", err)
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("outbox: scanning claimed delivery: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outbox: iterating claimed deliveries: %w", err)
	}
	return out, nil
}

// RecordAttempt records the outcome of one delivery attempt, deriving the
// new status and next_retry_at from the backoff table.
func (s *Store) RecordAttempt(ctx context.Context, deliveryID uuid.UUID, success bool, httpStatus *int, errMsg *string) (Delivery, error) {
	var current int
	if err := s.pool.QueryRow(ctx, `SELECT attempts FROM webhook_deliveries WHERE delivery_id = $1`, deliveryID).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Delivery{}, fmt.Errorf("outbox: delivery %s not found", deliveryID)
		}
		return Delivery{}, fmt.Errorf("outbox: reading current attempts: %w", err)
	}

	attempts := current + 1
	var status Status
	var nextRetryAt *time.Time

	switch {
	case success:
		status = StatusSuccess
	case attempts >= MaxAttempts:
		status = StatusFailed
	default:
		status = StatusPending
		t := time.Now().Add(nextRetryDelay(attempts))
		nextRetryAt = &t
	}

	query := `
		UPDATE webhook_deliveries
		SET attempts = $2, status = $3, last_attempt_at = now(), next_retry_at = $4,
		    response_code = $5, error_message = $6
		WHERE delivery_id = $1
		RETURNING ` + deliveryColumns

	row := s.pool.QueryRow(ctx, query, deliveryID, attempts, status, nextRetryAt, httpStatus, errMsg)
	d, err := scanDelivery(row)
	if err != nil {
		return Delivery{}, fmt.Errorf("outbox: recording attempt: %w", err)
	}
	return d, nil
}

// DeleteOlderThan deletes delivery rows older than the given retention
// window and returns the count removed.
func (s *Store) DeleteOlderThan(ctx context.Context, days int) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM webhook_deliveries WHERE created_at < now() - ($1 || ' days')::interval`, days)
	if err != nil {
		return 0, fmt.Errorf("outbox: deleting old deliveries: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
