package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recordColumns = `key_hash, device_id, status, body, created_at, expires_at`

// Store provides the idempotency key table's database operations.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanRecord(row pgx.Row) (Record, error) {
	var r Record
	err := row.Scan(&r.KeyHash, &r.DeviceID, &r.Status, &r.Body, &r.CreatedAt, &r.ExpiresAt)
	return r, err
}

// Lookup returns the stored record for keyHash, or (Record{}, false, nil) if
// absent or expired. Expired rows are invisible to callers even before the
// cleanup job has swept them.
func (s *Store) Lookup(ctx context.Context, keyHash string) (Record, bool, error) {
	query := `SELECT ` + recordColumns + ` FROM idempotency_keys WHERE key_hash = $1 AND expires_at > now()`
	row := s.pool.QueryRow(ctx, query, keyHash)
	r, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("idempotency: looking up key: %w", err)
	}
	return r, true, nil
}

// Store performs an atomic upsert: on key collision the existing row wins,
// and the caller's own body/status are discarded in favor of it. This is
// what lets two concurrent duplicate requests converge on one response.
func (s *Store) Store(ctx context.Context, keyHash string, deviceID int64, body []byte, status int) (Record, error) {
	insertQuery := `
		INSERT INTO idempotency_keys (key_hash, device_id, status, body, created_at, expires_at)
		VALUES ($1, $2, $3, $4, now(), now() + make_interval(secs => $5))
		ON CONFLICT (key_hash) DO NOTHING
		RETURNING ` + recordColumns

	// pgx v5 has no default encoding from time.Duration to interval; pass
	// whole seconds and let make_interval build the interval server-side.
	row := s.pool.QueryRow(ctx, insertQuery, keyHash, deviceID, status, body, TTL.Seconds())
	r, err := scanRecord(row)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Record{}, fmt.Errorf("idempotency: storing key: %w", err)
	}

	// ON CONFLICT DO NOTHING returned no row: another request already won.
	// Re-read the row it stored.
	existing, found, lookupErr := s.Lookup(ctx, keyHash)
	if lookupErr != nil {
		return Record{}, lookupErr
	}
	if !found {
		return Record{}, fmt.Errorf("idempotency: key %s vanished between insert and re-lookup", keyHash)
	}
	return existing, nil
}

// SweepExpired deletes all rows past their TTL and returns the count removed.
func (s *Store) SweepExpired(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("idempotency: sweeping expired keys: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
