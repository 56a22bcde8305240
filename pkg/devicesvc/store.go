package devicesvc

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LocationStore provides database operations for location uploads.
type LocationStore struct {
	pool *pgxpool.Pool
}

// NewLocationStore creates a LocationStore backed by the given pool.
func NewLocationStore(pool *pgxpool.Pool) *LocationStore {
	return &LocationStore{pool: pool}
}

// point is one location reading prepared for insertion.
type point struct {
	deviceID   int64
	recordedAt time.Time
	latitude   float64
	longitude  float64
	accuracy   float64
}

// InsertOne inserts a single location reading and returns the number of
// rows written (always 1 on success).
func (s *LocationStore) InsertOne(ctx context.Context, req LocationRequest) (int, error) {
	return s.insertBatch(ctx, []LocationRequest{req})
}

// InsertBatch inserts every reading in reqs inside one transaction, one
// INSERT statement per reading.
func (s *LocationStore) InsertBatch(ctx context.Context, reqs []LocationRequest) (int, error) {
	return s.insertBatch(ctx, reqs)
}

func (s *LocationStore) insertBatch(ctx context.Context, reqs []LocationRequest) (int, error) {
	batch := make([]point, 0, len(reqs))
	for _, r := range reqs {
		batch = append(batch, point{
			deviceID:   r.DeviceID,
			recordedAt: time.UnixMilli(r.Timestamp).UTC(),
			latitude:   r.Latitude,
			longitude:  r.Longitude,
			accuracy:   r.Accuracy,
		})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("devicesvc: starting location batch transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, p := range batch {
		if _, err := tx.Exec(ctx, `
			INSERT INTO device_locations (device_id, recorded_at, latitude, longitude, accuracy)
			VALUES ($1, $2, $3, $4, $5)
		`, p.deviceID, p.recordedAt, p.latitude, p.longitude, p.accuracy); err != nil {
			return 0, fmt.Errorf("devicesvc: inserting location: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("devicesvc: committing location batch: %w", err)
	}
	return len(batch), nil
}
