package jobs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetbeacon/fleetbeacon/internal/scheduler"
)

// locationCleanupBatchSize bounds each delete statement so a large backlog
// doesn't hold a long-running lock.
const locationCleanupBatchSize = 10000

// CleanupLocations deletes location rows older than RetentionDays, yielding
// between batches so it never monopolizes the connection pool.
type CleanupLocations struct {
	Pool          *pgxpool.Pool
	RetentionDays int
}

func (j *CleanupLocations) Name() string                 { return "cleanup-locations" }
func (j *CleanupLocations) Frequency() scheduler.Frequency { return scheduler.Hourly }

func (j *CleanupLocations) Execute(ctx context.Context) error {
	for {
		tag, err := j.Pool.Exec(ctx, `
			DELETE FROM device_locations
			WHERE ctid IN (
				SELECT ctid FROM device_locations
				WHERE recorded_at < now() - ($1 || ' days')::interval
				LIMIT $2
			)
		`, j.RetentionDays, locationCleanupBatchSize)
		if err != nil {
			return fmt.Errorf("deleting location batch: %w", err)
		}
		if tag.RowsAffected() < locationCleanupBatchSize {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}
