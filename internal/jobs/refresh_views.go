package jobs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetbeacon/fleetbeacon/internal/scheduler"
)

// RefreshViews refreshes the group_member_counts materialized view without
// blocking readers.
type RefreshViews struct {
	Pool *pgxpool.Pool
}

func (j *RefreshViews) Name() string                 { return "refresh-views" }
func (j *RefreshViews) Frequency() scheduler.Frequency { return scheduler.Hourly }

func (j *RefreshViews) Execute(ctx context.Context) error {
	if _, err := j.Pool.Exec(ctx, `REFRESH MATERIALIZED VIEW CONCURRENTLY group_member_counts`); err != nil {
		return fmt.Errorf("refreshing group_member_counts: %w", err)
	}
	return nil
}
