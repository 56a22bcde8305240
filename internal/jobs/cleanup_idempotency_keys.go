package jobs

import (
	"context"
	"log/slog"

	"github.com/fleetbeacon/fleetbeacon/internal/idempotency"
	"github.com/fleetbeacon/fleetbeacon/internal/scheduler"
)

// CleanupIdempotencyKeys sweeps expired idempotency records. It runs hourly,
// the same cadence as location cleanup and the view refresh.
type CleanupIdempotencyKeys struct {
	Store  *idempotency.Store
	Logger *slog.Logger
}

func (j *CleanupIdempotencyKeys) Name() string                 { return "cleanup-idempotency-keys" }
func (j *CleanupIdempotencyKeys) Frequency() scheduler.Frequency { return scheduler.Hourly }

func (j *CleanupIdempotencyKeys) Execute(ctx context.Context) error {
	count, err := j.Store.SweepExpired(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		j.Logger.Info("swept expired idempotency keys", "count", count)
	}
	return nil
}
