package jobs

import (
	"context"
	"log/slog"

	"github.com/fleetbeacon/fleetbeacon/internal/scheduler"
)

// ReportCleanup deletes reports past their expiry.
type ReportCleanup struct {
	Store  ReportStore
	Logger *slog.Logger
}

func (j *ReportCleanup) Name() string                 { return "report-cleanup" }
func (j *ReportCleanup) Frequency() scheduler.Frequency { return scheduler.Daily }

func (j *ReportCleanup) Execute(ctx context.Context) error {
	count, err := j.Store.DeleteExpired(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		j.Logger.Info("deleted expired reports", "count", count)
	}
	return nil
}
