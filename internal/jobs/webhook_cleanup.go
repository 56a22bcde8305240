package jobs

import (
	"context"
	"log/slog"

	"github.com/fleetbeacon/fleetbeacon/internal/outbox"
	"github.com/fleetbeacon/fleetbeacon/internal/scheduler"
)

// WebhookCleanup deletes delivery rows past the retention window.
type WebhookCleanup struct {
	Store         *outbox.Store
	RetentionDays int
	Logger        *slog.Logger
}

func (j *WebhookCleanup) Name() string                 { return "webhook-cleanup" }
func (j *WebhookCleanup) Frequency() scheduler.Frequency { return scheduler.Daily }

func (j *WebhookCleanup) Execute(ctx context.Context) error {
	count, err := j.Store.DeleteOlderThan(ctx, j.RetentionDays)
	if err != nil {
		return err
	}
	if count > 0 {
		j.Logger.Info("deleted old webhook deliveries", "count", count)
	}
	return nil
}
