package jobs

import (
	"context"

	"github.com/fleetbeacon/fleetbeacon/internal/delivery"
	"github.com/fleetbeacon/fleetbeacon/internal/scheduler"
)

// WebhookRetry claims due deliveries and attempts each, once per minute.
type WebhookRetry struct {
	Worker    *delivery.Worker
	BatchSize int
}

func (j *WebhookRetry) Name() string                 { return "webhook-retry" }
func (j *WebhookRetry) Frequency() scheduler.Frequency { return scheduler.Minutes(1) }

func (j *WebhookRetry) Execute(ctx context.Context) error {
	_, err := j.Worker.ProcessPendingRetries(ctx, j.BatchSize)
	return err
}
