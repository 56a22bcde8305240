package webhooksvc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fleetbeacon/fleetbeacon/internal/outbox"
)

// Enqueuer fans a domain event out to every active, subscribed webhook
// endpoint owned by ownerKey, enqueueing one outbox delivery per endpoint.
// A failure to enqueue for one endpoint does not block the others; each
// failure is logged and counted against the returned total.
type Enqueuer struct {
	Endpoints *Store
	Outbox    *outbox.Store
	Logger    *slog.Logger
}

// Publish enqueues eventType/payload for every matching endpoint under
// ownerKey and returns how many deliveries were created.
func (e *Enqueuer) Publish(ctx context.Context, ownerKey, eventType string, eventID *uuid.UUID, payload any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("webhooksvc: marshaling event payload: %w", err)
	}

	endpoints, err := e.Endpoints.ListActiveByOwnerAndEvent(ctx, ownerKey, eventType)
	if err != nil {
		return 0, fmt.Errorf("webhooksvc: listing subscribed endpoints: %w", err)
	}

	enqueued := 0
	for _, ep := range endpoints {
		if _, err := e.Outbox.Enqueue(ctx, ep.ID, eventType, eventID, body); err != nil {
			e.Logger.Error("enqueueing webhook delivery", "endpoint_id", ep.ID, "event_type", eventType, "error", err)
			continue
		}
		enqueued++
	}
	return enqueued, nil
}
