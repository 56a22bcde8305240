package delivery

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/fleetbeacon/fleetbeacon/internal/cryptoutil"
)

// Envelope is the canonical webhook payload every delivery signs and sends.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt string          `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// BuildEnvelope assembles the canonical payload for a delivery whose
// event-specific data is already marshaled JSON.
func BuildEnvelope(eventID uuid.UUID, eventType string, occurredAt time.Time, data json.RawMessage) ([]byte, error) {
	env := Envelope{
		EventID:    eventID.String(),
		EventType:  eventType,
		OccurredAt: occurredAt.UTC().Format(time.RFC3339),
		Data:       data,
	}
	return json.Marshal(env)
}

// Sign computes the HMAC-SHA256 signature of rawBody under secret, hex-encoded.
func Sign(secret string, rawBody []byte) string {
	return cryptoutil.HMACSHA256Hex(secret, string(rawBody))
}
