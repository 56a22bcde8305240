// Package webhooksvc implements the webhook endpoint CRUD surface and the
// glue that turns a domain event into an enqueued outbox delivery: it owns
// the WebhookEndpoint row, the delivery worker only ever reads it through
// the narrower delivery.EndpointStore contract.
package webhooksvc

import (
	"time"

	"github.com/google/uuid"
)

// CreateRequest is the JSON body for POST .../webhooks.
type CreateRequest struct {
	Name       string   `json:"name" validate:"required"`
	TargetURL  string   `json:"target_url" validate:"required,url"`
	Secret     string   `json:"secret" validate:"required,min=16"`
	EventTypes []string `json:"event_types" validate:"required,min=1"`
}

// Response is the JSON response for one webhook endpoint. The HMAC secret
// is never echoed back once set.
type Response struct {
	ID                  uuid.UUID  `json:"id"`
	OwnerKey            string     `json:"owner_key"`
	Name                string     `json:"name"`
	TargetURL           string     `json:"target_url"`
	Enabled             bool       `json:"enabled"`
	EventTypes          []string   `json:"event_types"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	CircuitOpenUntil    *time.Time `json:"circuit_open_until,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Row is a webhook_endpoints table row.
type Row struct {
	ID                  uuid.UUID
	OwnerKey            string
	Name                string
	TargetURL           string
	HMACSecret          string
	Enabled             bool
	EventTypes          []string
	ConsecutiveFailures int
	CircuitOpenUntil    *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ToResponse converts a Row to its public DTO, omitting the HMAC secret.
func (r *Row) ToResponse() Response {
	return Response{
		ID:                  r.ID,
		OwnerKey:            r.OwnerKey,
		Name:                r.Name,
		TargetURL:           r.TargetURL,
		Enabled:             r.Enabled,
		EventTypes:          r.EventTypes,
		ConsecutiveFailures: r.ConsecutiveFailures,
		CircuitOpenUntil:    r.CircuitOpenUntil,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}
