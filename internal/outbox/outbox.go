// Package outbox implements the webhook delivery outbox: a durable queue of
// delivery attempts with bounded retry and exponential-ish backoff.
package outbox

import (
	"time"

	"github.com/google/uuid"
)

// MaxAttempts is the total number of tries a delivery gets before it becomes
// terminally failed.
const MaxAttempts = 4

// backoffSeconds maps attempt index to the delay before the next retry.
// Index 0 means "not yet attempted" (immediate claim eligibility).
var backoffSeconds = [MaxAttempts]int{0, 60, 300, 900}

// Status is a delivery row's lifecycle state.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Delivery is one outbox row.
type Delivery struct {
	DeliveryID    uuid.UUID
	WebhookID     uuid.UUID
	EventID       *uuid.UUID
	EventType     string
	Payload       []byte
	Status        Status
	Attempts      int
	LastAttemptAt *time.Time
	NextRetryAt   *time.Time
	ResponseCode  *int
	ErrorMessage  *string
	CreatedAt     time.Time
}

// nextRetryDelay returns the backoff duration to apply after the attempt at
// index attempts (1-based count of attempts made so far) fails.
func nextRetryDelay(attempts int) time.Duration {
	if attempts < 0 || attempts >= MaxAttempts {
		return 0
	}
	return time.Duration(backoffSeconds[attempts]) * time.Second
}
