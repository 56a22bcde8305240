package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/fleetbeacon/fleetbeacon/internal/breaker"
	"github.com/fleetbeacon/fleetbeacon/internal/outbox"
)

// requestTimeout bounds one delivery attempt end-to-end, transport retries
// included.
const requestTimeout = 10 * time.Second

// maxTransportRetries bounds same-attempt retries for pure transport errors
// (connection refused, reset, DNS hiccup) — distinct from the outbox's
// cross-attempt backoff table, which governs retries across separate
// processPendingRetries cycles.
const maxTransportRetries = 2

// maxErrorMessageLen truncates stored error messages to keep delivery rows bounded.
const maxErrorMessageLen = 500

// Endpoint is the delivery-relevant slice of a WebhookEndpoint row.
type Endpoint struct {
	ID         uuid.UUID
	TargetURL  string
	HMACSecret string
	Enabled    bool
	Breaker    breaker.State
}

// OutboxStore is the subset of outbox.Store the worker depends on.
type OutboxStore interface {
	ClaimDue(ctx context.Context, limit int) ([]outbox.Delivery, error)
	RecordAttempt(ctx context.Context, deliveryID uuid.UUID, success bool, httpStatus *int, errMsg *string) (outbox.Delivery, error)
}

// EndpointStore is the subset of webhook endpoint persistence the worker
// depends on: looking up target/secret/breaker state and persisting the
// breaker's next state.
type EndpointStore interface {
	GetEndpoint(ctx context.Context, webhookID uuid.UUID) (*Endpoint, error)
	UpdateBreakerState(ctx context.Context, webhookID uuid.UUID, s breaker.State) error
}

// Worker implements processPendingRetries.
type Worker struct {
	Outbox     OutboxStore
	Endpoints  EndpointStore
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// ProcessPendingRetries claims up to batchSize due deliveries and attempts
// each one, returning the count actually processed (claimed deliveries
// skipped because their endpoint is disabled or circuit-open do not count).
func (w *Worker) ProcessPendingRetries(ctx context.Context, batchSize int) (int, error) {
	deliveries, err := w.Outbox.ClaimDue(ctx, batchSize)
	if err != nil {
		return 0, fmt.Errorf("delivery: claiming due deliveries: %w", err)
	}

	processed := 0
	for _, d := range deliveries {
		ok, err := w.attempt(ctx, d)
		if err != nil {
			w.Logger.Error("delivery attempt failed", "delivery_id", d.DeliveryID, "error", err)
			continue
		}
		if ok {
			processed++
		}
	}
	return processed, nil
}

// attempt returns (true, nil) if a delivery attempt was made (successful or
// not) and (false, nil) if the delivery was skipped because its endpoint is
// disabled or circuit-open.
func (w *Worker) attempt(ctx context.Context, d outbox.Delivery) (bool, error) {
	endpoint, err := w.Endpoints.GetEndpoint(ctx, d.WebhookID)
	if err != nil {
		return false, fmt.Errorf("loading endpoint %s: %w", d.WebhookID, err)
	}
	if !endpoint.Enabled || !breaker.Allow(endpoint.Breaker, time.Now()) {
		return false, nil
	}

	eventID := d.DeliveryID
	if d.EventID != nil {
		eventID = *d.EventID
	}
	body, err := BuildEnvelope(eventID, d.EventType, d.CreatedAt, d.Payload)
	if err != nil {
		return false, fmt.Errorf("building envelope for delivery %s: %w", d.DeliveryID, err)
	}
	signature := Sign(endpoint.HMACSecret, body)

	status, postErr := w.post(ctx, endpoint.TargetURL, body, signature, d)
	success := postErr == nil && status >= 200 && status < 300

	var httpStatus *int
	var errMsg *string
	if status != 0 {
		httpStatus = &status
	}
	if postErr != nil {
		msg := truncate(postErr.Error(), maxErrorMessageLen)
		errMsg = &msg
	} else if !success {
		msg := fmt.Sprintf("non-2xx response: %d", status)
		errMsg = &msg
	}

	if _, err := w.Outbox.RecordAttempt(ctx, d.DeliveryID, success, httpStatus, errMsg); err != nil {
		return true, fmt.Errorf("recording attempt for delivery %s: %w", d.DeliveryID, err)
	}

	newBreakerState := endpoint.Breaker
	if success {
		newBreakerState = breaker.OnSuccess(endpoint.Breaker)
	} else {
		newBreakerState = breaker.OnFailure(endpoint.Breaker, time.Now())
	}
	if err := w.Endpoints.UpdateBreakerState(ctx, endpoint.ID, newBreakerState); err != nil {
		return true, fmt.Errorf("updating breaker state for endpoint %s: %w", endpoint.ID, err)
	}

	return true, nil
}

// post performs the signed HTTP POST, retrying pure transport errors a
// bounded number of times within the overall request timeout. It returns
// the response status code (0 if no response was ever received) and any
// terminal transport error.
func (w *Worker) post(ctx context.Context, targetURL string, body []byte, signature string, d outbox.Delivery) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	backoff := retry.WithMaxRetries(maxTransportRetries, retry.NewConstant(200*time.Millisecond))

	var status int
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Webhook-Signature", signature)
		req.Header.Set("X-Webhook-Event", d.EventType)
		req.Header.Set("X-Webhook-Delivery-Id", d.DeliveryID.String())

		resp, err := w.HTTPClient.Do(req)
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return err
			}
			return retry.RetryableError(err)
		}
		defer func() { _, _ = io.Copy(io.Discard, resp.Body); _ = resp.Body.Close() }()
		status = resp.StatusCode
		return nil
	})
	return status, err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
