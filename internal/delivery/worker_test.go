package delivery

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fleetbeacon/fleetbeacon/internal/breaker"
	"github.com/fleetbeacon/fleetbeacon/internal/outbox"
)

type fakeOutboxStore struct {
	mu        sync.Mutex
	due       []outbox.Delivery
	attempts  []recordedAttempt
}

type recordedAttempt struct {
	deliveryID uuid.UUID
	success    bool
	status     *int
	errMsg     *string
}

func (f *fakeOutboxStore) ClaimDue(context.Context, int) ([]outbox.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.due, nil
}

func (f *fakeOutboxStore) RecordAttempt(_ context.Context, deliveryID uuid.UUID, success bool, status *int, errMsg *string) (outbox.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, recordedAttempt{deliveryID: deliveryID, success: success, status: status, errMsg: errMsg})
	return outbox.Delivery{DeliveryID: deliveryID}, nil
}

type fakeEndpointStore struct {
	mu        sync.Mutex
	endpoints map[uuid.UUID]*Endpoint
	updates   []breaker.State
}

func (f *fakeEndpointStore) GetEndpoint(_ context.Context, webhookID uuid.UUID) (*Endpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.endpoints[webhookID], nil
}

func (f *fakeEndpointStore) UpdateBreakerState(_ context.Context, _ uuid.UUID, s breaker.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, s)
	return nil
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorkerProcessPendingRetriesSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Webhook-Signature") == "" {
			t.Error("missing signature header")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	webhookID := uuid.New()
	deliveryID := uuid.New()

	outboxStore := &fakeOutboxStore{due: []outbox.Delivery{{
		DeliveryID: deliveryID, WebhookID: webhookID, EventType: "device.enrolled",
		Payload: []byte(`{"device_id":1}`), Status: outbox.StatusPending, CreatedAt: time.Now(),
	}}}
	endpointStore := &fakeEndpointStore{endpoints: map[uuid.UUID]*Endpoint{
		webhookID: {ID: webhookID, TargetURL: srv.URL, HMACSecret: "secret", Enabled: true},
	}}

	w := &Worker{Outbox: outboxStore, Endpoints: endpointStore, HTTPClient: srv.Client(), Logger: silentLogger()}
	processed, err := w.ProcessPendingRetries(context.Background(), 10)
	if err != nil {
		t.Fatalf("ProcessPendingRetries() error = %v", err)
	}
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}
	if len(outboxStore.attempts) != 1 || !outboxStore.attempts[0].success {
		t.Fatalf("attempts = %+v, want one successful attempt", outboxStore.attempts)
	}
	if len(endpointStore.updates) != 1 || endpointStore.updates[0].ConsecutiveFailures != 0 {
		t.Fatalf("breaker updates = %+v, want reset state", endpointStore.updates)
	}
}

func TestWorkerProcessPendingRetriesNonTwoXX(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	webhookID := uuid.New()
	outboxStore := &fakeOutboxStore{due: []outbox.Delivery{{
		DeliveryID: uuid.New(), WebhookID: webhookID, EventType: "device.enrolled",
		Payload: []byte(`{}`), CreatedAt: time.Now(),
	}}}
	endpointStore := &fakeEndpointStore{endpoints: map[uuid.UUID]*Endpoint{
		webhookID: {ID: webhookID, TargetURL: srv.URL, HMACSecret: "secret", Enabled: true},
	}}

	w := &Worker{Outbox: outboxStore, Endpoints: endpointStore, HTTPClient: srv.Client(), Logger: silentLogger()}
	processed, err := w.ProcessPendingRetries(context.Background(), 10)
	if err != nil {
		t.Fatalf("ProcessPendingRetries() error = %v", err)
	}
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}
	if outboxStore.attempts[0].success {
		t.Fatal("attempt recorded as success, want failure")
	}
	if endpointStore.updates[0].ConsecutiveFailures != 1 {
		t.Fatalf("ConsecutiveFailures = %d, want 1", endpointStore.updates[0].ConsecutiveFailures)
	}
}

func TestWorkerSkipsDisabledEndpoint(t *testing.T) {
	webhookID := uuid.New()
	outboxStore := &fakeOutboxStore{due: []outbox.Delivery{{
		DeliveryID: uuid.New(), WebhookID: webhookID, EventType: "x", Payload: []byte(`{}`), CreatedAt: time.Now(),
	}}}
	endpointStore := &fakeEndpointStore{endpoints: map[uuid.UUID]*Endpoint{
		webhookID: {ID: webhookID, Enabled: false},
	}}

	w := &Worker{Outbox: outboxStore, Endpoints: endpointStore, HTTPClient: http.DefaultClient, Logger: silentLogger()}
	processed, err := w.ProcessPendingRetries(context.Background(), 10)
	if err != nil {
		t.Fatalf("ProcessPendingRetries() error = %v", err)
	}
	if processed != 0 {
		t.Fatalf("processed = %d, want 0 (disabled endpoint)", processed)
	}
	if len(outboxStore.attempts) != 0 {
		t.Fatal("no attempt should be recorded for a skipped delivery")
	}
}

func TestWorkerSkipsOpenCircuit(t *testing.T) {
	webhookID := uuid.New()
	future := time.Now().Add(time.Minute)
	outboxStore := &fakeOutboxStore{due: []outbox.Delivery{{
		DeliveryID: uuid.New(), WebhookID: webhookID, EventType: "x", Payload: []byte(`{}`), CreatedAt: time.Now(),
	}}}
	endpointStore := &fakeEndpointStore{endpoints: map[uuid.UUID]*Endpoint{
		webhookID: {ID: webhookID, Enabled: true, Breaker: breaker.State{CircuitOpenUntil: &future}},
	}}

	w := &Worker{Outbox: outboxStore, Endpoints: endpointStore, HTTPClient: http.DefaultClient, Logger: silentLogger()}
	processed, err := w.ProcessPendingRetries(context.Background(), 10)
	if err != nil {
		t.Fatalf("ProcessPendingRetries() error = %v", err)
	}
	if processed != 0 {
		t.Fatalf("processed = %d, want 0 (circuit open)", processed)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %q, want unchanged", got)
	}
	if got := truncate("this is a very long error message", 10); got != "this is a " {
		t.Errorf("truncate() = %q, want 10-char prefix", got)
	}
}
