package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fleetbeacon/fleetbeacon/internal/cryptoutil"
)

type fakeBackend struct {
	mu      sync.Mutex
	records map[string]Record
	lookups int
	stores  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{records: map[string]Record{}}
}

func (f *fakeBackend) Lookup(_ context.Context, keyHash string) (Record, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	r, ok := f.records[keyHash]
	return r, ok, nil
}

func (f *fakeBackend) Store(_ context.Context, keyHash string, deviceID int64, body []byte, status int) (Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stores++
	if existing, ok := f.records[keyHash]; ok {
		return existing, nil
	}
	r := Record{KeyHash: keyHash, DeviceID: deviceID, Body: body, Status: status, CreatedAt: time.Now(), ExpiresAt: time.Now().Add(TTL)}
	f.records[keyHash] = r
	return r, nil
}

type erroringBackend struct{ err error }

func (e erroringBackend) Lookup(context.Context, string) (Record, bool, error) { return Record{}, false, e.err }
func (e erroringBackend) Store(context.Context, string, int64, []byte, int) (Record, error) {
	return Record{}, e.err
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMiddlewarePassesThroughWithoutHeader(t *testing.T) {
	backend := newFakeBackend()
	calls := 0
	h := Middleware(backend, silentLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if calls != 1 {
		t.Fatalf("handler called %d times, want 1", calls)
	}
	if backend.lookups != 0 {
		t.Fatalf("lookups = %d, want 0 (no key header)", backend.lookups)
	}
}

func TestMiddlewareStoresFirstResponse(t *testing.T) {
	backend := newFakeBackend()
	calls := 0
	h := Middleware(backend, silentLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set(HeaderName, "client-key-1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if calls != 1 {
		t.Fatalf("handler called %d times, want 1", calls)
	}
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}

	keyHash := cryptoutil.SHA256Hex("client-key-1")
	if _, ok := backend.records[keyHash]; !ok {
		t.Fatal("response was not stored")
	}
}

func TestMiddlewareReplaysStoredResponse(t *testing.T) {
	backend := newFakeBackend()
	keyHash := cryptoutil.SHA256Hex("client-key-2")
	backend.records[keyHash] = Record{KeyHash: keyHash, Status: http.StatusConflict, Body: []byte(`{"error":"conflict"}`)}

	calls := 0
	h := Middleware(backend, silentLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set(HeaderName, "client-key-2")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if calls != 0 {
		t.Fatalf("handler called %d times, want 0 (replay should skip it)", calls)
	}
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 (replayed)", w.Code)
	}
	if w.Body.String() != `{"error":"conflict"}` {
		t.Fatalf("body = %q, want replayed body", w.Body.String())
	}
	if w.Header().Get("X-Idempotency-Replayed") != "true" {
		t.Fatal("missing X-Idempotency-Replayed header")
	}
}

func TestMiddlewareRespondsInternalOnLookupFailure(t *testing.T) {
	backend := erroringBackend{err: errors.New("connection refused")}
	h := Middleware(backend, silentLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("handler should not run when lookup fails")
	}))

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set(HeaderName, "client-key-3")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}
