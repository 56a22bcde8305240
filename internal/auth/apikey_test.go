package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fleetbeacon/fleetbeacon/internal/apierr"
	"github.com/fleetbeacon/fleetbeacon/internal/cryptoutil"
)

type fakeStore struct {
	mu sync.Mutex

	apiKeysByHash map[string]*APIKeyRow
	lastUsedCalls []int64

	deviceTokensByHash map[string]*DeviceTokenRow
	deviceLastUsed     []int64

	lookupErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		apiKeysByHash:      map[string]*APIKeyRow{},
		deviceTokensByHash: map[string]*DeviceTokenRow{},
	}
}

func (f *fakeStore) GetAPIKeyByHash(_ context.Context, hash string) (*APIKeyRow, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.apiKeysByHash[hash], nil
}

func (f *fakeStore) UpdateAPIKeyLastUsed(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUsedCalls = append(f.lastUsedCalls, id)
	return nil
}

func (f *fakeStore) GetDeviceTokenByHash(_ context.Context, hash string) (*DeviceTokenRow, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.deviceTokensByHash[hash], nil
}

func (f *fakeStore) UpdateDeviceTokenLastUsed(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deviceLastUsed = append(f.deviceLastUsed, id)
	return nil
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitForGoroutine() {
	time.Sleep(20 * time.Millisecond)
}

func TestAPIKeyResolverResolve(t *testing.T) {
	store := newFakeStore()
	rawKey := "pm_abcdefghijklmnop"
	orgID := uuid.New()
	store.apiKeysByHash[cryptoutil.SHA256Hex(rawKey)] = &APIKeyRow{
		ID: 7, IsActive: true, IsAdmin: false, OrganizationID: &orgID,
	}

	r := &APIKeyResolver{Store: store, Logger: silentLogger()}

	p, apiErr := r.Resolve(context.Background(), rawKey)
	if apiErr != nil {
		t.Fatalf("Resolve() error = %v", apiErr)
	}
	if p.Kind != KindAPIKey || p.APIKeyID != 7 || p.OrganizationID == nil || *p.OrganizationID != orgID {
		t.Fatalf("unexpected principal: %+v", p)
	}

	waitForGoroutine()
	if len(store.lastUsedCalls) != 1 || store.lastUsedCalls[0] != 7 {
		t.Errorf("lastUsedCalls = %v, want [7]", store.lastUsedCalls)
	}
}

func TestAPIKeyResolverRejectsBadPrefix(t *testing.T) {
	r := &APIKeyResolver{Store: newFakeStore(), Logger: silentLogger()}
	_, apiErr := r.Resolve(context.Background(), "sk_notourkey")
	if apiErr == nil || apiErr.Kind != apierr.KindUnauthorized {
		t.Fatalf("Resolve() = %v, want Unauthorized", apiErr)
	}
}

func TestAPIKeyResolverRejectsExpired(t *testing.T) {
	store := newFakeStore()
	rawKey := "pm_expiredkey1234"
	expired := time.Now().Add(-time.Hour)
	store.apiKeysByHash[cryptoutil.SHA256Hex(rawKey)] = &APIKeyRow{ID: 1, IsActive: true, ExpiresAt: &expired}

	r := &APIKeyResolver{Store: store, Logger: silentLogger()}
	_, apiErr := r.Resolve(context.Background(), rawKey)
	if apiErr == nil || apiErr.Kind != apierr.KindUnauthorized {
		t.Fatalf("Resolve() = %v, want Unauthorized", apiErr)
	}
}

func TestAPIKeyResolverRejectsInactive(t *testing.T) {
	store := newFakeStore()
	rawKey := "pm_inactivekey123"
	store.apiKeysByHash[cryptoutil.SHA256Hex(rawKey)] = &APIKeyRow{ID: 2, IsActive: false}

	r := &APIKeyResolver{Store: store, Logger: silentLogger()}
	_, apiErr := r.Resolve(context.Background(), rawKey)
	if apiErr == nil || apiErr.Kind != apierr.KindUnauthorized {
		t.Fatalf("Resolve() = %v, want Unauthorized", apiErr)
	}
}

func TestAPIKeyResolverInternalOnDependencyFailure(t *testing.T) {
	store := newFakeStore()
	store.lookupErr = errors.New("connection refused")

	r := &APIKeyResolver{Store: store, Logger: silentLogger()}
	_, apiErr := r.Resolve(context.Background(), "pm_whatever1234567")
	if apiErr == nil || apiErr.Kind != apierr.KindInternal {
		t.Fatalf("Resolve() = %v, want Internal", apiErr)
	}
}

func TestAPIKeyResolverNoMatch(t *testing.T) {
	r := &APIKeyResolver{Store: newFakeStore(), Logger: silentLogger()}
	_, apiErr := r.Resolve(context.Background(), "pm_doesnotexist123")
	if apiErr == nil || apiErr.Kind != apierr.KindUnauthorized {
		t.Fatalf("Resolve() = %v, want Unauthorized", apiErr)
	}
}
