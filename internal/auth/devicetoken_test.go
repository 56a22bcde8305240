package auth

import (
	"context"
	"testing"
	"time"

	"github.com/fleetbeacon/fleetbeacon/internal/apierr"
	"github.com/fleetbeacon/fleetbeacon/internal/cryptoutil"
)

func TestDeviceTokenResolverResolve(t *testing.T) {
	store := newFakeStore()
	rawToken := "dt_" + "a1b2c3d4e5f6g7h8"
	store.deviceTokensByHash[cryptoutil.SHA256Hex(rawToken)] = &DeviceTokenRow{
		ID: 3, DeviceID: 99, ExpiresAt: time.Now().Add(90 * 24 * time.Hour),
	}

	r := &DeviceTokenResolver{Store: store, Logger: silentLogger()}
	p, apiErr := r.Resolve(context.Background(), rawToken)
	if apiErr != nil {
		t.Fatalf("Resolve() error = %v", apiErr)
	}
	if p.Kind != KindDeviceToken || p.DeviceID != 99 {
		t.Fatalf("unexpected principal: %+v", p)
	}

	waitForGoroutine()
	if len(store.deviceLastUsed) != 1 || store.deviceLastUsed[0] != 3 {
		t.Errorf("deviceLastUsed = %v, want [3]", store.deviceLastUsed)
	}
}

func TestDeviceTokenResolverRejectsRevoked(t *testing.T) {
	store := newFakeStore()
	rawToken := "dt_revokedtoken12345"
	now := time.Now()
	store.deviceTokensByHash[cryptoutil.SHA256Hex(rawToken)] = &DeviceTokenRow{
		ID: 4, DeviceID: 1, ExpiresAt: now.Add(time.Hour), RevokedAt: &now,
	}

	r := &DeviceTokenResolver{Store: store, Logger: silentLogger()}
	_, apiErr := r.Resolve(context.Background(), rawToken)
	if apiErr == nil || apiErr.Kind != apierr.KindUnauthorized {
		t.Fatalf("Resolve() = %v, want Unauthorized", apiErr)
	}
}

func TestDeviceTokenResolverRejectsExpired(t *testing.T) {
	store := newFakeStore()
	rawToken := "dt_expiredtoken12345"
	store.deviceTokensByHash[cryptoutil.SHA256Hex(rawToken)] = &DeviceTokenRow{
		ID: 5, DeviceID: 1, ExpiresAt: time.Now().Add(-time.Minute),
	}

	r := &DeviceTokenResolver{Store: store, Logger: silentLogger()}
	_, apiErr := r.Resolve(context.Background(), rawToken)
	if apiErr == nil || apiErr.Kind != apierr.KindUnauthorized {
		t.Fatalf("Resolve() = %v, want Unauthorized", apiErr)
	}
}

func TestDeviceTokenResolverRejectsBadPrefix(t *testing.T) {
	r := &DeviceTokenResolver{Store: newFakeStore(), Logger: silentLogger()}
	_, apiErr := r.Resolve(context.Background(), "pm_wrongprefixhere")
	if apiErr == nil || apiErr.Kind != apierr.KindUnauthorized {
		t.Fatalf("Resolve() = %v, want Unauthorized", apiErr)
	}
}
