package orgcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCacheGetLoadsOnMiss(t *testing.T) {
	orgID := uuid.New()
	loads := 0
	c, err := New(10, func(_ context.Context, id uuid.UUID) (OrganizationSettings, error) {
		loads++
		return OrganizationSettings{OrganizationID: id, DefaultDailyLimitMinutes: 60}, nil
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	s, err := c.Get(context.Background(), orgID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if s.DefaultDailyLimitMinutes != 60 {
		t.Errorf("DefaultDailyLimitMinutes = %d, want 60", s.DefaultDailyLimitMinutes)
	}
	if loads != 1 {
		t.Fatalf("loads = %d, want 1", loads)
	}
}

func TestCacheGetServesFromCacheWithinTTL(t *testing.T) {
	orgID := uuid.New()
	loads := 0
	c, _ := New(10, func(_ context.Context, id uuid.UUID) (OrganizationSettings, error) {
		loads++
		return OrganizationSettings{OrganizationID: id}, nil
	})

	_, _ = c.Get(context.Background(), orgID)
	_, _ = c.Get(context.Background(), orgID)
	_, _ = c.Get(context.Background(), orgID)

	if loads != 1 {
		t.Fatalf("loads = %d, want 1 (subsequent gets should hit cache)", loads)
	}
}

func TestCacheGetReloadsAfterTTLExpiry(t *testing.T) {
	orgID := uuid.New()
	loads := 0
	c, _ := New(10, func(_ context.Context, id uuid.UUID) (OrganizationSettings, error) {
		loads++
		return OrganizationSettings{OrganizationID: id}, nil
	})
	c.ttl = 10 * time.Millisecond

	_, _ = c.Get(context.Background(), orgID)
	time.Sleep(20 * time.Millisecond)
	_, _ = c.Get(context.Background(), orgID)

	if loads != 2 {
		t.Fatalf("loads = %d, want 2 (entry should have expired)", loads)
	}
}

func TestCacheInvalidateForcesReload(t *testing.T) {
	orgID := uuid.New()
	loads := 0
	c, _ := New(10, func(_ context.Context, id uuid.UUID) (OrganizationSettings, error) {
		loads++
		return OrganizationSettings{OrganizationID: id}, nil
	})

	_, _ = c.Get(context.Background(), orgID)
	c.Invalidate(orgID)
	_, _ = c.Get(context.Background(), orgID)

	if loads != 2 {
		t.Fatalf("loads = %d, want 2 after invalidate", loads)
	}
}

func TestCacheGetPropagatesLoaderError(t *testing.T) {
	orgID := uuid.New()
	wantErr := errors.New("db unreachable")
	c, _ := New(10, func(context.Context, uuid.UUID) (OrganizationSettings, error) {
		return OrganizationSettings{}, wantErr
	})

	_, err := c.Get(context.Background(), orgID)
	if !errors.Is(err, wantErr) {
		t.Fatalf("Get() error = %v, want %v", err, wantErr)
	}
}
