// Package orgcache provides a small bounded read-through cache in front of
// the OrganizationSettings lookup made by the post-enrollment notification
// and the unlock-request auto-approve check, so a busy organization doesn't
// round-trip the database on each of those requests just to check its
// settings.
package orgcache

import (
	"context"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// TTL bounds how long a cached entry is served before the next request
// forces a fresh load, independent of LRU eviction.
const TTL = 30 * time.Second

// OrganizationSettings is the cached shape. UnlockPinHashArgon2 is never
// logged or returned to callers; HasUnlockPin is the only thing derived
// from it that crosses the package boundary elsewhere.
type OrganizationSettings struct {
	OrganizationID            uuid.UUID
	UnlockPinHashArgon2       string
	DefaultDailyLimitMinutes  int
	NotificationsEnabled      bool
	AutoApproveUnlockRequests bool
}

type entry struct {
	settings OrganizationSettings
	cachedAt time.Time
}

// Loader fetches an organization's settings on a cache miss.
type Loader func(ctx context.Context, organizationID uuid.UUID) (OrganizationSettings, error)

// Cache is a thread-safe, bounded, TTL-bounded read-through cache.
type Cache struct {
	lru  *lru.Cache[uuid.UUID, entry]
	load Loader
	ttl  time.Duration
}

// New creates a Cache holding up to size entries, backed by load on miss or
// expiry.
func New(size int, load Loader) (*Cache, error) {
	l, err := lru.New[uuid.UUID, entry](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l, load: load, ttl: TTL}, nil
}

// Get returns the organization's settings, serving from cache when a
// non-expired entry exists and loading (then caching) otherwise.
func (c *Cache) Get(ctx context.Context, organizationID uuid.UUID) (OrganizationSettings, error) {
	if e, ok := c.lru.Get(organizationID); ok && time.Since(e.cachedAt) < c.ttl {
		return e.settings, nil
	}

	settings, err := c.load(ctx, organizationID)
	if err != nil {
		return OrganizationSettings{}, err
	}
	c.lru.Add(organizationID, entry{settings: settings, cachedAt: time.Now()})
	return settings, nil
}

// Invalidate drops any cached entry for organizationID, forcing the next
// Get to reload. Callers use this after a settings write.
func (c *Cache) Invalidate(organizationID uuid.UUID) {
	c.lru.Remove(organizationID)
}
