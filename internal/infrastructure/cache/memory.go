package cache

import (
	"context"
	"sync"
	"time"

	"github.com/dutyrobot/backend/internal/domain"
	"github.com/dutyrobot/backend/internal/metrics"
	"github.com/shopspring/decimal"
)

// DefaultTTL is how long a fetched base rate is served from cache
const DefaultTTL = 24 * time.Hour

// cacheEntry is a base rate and the time it was fetched
type cacheEntry struct {
	BaseRate  decimal.Decimal
	FetchedAt time.Time
}

// MemoryCache is a thread-safe in-memory rate cache.
// Stale entries are ignored on read and never purged; the process lifetime bounds them.
type MemoryCache struct {
	data  map[domain.TariffCode]cacheEntry
	mutex sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryCache creates a rate cache using the wall clock
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return NewMemoryCacheWithClock(ttl, time.Now)
}

// NewMemoryCacheWithClock creates a rate cache reading time from now
func NewMemoryCacheWithClock(ttl time.Duration, now func() time.Time) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}

	return &MemoryCache{
		data: make(map[domain.TariffCode]cacheEntry),
		ttl:  ttl,
		now:  now,
	}
}

// Get returns the cached base rate for code, or domain.ErrCacheMiss if absent or stale
func (c *MemoryCache) Get(ctx context.Context, code domain.TariffCode) (decimal.Decimal, error) {
	c.mutex.RLock()
	item, exists := c.data[code]
	c.mutex.RUnlock()

	if !exists || c.now().Sub(item.FetchedAt) >= c.ttl {
		metrics.IncCacheMiss()
		return decimal.Zero, domain.ErrCacheMiss
	}

	metrics.IncCacheHit()
	return item.BaseRate, nil
}

// Set stores baseRate for code, overwriting any previous entry
func (c *MemoryCache) Set(ctx context.Context, code domain.TariffCode, baseRate decimal.Decimal) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[code] = cacheEntry{
		BaseRate:  baseRate,
		FetchedAt: c.now(),
	}
	return nil
}

// Size returns the number of stored entries, stale ones included (for debugging/monitoring)
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// TTL returns the staleness threshold
func (c *MemoryCache) TTL() time.Duration {
	return c.ttl
}
