package worldview

import (
	"sync"
	"time"
)

// catalogCache holds the most recent catalog for a short TTL. Catalogs are
// never mutated after parsing, so the cached pointer is shared freely.
type catalogCache struct {
	mu        sync.RWMutex
	catalog   *LayerCatalog
	expiresAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

func newCatalogCache(ttl time.Duration) *catalogCache {
	return &catalogCache{ttl: ttl, now: time.Now}
}

// Get returns the cached catalog and true if it has not expired.
func (c *catalogCache) Get() (*LayerCatalog, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.catalog == nil || c.now().After(c.expiresAt) {
		return nil, false
	}
	return c.catalog, true
}

// Set stores a catalog with the configured TTL.
func (c *catalogCache) Set(catalog *LayerCatalog) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.catalog = catalog
	c.expiresAt = c.now().Add(c.ttl)
}
