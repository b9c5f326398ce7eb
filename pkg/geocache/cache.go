// Package geocache provides a bounded in-memory TTL cache for geocoded
// postcode coordinates.
package geocache

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hutbite/hutbite-backend/pkg/geo"
)

type entry struct {
	coords     geo.Coordinates
	insertedAt time.Time
}

// Cache is a capacity-bounded key-value store mapping normalized postcodes
// to coordinates. Entries expire TTL after insertion and are evicted lazily
// on read; when the cache is full, the oldest-inserted entry is evicted
// first regardless of its remaining TTL.
//
// Cache is safe for concurrent use. It performs no request coalescing:
// two concurrent lookups for the same missing key will both miss, and the
// second Put simply overwrites the first.
type Cache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	clock   clockwork.Clock
	entries map[string]entry
	order   []string // insertion order, oldest first
}

// New creates a cache holding at most maxSize entries, each expiring ttl
// after insertion.
func New(maxSize int, ttl time.Duration) *Cache {
	return NewWithClock(maxSize, ttl, clockwork.NewRealClock())
}

// NewWithClock creates a cache with an injected time source so tests can
// advance time deterministically.
func NewWithClock(maxSize int, ttl time.Duration, clock clockwork.Clock) *Cache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Cache{
		maxSize: maxSize,
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]entry, maxSize),
	}
}

// Get returns the coordinates stored under key. An entry older than the
// TTL is treated as absent and removed.
func (c *Cache) Get(key string) (geo.Coordinates, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key)
	if !ok {
		cacheMisses.Inc()
		return geo.Coordinates{}, false
	}

	cacheHits.Inc()
	return e.coords, true
}

// Contains reports whether key has a live entry, without counting a hit or
// miss. The deliverability engine uses this to decide the reported source
// before triggering a geocode call.
func (c *Cache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.lookup(key)
	return ok
}

// Put stores coords under key. If the cache is at capacity the
// oldest-inserted entry is evicted first, independent of its remaining TTL.
// Re-putting an existing key refreshes its value and insertion time.
func (c *Cache) Put(key string, coords geo.Coordinates) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.removeFromOrder(key)
	} else if len(c.entries) >= c.maxSize {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		cacheEvictions.Inc()
	}

	c.entries[key] = entry{coords: coords, insertedAt: c.clock.Now()}
	c.order = append(c.order, key)
	cacheSize.Set(float64(len(c.entries)))
}

// Clear removes all entries. Intended for test isolation and operational
// resets.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry, c.maxSize)
	c.order = nil
	cacheSize.Set(0)
}

// Len returns the number of entries currently stored, including entries
// that have expired but not yet been evicted lazily.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// lookup returns the live entry for key, lazily evicting it when expired.
// Caller must hold c.mu.
func (c *Cache) lookup(key string) (entry, bool) {
	e, ok := c.entries[key]
	if !ok {
		return entry{}, false
	}

	if c.ttl > 0 && c.clock.Since(e.insertedAt) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		cacheExpirations.Inc()
		cacheSize.Set(float64(len(c.entries)))
		return entry{}, false
	}

	return e, true
}

// removeFromOrder drops key from the insertion-order slice.
// Caller must hold c.mu.
func (c *Cache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
