package geocache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"github.com/hutbite/hutbite-backend/pkg/geo"
)

func TestCacheGetPut(t *testing.T) {
	c := New(10, time.Hour)

	_, ok := c.Get("EC1A 1BB")
	assert.False(t, ok, "empty cache should miss")

	coords := geo.Coordinates{Lat: 51.5081, Lon: -0.0759}
	c.Put("EC1A 1BB", coords)

	got, ok := c.Get("EC1A 1BB")
	assert.True(t, ok)
	assert.Equal(t, coords, got)
	assert.Equal(t, 1, c.Len())
}

func TestCacheContains(t *testing.T) {
	c := New(10, time.Hour)

	assert.False(t, c.Contains("N14 6BS"))

	c.Put("N14 6BS", geo.Coordinates{Lat: 51.6332, Lon: -0.1261})
	assert.True(t, c.Contains("N14 6BS"))
}

func TestCacheTTLExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewWithClock(10, time.Hour, clock)

	c.Put("EC1A 1BB", geo.Coordinates{Lat: 51.5081, Lon: -0.0759})

	clock.Advance(59 * time.Minute)
	assert.True(t, c.Contains("EC1A 1BB"), "entry should survive within TTL")

	clock.Advance(2 * time.Minute)
	_, ok := c.Get("EC1A 1BB")
	assert.False(t, ok, "entry should expire after TTL")
	assert.Equal(t, 0, c.Len(), "expired entry should be evicted lazily")
}

func TestCacheCapacityEvictsOldestInserted(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewWithClock(3, time.Hour, clock)

	for i := 0; i < 3; i++ {
		c.Put(fmt.Sprintf("KEY %d", i), geo.Coordinates{Lat: float64(i)})
		clock.Advance(time.Second)
	}

	// Fourth insert evicts KEY 0 even though its TTL has not elapsed.
	c.Put("KEY 3", geo.Coordinates{Lat: 3})

	assert.False(t, c.Contains("KEY 0"), "oldest-inserted entry should be evicted")
	assert.True(t, c.Contains("KEY 1"))
	assert.True(t, c.Contains("KEY 2"))
	assert.True(t, c.Contains("KEY 3"))
	assert.Equal(t, 3, c.Len())
}

func TestCachePutRefreshesExistingKey(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewWithClock(2, time.Hour, clock)

	c.Put("A", geo.Coordinates{Lat: 1})
	clock.Advance(time.Second)
	c.Put("B", geo.Coordinates{Lat: 2})
	clock.Advance(time.Second)

	// Re-putting A moves it to the back of the eviction order.
	c.Put("A", geo.Coordinates{Lat: 10})
	c.Put("C", geo.Coordinates{Lat: 3})

	assert.False(t, c.Contains("B"), "B should be evicted as oldest-inserted")
	got, ok := c.Get("A")
	assert.True(t, ok)
	assert.Equal(t, 10.0, got.Lat, "re-put should refresh the value")
	assert.True(t, c.Contains("C"))
}

func TestCacheClear(t *testing.T) {
	c := New(10, time.Hour)

	c.Put("EC1A 1BB", geo.Coordinates{Lat: 51.5081, Lon: -0.0759})
	c.Put("N14 6BS", geo.Coordinates{Lat: 51.6332, Lon: -0.1261})

	c.Clear()

	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Contains("EC1A 1BB"))
}

func TestCacheZeroTTLNeverExpires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewWithClock(10, 0, clock)

	c.Put("EC1A 1BB", geo.Coordinates{Lat: 51.5081, Lon: -0.0759})
	clock.Advance(1000 * time.Hour)

	assert.True(t, c.Contains("EC1A 1BB"))
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New(50, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("KEY %d", j%20)
				c.Put(key, geo.Coordinates{Lat: float64(n), Lon: float64(j)})
				c.Get(key)
				c.Contains(key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}
