package table

import "sync"

// MaxCachedGroups is the process-wide table-group cache capacity
// (spec.md §5: "a fixed capacity (e.g., 50)").
const MaxCachedGroups = 50

// Cache is a process-wide, insertion-order-evicted cache of loaded table
// Groups, keyed by Key.Hash(). Get, Put, Invalidate and Len each take the
// cache's mutex; the Groups themselves are immutable once loaded and are
// read without a lock, as spec.md §5 allows.
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    []uint64
	entries  map[uint64]*Group
}

// NewCache creates an empty cache with the given capacity; capacity <= 0
// defaults to MaxCachedGroups.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = MaxCachedGroups
	}

	return &Cache{
		capacity: capacity,
		entries:  make(map[uint64]*Group, capacity),
	}
}

// Get returns the cached Group for key, if present.
func (c *Cache) Get(key Key) (*Group, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.entries[key.Hash()]

	return g, ok
}

// Put inserts g under key, evicting the oldest entry by insertion order
// if the cache is at capacity. Re-inserting an existing key updates the
// entry without changing its eviction position.
func (c *Cache) Put(key Key, g *Group) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := key.Hash()
	if _, exists := c.entries[h]; exists {
		c.entries[h] = g

		return
	}

	if len(c.entries) >= c.capacity && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[h] = g
	c.order = append(c.order, h)
}

// Invalidate removes key from the cache, if present.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := key.Hash()
	delete(c.entries, h)
	for i, o := range c.order {
		if o == h {
			c.order = append(c.order[:i], c.order[i+1:]...)

			break
		}
	}
}

// Len reports the current number of cached groups.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

var defaultCache = NewCache(MaxCachedGroups)

// DefaultCache returns the process-wide singleton cache, mirroring
// pybufrkit's TableGroupCacheManager classmethod wrapper around a single
// module-level TableGroupCache.
func DefaultCache() *Cache { return defaultCache }

// GetOrLoad returns the cached Group for key if present, otherwise calls
// load, caches, and returns its result. load is invoked at most once per
// miss; concurrent misses may call load more than once, with the loser's
// result discarded (load is expected to be a pure in-memory construction,
// so recomputation is cheap and a stampede is not a correctness issue).
func (c *Cache) GetOrLoad(key Key, load func() (*Group, error)) (*Group, error) {
	if g, ok := c.Get(key); ok {
		return g, nil
	}

	g, err := load()
	if err != nil {
		return nil, err
	}

	c.Put(key, g)

	return g, nil
}
