package compiledcache

import (
	"strconv"
	"strings"
	"sync"

	"github.com/bufrgo/bufrcore/descriptor"
	"github.com/bufrgo/bufrcore/internal/hash"
	"github.com/bufrgo/bufrcore/table"
)

// DefaultCapacity mirrors table.MaxCachedGroups: spec.md §5 describes the
// table-group cache's capacity-50 policy as the model for "a separate
// bounded cache of compiled templates."
const DefaultCapacity = 50

// Cache is a bounded, insertion-order-evicted cache of CompiledTemplates,
// keyed by a hash of (descriptor_ids, table_group_key). One Cache is
// meant to be owned per coder instance, per spec.md §5's "may be
// configured per coder instance."
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    []uint64
	entries  map[uint64]*CompiledTemplate
}

// NewCache creates an empty cache; capacity <= 0 defaults to DefaultCapacity.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Cache{
		capacity: capacity,
		entries:  make(map[uint64]*CompiledTemplate, capacity),
	}
}

// Key hashes a (descriptor_ids, table_group_key) pair into a single
// cache key.
func Key(ids []descriptor.ID, groupKey table.Key) uint64 {
	var b strings.Builder
	for _, id := range ids {
		b.WriteString(strconv.FormatUint(uint64(id), 10))
		b.WriteByte(',')
	}
	b.WriteString(strconv.FormatUint(groupKey.Hash(), 16))

	return hash.ID(b.String())
}

// Get returns the cached template for (ids, groupKey), if present.
func (c *Cache) Get(ids []descriptor.ID, groupKey table.Key) (*CompiledTemplate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.entries[Key(ids, groupKey)]

	return t, ok
}

// Put inserts tpl under (ids, groupKey), evicting the oldest entry by
// insertion order if the cache is at capacity.
func (c *Cache) Put(ids []descriptor.ID, groupKey table.Key, tpl *CompiledTemplate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := Key(ids, groupKey)
	if _, exists := c.entries[h]; exists {
		c.entries[h] = tpl

		return
	}

	if len(c.entries) >= c.capacity && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[h] = tpl
	c.order = append(c.order, h)
}

// Len reports the current number of cached templates.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// GetOrCompile returns the cached template for (ids, groupKey) if present,
// otherwise compiles it against group, caches, and returns the result.
func (c *Cache) GetOrCompile(group *table.Group, ids []descriptor.ID) (*CompiledTemplate, error) {
	if tpl, ok := c.Get(ids, group.Key); ok {
		return tpl, nil
	}

	tpl, err := Compile(group, ids)
	if err != nil {
		return nil, err
	}

	c.Put(ids, group.Key, tpl)

	return tpl, nil
}
