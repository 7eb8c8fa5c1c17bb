// Package cache is an in-process read cache whose entries are invalidated by tag.
//
// Every entry carries the tags of the data it was built from. A write invalidates the
// tags it touched, dropping every entry that depends on them.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value     interface{}
	tags      []string
	expiresAt time.Time
}

type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu          sync.RWMutex
	entries     map[string]entry
	byTag       map[string]map[string]struct{} // tag -> keys
	generations map[string]uint64               // tag -> invalidations so far
}

// New returns a Cache whose entries live for ttl (forever when ttl <= 0).
// now defaults to time.Now.
func New(ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		ttl:     ttl,
		now:     now,
		entries:     make(map[string]entry),
		byTag:       make(map[string]map[string]struct{}),
		generations: make(map[string]uint64),
	}
}

func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		c.remove(key)
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Set(key string, value interface{}, tags ...string) {
	e := c.newEntry(value, tags)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, e)
}

// setIfCurrent is Set, skipped when one of tags was invalidated since gens was taken.
func (c *Cache) setIfCurrent(key string, value interface{}, tags []string, gens []uint64) bool {
	e := c.newEntry(value, tags)
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, tag := range tags {
		if c.generations[tag] != gens[i] {
			return false
		}
	}
	c.set(key, e)
	return true
}

// generation returns the invalidation count of each of tags.
func (c *Cache) generation(tags []string) []uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	gens := make([]uint64, len(tags))
	for i, tag := range tags {
		gens[i] = c.generations[tag]
	}
	return gens
}

func (c *Cache) newEntry(value interface{}, tags []string) entry {
	e := entry{value: value, tags: append([]string(nil), tags...)}
	if c.ttl > 0 {
		e.expiresAt = c.now().Add(c.ttl)
	}
	return e
}

// set must be called with c.mu held.
func (c *Cache) set(key string, e entry) {
	c.remove(key)
	c.entries[key] = e
	for _, tag := range e.tags {
		keys, ok := c.byTag[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.byTag[tag] = keys
		}
		keys[key] = struct{}{}
	}
}

// InvalidateTags drops every entry tagged with one of tags and returns how many were dropped.
func (c *Cache) InvalidateTags(tags ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int
	for _, tag := range tags {
		c.generations[tag]++
		for key := range c.byTag[tag] {
			if c.remove(key) {
				n++
			}
		}
		delete(c.byTag, tag)
	}
	return n
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// remove must be called with c.mu held.
func (c *Cache) remove(key string) bool {
	e, ok := c.entries[key]
	if !ok {
		return false
	}
	delete(c.entries, key)
	for _, tag := range e.tags {
		if keys, ok := c.byTag[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.byTag, tag)
			}
		}
	}
	return true
}

// Fetch returns the value cached under key, or loads, caches and returns it.
// Load errors are returned as is and nothing is cached. A value whose tags were
// invalidated while it loaded is returned but not cached.
func Fetch[T any](c *Cache, key string, tags []string, load func() (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}
	gens := c.generation(tags)
	v, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	c.setIfCurrent(key, v, tags, gens)
	return v, nil
}
