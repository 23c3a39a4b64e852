// Package cache provides a thread-safe LRU cache for parsed expressions.
//
// A Grammar uses it to avoid re-parsing the same expression text when the
// same formula is requested repeatedly, for example once per worker.
//
// # Example
//
//	c := cache.New[*compiler.Program](1024)
//	prog, err := c.GetOrCompute("like + follow", parse)
package cache

import (
	"container/list"
	"sync"

	"github.com/segmentio/fasthash/fnv1a"
)

// entry is a cache entry stored in the doubly-linked list.
type entry[V any] struct {
	key   string
	hash  uint64
	value V
}

// LRU is a thread-safe least-recently-used cache keyed by string. Keys are
// indexed by their 64-bit FNV-1a hash; the full key is kept and compared so
// a hash collision is a miss, never a wrong value.
//
// Safe for concurrent use by multiple goroutines.
type LRU[V any] struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[uint64]*list.Element

	hits, misses uint64
}

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 256

// New creates a new LRU cache with the given capacity.
func New[V any](capacity int) *LRU[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &LRU[V]{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[uint64]*list.Element, capacity),
	}
}

// Get retrieves a value and marks it most recently used.
func (c *LRU[V]) Get(key string) (V, bool) {
	h := fnv1a.HashString64(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[h]; ok {
		if e := el.Value.(*entry[V]); e.key == key {
			c.ll.MoveToFront(el)
			c.hits++
			return e.value, true
		}
	}
	c.misses++
	var zero V
	return zero, false
}

// Set inserts or replaces a value. If at capacity, the least recently used
// entry is evicted first. A colliding key replaces the older entry.
func (c *LRU[V]) Set(key string, value V) {
	h := fnv1a.HashString64(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[h]; ok {
		e := el.Value.(*entry[V])
		e.key, e.value = key, value
		c.ll.MoveToFront(el)
		return
	}

	if c.ll.Len() >= c.capacity {
		c.evictLocked()
	}
	c.items[h] = c.ll.PushFront(&entry[V]{key: key, hash: h, value: value})
}

// GetOrCompute returns the cached value for key, or calls compute, caches
// its result and returns it. Errors are not cached.
func (c *LRU[V]) GetOrCompute(key string, compute func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}

// Len returns the number of entries currently in the cache.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Stats returns the hit and miss counts since creation.
func (c *LRU[V]) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Purge removes all entries.
func (c *LRU[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	clear(c.items)
}

// evictLocked removes the least recently used entry. Caller holds mu.
func (c *LRU[V]) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry[V]).hash)
}
