// Package cache provides a small LRU used to memoize per-session lookup
// results.
package cache

import (
	"sync"
	"sync/atomic"
)

// LRU is a fixed-capacity least-recently-used cache keyed by string.
type LRU[V any] struct {
	mu      sync.Mutex
	entries map[string]*lruEntry[V]
	head    *lruEntry[V] // Most recently used.
	tail    *lruEntry[V] // Least recently used.
	cap     int

	// Metrics (atomic for lock-free reads).
	hits   atomic.Int64
	misses atomic.Int64
}

// lruEntry is a doubly-linked list node for LRU tracking.
type lruEntry[V any] struct {
	key   string
	value V
	prev  *lruEntry[V]
	next  *lruEntry[V]
}

// NewLRU creates a cache holding at most capacity entries. A capacity of
// zero or less disables the cache; Get always misses and Put is a no-op.
func NewLRU[V any](capacity int) *LRU[V] {
	return &LRU[V]{
		entries: make(map[string]*lruEntry[V]),
		cap:     capacity,
	}
}

// Get returns the cached value and whether it was present.
func (c *LRU[V]) Get(key string) (V, bool) {
	var zero V

	if c.cap <= 0 {
		c.misses.Add(1)
		return zero, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return zero, false
	}

	c.moveToFront(entry)
	c.hits.Add(1)

	return entry.value, true
}

// Put stores a value, evicting the least recently used entry when full.
func (c *LRU[V]) Put(key string, value V) {
	if c.cap <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if ok {
		entry.value = value
		c.moveToFront(entry)

		return
	}

	entry = &lruEntry[V]{key: key, value: value}
	c.entries[key] = entry
	c.pushFront(entry)

	if len(c.entries) > c.cap {
		c.evictTail()
	}
}

// Len returns the number of cached entries.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Stats returns cumulative hit and miss counts.
func (c *LRU[V]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// moveToFront marks an entry most recently used.
func (c *LRU[V]) moveToFront(entry *lruEntry[V]) {
	if c.head == entry {
		return
	}

	c.unlink(entry)
	c.pushFront(entry)
}

// pushFront links an entry at the head.
func (c *LRU[V]) pushFront(entry *lruEntry[V]) {
	entry.prev = nil
	entry.next = c.head

	if c.head != nil {
		c.head.prev = entry
	}

	c.head = entry

	if c.tail == nil {
		c.tail = entry
	}
}

// unlink removes an entry from the list.
func (c *LRU[V]) unlink(entry *lruEntry[V]) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		c.head = entry.next
	}

	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		c.tail = entry.prev
	}

	entry.prev = nil
	entry.next = nil
}

// evictTail drops the least recently used entry.
func (c *LRU[V]) evictTail() {
	victim := c.tail
	if victim == nil {
		return
	}

	c.unlink(victim)
	delete(c.entries, victim.key)
}
