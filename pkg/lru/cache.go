// Package lru provides a bounded set that forgets its least recently added
// keys, used to avoid printing an entry twice.
package lru

import "container/list"

// Cache is a bounded set of keys. When full, adding a key evicts the key
// that was added longest ago.
type Cache[K comparable] struct {
	capacity int
	items    map[K]*list.Element
	order    *list.List // front = newest, back = oldest
}

// New creates a cache holding at most capacity keys.
func New[K comparable](capacity int) *Cache[K] {
	return &Cache[K]{
		capacity: capacity,
		items:    make(map[K]*list.Element),
		order:    list.New(),
	}
}

// Contains reports whether key is in the cache.
func (c *Cache[K]) Contains(key K) bool {
	_, ok := c.items[key]
	return ok
}

// Add inserts key and reports whether it was new. A zero or negative
// capacity never stores anything.
func (c *Cache[K]) Add(key K) bool {
	if c.capacity <= 0 {
		return false
	}
	if _, ok := c.items[key]; ok {
		return false
	}

	if c.order.Len() >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			delete(c.items, oldest.Value.(K))
			c.order.Remove(oldest)
		}
	}

	c.items[key] = c.order.PushFront(key)
	return true
}

// Len returns the number of keys held.
func (c *Cache[K]) Len() int {
	return len(c.items)
}
