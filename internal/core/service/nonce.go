package service

import (
	"container/list"
	"sync"
	"time"
)

// NonceCache remembers recently seen request nonces for replay protection.
// Entries expire after ttl; when full, the oldest entry is evicted.
type NonceCache struct {
	mu       sync.Mutex
	items    map[string]*list.Element
	order    *list.List // front is newest
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

type nonceEntry struct {
	nonce  string
	seenAt time.Time
}

// NewNonceCache creates a NonceCache with the given capacity and TTL.
func NewNonceCache(capacity int, ttl time.Duration) *NonceCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &NonceCache{
		items:    make(map[string]*list.Element),
		order:    list.New(),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Contains reports whether nonce was seen within the TTL.
func (c *NonceCache) Contains(nonce string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[nonce]
	if !exists {
		return false
	}
	if c.expired(elem.Value.(*nonceEntry)) {
		c.order.Remove(elem)
		delete(c.items, nonce)
		return false
	}
	return true
}

// AddIfAbsent records nonce and returns true, or returns false if nonce was
// already seen within the TTL.
func (c *NonceCache) AddIfAbsent(nonce string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[nonce]; exists {
		if !c.expired(elem.Value.(*nonceEntry)) {
			return false
		}
		c.order.Remove(elem)
		delete(c.items, nonce)
	}

	c.cleanupExpiredLocked()
	for c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		delete(c.items, oldest.Value.(*nonceEntry).nonce)
		c.order.Remove(oldest)
	}

	c.items[nonce] = c.order.PushFront(&nonceEntry{nonce: nonce, seenAt: c.now()})
	return true
}

func (c *NonceCache) expired(e *nonceEntry) bool {
	return c.now().Sub(e.seenAt) >= c.ttl
}

// cleanupExpiredLocked removes expired entries, oldest first.
func (c *NonceCache) cleanupExpiredLocked() {
	for elem := c.order.Back(); elem != nil; {
		entry := elem.Value.(*nonceEntry)
		if !c.expired(entry) {
			// Everything newer is also live.
			break
		}
		prev := elem.Prev()
		delete(c.items, entry.nonce)
		c.order.Remove(elem)
		elem = prev
	}
}

// Size returns the current number of items in the cache.
func (c *NonceCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear removes all entries from the cache.
func (c *NonceCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
}
