package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"
)

type lruItem struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// LRUCache is a size-bounded in-process cache with least-recently-used
// eviction. Entries also honor their TTL.
type LRUCache struct {
	maxSize int

	mu    sync.Mutex
	ll    *list.List
	items map[string]*list.Element
	now   func() time.Time
}

// NewLRUCache creates an LRU cache holding at most maxSize entries.
func NewLRUCache(maxSize int) (*LRUCache, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("cache: lru size must be greater than 0, got %d", maxSize)
	}
	return &LRUCache{
		maxSize: maxSize,
		ll:      list.New(),
		items:   make(map[string]*list.Element),
		now:     time.Now,
	}, nil
}

// Get returns the value for key and marks it most recently used.
func (c *LRUCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	item := elem.Value.(*lruItem)
	if c.now().After(item.expiresAt) {
		c.removeElement(elem)
		return nil, false
	}
	c.ll.MoveToFront(elem)
	return item.value, true
}

// Set stores value under key, evicting the least recently used entry when full.
func (c *LRUCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl)
	if elem, ok := c.items[key]; ok {
		item := elem.Value.(*lruItem)
		item.value = value
		item.expiresAt = expiresAt
		c.ll.MoveToFront(elem)
		return nil
	}

	c.items[key] = c.ll.PushFront(&lruItem{key: key, value: value, expiresAt: expiresAt})
	if c.ll.Len() > c.maxSize {
		if oldest := c.ll.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
	return nil
}

// Delete removes key. Idempotent.
func (c *LRUCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
	return nil
}

// Clear drops every entry.
func (c *LRUCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	clear(c.items)
	return nil
}

// Len reports the number of resident entries.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// removeElement must be called with c.mu held.
func (c *LRUCache) removeElement(elem *list.Element) {
	item := c.ll.Remove(elem).(*lruItem)
	delete(c.items, item.key)
}

var _ Cache = (*LRUCache)(nil)
