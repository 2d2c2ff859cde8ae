package app

import "sync"

// blockRenderKey identifies one rendering of a message. Messages never
// change, so the id plus the layout inputs fully determine the output.
type blockRenderKey struct {
	messageID string
	width     int
	live      bool
	bucket    int64
}

type blockRenderCache struct {
	mu      sync.Mutex
	entries map[blockRenderKey]string
	order   []blockRenderKey
	maxSize int
}

func newBlockRenderCache(maxSize int) *blockRenderCache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &blockRenderCache{
		entries: map[blockRenderKey]string{},
		order:   make([]blockRenderKey, 0, maxSize),
		maxSize: maxSize,
	}
}

func (c *blockRenderCache) Get(key blockRenderKey) (string, bool) {
	if c == nil {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.entries[key]
	return val, ok
}

func (c *blockRenderCache) Set(key blockRenderKey, value string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = value
	for len(c.order) > c.maxSize {
		evict := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, evict)
	}
}

func (c *blockRenderCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
