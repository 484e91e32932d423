package embeddings

import (
	"sync"
)

// Cache is a concurrency-safe embedding cache keyed by input text.
// Entries are never evicted: the vocabulary is bounded by the hard
// limit, so the cache stays small.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]float32
}

// NewCache creates an empty Cache
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string][]float32),
	}
}

// Get returns the cached embedding for text, if present
func (c *Cache) Get(text string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	emb, ok := c.entries[text]
	return emb, ok
}

// Set stores the embedding for text
func (c *Cache) Set(text string, emb []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[text] = emb
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
