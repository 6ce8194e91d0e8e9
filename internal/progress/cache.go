// Package progress keeps an in-memory map of analysis progress tokens to
// completion percentages. Entries expire after a TTL so abandoned tokens
// don't accumulate; a scheduled task calls Purge to sweep them out.
package progress

import (
	"sync"
	"time"
)

type record struct {
	percent  int
	deadline time.Time
}

// Cache is a TTL map of progress tokens. It implements analysis.Reporter
// and is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	records map[string]record
	now     func() time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		records: map[string]record{},
		now:     time.Now,
	}
}

// Set records the current completion percentage for a token and refreshes
// its expiry.
func (c *Cache) Set(token string, percent int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[token] = record{percent: percent, deadline: c.now().Add(c.ttl)}
}

// Get returns a token's percentage. Expired tokens read as absent.
func (c *Cache) Get(token string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[token]
	if !ok || c.now().After(rec.deadline) {
		return 0, false
	}
	return rec.percent, true
}

// Clear forgets a token.
func (c *Cache) Clear(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, token)
}

// Purge drops expired entries and reports how many were removed.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for token, rec := range c.records {
		if now.After(rec.deadline) {
			delete(c.records, token)
			removed++
		}
	}
	return removed
}

// Len reports the number of live entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}
