package service

import (
	"sync"
	"time"

	"github.com/irakobi/wildlife-conservation-backend/internal/domain/form"
)

// schemaCache holds normalized schemas keyed by form UID with a fixed TTL.
// Normalizing is cheap; the cache exists to avoid re-fetching definitions
// from the provider on every submission.
type schemaCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]schemaEntry
}

type schemaEntry struct {
	schema  *form.Schema
	expires time.Time
}

func newSchemaCache(ttl time.Duration) *schemaCache {
	return &schemaCache{
		ttl:     ttl,
		entries: make(map[string]schemaEntry),
	}
}

func (c *schemaCache) get(uid string) (*form.Schema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[uid]
	if !ok || time.Now().After(entry.expires) {
		return nil, false
	}
	return entry.schema, true
}

func (c *schemaCache) put(uid string, schema *form.Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[uid] = schemaEntry{schema: schema, expires: time.Now().Add(c.ttl)}
}

func (c *schemaCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
