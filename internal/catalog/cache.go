package catalog

import (
	"sync"
	"time"

	"github.com/Veraticus/quotewright/internal/model"
)

// defaultSearchTTL bounds how stale an autocomplete answer can be.
const defaultSearchTTL = 2 * time.Minute

type cacheEntry struct {
	expiry  time.Time
	results []model.SearchResult
}

// searchCache holds autocomplete results keyed by catalog and term.
type searchCache struct {
	now     func() time.Time
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
	once    sync.Once
}

func newSearchCache(ttl time.Duration) *searchCache {
	if ttl <= 0 {
		ttl = defaultSearchTTL
	}

	c := &searchCache{
		now:     time.Now,
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}
	go c.cleanup()
	return c
}

func cacheKey(catalog model.CatalogType, term string) string {
	return string(catalog) + "\x00" + term
}

func (c *searchCache) get(key string) ([]model.SearchResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiry) {
		return nil, false
	}
	return entry.results, true
}

func (c *searchCache) set(key string, results []model.SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		results: results,
		expiry:  c.now().Add(c.ttl),
	}
}

// clear drops every entry. Catalog writes call it.
func (c *searchCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *searchCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *searchCache) cleanup() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

func (c *searchCache) close() {
	c.once.Do(func() { close(c.stopCh) })
}
