package server

import (
	"sync/atomic"
	"time"

	"personakit/internal/persona"
	"personakit/internal/types"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultCacheSize = 256
	defaultCacheTTL  = 15 * time.Minute
)

type generationEntry struct {
	tree     types.PersonaTree
	storedAt time.Time
}

// GenerationCache remembers generated personas per role and job description so
// re-opening the wizard does not pay for another model call
type GenerationCache struct {
	cache  *lru.Cache[string, generationEntry]
	ttl    time.Duration
	now    func() time.Time
	hits   atomic.Int64
	misses atomic.Int64
}

// NewGenerationCache creates a cache of size entries that expire after ttl.
// Zero values fall back to 256 entries and 15 minutes.
func NewGenerationCache(size int, ttl time.Duration) *GenerationCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	cache, err := lru.New[string, generationEntry](size)
	if err != nil {
		return nil
	}
	return &GenerationCache{cache: cache, ttl: ttl, now: time.Now}
}

func generationKey(roleID, jobDescriptionID string) string {
	return roleID + "\x00" + jobDescriptionID
}

// Get returns a copy of the cached persona for roleID and jobDescriptionID
func (c *GenerationCache) Get(roleID, jobDescriptionID string) (types.PersonaTree, bool) {
	if c == nil {
		return types.PersonaTree{}, false
	}
	key := generationKey(roleID, jobDescriptionID)
	entry, ok := c.cache.Get(key)
	if !ok {
		c.misses.Add(1)
		return types.PersonaTree{}, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		c.cache.Remove(key)
		c.misses.Add(1)
		return types.PersonaTree{}, false
	}
	c.hits.Add(1)
	return persona.Clone(entry.tree), true
}

// Put stores tree for roleID and jobDescriptionID
func (c *GenerationCache) Put(roleID, jobDescriptionID string, tree types.PersonaTree) {
	if c == nil {
		return
	}
	c.cache.Add(generationKey(roleID, jobDescriptionID), generationEntry{
		tree:     persona.Clone(tree),
		storedAt: c.now(),
	})
}

// Invalidate drops the entry for roleID and jobDescriptionID
func (c *GenerationCache) Invalidate(roleID, jobDescriptionID string) {
	if c == nil {
		return
	}
	c.cache.Remove(generationKey(roleID, jobDescriptionID))
}

// GetStats reports cache occupancy and hit counts
func (c *GenerationCache) GetStats() map[string]any {
	if c == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"enabled":     true,
		"entries":     c.cache.Len(),
		"ttl_seconds": c.ttl.Seconds(),
		"hits":        c.hits.Load(),
		"misses":      c.misses.Load(),
	}
}
