package sim

import (
	"sync"
	"time"
)

type blockEntry struct {
	number uint64
	at     time.Time
}

// BlockCache pins a block number per scenario id so paired quotes routed
// through different endpoints are simulated against identical chain
// state. Entries expire after a TTL and are swept on insert, keeping the
// map bounded over an indefinitely running process.
type BlockCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]blockEntry
}

func NewBlockCache(ttl time.Duration) *BlockCache {
	return &BlockCache{ttl: ttl, entries: make(map[string]blockEntry)}
}

// Resolve returns the cached block for the id, fetching and pinning it on
// first use. The lock is held across the fetch so concurrent workers
// sharing a scenario always agree on the pinned block.
func (c *BlockCache) Resolve(id string, fetch func() (uint64, error)) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if e, ok := c.entries[id]; ok && now.Sub(e.at) < c.ttl {
		return e.number, nil
	}
	n, err := fetch()
	if err != nil {
		return 0, err
	}
	for k, e := range c.entries {
		if now.Sub(e.at) >= c.ttl {
			delete(c.entries, k)
		}
	}
	c.entries[id] = blockEntry{number: n, at: now}
	return n, nil
}

func (c *BlockCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
