package resolver

import (
	"sync"
	"time"

	"github.com/gardenfi/swapd/internal/adapters"
)

// cacheEntry remembers the last action taken for an order and when
type cacheEntry struct {
	action adapters.ActionType
	at     time.Time
}

// actionCache is the process-local TTL dedup for resolver actions. An
// action repeats only after its TTL elapses; a different action for the
// same order always goes through, because a status change maps to a new
// action. Correctness does not rely on this cache; the chain rejects
// true duplicates.
type actionCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

func newActionCache(ttl time.Duration, maxSize int) *actionCache {
	return &actionCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// ShouldProcess reports whether an action for an order needs executing:
// true unless the same action ran within the TTL window
func (c *actionCache) ShouldProcess(orderHash string, action adapters.ActionType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[orderHash]
	if !ok {
		return true
	}
	if entry.action != action {
		return true
	}
	return c.now().Sub(entry.at) >= c.ttl
}

// Record stores the action just executed for an order
func (c *actionCache) Record(orderHash string, action adapters.ActionType) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		c.evictExpired()
	}
	c.entries[orderHash] = cacheEntry{action: action, at: c.now()}
}

// Track registers an order in the working set without marking any action
// as done
func (c *actionCache) Track(orderHash string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[orderHash]; ok {
		return
	}
	if len(c.entries) >= c.maxSize {
		c.evictExpired()
	}
	c.entries[orderHash] = cacheEntry{action: adapters.NoOp, at: time.Time{}}
}

// Forget drops an order from the working set
func (c *actionCache) Forget(orderHash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, orderHash)
}

// Tracked returns every order hash in the working set
func (c *actionCache) Tracked() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	hashes := make([]string, 0, len(c.entries))
	for hash := range c.entries {
		hashes = append(hashes, hash)
	}
	return hashes
}

// evictExpired drops entries older than the TTL; called with the lock held
func (c *actionCache) evictExpired() {
	cutoff := c.now().Add(-c.ttl)
	for hash, entry := range c.entries {
		if !entry.at.IsZero() && entry.at.Before(cutoff) {
			delete(c.entries, hash)
		}
	}
}
