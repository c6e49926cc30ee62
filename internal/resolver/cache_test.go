package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gardenfi/swapd/internal/adapters"
)

func TestActionCacheTTLDedup(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cache := newActionCache(300*time.Second, 100)
	cache.now = func() time.Time { return now }

	const orderHash = "0xaaa"

	// First tick: the action runs and is recorded
	assert.True(t, cache.ShouldProcess(orderHash, adapters.DeploySrcEscrow))
	cache.Record(orderHash, adapters.DeploySrcEscrow)

	// A second tick 60s later must skip the same action
	now = now.Add(60 * time.Second)
	assert.False(t, cache.ShouldProcess(orderHash, adapters.DeploySrcEscrow))

	// 400s after the first call the TTL has lapsed; the action repeats
	now = now.Add(340 * time.Second)
	assert.True(t, cache.ShouldProcess(orderHash, adapters.DeploySrcEscrow))
}

func TestActionCacheStatusChangeAlwaysProcessed(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cache := newActionCache(300*time.Second, 100)
	cache.now = func() time.Time { return now }

	cache.Record("0xaaa", adapters.DeploySrcEscrow)

	// A different action within the TTL window still goes through
	now = now.Add(time.Second)
	assert.True(t, cache.ShouldProcess("0xaaa", adapters.DeployDstEscrow))
}

func TestActionCacheTrackAndForget(t *testing.T) {
	cache := newActionCache(time.Minute, 100)

	cache.Track("0xaaa")
	cache.Track("0xbbb")
	assert.ElementsMatch(t, []string{"0xaaa", "0xbbb"}, cache.Tracked())

	// Tracking never overwrites a recorded action
	cache.Record("0xaaa", adapters.DeploySrcEscrow)
	cache.Track("0xaaa")
	assert.False(t, cache.ShouldProcess("0xaaa", adapters.DeploySrcEscrow))

	cache.Forget("0xbbb")
	assert.ElementsMatch(t, []string{"0xaaa"}, cache.Tracked())
}

func TestActionCacheBounded(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cache := newActionCache(time.Second, 4)
	cache.now = func() time.Time { return now }

	cache.Record("0x1", adapters.DeploySrcEscrow)
	cache.Record("0x2", adapters.DeploySrcEscrow)
	cache.Record("0x3", adapters.DeploySrcEscrow)
	cache.Record("0x4", adapters.DeploySrcEscrow)

	// Past the TTL, inserting evicts the stale entries instead of growing
	now = now.Add(2 * time.Second)
	cache.Record("0x5", adapters.DeploySrcEscrow)
	assert.LessOrEqual(t, len(cache.Tracked()), 4)
}
