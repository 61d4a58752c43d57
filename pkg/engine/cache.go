package engine

import (
	"sync"
	"sync/atomic"

	"github.com/xtaveras38/Parcheesi/internal/statekey"
)

// DefaultCacheSize is the default number of evaluation cache entries.
const DefaultCacheSize = 1 << 18

// CacheHit is returned by Lookup when the position was found.
const CacheHit = ^uint32(0)

// cacheEntry stores one cached evaluation: the state key, the color the
// score was computed for, and the score itself.
type cacheEntry struct {
	key   statekey.Key
	color int32
	score float64
	valid bool
}

// cacheNode holds primary and secondary entries for the two-way
// associative scheme: a new entry demotes the primary rather than
// evicting outright.
type cacheNode struct {
	primary   cacheEntry
	secondary cacheEntry
}

// EvalCache is a thread-safe evaluation cache keyed by state key and
// evaluating color, shared by look-ahead ranking and rollout workers.
type EvalCache struct {
	entries  []cacheNode
	hashMask uint32

	// Counters are updated atomically: Lookup holds only the read lock,
	// so rollout workers bump them concurrently.
	lookups uint64
	hits    uint64
	adds    uint64

	mu sync.RWMutex
}

// NewEvalCache creates a cache with at least size entries, rounded up to
// a power of two.
func NewEvalCache(size uint32) *EvalCache {
	if size > 1<<30 {
		size = 1 << 30
	}
	p := uint32(1)
	for p < size {
		p <<= 1
	}
	return &EvalCache{
		entries:  make([]cacheNode, p/2),
		hashMask: (p / 2) - 1,
	}
}

// hash mixes the state key words and color with MurmurHash3-style
// finalization.
func (c *EvalCache) hash(key statekey.Key, color int32) uint32 {
	const c1 = 0xcc9e2d51
	const c2 = 0x1b873593

	h := uint32(0)
	mix := func(k uint32) {
		k *= c1
		k = (k << 15) | (k >> 17)
		k *= c2
		h ^= k
		h = (h << 13) | (h >> 19)
		h = h*5 + 0xe6546b64
	}
	for _, k := range key.Data {
		mix(k)
	}
	mix(uint32(color))

	h ^= 20
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16

	return h & c.hashMask
}

// Lookup returns (score, CacheHit) when the position is cached, or the
// slot to pass to a subsequent Add on a miss.
func (c *EvalCache) Lookup(key statekey.Key, color int32) (float64, uint32) {
	slot := c.hash(key, color)

	c.mu.RLock()
	defer c.mu.RUnlock()

	atomic.AddUint64(&c.lookups, 1)
	node := &c.entries[slot]
	if node.primary.valid && statekey.Equal(node.primary.key, key) && node.primary.color == color {
		atomic.AddUint64(&c.hits, 1)
		return node.primary.score, CacheHit
	}
	if node.secondary.valid && statekey.Equal(node.secondary.key, key) && node.secondary.color == color {
		atomic.AddUint64(&c.hits, 1)
		return node.secondary.score, CacheHit
	}
	return 0, slot
}

// Add stores a score in the slot returned by a missed Lookup.
func (c *EvalCache) Add(key statekey.Key, color int32, score float64, slot uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node := &c.entries[slot]
	node.secondary = node.primary
	node.primary = cacheEntry{key: key, color: color, score: score, valid: true}
	atomic.AddUint64(&c.adds, 1)
}

// Flush clears all entries and statistics.
func (c *EvalCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.entries {
		c.entries[i] = cacheNode{}
	}
	atomic.StoreUint64(&c.lookups, 0)
	atomic.StoreUint64(&c.hits, 0)
	atomic.StoreUint64(&c.adds, 0)
}

// Stats returns lookup, hit and add counters.
func (c *EvalCache) Stats() (lookups, hits, adds uint64) {
	return atomic.LoadUint64(&c.lookups), atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.adds)
}

// HitRate returns the hit rate as a percentage.
func (c *EvalCache) HitRate() float64 {
	lookups := atomic.LoadUint64(&c.lookups)
	if lookups == 0 {
		return 0
	}
	return float64(atomic.LoadUint64(&c.hits)) / float64(lookups) * 100
}
