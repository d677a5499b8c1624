package scoring

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jtallon/capindex-mcp/pkg/types"
)

// DefaultCacheCapacity bounds the score cache when the caller does not
// configure it.
const DefaultCacheCapacity = 1000

// PairID returns the canonical, order-independent key for a pair of element
// ids. The full ids are always kept: truncating the key can collide distinct
// pairs and silently cross-wire their scores.
func PairID(a, b string) string {
	if a <= b {
		return a + "|" + b
	}
	return b + "|" + a
}

// Cache is a bounded, strictly LRU cache of pair scores. It is a performance
// optimization only: a cold cache must produce build results identical to a
// warm one. The cache is process-local and safe for concurrent use.
type Cache struct {
	mu          sync.Mutex
	entries     *lru.Cache[string, types.PairScore]
	contentHash uint64
	capacity    int
}

// NewCache creates a score cache with the given capacity (0 selects the
// default).
func NewCache(capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}

	entries, err := lru.New[string, types.PairScore](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create score cache: %w", err)
	}

	return &Cache{
		entries:  entries,
		capacity: capacity,
	}, nil
}

// Get returns the cached score for a canonical pair id
func (c *Cache) Get(pairID string) (types.PairScore, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Get(pairID)
}

// Put stores a score, evicting the least recently used entry when full
func (c *Cache) Put(score types.PairScore) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Add(score.PairID, score)
}

// Len returns the current entry count
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Capacity returns the configured maximum entry count
func (c *Cache) Capacity() int {
	return c.capacity
}

// BeginBuild invalidates the cache wholesale when element content changed
// since the previous build. It returns true when the cache was purged.
// Carrying entries across builds is only sound while the underlying text is
// byte-identical.
func (c *Cache) BeginBuild(contentHash uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.contentHash == contentHash && c.contentHash != 0 {
		return false
	}

	c.entries.Purge()
	c.contentHash = contentHash
	return true
}

// ContentHash produces a deterministic digest of every element's identity
// and raw text, independent of input order.
func ContentHash(records []types.ElementRecord) uint64 {
	sorted := make([]types.ElementRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	digest := xxhash.New()
	for _, rec := range sorted {
		_, _ = digest.WriteString(rec.ID)
		_, _ = digest.Write([]byte{0})
		_, _ = digest.WriteString(rec.RawText)
		_, _ = digest.Write([]byte{0xFF})
	}
	return digest.Sum64()
}
