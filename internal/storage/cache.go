package storage

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/zeebo/xxh3"

	"github.com/eugenenazirov/binpack3d/internal/packing"
)

// ResultCache memoises packing results by request fingerprint. Packing is
// deterministic, so an identical request always yields the same layout.
// A limit of zero disables the cache.
type ResultCache struct {
	entries *xsync.Map[uint64, packing.Result]
	limit   int
}

// NewResultCache creates a cache holding at most limit results.
func NewResultCache(limit int) *ResultCache {
	return &ResultCache{
		entries: xsync.NewMap[uint64, packing.Result](),
		limit:   max(limit, 0),
	}
}

// Fingerprint hashes the canonical JSON form of a request.
func Fingerprint(req packing.Request) (uint64, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}
	return xxh3.Hash(data), nil
}

// Get returns a copy of the cached result for key.
func (c *ResultCache) Get(key uint64) (packing.Result, bool) {
	if c.limit == 0 {
		return packing.Result{}, false
	}
	res, ok := c.entries.Load(key)
	if !ok {
		return packing.Result{}, false
	}
	return cloneResult(res), true
}

// Put stores res under key. When the cache is full an arbitrary entry is
// evicted first.
func (c *ResultCache) Put(key uint64, res packing.Result) {
	if c.limit == 0 {
		return
	}
	if _, ok := c.entries.Load(key); !ok && c.entries.Size() >= c.limit {
		c.entries.Range(func(k uint64, _ packing.Result) bool {
			c.entries.Delete(k)
			return c.entries.Size() >= c.limit
		})
	}
	c.entries.Store(key, cloneResult(res))
}

// Len reports the number of cached results.
func (c *ResultCache) Len() int {
	return c.entries.Size()
}

func cloneResult(res packing.Result) packing.Result {
	res.Placements = slices.Clone(res.Placements)
	res.UnpackedItems = slices.Clone(res.UnpackedItems)
	return res
}
