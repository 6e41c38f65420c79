package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/warp/feasibility-engine/feaso"
)

// =============================================================================
// RESULT CACHE
// =============================================================================

// Cache memoizes sensitivity grids by content key. Implementations must be
// safe for concurrent use.
type Cache interface {
	Get(key string) ([][]Cell, bool)
	Set(key string, grid [][]Cell)
}

// MemoryCache is a Cache with per-entry expiry.
type MemoryCache struct {
	c *gocache.Cache
}

// NewMemoryCache creates a cache whose entries live for ttl. Expired entries
// are purged every 2 x ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{c: gocache.New(ttl, 2*ttl)}
}

func (m *MemoryCache) Get(key string) ([][]Cell, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false
	}
	return copyGrid(v.([][]Cell)), true
}

func (m *MemoryCache) Set(key string, grid [][]Cell) {
	m.c.SetDefault(key, copyGrid(grid))
}

// Len is the number of cached grids, expired or not.
func (m *MemoryCache) Len() int { return m.c.ItemCount() }

func copyGrid(grid [][]Cell) [][]Cell {
	out := make([][]Cell, len(grid))
	for i, row := range grid {
		out[i] = append([]Cell(nil), row...)
	}
	return out
}

// Key derives the cache key of a grid request: the SHA-256 of the canonical
// JSON of every input. Struct fields marshal in declaration order, so equal
// inputs give equal keys.
func Key(scenario feaso.Scenario, site feaso.Site, linked *feaso.Scenario, xAxis, yAxis Axis, stepsX, stepsY []float64) (string, error) {
	payload := struct {
		Scenario feaso.Scenario
		Site     feaso.Site
		Linked   *feaso.Scenario
		XAxis    Axis
		YAxis    Axis
		StepsX   []float64
		StepsY   []float64
	}{scenario, site, linked, xAxis, yAxis, stepsX, stepsY}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

var _ Cache = (*MemoryCache)(nil)
