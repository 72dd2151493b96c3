package view

import (
	"sync"

	"github.com/chatdeck/chatdeck/internal/shared/types"
)

// BoundsCache memoizes the content-area geometry computation. The
// content area is the host window minus the account sidebar; results
// are keyed by sidebar width and invalidated whenever the host window
// size changes.
type BoundsCache struct {
	mu    sync.Mutex
	hostW int
	hostH int
	memo  map[int]types.Bounds
	hits  int64
	total int64
}

// NewBoundsCache creates a cache with no host size yet.
func NewBoundsCache() *BoundsCache {
	return &BoundsCache{memo: make(map[int]types.Bounds)}
}

// SetHostSize records the host window size, invalidating memoized
// results when the size actually changed.
func (c *BoundsCache) SetHostSize(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if width == c.hostW && height == c.hostH {
		return
	}
	c.hostW = width
	c.hostH = height
	c.memo = make(map[int]types.Bounds)
}

// Compute returns the content-area rectangle for the given sidebar
// width. Dimensions never go negative: an oversized sidebar yields a
// zero-width area.
func (c *BoundsCache) Compute(sidebarWidth int) types.Bounds {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	if b, ok := c.memo[sidebarWidth]; ok {
		c.hits++
		return b
	}

	b := types.Bounds{
		X:      sidebarWidth,
		Y:      0,
		Width:  max(0, c.hostW-sidebarWidth),
		Height: max(0, c.hostH),
	}
	c.memo[sidebarWidth] = b
	return b
}

// Invalidate clears all memoized results.
func (c *BoundsCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memo = make(map[int]types.Bounds)
}

// HitRatio reports the fraction of Compute calls served from memo.
func (c *BoundsCache) HitRatio() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.total == 0 {
		return 0
	}
	return float64(c.hits) / float64(c.total)
}
