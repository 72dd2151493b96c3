package view

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chatdeck/chatdeck/internal/shared/types"
)

func TestComputeBounds(t *testing.T) {
	c := NewBoundsCache()
	c.SetHostSize(1280, 800)

	b := c.Compute(300)
	assert.Equal(t, types.Bounds{X: 300, Y: 0, Width: 980, Height: 800}, b)
}

func TestComputeClampsNegative(t *testing.T) {
	c := NewBoundsCache()
	c.SetHostSize(200, 600)

	b := c.Compute(300)
	assert.Zero(t, b.Width, "oversized sidebar yields zero width")
	assert.Equal(t, 600, b.Height)
}

func TestComputeMemoizes(t *testing.T) {
	c := NewBoundsCache()
	c.SetHostSize(1280, 800)

	first := c.Compute(300)
	second := c.Compute(300)
	assert.Equal(t, first, second)
	assert.InDelta(t, 0.5, c.HitRatio(), 0.001)
}

func TestSetHostSizeInvalidates(t *testing.T) {
	c := NewBoundsCache()
	c.SetHostSize(1280, 800)
	old := c.Compute(300)

	c.SetHostSize(1920, 1080)
	fresh := c.Compute(300)
	assert.NotEqual(t, old, fresh)
	assert.Equal(t, 1620, fresh.Width)
}

func TestSetHostSizeSameSizeKeepsMemo(t *testing.T) {
	c := NewBoundsCache()
	c.SetHostSize(1280, 800)
	c.Compute(300)

	c.SetHostSize(1280, 800)
	c.Compute(300)
	assert.InDelta(t, 0.5, c.HitRatio(), 0.001)
}

func TestInvalidateClearsMemo(t *testing.T) {
	c := NewBoundsCache()
	c.SetHostSize(1280, 800)
	c.Compute(300)
	c.Invalidate()
	c.Compute(300)
	assert.Zero(t, c.HitRatio())
}
