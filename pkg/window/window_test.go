package window_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/masonry/pkg/positioner"
	"github.com/Sumatoshi-tech/masonry/pkg/window"
)

// Test constants.
const (
	testColumnWidth = 200
	testItemHeight  = 100
)

func newLayout(columns, measured int) *positioner.Positioner {
	pos := positioner.New(positioner.Options{ColumnCount: columns, ColumnWidth: testColumnWidth})
	for i := range measured {
		pos.Set(i, testItemHeight)
	}

	return pos
}

func indices(placements []window.Placement) []int {
	out := make([]int, len(placements))
	for i, p := range placements {
		out[i] = p.Index
	}

	return out
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	win := window.New(newLayout(1, 0), window.Options{})
	assert.InDelta(t, window.DefaultOverscanBy, win.Options().OverscanBy, 0)
	assert.InDelta(t, window.DefaultItemHeightEstimate, win.Options().ItemHeightEstimate, 0)
}

func TestCompute_EmptyLayoutStartsFreshBatch(t *testing.T) {
	t.Parallel()

	win := window.New(newLayout(3, 0), window.Options{})
	res := win.Compute(window.Viewport{Height: 600}, 100)

	assert.Empty(t, res.Positioned)
	assert.True(t, res.NeedsRerender)
	// ceil(1200 / 300 * 3)
	require.Len(t, res.Fresh, 12)
	assert.Equal(t, 0, res.Fresh[0])
	assert.Equal(t, 11, res.Fresh[11])
	assert.InDelta(t, 10000, res.Height, 0)
	assert.Equal(t, 3, res.ColumnCount)
	assert.InDelta(t, testColumnWidth, res.ColumnWidth, 0)
}

func TestCompute_FreshBatchCappedAtRemaining(t *testing.T) {
	t.Parallel()

	win := window.New(newLayout(3, 0), window.Options{})
	res := win.Compute(window.Viewport{Height: 600}, 5)

	assert.Equal(t, []int{0, 1, 2, 3, 4}, res.Fresh)
}

func TestCompute_FreshBatchContinuesAfterMeasured(t *testing.T) {
	t.Parallel()

	win := window.New(newLayout(2, 4), window.Options{OverscanBy: 1})
	res := win.Compute(window.Viewport{Height: 300}, 10)

	// Shortest column is 200, the overscanned end is 300.
	assert.Equal(t, []int{4}, res.Fresh)
	assert.True(t, res.NeedsRerender)
	assert.Equal(t, []int{0, 1, 2, 3}, indices(res.Positioned))
}

func TestCompute_FreshBatchSkipsOutOfOrderItems(t *testing.T) {
	t.Parallel()

	pos := newLayout(2, 0)
	pos.Set(0, testItemHeight)
	pos.Set(5, testItemHeight)

	win := window.New(pos, window.Options{OverscanBy: 1})
	res := win.Compute(window.Viewport{Height: 1200}, 7)

	assert.Equal(t, []int{1, 2, 3, 4, 6}, res.Fresh)
	assert.Equal(t, []int{0, 5}, indices(res.Positioned))
}

func TestCompute_PositionedWindow(t *testing.T) {
	t.Parallel()

	const count = 50

	win := window.New(newLayout(1, count), window.Options{OverscanBy: 1})
	res := win.Compute(window.Viewport{ScrollTop: 1000, Height: 200, IsScrolling: true}, count)

	// Query range is [900, 1400].
	assert.Equal(t, []int{8, 9, 10, 11, 12, 13, 14}, indices(res.Positioned))
	assert.Empty(t, res.Fresh)
	assert.False(t, res.NeedsRerender)
	assert.InDelta(t, count*testItemHeight, res.Height, 0)

	for _, p := range res.Positioned {
		assert.InDelta(t, float64(p.Index*testItemHeight), p.Top, 0)
		assert.InDelta(t, 0, p.Left, 0)
	}
}

func TestCompute_SortedAcrossColumns(t *testing.T) {
	t.Parallel()

	win := window.New(newLayout(4, 40), window.Options{})
	res := win.Compute(window.Viewport{ScrollTop: 300, Height: 200}, 40)

	got := indices(res.Positioned)
	require.NotEmpty(t, got)
	assert.IsIncreasing(t, got)
}

func TestCompute_NoFreshWhenAllMeasured(t *testing.T) {
	t.Parallel()

	win := window.New(newLayout(3, 3), window.Options{})
	res := win.Compute(window.Viewport{Height: 1000}, 3)

	assert.Empty(t, res.Fresh)
	assert.False(t, res.NeedsRerender)
	assert.Len(t, res.Positioned, 3)
}

func TestCompute_NoFreshWhenColumnsCoverViewport(t *testing.T) {
	t.Parallel()

	win := window.New(newLayout(2, 20), window.Options{OverscanBy: 1})
	res := win.Compute(window.Viewport{Height: 200}, 100)

	// Both columns reach 1000, beyond the overscanned end at 200.
	assert.Empty(t, res.Fresh)
	assert.False(t, res.NeedsRerender)
}
