// Package window selects which items of a masonry layout to render for a
// viewport. Items whose cached span intersects the overscanned viewport are
// rendered at their real position; when the layout has not grown far enough to
// cover the viewport, a batch of not-yet-measured items is rendered hidden so
// they can be measured.
package window

import (
	"math"
	"slices"
)

// Defaults applied by New.
const (
	DefaultOverscanBy         = 2
	DefaultItemHeightEstimate = 300
)

// Viewport is the visible region of the scroll container.
type Viewport struct {
	ScrollTop   float64 `json:"scroll_top"`
	Height      float64 `json:"height"`
	IsScrolling bool    `json:"is_scrolling"`
}

// Layout is the part of a positioner the windower reads.
type Layout interface {
	Range(lo, hi float64, fn func(index int, left, top float64))
	ShortestColumn() float64
	EstimateHeight(itemCount int, defaultItemHeight float64) float64
	Size() int
	Prefix() int
	Positioned(index int) bool
	ColumnCount() int
	ColumnWidth() float64
}

// Options configures a Windower.
type Options struct {
	// OverscanBy is the number of viewport heights rendered beyond the
	// visible area.
	OverscanBy float64
	// ItemHeightEstimate sizes fresh batches and pads the container height
	// before items are measured.
	ItemHeightEstimate float64
}

// Placement is a measured item rendered at its cached position.
type Placement struct {
	Index int     `json:"index"`
	Left  float64 `json:"left"`
	Top   float64 `json:"top"`
}

// Result is the render plan for one viewport.
type Result struct {
	// Positioned are the measured items to render, sorted by index.
	Positioned []Placement `json:"positioned"`
	// Fresh are unmeasured item indices to render hidden for measurement.
	Fresh []int `json:"fresh,omitempty"`
	// NeedsRerender is set when Fresh is non-empty: once their heights land,
	// the same viewport must be computed again.
	NeedsRerender bool    `json:"needs_rerender"`
	Height        float64 `json:"height"`
	ColumnCount   int     `json:"column_count"`
	ColumnWidth   float64 `json:"column_width"`
}

// Windower computes render plans against a Layout.
type Windower struct {
	layout Layout
	opts   Options
}

// New creates a Windower. Non-positive options fall back to the defaults.
func New(layout Layout, opts Options) *Windower {
	if opts.OverscanBy <= 0 {
		opts.OverscanBy = DefaultOverscanBy
	}

	if opts.ItemHeightEstimate <= 0 {
		opts.ItemHeightEstimate = DefaultItemHeightEstimate
	}

	return &Windower{layout: layout, opts: opts}
}

// Options returns the effective options.
func (w *Windower) Options() Options {
	return w.opts
}

// Compute returns the render plan for vp over a list of itemCount items.
func (w *Windower) Compute(vp Viewport, itemCount int) Result {
	overscan := vp.Height * w.opts.OverscanBy
	rangeEnd := vp.ScrollTop + overscan

	res := Result{
		Height:      w.layout.EstimateHeight(itemCount, w.opts.ItemHeightEstimate),
		ColumnCount: w.layout.ColumnCount(),
		ColumnWidth: w.layout.ColumnWidth(),
	}

	w.layout.Range(max(0, vp.ScrollTop-overscan/2), vp.ScrollTop+vp.Height+overscan, func(index int, left, top float64) {
		res.Positioned = append(res.Positioned, Placement{Index: index, Left: left, Top: top})
	})

	slices.SortFunc(res.Positioned, func(a, b Placement) int { return a.Index - b.Index })

	measured := w.layout.Size()
	shortest := w.layout.ShortestColumn()

	if shortest < rangeEnd && measured < itemCount {
		size := w.batchSize(rangeEnd-shortest, itemCount-measured)
		res.Fresh = w.unpositioned(size, itemCount)
		res.NeedsRerender = len(res.Fresh) > 0
	}

	return res
}

// unpositioned returns up to n indices below itemCount that have no cached
// position, lowest first. Indices set out of order are skipped.
func (w *Windower) unpositioned(n, itemCount int) []int {
	if n <= 0 {
		return nil
	}

	out := make([]int, 0, n)

	for i := w.layout.Prefix(); i < itemCount && len(out) < n; i++ {
		if !w.layout.Positioned(i) {
			out = append(out, i)
		}
	}

	return out
}

// batchSize returns how many unmeasured items are needed to fill gap pixels of
// the shortest column, at most remaining.
func (w *Windower) batchSize(gap float64, remaining int) int {
	want := math.Ceil(gap / w.opts.ItemHeightEstimate * float64(w.layout.ColumnCount()))
	if want >= float64(remaining) {
		return remaining
	}

	return max(int(want), 0)
}
