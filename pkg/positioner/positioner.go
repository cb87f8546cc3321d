// Package positioner assigns masonry items to columns and caches their
// positions. Each new item goes to the currently shortest column; when a
// measured height changes, only the items below it in the same column move.
//
// A Positioner is not safe for concurrent use. It is owned by a single layout
// session and mutated from one goroutine.
package positioner

import (
	"math"
	"slices"

	"github.com/Sumatoshi-tech/masonry/pkg/alg/interval"
)

// MaxIndex is the largest item index a Positioner stores.
const MaxIndex = math.MaxInt32 - 1

// Item is the cached position of one laid-out item.
type Item struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Height float64 `json:"height"`
	Column int     `json:"column"`
}

// Resize is a new measured height for an already positioned item.
type Resize struct {
	Index  int
	Height float64
}

// Options configures the column geometry of a Positioner.
type Options struct {
	ColumnCount  int
	ColumnWidth  float64
	ColumnGutter float64
	RowGutter    float64
}

// Positioner tracks per-column heights and the position of every item.
type Positioner struct {
	tree          *interval.Tree
	columnHeights []float64
	columnItems   [][]int
	items         []Item
	present       []bool
	prefix        int
	opts          Options
}

// New creates an empty Positioner. The column count is clamped to
// [1, MaxColumns].
func New(opts Options) *Positioner {
	opts.ColumnCount = min(max(opts.ColumnCount, 1), MaxColumns)

	return &Positioner{
		tree:          interval.New(),
		columnHeights: make([]float64, opts.ColumnCount),
		columnItems:   make([][]int, opts.ColumnCount),
		opts:          opts,
	}
}

// Options returns the geometry the Positioner was created with.
func (p *Positioner) Options() Options {
	return p.opts
}

// ColumnCount returns the number of columns.
func (p *Positioner) ColumnCount() int {
	return p.opts.ColumnCount
}

// ColumnWidth returns the width of a single column.
func (p *Positioner) ColumnWidth() float64 {
	return p.opts.ColumnWidth
}

// Size returns the number of positioned items.
func (p *Positioner) Size() int {
	return p.tree.Len()
}

// Prefix returns the length of the run of positioned indices starting at 0,
// which is also the lowest unpositioned index.
func (p *Positioner) Prefix() int {
	return p.prefix
}

// Positioned reports whether index has a cached position.
func (p *Positioner) Positioned(index int) bool {
	return index >= 0 && index < len(p.present) && p.present[index]
}

// ColumnHeights returns a copy of the current bottom edge of every column,
// including the trailing row gutter.
func (p *Positioner) ColumnHeights() []float64 {
	return slices.Clone(p.columnHeights)
}

// Set positions index in the shortest column (lowest column wins ties).
// Setting an index that is already positioned updates its height instead.
// Indices outside [0, MaxIndex] are ignored.
func (p *Positioner) Set(index int, height float64) {
	if index < 0 || index > MaxIndex {
		return
	}

	if _, ok := p.Get(index); ok {
		p.Update(Resize{Index: index, Height: height})

		return
	}

	column := 0

	for i := 1; i < len(p.columnHeights); i++ {
		if p.columnHeights[i] < p.columnHeights[column] {
			column = i
		}
	}

	p.grow(index)

	top := p.columnHeights[column]
	p.items[index] = Item{
		Top:    top,
		Left:   float64(column) * (p.opts.ColumnWidth + p.opts.ColumnGutter),
		Height: height,
		Column: column,
	}
	p.present[index] = true

	for p.prefix < len(p.present) && p.present[p.prefix] {
		p.prefix++
	}

	ids := p.columnItems[column]
	if len(ids) == 0 || ids[len(ids)-1] < index {
		p.columnItems[column] = append(ids, index)
		p.columnHeights[column] = top + height + p.opts.RowGutter
		p.tree.Insert(top, top+height, index)

		return
	}

	// Out-of-order set: keep the column list sorted and reflow below it.
	pos, _ := slices.BinarySearch(ids, index)
	p.columnItems[column] = slices.Insert(ids, pos, index)
	p.tree.Insert(top, top+height, index)
	p.reflow(column, pos)
}

// Get returns the cached position of index.
func (p *Positioner) Get(index int) (Item, bool) {
	if index < 0 || index >= len(p.items) || !p.present[index] {
		return Item{}, false
	}

	return p.items[index], true
}

// Update applies new heights. All heights are applied before any column is
// reflowed, so a column reflow sees the final heights of the batch. Items
// that are not positioned are skipped. Returns the number of items whose top
// moved.
func (p *Positioner) Update(updates ...Resize) int {
	earliest := make([]int, p.opts.ColumnCount)
	for i := range earliest {
		earliest[i] = -1
	}

	for _, upd := range updates {
		if _, ok := p.Get(upd.Index); !ok {
			continue
		}

		item := &p.items[upd.Index]
		item.Height = upd.Height

		p.tree.Remove(upd.Index)
		p.tree.Insert(item.Top, item.Top+item.Height, upd.Index)

		if earliest[item.Column] < 0 || upd.Index < earliest[item.Column] {
			earliest[item.Column] = upd.Index
		}
	}

	moved := 0

	for column, index := range earliest {
		if index < 0 {
			continue
		}

		pos, found := slices.BinarySearch(p.columnItems[column], index)
		if !found {
			continue
		}

		moved += p.reflow(column, pos)
	}

	return moved
}

// Range reports every positioned item whose vertical span overlaps [lo, hi].
func (p *Positioner) Range(lo, hi float64, fn func(index int, left, top float64)) {
	p.tree.Search(lo, hi, func(index int, top float64) {
		item, ok := p.Get(index)
		if !ok {
			return
		}

		fn(index, item.Left, top)
	})
}

// EstimateHeight returns the expected container height for itemCount items.
// Once every item is positioned it is the tallest column. Before that, the
// unpositioned items are assumed to be defaultItemHeight tall and spread evenly
// across the columns; the estimate never drops below the tallest column.
func (p *Positioner) EstimateHeight(itemCount int, defaultItemHeight float64) float64 {
	tallest := 0.0
	total := 0.0

	for _, h := range p.columnHeights {
		tallest = max(tallest, h)
		total += h
	}

	remaining := itemCount - p.tree.Len()
	if remaining <= 0 {
		return tallest
	}

	total += float64(remaining) * (defaultItemHeight + p.opts.RowGutter)

	return max(tallest, total/float64(len(p.columnHeights)))
}

// ShortestColumn returns the height of the shortest column.
func (p *Positioner) ShortestColumn() float64 {
	if len(p.columnHeights) == 0 {
		return 0
	}

	return slices.Min(p.columnHeights)
}

// All returns a copy of every positioned item keyed by index, in index order.
func (p *Positioner) All() []Indexed {
	out := make([]Indexed, 0, p.tree.Len())

	for index, ok := range p.present {
		if ok {
			out = append(out, Indexed{Index: index, Item: p.items[index]})
		}
	}

	return out
}

// Indexed pairs an Item with its index.
type Indexed struct {
	Item

	Index int `json:"index"`
}

// grow extends the dense item storage to hold index.
func (p *Positioner) grow(index int) {
	if index < len(p.items) {
		return
	}

	extra := index + 1 - len(p.items)
	p.items = append(p.items, make([]Item, extra)...)
	p.present = append(p.present, make([]bool, extra)...)
}

// reflow recomputes the tops of column items from position pos onward, each
// item starting one row gutter below its predecessor, and reinserts the
// intervals of the items that moved.
func (p *Positioner) reflow(column, pos int) int {
	ids := p.columnItems[column]
	bottom := 0.0

	if pos > 0 {
		prev := p.items[ids[pos-1]]
		bottom = prev.Top + prev.Height + p.opts.RowGutter
	}

	moved := 0

	for _, index := range ids[pos:] {
		item := &p.items[index]

		if item.Top != bottom {
			item.Top = bottom
			p.tree.Remove(index)
			p.tree.Insert(item.Top, item.Top+item.Height, index)

			moved++
		}

		bottom = item.Top + item.Height + p.opts.RowGutter
	}

	p.columnHeights[column] = bottom

	return moved
}
