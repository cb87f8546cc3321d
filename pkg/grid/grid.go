// Package grid runs a masonry layout session over a list of items.
//
// A Grid owns the positioner, the windower and the measurement bridge for one
// container. Rendering is two-phase: Render returns positioned cells plus
// hidden probes for items that still need a height. Once the host reports
// the probe heights through Measure, the next frame positions them and
// OnChange asks for another Render.
package grid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/masonry/pkg/frame"
	"github.com/Sumatoshi-tech/masonry/pkg/measure"
	"github.com/Sumatoshi-tech/masonry/pkg/observability"
	"github.com/Sumatoshi-tech/masonry/pkg/positioner"
	"github.com/Sumatoshi-tech/masonry/pkg/window"
)

// ErrMissingItem is returned by Render when a selected index has no item.
var ErrMissingItem = errors.New("no item at index")

// Options is the layout geometry of a Grid.
type Options struct {
	Columns positioner.ColumnOptions
	// RowGutter is the vertical space between items in a column.
	RowGutter float64
	Window    window.Options
}

// Config holds parameters for creating a Grid.
type Config struct {
	Options

	// Width is the initial container width.
	Width     float64
	Scheduler frame.Scheduler
	Logger    *slog.Logger
	// Metrics may be nil.
	Metrics *observability.LayoutMetrics
	// OnChange runs after a measurement flush changed the layout.
	OnChange func()
}

// Cell is an item placed by the positioner.
type Cell[T any] struct {
	Item  T       `json:"item"`
	Index int     `json:"index"`
	Left  float64 `json:"left"`
	Top   float64 `json:"top"`
	Width float64 `json:"width"`
}

// Probe is an item that must be rendered hidden at column width so its
// height can be measured.
type Probe[T any] struct {
	Item   T       `json:"item"`
	Index  int     `json:"index"`
	Width  float64 `json:"width"`
	Hidden bool    `json:"hidden"`
}

// Frame is everything a host needs to draw one viewport.
type Frame[T any] struct {
	Cells  []Cell[T]  `json:"cells"`
	Probes []Probe[T] `json:"probes"`
	// Height is the estimated container height.
	Height      float64 `json:"height"`
	ColumnCount int     `json:"column_count"`
	ColumnWidth float64 `json:"column_width"`
	IsScrolling bool    `json:"is_scrolling"`
	// NeedsRerender is set when the frame carries probes.
	NeedsRerender bool `json:"needs_rerender"`
}

// Grid is a layout session. It is not safe for concurrent use; call it from
// the goroutine that runs the frame scheduler.
type Grid[T any] struct {
	opts     Options
	sched    frame.Scheduler
	logger   *slog.Logger
	metrics  *observability.LayoutMetrics
	onChange func()

	items  []T
	width  float64
	pos    *positioner.Positioner
	win    *window.Windower
	bridge *measure.Bridge
}

// New creates a Grid sized for cfg.Width.
func New[T any](cfg Config) *Grid[T] {
	lg := cfg.Logger
	if lg == nil {
		lg = slog.Default()
	}

	g := &Grid[T]{
		opts:     cfg.Options,
		sched:    cfg.Scheduler,
		logger:   lg,
		metrics:  cfg.Metrics,
		onChange: cfg.OnChange,
		width:    cfg.Width,
	}

	columnWidth, count := positioner.Columns(cfg.Width, g.opts.Columns)
	g.install(positioner.New(g.geometry(columnWidth, count)))

	return g
}

// Positioner returns the current positioner. It is replaced by Resize and by
// Reset.
func (g *Grid[T]) Positioner() *positioner.Positioner {
	return g.pos
}

// Items returns the current item list.
func (g *Grid[T]) Items() []T {
	return g.items
}

// Width returns the container width.
func (g *Grid[T]) Width() float64 {
	return g.width
}

// Resize sets the container width. When the column geometry changes, the
// positioner is rebuilt from the heights measured so far and pending
// measurements are dropped. Reports whether the geometry changed.
func (g *Grid[T]) Resize(width float64) bool {
	g.width = width

	columnWidth, count := positioner.Columns(width, g.opts.Columns)
	if count == g.pos.ColumnCount() && columnWidth == g.pos.ColumnWidth() {
		return false
	}

	g.bridge.Close()
	g.install(positioner.Rebuild(g.pos, g.geometry(columnWidth, count)))

	g.logger.Debug("grid resized",
		"width", width, "columns", count, "column_width", columnWidth, "replayed", g.pos.Size())

	return true
}

// SetItems replaces the item list. The layout is kept as is: a list shorter
// than the positioned prefix makes Render fail with ErrMissingItem until
// Reset is called.
func (g *Grid[T]) SetItems(items []T) {
	if len(items) < g.pos.Size() {
		g.logger.Debug("grid items shrank below layout", "items", len(items), "positioned", g.pos.Size())
	}

	g.items = items
}

// Reset discards every position and pending measurement and starts a new
// layout with the current geometry.
func (g *Grid[T]) Reset() {
	g.bridge.Close()
	g.install(positioner.New(g.pos.Options()))

	g.logger.Debug("grid reset", "items", len(g.items))
}

// Measure reports the rendered height of the item at index. Heights take
// effect two frames later.
func (g *Grid[T]) Measure(index int, height float64) {
	if index >= len(g.items) {
		return
	}

	g.bridge.Observe(index, height)
}

// Render plans the frame for vp.
func (g *Grid[T]) Render(ctx context.Context, vp window.Viewport) (Frame[T], error) {
	res := g.win.Compute(vp, len(g.items))

	out := Frame[T]{
		Height:        res.Height,
		ColumnCount:   res.ColumnCount,
		ColumnWidth:   res.ColumnWidth,
		IsScrolling:   vp.IsScrolling,
		NeedsRerender: res.NeedsRerender,
	}

	if len(res.Positioned) > 0 {
		out.Cells = make([]Cell[T], 0, len(res.Positioned))
	}

	for _, pl := range res.Positioned {
		item, err := g.item(pl.Index)
		if err != nil {
			return Frame[T]{}, err
		}

		out.Cells = append(out.Cells, Cell[T]{
			Item:  item,
			Index: pl.Index,
			Left:  pl.Left,
			Top:   pl.Top,
			Width: res.ColumnWidth,
		})
	}

	if len(res.Fresh) > 0 {
		out.Probes = make([]Probe[T], 0, len(res.Fresh))
	}

	for _, index := range res.Fresh {
		item, err := g.item(index)
		if err != nil {
			return Frame[T]{}, err
		}

		out.Probes = append(out.Probes, Probe[T]{Item: item, Index: index, Width: res.ColumnWidth, Hidden: true})
	}

	g.metrics.RecordRender(ctx, len(out.Cells), len(out.Probes))

	return out, nil
}

// Close cancels pending measurement work. The Grid must not be used after.
func (g *Grid[T]) Close() {
	g.bridge.Close()
}

func (g *Grid[T]) item(index int) (T, error) {
	if index < 0 || index >= len(g.items) {
		var zero T

		return zero, fmt.Errorf("%w %d (have %d items)", ErrMissingItem, index, len(g.items))
	}

	return g.items[index], nil
}

func (g *Grid[T]) geometry(columnWidth float64, count int) positioner.Options {
	return positioner.Options{
		ColumnCount:  count,
		ColumnWidth:  columnWidth,
		ColumnGutter: g.opts.Columns.Gutter,
		RowGutter:    g.opts.RowGutter,
	}
}

// install makes p the current positioner with a fresh windower and bridge.
func (g *Grid[T]) install(p *positioner.Positioner) {
	g.pos = p
	g.win = window.New(p, g.opts.Window)
	g.bridge = measure.New(measure.Config{
		Layout:    p,
		Scheduler: g.sched,
		OnFlush:   g.flushed,
		Logger:    g.logger,
	})
}

func (g *Grid[T]) flushed(f measure.Flush) {
	g.metrics.RecordFlush(context.Background(), observability.FlushStats{
		Positioned: f.Positioned,
		Updated:    f.Updated,
		Moved:      f.Moved,
		Duration:   f.Duration,
	})

	if g.onChange != nil {
		g.onChange()
	}
}
