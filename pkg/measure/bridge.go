// Package measure feeds measured item heights back into a positioner.
//
// Observations are coalesced twice. Each item index has its own frame
// callback, so a burst of observations for one element collapses to the
// latest height. Handlers that find a changed height queue it, and a single
// flush on the following frame applies the whole queue with one Update call.
package measure

import (
	"log/slog"
	"slices"
	"time"

	"github.com/Sumatoshi-tech/masonry/pkg/frame"
	"github.com/Sumatoshi-tech/masonry/pkg/positioner"
)

// Layout is the part of a positioner the bridge writes to.
type Layout interface {
	Get(index int) (positioner.Item, bool)
	Set(index int, height float64)
	Update(updates ...positioner.Resize) int
	Size() int
}

// Flush summarizes one applied batch.
type Flush struct {
	// Updated is the number of height changes passed to Update.
	Updated int
	// Moved is the number of items whose top changed.
	Moved int
	// Positioned is the number of first-time measurements placed with Set.
	Positioned int
	// Duration is the time spent applying the batch.
	Duration time.Duration
}

// Config holds parameters for creating a Bridge.
type Config struct {
	Layout    Layout
	Scheduler frame.Scheduler
	// OnFlush runs after every flush that changed the layout.
	OnFlush func(Flush)
	Logger  *slog.Logger
}

type observation struct {
	height float64
	handle frame.Handle
}

// Bridge coalesces height observations into positioner updates. It is not
// safe for concurrent use; drive it from the goroutine that owns the layout.
type Bridge struct {
	layout   Layout
	sched    frame.Scheduler
	onFlush  func(Flush)
	logger   *slog.Logger
	handlers map[int]*observation
	// changed holds heights of positioned items awaiting the next flush.
	changed map[int]float64
	// fresh holds first measurements of items that are not positioned yet.
	fresh     map[int]float64
	flush     frame.Handle
	flushSet  bool
	closed    bool
	lastFlush Flush
}

// New creates a Bridge.
func New(cfg Config) *Bridge {
	lg := cfg.Logger
	if lg == nil {
		lg = slog.Default()
	}

	return &Bridge{
		layout:   cfg.Layout,
		sched:    cfg.Scheduler,
		onFlush:  cfg.OnFlush,
		logger:   lg,
		handlers: make(map[int]*observation),
		changed:  make(map[int]float64),
		fresh:    make(map[int]float64),
	}
}

// Observe records the rendered height of index. Non-positive heights are
// ignored: a hidden or detached element reports zero.
func (b *Bridge) Observe(index int, height float64) {
	if b.closed || index < 0 || height <= 0 {
		return
	}

	if obs, ok := b.handlers[index]; ok {
		obs.height = height

		return
	}

	obs := &observation{height: height}
	obs.handle = b.sched.Request(func() { b.handle(index) })
	b.handlers[index] = obs
}

// Pending returns the number of observations and queued heights not yet
// applied.
func (b *Bridge) Pending() int {
	return len(b.handlers) + len(b.changed) + len(b.fresh)
}

// LastFlush returns the summary of the most recent flush.
func (b *Bridge) LastFlush() Flush {
	return b.lastFlush
}

// Close cancels every scheduled callback and drops queued heights. Observe is
// a no-op afterwards.
func (b *Bridge) Close() {
	if b.closed {
		return
	}

	b.closed = true

	for _, obs := range b.handlers {
		b.sched.Cancel(obs.handle)
	}

	if b.flushSet {
		b.sched.Cancel(b.flush)
		b.flushSet = false
	}

	clear(b.handlers)
	clear(b.changed)
	clear(b.fresh)
}

func (b *Bridge) handle(index int) {
	obs, ok := b.handlers[index]
	if !ok {
		return
	}

	delete(b.handlers, index)

	item, ok := b.layout.Get(index)

	switch {
	case !ok:
		b.fresh[index] = obs.height
	case item.Height != obs.height:
		b.changed[index] = obs.height
	default:
		return
	}

	b.scheduleFlush()
}

func (b *Bridge) scheduleFlush() {
	if b.flushSet {
		return
	}

	b.flushSet = true
	b.flush = b.sched.Request(b.apply)
}

func (b *Bridge) apply() {
	b.flushSet = false
	start := time.Now()

	// A fresh height for an item positioned since it was observed is an update.
	for index, height := range b.fresh {
		if item, ok := b.layout.Get(index); ok {
			delete(b.fresh, index)

			if item.Height != height {
				b.changed[index] = height
			}
		}
	}

	var stats Flush

	if len(b.changed) > 0 {
		updates := make([]positioner.Resize, 0, len(b.changed))
		for index, height := range b.changed {
			updates = append(updates, positioner.Resize{Index: index, Height: height})
		}

		slices.SortFunc(updates, func(a, c positioner.Resize) int { return a.Index - c.Index })
		clear(b.changed)

		stats.Updated = len(updates)
		stats.Moved = b.layout.Update(updates...)
	}

	// First measurements are placed in index order, and only while they
	// continue the positioned prefix, so columns fill the way a full
	// measurement pass would.
	for next := b.layout.Size(); ; next++ {
		height, ok := b.fresh[next]
		if !ok {
			break
		}

		delete(b.fresh, next)
		b.layout.Set(next, height)

		stats.Positioned++
	}

	if stats == (Flush{}) {
		return
	}

	stats.Duration = time.Since(start)
	b.lastFlush = stats

	b.logger.Debug("measurements flushed",
		"updated", stats.Updated, "moved", stats.Moved, "positioned", stats.Positioned,
		"waiting", len(b.fresh))

	if b.onFlush != nil {
		b.onFlush(stats)
	}
}
