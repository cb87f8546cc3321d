// Package frame defers work to the next frame tick. It is the layout
// engine's analog of a browser animation frame: callbacks requested while a
// frame is running are never run by that same frame, which bounds how often
// measurement flushes can touch the positioner.
package frame

// Handle identifies a requested callback. The zero Handle is never issued.
type Handle uint64

// Scheduler defers callbacks to the next frame.
type Scheduler interface {
	// Request queues fn for the next frame.
	Request(fn func()) Handle
	// Cancel drops a queued callback. Cancelling a handle that already ran
	// or was never issued is a no-op.
	Cancel(h Handle)
}

// Manual is a Scheduler driven by explicit Tick calls. It is not safe for
// concurrent use.
type Manual struct {
	pending map[Handle]func()
	order   []Handle
	last    Handle
	ticks   uint64
}

// NewManual creates an idle Manual scheduler.
func NewManual() *Manual {
	return &Manual{pending: make(map[Handle]func())}
}

// Request implements Scheduler.
func (m *Manual) Request(fn func()) Handle {
	if m.pending == nil {
		m.pending = make(map[Handle]func())
	}

	m.last++
	m.pending[m.last] = fn
	m.order = append(m.order, m.last)

	return m.last
}

// Cancel implements Scheduler.
func (m *Manual) Cancel(h Handle) {
	delete(m.pending, h)
}

// Pending returns the number of queued callbacks.
func (m *Manual) Pending() int {
	return len(m.pending)
}

// Ticks returns the number of frames run so far.
func (m *Manual) Ticks() uint64 {
	return m.ticks
}

// Tick runs every callback queued before the call, in request order, and
// returns how many ran. Callbacks requested from inside the tick wait for the
// next one.
func (m *Manual) Tick() int {
	m.ticks++

	batch := m.order
	m.order = nil
	ran := 0

	for _, h := range batch {
		fn, ok := m.pending[h]
		if !ok {
			continue
		}

		delete(m.pending, h)
		fn()

		ran++
	}

	return ran
}

// Drain ticks until no callbacks remain or limit frames have run. Returns the
// number of frames run.
func (m *Manual) Drain(limit int) int {
	frames := 0

	for frames < limit && m.Pending() > 0 {
		m.Tick()

		frames++
	}

	return frames
}
