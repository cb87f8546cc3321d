package frame

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrLoopStopped is returned by Post after Run has returned.
var ErrLoopStopped = errors.New("frame loop stopped")

// Loop constants.
const (
	// DefaultFrameInterval approximates a 60Hz display refresh.
	DefaultFrameInterval = time.Second / 60

	// defaultEventBuffer is the capacity of the host event queue.
	defaultEventBuffer = 256
)

// LoopConfig holds parameters for creating a Loop.
type LoopConfig struct {
	// Interval is the frame period. Zero uses DefaultFrameInterval.
	Interval time.Duration
	// EventBuffer is the capacity of the Post queue. Zero uses a default.
	EventBuffer int
	Logger      *slog.Logger
}

// Loop is a single-goroutine event loop. Host events arrive through Post and
// frame callbacks run on every tick of the frame clock; both execute on the
// goroutine that called Run, so layout state needs no locks.
//
// Request and Cancel must only be called from that goroutine (from inside a
// posted event or a frame callback).
type Loop struct {
	frames   *Manual
	events   chan func()
	done     chan struct{}
	interval time.Duration
	logger   *slog.Logger
}

// NewLoop creates a Loop. Call Run to start it.
func NewLoop(cfg LoopConfig) *Loop {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultFrameInterval
	}

	buffer := cfg.EventBuffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}

	lg := cfg.Logger
	if lg == nil {
		lg = slog.Default()
	}

	return &Loop{
		frames:   NewManual(),
		events:   make(chan func(), buffer),
		done:     make(chan struct{}),
		interval: interval,
		logger:   lg,
	}
}

// Request implements Scheduler.
func (l *Loop) Request(fn func()) Handle {
	return l.frames.Request(fn)
}

// Cancel implements Scheduler.
func (l *Loop) Cancel(h Handle) {
	l.frames.Cancel(h)
}

// Post queues a host event to run on the loop goroutine. Safe for concurrent
// use. Blocks while the queue is full.
func (l *Loop) Post(ctx context.Context, fn func()) error {
	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}

	select {
	case l.events <- fn:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes events and frames until ctx is cancelled. It returns the
// context's error.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)

	defer func() {
		ticker.Stop()
		close(l.done)
		l.logger.Debug("frame loop stopped", "frames", l.frames.Ticks())
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.events:
			fn()
		case <-ticker.C:
			l.frames.Tick()
		}
	}
}
