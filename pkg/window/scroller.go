package window

import (
	"time"

	"golang.org/x/time/rate"
)

// Scroller constants.
const (
	// DefaultScrollFPS bounds how often scroll positions reach the windower.
	DefaultScrollFPS = 12

	// settleDelay is added to one frame period before a quiet scroller is
	// considered idle.
	settleDelay = 40 * time.Millisecond
)

// ScrollerConfig holds parameters for creating a Scroller.
type ScrollerConfig struct {
	// FPS is the maximum number of viewport updates per second.
	FPS float64
	// Height is the initial viewport height.
	Height float64
	// Now overrides the clock. Nil uses time.Now.
	Now func() time.Time
}

// Scroller turns raw scroll events into throttled viewport updates. The first
// event of a burst passes immediately; later ones are held and released at
// most FPS times per second. After a quiet period of 40ms plus one frame the
// viewport stops scrolling and the last held offset is released.
//
// A Scroller is not safe for concurrent use.
type Scroller struct {
	limiter   *rate.Limiter
	now       func() time.Time
	lastEvent time.Time
	viewport  Viewport
	held      float64
	hasHeld   bool
	idle      time.Duration
}

// NewScroller creates a Scroller at offset zero.
func NewScroller(cfg ScrollerConfig) *Scroller {
	fps := cfg.FPS
	if fps <= 0 {
		fps = DefaultScrollFPS
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Scroller{
		limiter:  rate.NewLimiter(rate.Limit(fps), 1),
		now:      now,
		viewport: Viewport{Height: cfg.Height},
		idle:     settleDelay + time.Duration(float64(time.Second)/fps),
	}
}

// Viewport returns the last released viewport.
func (s *Scroller) Viewport() Viewport {
	return s.viewport
}

// Scroll records a new scroll offset. It returns the updated viewport and
// true when the offset was released immediately.
func (s *Scroller) Scroll(top float64) (Viewport, bool) {
	now := s.now()
	s.lastEvent = now

	if s.limiter.AllowN(now, 1) {
		s.hasHeld = false
		s.viewport.ScrollTop = top
		s.viewport.IsScrolling = true

		return s.viewport, true
	}

	s.held = top
	s.hasHeld = true

	return s.viewport, false
}

// Resize sets the viewport height. Height changes are never throttled.
func (s *Scroller) Resize(height float64) Viewport {
	s.viewport.Height = height

	return s.viewport
}

// Poll releases a held offset when the limiter allows and clears the
// scrolling flag once the scroller has been idle. Call it once per frame.
// It reports whether the viewport changed.
func (s *Scroller) Poll() (Viewport, bool) {
	now := s.now()
	changed := false

	if s.hasHeld && s.limiter.AllowN(now, 1) {
		s.release()

		changed = true
	}

	if s.viewport.IsScrolling && now.Sub(s.lastEvent) >= s.idle {
		if s.hasHeld {
			s.release()
		}

		s.viewport.IsScrolling = false
		changed = true
	}

	return s.viewport, changed
}

func (s *Scroller) release() {
	s.viewport.ScrollTop = s.held
	s.viewport.IsScrolling = true
	s.hasHeld = false
}
