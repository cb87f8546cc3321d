package frame_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/masonry/pkg/frame"
)

func TestManual_RunsInRequestOrder(t *testing.T) {
	t.Parallel()

	sched := frame.NewManual()

	var got []int

	for i := range 3 {
		sched.Request(func() { got = append(got, i) })
	}

	assert.Equal(t, 3, sched.Pending())
	assert.Equal(t, 3, sched.Tick())
	assert.Equal(t, []int{0, 1, 2}, got)
	assert.Zero(t, sched.Pending())
}

func TestManual_NestedRequestWaitsForNextTick(t *testing.T) {
	t.Parallel()

	sched := frame.NewManual()

	var inner bool

	sched.Request(func() {
		sched.Request(func() { inner = true })
	})

	require.Equal(t, 1, sched.Tick())
	assert.False(t, inner)
	assert.Equal(t, 1, sched.Pending())

	require.Equal(t, 1, sched.Tick())
	assert.True(t, inner)
	assert.Equal(t, uint64(2), sched.Ticks())
}

func TestManual_Cancel(t *testing.T) {
	t.Parallel()

	sched := frame.NewManual()

	var ran bool

	h := sched.Request(func() { ran = true })
	assert.NotZero(t, h)

	sched.Cancel(h)
	sched.Cancel(h)
	sched.Cancel(frame.Handle(999))

	assert.Zero(t, sched.Tick())
	assert.False(t, ran)
}

func TestManual_CancelFromEarlierCallback(t *testing.T) {
	t.Parallel()

	sched := frame.NewManual()

	var second frame.Handle

	var ran bool

	sched.Request(func() { sched.Cancel(second) })
	second = sched.Request(func() { ran = true })

	assert.Equal(t, 1, sched.Tick())
	assert.False(t, ran)
}

func TestManual_ZeroValue(t *testing.T) {
	t.Parallel()

	var sched frame.Manual

	var ran bool

	sched.Request(func() { ran = true })
	sched.Tick()

	assert.True(t, ran)
}

func TestManual_Drain(t *testing.T) {
	t.Parallel()

	sched := frame.NewManual()
	depth := 0

	var chain func()
	chain = func() {
		depth++
		if depth < 5 {
			sched.Request(chain)
		}
	}

	sched.Request(chain)

	assert.Equal(t, 5, sched.Drain(10))
	assert.Equal(t, 5, depth)
	assert.Zero(t, sched.Drain(10))
}

func TestLoop_RunsPostedEventsAndFrames(t *testing.T) {
	t.Parallel()

	loop := frame.NewLoop(frame.LoopConfig{Interval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)

	go func() { errCh <- loop.Run(ctx) }()

	var frames atomic.Int32

	done := make(chan struct{})

	require.NoError(t, loop.Post(ctx, func() {
		loop.Request(func() {
			frames.Add(1)
			close(done)
		})
	}))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("frame callback did not run")
	}

	cancel()

	require.ErrorIs(t, <-errCh, context.Canceled)
	assert.Equal(t, int32(1), frames.Load())
	assert.ErrorIs(t, loop.Post(context.Background(), func() {}), frame.ErrLoopStopped)
}

func TestNewLoop_Defaults(t *testing.T) {
	t.Parallel()

	loop := frame.NewLoop(frame.LoopConfig{})

	var sched frame.Scheduler = loop

	h := sched.Request(func() {})
	sched.Cancel(h)
	assert.NotZero(t, h)
}
