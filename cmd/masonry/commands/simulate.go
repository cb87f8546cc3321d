package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/masonry/pkg/frame"
	"github.com/Sumatoshi-tech/masonry/pkg/grid"
	"github.com/Sumatoshi-tech/masonry/pkg/heightcache"
	"github.com/Sumatoshi-tech/masonry/pkg/observability"
	"github.com/Sumatoshi-tech/masonry/pkg/window"
)

const (
	simulateArgCount    = 1
	defaultScrollSpeed  = 1200 // px per second
	defaultMaxFrames    = 10_000
	settleFramesAtLeast = 2
)

// ErrSimulationStalled is returned when the layout does not settle within the
// frame budget.
var ErrSimulationStalled = errors.New("simulation did not settle")

// simOptions are the simulate command flags.
type simOptions struct {
	width     float64
	height    float64
	scrollTo  float64
	speed     float64
	maxFrames int
	cachePath string
	realtime  bool
	trace     bool
}

// frameRecord describes one simulated frame.
type frameRecord struct {
	Frame     int
	ScrollTop float64
	Scrolling bool
	Cells     int
	Probes    int
	Measured  int
	Height    float64
}

// simResult summarizes a finished simulation.
type simResult struct {
	Frames    []frameRecord
	Seeded    int
	Measured  int
	Probes    int
	PeakCells int
	Height    float64
	Elapsed   time.Duration
}

// simulation plays the host side of a layout session: it scrolls, renders,
// and reports the heights of every probe it is asked to measure.
type simulation struct {
	grid     *grid.Grid[Item]
	scroller *window.Scroller
	items    []Item
	target   float64
	step     float64
	top      float64
	quiet    int
	result   simResult
}

// frame runs one host frame and reports whether the layout has settled.
func (s *simulation) frame(ctx context.Context) (bool, error) {
	if s.top < s.target {
		s.top = min(s.target, s.top+s.step)
		s.scroller.Scroll(s.top)
	}

	vp, _ := s.scroller.Poll()

	f, err := s.grid.Render(ctx, vp)
	if err != nil {
		return false, err
	}

	for _, p := range f.Probes {
		s.grid.Measure(p.Index, s.items[p.Index].Height)
	}

	rec := frameRecord{
		Frame:     len(s.result.Frames),
		ScrollTop: vp.ScrollTop,
		Scrolling: vp.IsScrolling,
		Cells:     len(f.Cells),
		Probes:    len(f.Probes),
		Measured:  s.grid.Positioner().Size(),
		Height:    f.Height,
	}

	s.result.Frames = append(s.result.Frames, rec)
	s.result.Probes += rec.Probes
	s.result.PeakCells = max(s.result.PeakCells, rec.Cells)
	s.result.Height = rec.Height
	s.result.Measured = rec.Measured

	// A frame without probes can still have a flush in flight.
	if f.NeedsRerender || vp.IsScrolling || s.top < s.target {
		s.quiet = 0
	} else {
		s.quiet++
	}

	return s.quiet >= settleFramesAtLeast, nil
}

// NewSimulateCommand creates the simulate subcommand.
func NewSimulateCommand(env *Env) *cobra.Command {
	var opts simOptions

	cmd := &cobra.Command{
		Use:   "simulate <items.yaml|items.json|->",
		Short: "Scroll through a list and report the two-phase render work",
		Long: `Simulate a host rendering a virtualized masonry grid: scroll to an offset,
render each frame, measure the probes the layout asks for and feed the heights
back. Reports how many frames, probes and measurements the session needed.

Examples:
  masonry simulate items.yaml --scroll-to 20000
  masonry simulate items.yaml --cache heights.bin --trace`,
		Args: cobra.ExactArgs(simulateArgCount),
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return env.Setup(observability.ModeCLI)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd.Context(), env, cmd, args[0], opts)
		},
	}

	cmd.Flags().Float64VarP(&opts.width, "width", "w", 0, "container width (default: file width, then viewport.width)")
	cmd.Flags().Float64Var(&opts.height, "height", 0, "viewport height (default: viewport.height)")
	cmd.Flags().Float64Var(&opts.scrollTo, "scroll-to", 0, "final scroll offset")
	cmd.Flags().Float64Var(&opts.speed, "speed", defaultScrollSpeed, "scroll speed in px per second")
	cmd.Flags().IntVar(&opts.maxFrames, "max-frames", defaultMaxFrames, "give up after this many frames")
	cmd.Flags().StringVar(&opts.cachePath, "cache", "", "height cache file (default: cache.path)")
	cmd.Flags().BoolVar(&opts.realtime, "realtime", false, "run on a wall-clock frame loop")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "print every frame")

	return cmd
}

func runSimulate(ctx context.Context, env *Env, cmd *cobra.Command, path string, opts simOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	file, err := loadItems(path, cmd.InOrStdin())
	if err != nil {
		return err
	}

	opts.width = env.widthOr(opts.width, file.Width)
	if opts.height <= 0 {
		opts.height = env.Config.Viewport.Height
	}

	if opts.cachePath == "" {
		opts.cachePath = env.Config.Cache.Path
	}

	ctx, span := env.tracer().Start(ctx, "masonry.simulate", trace.WithAttributes(
		attribute.Int("items.count", len(file.Items)),
		attribute.Float64("viewport.width", opts.width),
		attribute.Float64("viewport.height", opts.height),
	))
	defer span.End()

	res, err := simulate(ctx, env, file.Items, opts)
	if err != nil {
		span.RecordError(err)

		return err
	}

	if !env.Quiet {
		printSimulation(cmd.OutOrStdout(), res, opts.trace)
	}

	return nil
}

func simulate(ctx context.Context, env *Env, items []Item, opts simOptions) (*simResult, error) {
	metrics, err := observability.NewLayoutMetrics(env.meter())
	if err != nil {
		return nil, err
	}

	interval := env.Config.Scroll.FrameInterval
	if interval <= 0 {
		interval = frame.DefaultFrameInterval
	}

	clock := newSimClock(opts.realtime)

	var (
		sched frame.Scheduler
		loop  *frame.Loop
		man   *frame.Manual
	)

	if opts.realtime {
		loop = frame.NewLoop(frame.LoopConfig{Interval: interval, Logger: env.Logger})
		sched = loop
	} else {
		man = frame.NewManual()
		sched = man
	}

	g := grid.New[Item](grid.Config{
		Options: grid.Options{
			Columns:   env.Config.Layout.ColumnOptions(),
			RowGutter: env.Config.Layout.RowGutter,
			Window: window.Options{
				OverscanBy:         env.Config.Layout.OverscanBy,
				ItemHeightEstimate: env.Config.Layout.ItemHeightEstimate,
			},
		},
		Width:     opts.width,
		Scheduler: sched,
		Logger:    env.Logger,
		Metrics:   metrics,
	})
	defer g.Close()

	g.SetItems(items)

	sim := &simulation{
		grid: g,
		scroller: window.NewScroller(window.ScrollerConfig{
			FPS:    env.Config.Scroll.FPS,
			Height: opts.height,
			Now:    clock.Now,
		}),
		items:  items,
		target: opts.scrollTo,
		step:   max(opts.speed, 1) * interval.Seconds(),
	}

	sim.result.Seeded = seedFromCache(env, g, opts.cachePath, len(items))

	if opts.realtime {
		err = runOnLoop(ctx, loop, sim, opts.maxFrames, interval)
	} else {
		err = runManual(ctx, man, clock, sim, opts.maxFrames, interval)
	}

	if err != nil {
		return nil, err
	}

	sim.result.Elapsed = clock.Since()

	if opts.cachePath != "" {
		err = heightcache.Save(opts.cachePath, heightcache.Capture(g.Positioner()))
		if err != nil {
			return nil, fmt.Errorf("save height cache: %w", err)
		}
	}

	env.Logger.Debug("simulation finished",
		"frames", len(sim.result.Frames), "measured", sim.result.Measured, "probes", sim.result.Probes)

	return &sim.result, nil
}

// seedFromCache positions cached heights measured at the grid's column width.
func seedFromCache(env *Env, g *grid.Grid[Item], path string, limit int) int {
	if path == "" {
		return 0
	}

	snap, err := heightcache.Load(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			env.Logger.Warn("height cache ignored", "path", path, "error", err)
		}

		return 0
	}

	if !snap.Compatible(g.Positioner().ColumnWidth()) {
		env.Logger.Info("height cache built for another column width",
			"path", path, "cached", snap.ColumnWidth, "current", g.Positioner().ColumnWidth())

		return 0
	}

	return snap.Seed(g.Positioner(), limit)
}

func runManual(ctx context.Context, sched *frame.Manual, clock *simClock, sim *simulation, maxFrames int, interval time.Duration) error {
	for range maxFrames {
		done, err := sim.frame(ctx)
		if err != nil {
			return err
		}

		if done {
			return nil
		}

		sched.Tick()
		clock.Advance(interval)
	}

	return fmt.Errorf("%w after %d frames", ErrSimulationStalled, maxFrames)
}

type frameOutcome struct {
	done bool
	err  error
}

// runOnLoop drives one simulated frame per tick of a wall-clock ticker, each
// posted to the frame loop goroutine.
func runOnLoop(ctx context.Context, loop *frame.Loop, sim *simulation, maxFrames int, interval time.Duration) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopped := make(chan error, 1)

	go func() { stopped <- loop.Run(runCtx) }()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	outcome := make(chan frameOutcome, 1)
	err := fmt.Errorf("%w after %d frames", ErrSimulationStalled, maxFrames)

frames:
	for range maxFrames {
		select {
		case <-runCtx.Done():
			err = runCtx.Err()

			break frames
		case <-ticker.C:
		}

		postErr := loop.Post(runCtx, func() {
			done, frameErr := sim.frame(runCtx)
			outcome <- frameOutcome{done: done, err: frameErr}
		})
		if postErr != nil {
			err = postErr

			break
		}

		select {
		case <-runCtx.Done():
			err = runCtx.Err()

			break frames
		case res := <-outcome:
			if res.err != nil || res.done {
				err = res.err

				break frames
			}
		}
	}

	cancel()
	<-stopped

	return err
}

// simClock is the scroller's clock: simulated in manual mode, wall time in
// realtime mode.
type simClock struct {
	start    time.Time
	now      time.Time
	realtime bool
}

func newSimClock(realtime bool) *simClock {
	start := time.Now()

	return &simClock{start: start, now: start, realtime: realtime}
}

func (c *simClock) Now() time.Time {
	if c.realtime {
		return time.Now()
	}

	return c.now
}

func (c *simClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func (c *simClock) Since() time.Duration {
	return c.Now().Sub(c.start)
}

func printSimulation(w io.Writer, res *simResult, withTrace bool) {
	if withTrace {
		tbl := newTable(w)
		tbl.AppendHeader(table.Row{"Frame", "Scroll", "Scrolling", "Cells", "Probes", "Measured", "Height"})

		for _, rec := range res.Frames {
			tbl.AppendRow(table.Row{rec.Frame, rec.ScrollTop, rec.Scrolling, rec.Cells, rec.Probes, rec.Measured, rec.Height})
		}

		tbl.Render()
	}

	summary := newTable(w)
	summary.SetTitle("Simulation")
	summary.AppendRows([]table.Row{
		{"frames", humanize.Comma(int64(len(res.Frames)))},
		{"simulated time", res.Elapsed.Round(time.Millisecond).String()},
		{"seeded from cache", humanize.Comma(int64(res.Seeded))},
		{"items measured", humanize.Comma(int64(res.Measured))},
		{"probes rendered", humanize.Comma(int64(res.Probes))},
		{"peak cells per frame", humanize.Comma(int64(res.PeakCells))},
		{"container height", humanize.CommafWithDigits(res.Height, heightDisplayDigit) + "px"},
	})
	summary.Render()

	if res.Seeded > 0 {
		color.New(color.FgGreen).Fprintf(w, "reused %s cached heights\n", humanize.Comma(int64(res.Seeded)))
	}
}
