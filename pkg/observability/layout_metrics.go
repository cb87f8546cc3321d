package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricItemsPositioned = "masonry.layout.items.positioned.total"
	metricHeightUpdates   = "masonry.layout.height.updates.total"
	metricItemsMoved      = "masonry.layout.items.moved.total"
	metricFlushDuration   = "masonry.layout.flush.duration.seconds"
	metricRenderedItems   = "masonry.layout.rendered.items"

	attrPhase = "phase"

	phaseMeasured = "measured"
	phaseProbe    = "probe"
)

// flushBucketBoundaries covers 10us to 100ms; a flush should fit in a frame.
var flushBucketBoundaries = []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.033, 0.1}

// LayoutMetrics holds OTel instruments for positioner activity.
type LayoutMetrics struct {
	positioned    metric.Int64Counter
	updates       metric.Int64Counter
	moved         metric.Int64Counter
	flushDuration metric.Float64Histogram
	rendered      metric.Int64Histogram
}

// FlushStats describes one applied measurement batch.
type FlushStats struct {
	Positioned int
	Updated    int
	Moved      int
	Duration   time.Duration
}

// NewLayoutMetrics creates layout instruments from the given meter.
func NewLayoutMetrics(mt metric.Meter) (*LayoutMetrics, error) {
	in := &instruments{mt: mt}

	lm := &LayoutMetrics{
		positioned:    in.counter(metricItemsPositioned, "Items placed in a column for the first time", "{item}"),
		updates:       in.counter(metricHeightUpdates, "Measured height changes applied to positioned items", "{update}"),
		moved:         in.counter(metricItemsMoved, "Items whose top moved during a column reflow", "{item}"),
		flushDuration: in.seconds(metricFlushDuration, "Time spent applying one measurement batch", flushBucketBoundaries),
		rendered:      in.sizes(metricRenderedItems, "Items selected per rendered frame", "{item}", nil),
	}

	if in.err != nil {
		return nil, in.err
	}

	return lm, nil
}

// RecordFlush records one measurement flush.
// Safe to call on a nil receiver (no-op).
func (lm *LayoutMetrics) RecordFlush(ctx context.Context, stats FlushStats) {
	if lm == nil {
		return
	}

	lm.positioned.Add(ctx, int64(stats.Positioned))
	lm.updates.Add(ctx, int64(stats.Updated))
	lm.moved.Add(ctx, int64(stats.Moved))
	lm.flushDuration.Record(ctx, stats.Duration.Seconds())
}

// RecordRender records how many measured items and measurement probes a frame
// selected. Safe to call on a nil receiver (no-op).
func (lm *LayoutMetrics) RecordRender(ctx context.Context, measured, probes int) {
	if lm == nil {
		return
	}

	lm.rendered.Record(ctx, int64(measured), metric.WithAttributes(attribute.String(attrPhase, phaseMeasured)))
	lm.rendered.Record(ctx, int64(probes), metric.WithAttributes(attribute.String(attrPhase, phaseProbe)))
}
