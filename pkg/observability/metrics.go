package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRequestsTotal   = "masonry.requests.total"
	metricRequestDuration = "masonry.request.duration.seconds"
	metricRequestItems    = "masonry.request.items"
	metricErrorsTotal     = "masonry.errors.total"
	metricInflight        = "masonry.inflight.requests"

	attrOp     = "op"
	attrStatus = "status"

	statusOK    = "ok"
	statusError = "error"
)

var (
	// requestBuckets covers 100us to 5s; a layout request replays every
	// item height once.
	requestBuckets = []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5}

	// itemBuckets are request sizes in items, up to the default server limit.
	itemBuckets = []float64{10, 100, 1_000, 10_000, 100_000}
)

// instruments creates instruments on one meter and keeps the first error.
type instruments struct {
	mt  metric.Meter
	err error
}

func (in *instruments) keep(name string, err error) {
	if err != nil && in.err == nil {
		in.err = fmt.Errorf("create %s: %w", name, err)
	}
}

func (in *instruments) counter(name, desc, unit string) metric.Int64Counter {
	c, err := in.mt.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	in.keep(name, err)

	return c
}

func (in *instruments) gauge(name, desc, unit string) metric.Int64UpDownCounter {
	g, err := in.mt.Int64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	in.keep(name, err)

	return g
}

func (in *instruments) seconds(name, desc string, bounds []float64) metric.Float64Histogram {
	h, err := in.mt.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(bounds...),
	)
	in.keep(name, err)

	return h
}

func (in *instruments) sizes(name, desc, unit string, bounds []float64) metric.Int64Histogram {
	var opts []metric.Int64HistogramOption

	opts = append(opts, metric.WithDescription(desc), metric.WithUnit(unit))
	if len(bounds) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(bounds...))
	}

	h, err := in.mt.Int64Histogram(name, opts...)
	in.keep(name, err)

	return h
}

// REDMetrics records rate, errors and duration of served layout requests.
type REDMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	items    metric.Int64Histogram
	errors   metric.Int64Counter
	inflight metric.Int64UpDownCounter
}

// RequestStats describes one finished request.
type RequestStats struct {
	Op string
	// Err marks the request failed; its text is not recorded.
	Err      error
	Items    int
	Duration time.Duration
}

// NewREDMetrics creates the request instruments on mt.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	in := &instruments{mt: mt}

	rm := &REDMetrics{
		requests: in.counter(metricRequestsTotal, "Layout requests served", "{request}"),
		duration: in.seconds(metricRequestDuration, "Layout request duration", requestBuckets),
		items:    in.sizes(metricRequestItems, "Items per layout request", "{item}", itemBuckets),
		errors:   in.counter(metricErrorsTotal, "Rejected or failed layout requests", "{error}"),
		inflight: in.gauge(metricInflight, "Layout requests in progress", "{request}"),
	}

	if in.err != nil {
		return nil, in.err
	}

	return rm, nil
}

// RecordRequest records a finished request.
func (rm *REDMetrics) RecordRequest(ctx context.Context, stats RequestStats) {
	status := statusOK
	if stats.Err != nil {
		status = statusError
	}

	op := attribute.String(attrOp, stats.Op)
	both := metric.WithAttributes(op, attribute.String(attrStatus, status))

	rm.requests.Add(ctx, 1, both)
	rm.duration.Record(ctx, stats.Duration.Seconds(), both)

	if stats.Err != nil {
		rm.errors.Add(ctx, 1, metric.WithAttributes(op))

		return
	}

	rm.items.Record(ctx, int64(stats.Items), metric.WithAttributes(op))
}

// TrackInflight counts a request as in progress until the returned func is
// called.
func (rm *REDMetrics) TrackInflight(ctx context.Context, op string) func() {
	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	rm.inflight.Add(ctx, 1, attrs)

	return func() { rm.inflight.Add(ctx, -1, attrs) }
}
