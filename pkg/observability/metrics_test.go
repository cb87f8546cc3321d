package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/masonry/pkg/observability"
)

func newREDMetrics(t *testing.T) (*observability.REDMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()

	red, err := observability.NewREDMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	require.NoError(t, err)

	return red, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, scope := range rm.ScopeMetrics {
		for i := range scope.Metrics {
			if scope.Metrics[i].Name == name {
				return &scope.Metrics[i]
			}
		}
	}

	return nil
}

// sumByStatus totals an int64 counter per value of the status attribute.
func sumByStatus(t *testing.T, m *metricdata.Metrics) map[string]int64 {
	t.Helper()
	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", m.Name)

	out := make(map[string]int64)

	for _, dp := range sum.DataPoints {
		status, _ := dp.Attributes.Value(attribute.Key("status"))
		out[status.AsString()] += dp.Value
	}

	return out
}

func TestREDMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	errRejected := errors.New("rejected")

	tests := []struct {
		name      string
		stats     []observability.RequestStats
		byStatus  map[string]int64
		errors    bool
		itemCount uint64
	}{
		{
			name: "success",
			stats: []observability.RequestStats{
				{Op: "layout", Items: 120, Duration: 3 * time.Millisecond},
				{Op: "layout", Items: 8, Duration: time.Millisecond},
			},
			byStatus:  map[string]int64{"ok": 2},
			itemCount: 2,
		},
		{
			name: "failure",
			stats: []observability.RequestStats{
				{Op: "layout", Err: errRejected, Items: 50, Duration: time.Millisecond},
			},
			byStatus: map[string]int64{"error": 1},
			errors:   true,
		},
		{
			name: "mixed",
			stats: []observability.RequestStats{
				{Op: "layout", Items: 1, Duration: time.Millisecond},
				{Op: "layout", Err: errRejected, Duration: time.Millisecond},
			},
			byStatus:  map[string]int64{"ok": 1, "error": 1},
			errors:    true,
			itemCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			red, reader := newREDMetrics(t)
			for _, st := range tt.stats {
				red.RecordRequest(ctx, st)
			}

			rm := collectMetrics(t, reader)

			assert.Equal(t, tt.byStatus, sumByStatus(t, findMetric(rm, "masonry.requests.total")))
			assert.NotNil(t, findMetric(rm, "masonry.request.duration.seconds"))

			if tt.errors {
				assert.NotNil(t, findMetric(rm, "masonry.errors.total"))
			} else {
				assert.Nil(t, findMetric(rm, "masonry.errors.total"))
			}

			items := findMetric(rm, "masonry.request.items")
			if tt.itemCount == 0 {
				assert.Nil(t, items)

				return
			}

			require.NotNil(t, items)

			hist, ok := items.Data.(metricdata.Histogram[int64])
			require.True(t, ok)
			require.Len(t, hist.DataPoints, 1)
			assert.Equal(t, tt.itemCount, hist.DataPoints[0].Count)
		})
	}
}

func TestREDMetrics_TrackInflight(t *testing.T) {
	t.Parallel()

	red, reader := newREDMetrics(t)
	ctx := context.Background()

	inflight := func() int64 {
		m := findMetric(collectMetrics(t, reader), "masonry.inflight.requests")
		require.NotNil(t, m)

		sum, ok := m.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.Len(t, sum.DataPoints, 1)

		return sum.DataPoints[0].Value
	}

	first := red.TrackInflight(ctx, "layout")
	second := red.TrackInflight(ctx, "layout")
	assert.Equal(t, int64(2), inflight())

	first()
	second()
	assert.Equal(t, int64(0), inflight())
}

func TestNewREDMetrics_NoopMeter(t *testing.T) {
	t.Parallel()

	red, err := observability.NewREDMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		red.TrackInflight(context.Background(), "layout")()
		red.RecordRequest(context.Background(), observability.RequestStats{Op: "layout", Duration: time.Millisecond})
	})
}
