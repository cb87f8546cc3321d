package observability_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/masonry/pkg/observability"
)

func TestLayoutMetrics_RecordFlush(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	lm, err := observability.NewLayoutMetrics(mp.Meter("test"))
	require.NoError(t, err)

	lm.RecordFlush(context.Background(), observability.FlushStats{
		Positioned: 4,
		Updated:    2,
		Moved:      7,
		Duration:   time.Millisecond,
	})

	rm := collectMetrics(t, reader)

	moved := findMetric(rm, "masonry.layout.items.moved.total")
	require.NotNil(t, moved)

	sum, ok := moved.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(7), sum.DataPoints[0].Value)

	assert.NotNil(t, findMetric(rm, "masonry.layout.items.positioned.total"))
	assert.NotNil(t, findMetric(rm, "masonry.layout.height.updates.total"))
	assert.NotNil(t, findMetric(rm, "masonry.layout.flush.duration.seconds"))
}

func TestLayoutMetrics_RecordRender(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	lm, err := observability.NewLayoutMetrics(mp.Meter("test"))
	require.NoError(t, err)

	lm.RecordRender(context.Background(), 10, 3)

	rendered := findMetric(collectMetrics(t, reader), "masonry.layout.rendered.items")
	require.NotNil(t, rendered)

	hist, ok := rendered.Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	assert.Len(t, hist.DataPoints, 2)
}

func TestLayoutMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var lm *observability.LayoutMetrics

	assert.NotPanics(t, func() {
		lm.RecordFlush(context.Background(), observability.FlushStats{Moved: 1})
		lm.RecordRender(context.Background(), 1, 1)
	})
}

func TestPrometheusHandler_ServesLayoutMetrics(t *testing.T) {
	t.Parallel()

	handler, mp, err := observability.PrometheusHandler()
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, mp.Shutdown(context.Background())) })

	lm, err := observability.NewLayoutMetrics(mp.Meter("test"))
	require.NoError(t, err)

	lm.RecordFlush(context.Background(), observability.FlushStats{Moved: 3})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "masonry_layout_items_moved")
}

func TestPrometheusHandler_IndependentRegistries(t *testing.T) {
	t.Parallel()

	_, first, err := observability.PrometheusHandler()
	require.NoError(t, err)

	_, second, err := observability.PrometheusHandler()
	require.NoError(t, err)

	assert.NotSame(t, first, second)
}

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	observability.HealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
