package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func newTestMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader, provider
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestNewMeterProvider_Enabled(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), Config{
		Enabled:           true,
		CollectorEndpoint: "localhost:4317",
		ServiceName:       "storepulse-test",
		Insecure:          true,
		MetricsInterval:   time.Hour,
	}, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = mp.Shutdown(context.Background()) }()

	assert.True(t, mp.IsEnabled())
}

func TestCounterAndHistogram(t *testing.T) {
	reader, provider := newTestMeter(t)
	meter := provider.Meter("test")

	counter, err := NewCounter(meter, "test_total", "test counter", "{call}")
	require.NoError(t, err)
	hist, err := NewHistogram(meter, HistogramOpts{
		Name:       "test_duration_seconds",
		Unit:       "s",
		Boundaries: ProviderDurationBuckets,
	})
	require.NoError(t, err)

	ctx := context.Background()
	counter.Inc(ctx, AttrProvider.String("shopify"))
	counter.Inc(ctx, AttrProvider.String("shopify"))
	hist.RecordDuration(ctx, 300*time.Millisecond)

	got := collect(t, reader)

	sum, ok := got["test_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)

	h, ok := got["test_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, h.DataPoints, 1)
	assert.Equal(t, uint64(1), h.DataPoints[0].Count)
	assert.Equal(t, ProviderDurationBuckets, h.DataPoints[0].Bounds)
}
