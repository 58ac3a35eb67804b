package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{ServiceName: "product-service"})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.NotNil(t, p.Tracer("test"))
	assert.NotNil(t, p.Meter("test"))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{})
	assert.Error(t, err)
}

func TestProviderShutdown_JoinsErrors(t *testing.T) {
	first := errors.New("trace exporter unreachable")
	second := errors.New("metric exporter unreachable")

	var order []string
	p := &Provider{shutdowns: []func(context.Context) error{
		func(context.Context) error { order = append(order, "traces"); return first },
		func(context.Context) error { order = append(order, "metrics"); return second },
	}}

	err := p.Shutdown(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
	assert.Equal(t, []string{"metrics", "traces"}, order)

	assert.NoError(t, p.Shutdown(context.Background()), "second shutdown is a no-op")
}

func TestHistogramViews(t *testing.T) {
	views := histogramViews()

	match := func(inst sdkmetric.Instrument) (sdkmetric.Stream, bool) {
		for _, view := range views {
			if stream, ok := view(inst); ok {
				return stream, true
			}
		}
		return sdkmetric.Stream{}, false
	}

	stream, ok := match(sdkmetric.Instrument{Name: "http.server.request.duration", Kind: sdkmetric.InstrumentKindHistogram})
	require.True(t, ok)
	assert.Equal(t, sdkmetric.AggregationExplicitBucketHistogram{Boundaries: durationBuckets}, stream.Aggregation)

	stream, ok = match(sdkmetric.Instrument{Name: "http.server.response.size", Kind: sdkmetric.InstrumentKindHistogram})
	require.True(t, ok)
	assert.Equal(t, sdkmetric.AggregationExplicitBucketHistogram{Boundaries: sizeBuckets}, stream.Aggregation)

	stream, ok = match(sdkmetric.Instrument{Name: "db.sql.latency", Kind: sdkmetric.InstrumentKindHistogram})
	require.True(t, ok)
	assert.IsType(t, sdkmetric.AggregationBase2ExponentialHistogram{}, stream.Aggregation)

	_, ok = match(sdkmetric.Instrument{Name: "http.server.request.count", Kind: sdkmetric.InstrumentKindCounter})
	assert.False(t, ok)
}

func TestLoadConfig_MetricsInterval(t *testing.T) {
	t.Setenv("OTEL_METRIC_EXPORT_INTERVAL", "5000")
	assert.Equal(t, 5*time.Second, LoadConfig().MetricsInterval)

	t.Setenv("OTEL_METRIC_EXPORT_INTERVAL", "soon")
	assert.Equal(t, defaultMetricsInterval, LoadConfig().MetricsInterval)
}
