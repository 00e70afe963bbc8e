package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestSubmissionMetricsRecords(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewSubmissionMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.Transition(ctx, "BTC", "validating")
	m.Transition(ctx, "BTC", "encoding")
	m.Finished(ctx, "BTC", "failed", "transport_error", 120*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := map[string]metricdata.Metrics{}
	for _, metric := range rm.ScopeMetrics[0].Metrics {
		byName[metric.Name] = metric
	}
	transitions, ok := byName["submission.transitions"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, transitions.DataPoints, 2)

	outcomes, ok := byName["submission.outcomes"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, outcomes.DataPoints, 1)
	require.EqualValues(t, 1, outcomes.DataPoints[0].Value)
	kind, _ := outcomes.DataPoints[0].Attributes.Value("error_kind")
	require.Equal(t, "transport_error", kind.AsString())

	hist, ok := byName["submission.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.EqualValues(t, 1, hist.DataPoints[0].Count)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *SubmissionMetrics
	m.Transition(context.Background(), "BTC", "idle")
	m.Finished(context.Background(), "BTC", "succeeded", "", time.Second)
}

func TestProviderWithoutEndpoint(t *testing.T) {
	p, err := NewProvider(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, p.Meter())
	require.NoError(t, p.Shutdown(context.Background()))
	require.Equal(t, "collector:4318", stripScheme("http://collector:4318/"))
}
