package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"resumescore/internal/config"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestMetricsRecording(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := newMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordScoring(ctx, "match", 72.5, 20*time.Millisecond, nil)
	m.RecordScoring(ctx, "audit", 55, 10*time.Millisecond, nil)
	m.RecordScoring(ctx, "", 0, time.Millisecond, errors.New("model missing"))
	m.RecordModelReload(ctx, true)
	m.RecordBusinessEvent(ctx, EventHistorySaved, true)

	data := collect(t, reader)

	ops, ok := data["resumescore.scoring.operations"].(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range ops.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(3), total)
	assert.Len(t, ops.DataPoints, 3)

	scores, ok := data["resumescore.scoring.score"].(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range scores.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(2), count, "failed scoring must not record a score")

	assert.Contains(t, data, "resumescore.scoring.duration")
	assert.Contains(t, data, "resumescore.model.reloads")
	assert.Contains(t, data, "resumescore.business.events")
}

func TestZeroMetricsAreNoOps(t *testing.T) {
	var m Metrics
	ctx := context.Background()
	m.RecordScoring(ctx, "match", 50, time.Millisecond, nil)
	m.RecordModelReload(ctx, false)
	m.RecordBusinessEvent(ctx, EventChatAnswered, true)
}

func TestDisabledManager(t *testing.T) {
	om, err := NewManager(FromConfig(nil, "test"), nil)
	require.NoError(t, err)

	assert.NotNil(t, om.Metrics())
	_, span := om.Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	err = om.Metrics().TrackAIOperation(context.Background(), om.Tracer("test"), "advise", func(context.Context) *AIOperationResult {
		return &AIOperationResult{Error: errors.New("quota")}
	})
	assert.EqualError(t, err, "quota")
	assert.NoError(t, om.Shutdown(context.Background()))
}

func TestEnabledManagerWithoutExporters(t *testing.T) {
	cfg := FromConfig(&config.Config{Observability: config.ObservabilityConfig{
		Enabled:     true,
		ServiceName: "resumescore-test",
		Tracing:     config.TracingConfig{Enabled: true, SampleRate: 1},
		Metrics:     config.MetricsConfig{Enabled: true, CollectionInterval: time.Second},
	}}, "1.0.0")
	assert.Equal(t, "1.0.0", cfg.ServiceVersion)

	om, err := NewManager(cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, om.Metrics().ScoringOperations)

	_, span := om.Tracer("test").Start(context.Background(), "scoring")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, om.Shutdown(context.Background()))
}
