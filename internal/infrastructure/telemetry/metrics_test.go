package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/voyago/backend/internal/infrastructure/telemetry"
)

// newManualMeter returns a meter backed by a ManualReader so tests can
// collect recorded data points synchronously.
func newManualMeter(t *testing.T) (metric.Meter, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		require.NoError(t, provider.Shutdown(context.Background()))
	})
	return provider.Meter("ledger-test"), reader
}

func gatherMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func metricByName(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	cfg := telemetry.MetricsConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:4317",
		ServiceName:       "ledger-backend",
	}

	provider, err := telemetry.NewMeterProvider(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, provider)

	assert.False(t, provider.IsEnabled())
	assert.Equal(t, cfg, provider.GetConfig())

	// falls back to the global meter provider when disabled
	assert.NotNil(t, provider.Meter("ledger"))

	assert.NoError(t, provider.ForceFlush(ctx))
	assert.NoError(t, provider.Shutdown(ctx))
}

func TestCounter(t *testing.T) {
	meter, reader := newManualMeter(t)
	ctx := context.Background()

	counter, err := telemetry.NewCounter(meter,
		"ledger_transactions_total", "Total ledger transactions", "{transaction}")
	require.NoError(t, err)

	counter.Inc(ctx, telemetry.AttrTransactionType.String("EARN"))
	counter.Add(ctx, 4, telemetry.AttrTransactionType.String("EARN"))
	counter.Inc(ctx, telemetry.AttrTransactionType.String("REDEEM"))

	rm := gatherMetrics(t, reader)
	m, ok := metricByName(rm, "ledger_transactions_total")
	require.True(t, ok)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 2)

	byType := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		if v, found := dp.Attributes.Value(attribute.Key("transaction_type")); found {
			byType[v.AsString()] = dp.Value
		}
	}
	assert.Equal(t, int64(5), byType["EARN"])
	assert.Equal(t, int64(1), byType["REDEEM"])
}

func TestHistogram(t *testing.T) {
	meter, reader := newManualMeter(t)
	ctx := context.Background()

	hist, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "ledger_debit_duration_seconds",
		Description: "Wallet debit duration",
		Unit:        "s",
		Boundaries:  telemetry.DBDurationBuckets,
	})
	require.NoError(t, err)

	hist.Record(ctx, 0.002)
	hist.RecordDuration(ctx, 30*time.Millisecond)

	rm := gatherMetrics(t, reader)
	m, ok := metricByName(rm, "ledger_debit_duration_seconds")
	require.True(t, ok)

	data, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, data.DataPoints, 1)

	dp := data.DataPoints[0]
	assert.Equal(t, uint64(2), dp.Count)
	assert.InDelta(t, 0.032, dp.Sum, 1e-9)
	assert.Equal(t, telemetry.DBDurationBuckets, dp.Bounds)
}

func TestHistogram_DefaultBoundaries(t *testing.T) {
	meter, reader := newManualMeter(t)

	hist, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "milestone_evaluation_duration_seconds",
		Description: "Milestone rule evaluation duration",
		Unit:        "s",
	})
	require.NoError(t, err)

	hist.Record(context.Background(), 0.5)

	rm := gatherMetrics(t, reader)
	_, ok := metricByName(rm, "milestone_evaluation_duration_seconds")
	assert.True(t, ok)
}

func TestGauge(t *testing.T) {
	meter, reader := newManualMeter(t)
	ctx := context.Background()

	gauge, err := telemetry.NewGauge(meter,
		"db_pool_connections", "Database pool connections", "{connection}")
	require.NoError(t, err)

	gauge.Record(ctx, 3, telemetry.AttrDBState.String("idle"))
	gauge.Record(ctx, 7, telemetry.AttrDBState.String("in_use"))
	// last write wins per attribute set
	gauge.Record(ctx, 5, telemetry.AttrDBState.String("idle"))

	rm := gatherMetrics(t, reader)
	m, ok := metricByName(rm, "db_pool_connections")
	require.True(t, ok)

	data, ok := m.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, data.DataPoints, 2)

	byState := make(map[string]int64)
	for _, dp := range data.DataPoints {
		if v, found := dp.Attributes.Value(attribute.Key("db.pool.state")); found {
			byState[v.AsString()] = dp.Value
		}
	}
	assert.Equal(t, int64(5), byState["idle"])
	assert.Equal(t, int64(7), byState["in_use"])
}

func TestAttributeKeys(t *testing.T) {
	assert.Equal(t, "tenant_id", string(telemetry.AttrTenantID))
	assert.Equal(t, "http.method", string(telemetry.AttrHTTPMethod))
	assert.Equal(t, "http.status_code", string(telemetry.AttrHTTPStatusCode))
	assert.Equal(t, "http.route", string(telemetry.AttrHTTPRoute))
	assert.Equal(t, "db.operation", string(telemetry.AttrDBOperation))
	assert.Equal(t, "db.table", string(telemetry.AttrDBTable))
	assert.Equal(t, "db.pool.state", string(telemetry.AttrDBState))
	assert.Equal(t, "transaction_type", string(telemetry.AttrTransactionType))
	assert.Equal(t, "milestone_rule", string(telemetry.AttrMilestoneRule))
}

func TestDurationBuckets(t *testing.T) {
	assert.Equal(t,
		[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		telemetry.HTTPDurationBuckets)
	assert.Equal(t,
		[]float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		telemetry.DBDurationBuckets)
}
