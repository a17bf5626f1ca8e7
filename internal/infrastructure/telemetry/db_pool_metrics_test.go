package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRegisterDBPoolMetrics_Validation(t *testing.T) {
	_, provider := newTestMeter(t)

	_, err := RegisterDBPoolMetrics(nil, nil)
	assert.ErrorIs(t, err, ErrMeterNil)

	_, err = RegisterDBPoolMetrics(provider.Meter("test"), nil)
	assert.ErrorIs(t, err, ErrSQLDBNil)
}

func TestRegisterDBPoolMetrics_ObservesStats(t *testing.T) {
	reader, provider := newTestMeter(t)
	sqlDB, err := setupTestDB(t).DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(3)

	reg, err := RegisterDBPoolMetrics(provider.Meter("test"), sqlDB)
	require.NoError(t, err)

	got := collect(t, reader)

	maxOpen, ok := got["db_pool_connections_max"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, maxOpen.DataPoints, 1)
	assert.Equal(t, int64(3), maxOpen.DataPoints[0].Value)

	conns, ok := got["db_pool_connections"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	states := map[string]bool{}
	for _, dp := range conns.DataPoints {
		state, _ := dp.Attributes.Value("state")
		states[state.AsString()] = true
	}
	assert.Equal(t, map[string]bool{"idle": true, "in_use": true}, states)

	assert.Contains(t, got, "db_pool_wait_total")
	assert.Contains(t, got, "db_pool_wait_duration_seconds")

	assert.NoError(t, reg.Unregister())
}
