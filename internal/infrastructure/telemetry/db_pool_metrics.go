package telemetry

import (
	"context"
	"database/sql"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrSQLDBNil is returned when pool metrics are registered without a handle.
var ErrSQLDBNil = errors.New("telemetry: sql.DB is nil")

var (
	poolStateIdle  = metric.WithAttributes(attribute.String("state", "idle"))
	poolStateInUse = metric.WithAttributes(attribute.String("state", "in_use"))
)

// RegisterDBPoolMetrics exposes sql.DB pool statistics of the credential
// store as observable instruments, read on each collection. Unregister the
// returned registration on shutdown.
func RegisterDBPoolMetrics(meter metric.Meter, db *sql.DB) (metric.Registration, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if db == nil {
		return nil, ErrSQLDBNil
	}

	conns, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Credential store connections by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, err
	}
	maxOpen, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Configured maximum open connections"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, err
	}
	waits, err := meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Connection requests that had to wait"),
		metric.WithUnit("{wait}"))
	if err != nil {
		return nil, err
	}
	waited, err := meter.Float64ObservableCounter("db_pool_wait_duration_seconds",
		metric.WithDescription("Total time spent waiting for a connection"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := db.Stats()
		o.ObserveInt64(conns, int64(s.Idle), poolStateIdle)
		o.ObserveInt64(conns, int64(s.InUse), poolStateInUse)
		o.ObserveInt64(maxOpen, int64(s.MaxOpenConnections))
		o.ObserveInt64(waits, s.WaitCount)
		o.ObserveFloat64(waited, s.WaitDuration.Seconds())
		return nil
	}, conns, maxOpen, waits, waited)
}
