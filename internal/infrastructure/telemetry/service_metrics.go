package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// ErrMeterNil is returned when NewMetrics is called without a meter.
var ErrMeterNil = errors.New("telemetry: meter is nil")

// MeterName is the instrumentation scope of StorePulse metrics.
const MeterName = "storepulse"

// Metrics holds the service-level instruments. A nil *Metrics records nothing.
type Metrics struct {
	cacheLookups     *Counter
	tokenRefreshes   *Counter
	providerCalls    *Counter
	providerDuration *Histogram
	dashboardBuilds  *Counter
}

// NewMetrics creates all service instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		m   Metrics
		err error
	)
	if m.cacheLookups, err = NewCounter(meter,
		"storepulse_cache_lookups_total", "Result cache lookups by kind and result", "{lookup}"); err != nil {
		return nil, err
	}
	if m.tokenRefreshes, err = NewCounter(meter,
		"storepulse_token_refreshes_total", "Access token refresh attempts by outcome", "{refresh}"); err != nil {
		return nil, err
	}
	if m.providerCalls, err = NewCounter(meter,
		"storepulse_provider_calls_total", "Provider API calls by operation and failure kind", "{call}"); err != nil {
		return nil, err
	}
	if m.providerDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "storepulse_provider_call_duration_seconds",
		Description: "Provider API call latency",
		Unit:        "s",
		Boundaries:  ProviderDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.dashboardBuilds, err = NewCounter(meter,
		"storepulse_dashboard_builds_total", "Dashboard computations by outcome", "{build}"); err != nil {
		return nil, err
	}
	return &m, nil
}

// NopMetrics returns instruments backed by the no-op meter.
func NopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter(MeterName))
	return m
}

// RecordCacheLookup counts one cache lookup; result is hit, miss or error.
func (m *Metrics) RecordCacheLookup(ctx context.Context, kind, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.Inc(ctx, AttrCacheKind.String(kind), AttrCacheResult.String(result))
}

// RecordTokenRefresh counts one refresh attempt; outcome is success, rejected, error or reused.
func (m *Metrics) RecordTokenRefresh(ctx context.Context, provider, outcome string) {
	if m == nil {
		return
	}
	m.tokenRefreshes.Inc(ctx, AttrProvider.String(provider), AttrOutcome.String(outcome))
}

// RecordProviderCall counts one provider call and its latency. failureKind is empty on success.
func (m *Metrics) RecordProviderCall(ctx context.Context, provider, operation, failureKind string, d time.Duration) {
	if m == nil {
		return
	}
	if failureKind == "" {
		failureKind = "none"
	}
	attrs := []attribute.KeyValue{
		AttrProvider.String(provider),
		AttrOperation.String(operation),
		AttrFailureKind.String(failureKind),
	}
	m.providerCalls.Inc(ctx, attrs...)
	m.providerDuration.RecordDuration(ctx, d, attrs...)
}

// RecordDashboardBuild counts one dashboard computation; outcome is ok or error.
func (m *Metrics) RecordDashboardBuild(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.dashboardBuilds.Inc(ctx, AttrOutcome.String(outcome))
}
