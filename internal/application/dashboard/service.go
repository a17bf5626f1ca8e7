// Package dashboard assembles the merchant dashboard from both providers under partial failure.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storepulse/backend/internal/domain/insight"
	"github.com/storepulse/backend/internal/domain/integration"
	"github.com/storepulse/backend/internal/domain/merchant"
	"github.com/storepulse/backend/internal/domain/period"
	"github.com/storepulse/backend/internal/infrastructure/cache"
	"github.com/storepulse/backend/internal/infrastructure/logger"
	"github.com/storepulse/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultTTL is how long a dashboard stays cached
	DefaultTTL = 15 * time.Minute
	// DefaultFetchTimeout bounds the provider fan-out of one build
	DefaultFetchTimeout = 20 * time.Second

	failureMessage = "Failed to fetch dashboard data. Please try again later."
)

// errDegraded marks a build that produced an error result; it is returned but never cached
var errDegraded = errors.New("dashboard: degraded result")

// errSkipCache marks a complete result built from provider failures that must not be cached
var errSkipCache = errors.New("dashboard: result not cacheable")

// Insights runs the correlation for a period
type Insights interface {
	Analyze(ctx context.Context, merchantID uuid.UUID, spec period.Spec) ([]insight.Insight, error)
}

// Config holds orchestrator settings
type Config struct {
	TTL          time.Duration
	FetchTimeout time.Duration
}

// Service builds dashboards
type Service struct {
	connections merchant.ConnectionReader
	commerce    integration.CommercePlatform
	traffic     integration.TrafficPlatform
	insights    Insights
	cache       *cache.ResultCache
	metrics     *telemetry.Metrics
	config      Config
	now         func() time.Time
}

// NewService creates a dashboard service. A nil metrics disables instrumentation.
func NewService(
	connections merchant.ConnectionReader,
	commerce integration.CommercePlatform,
	traffic integration.TrafficPlatform,
	insights Insights,
	results *cache.ResultCache,
	metrics *telemetry.Metrics,
	cfg Config,
) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	return &Service{
		connections: connections,
		commerce:    commerce,
		traffic:     traffic,
		insights:    insights,
		cache:       results,
		metrics:     metrics,
		config:      cfg,
		now:         time.Now,
	}
}

// GetDashboard returns the dashboard of a period. Unknown period ids fail with
// period.ErrInvalidPeriod before any provider or cache work. Provider failures leave the
// affected metrics out; unexpected failures produce a result with Error set that is not cached.
func (s *Service) GetDashboard(ctx context.Context, merchantID uuid.UUID, rawPeriod string) (*Result, error) {
	spec, err := period.ParseAndResolve(rawPeriod, s.now())
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "dashboard", "get",
		telemetry.WithAttribute(telemetry.SpanAttrMerchantID, merchantID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrPeriod, spec.ID.String()),
	)
	defer span.End()
	ctx, _ = logger.WithMerchantID(ctx, logger.L(ctx), merchantID.String())

	key := cache.Key{Kind: cache.KindDashboard, MerchantID: merchantID, Period: spec.ID.String()}
	result, err := cache.GetOrCompute(ctx, s.cache, key, s.config.TTL, func(ctx context.Context) (*Result, error) {
		return s.build(ctx, merchantID, spec)
	})
	if (errors.Is(err, errDegraded) || errors.Is(err, errSkipCache)) && result != nil {
		return result, nil
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return result, nil
}

// failures collects the failure kinds of the provider calls of one build
type failures struct {
	mu    sync.Mutex
	kinds map[integration.FailureKind]int
}

// note records err and reports whether the call succeeded
func (f *failures) note(err error) bool {
	if err == nil {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.kinds == nil {
		f.kinds = make(map[integration.FailureKind]int)
	}
	f.kinds[integration.KindOf(err)]++
	return false
}

func (f *failures) cacheable() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for kind := range f.kinds {
		if !kind.Cacheable() {
			return false
		}
	}
	return true
}

func (f *failures) fields() []zap.Field {
	f.mu.Lock()
	defer f.mu.Unlock()
	fields := make([]zap.Field, 0, len(f.kinds))
	for kind, n := range f.kinds {
		fields = append(fields, zap.Int(kind.String(), n))
	}
	return fields
}

// build loads the connections, fans out to the providers and correlates. Any error it
// returns wraps errDegraded or errSkipCache and comes with a result to report.
func (s *Service) build(ctx context.Context, merchantID uuid.UUID, spec period.Spec) (result *Result, err error) {
	log := logger.L(ctx)
	conns := merchant.Connections{}
	fails := &failures{}

	defer func() {
		if r := recover(); r != nil {
			log.Error("Dashboard build panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			result, err = failed(spec, conns, failureMessage), fmt.Errorf("%w: panic: %v", errDegraded, r)
		}
		switch {
		case errors.Is(err, errDegraded):
			s.metrics.RecordDashboardBuild(ctx, "error")
		case conns.CommerceConnected() && result.CommerceMetrics.TotalOrders == nil,
			conns.TrafficReady() && result.TrafficMetrics.Sessions == nil:
			s.metrics.RecordDashboardBuild(ctx, "partial")
		default:
			s.metrics.RecordDashboardBuild(ctx, "ok")
		}
	}()

	conns, err = merchant.LoadConnections(ctx, s.connections, merchantID)
	if err != nil {
		log.Error("Failed to load connections for dashboard", zap.Error(err))
		return failed(spec, merchant.Connections{}, failureMessage), fmt.Errorf("%w: %v", errDegraded, err)
	}

	result = newResult(spec, conns)
	if err := s.fanOut(ctx, conns, spec, result, fails); err != nil {
		log.Error("Dashboard fan-out failed", zap.Error(err))
		return failed(spec, conns, failureMessage), fmt.Errorf("%w: %v", errDegraded, err)
	}

	result.CalculatedMetrics = calculate(result.CommerceMetrics, result.TrafficMetrics)

	if conns.CommerceConnected() {
		result.Insights = s.correlate(ctx, merchantID, spec, fails)
	}

	if !fails.cacheable() {
		log.Warn("Dashboard built from failed provider calls, not caching", fails.fields()...)
		return result, errSkipCache
	}

	log.Info("Dashboard built",
		zap.String("period", spec.ID.String()),
		zap.Bool("commerce_connected", conns.CommerceConnected()),
		zap.Bool("traffic_ready", conns.TrafficReady()),
		zap.Int("insights", len(result.Insights)),
	)
	return result, nil
}

// fanOut runs the commerce and traffic tasks concurrently under the fetch timeout.
// Adapter errors are "no data" noted in fails; only panics come back as errors.
func (s *Service) fanOut(ctx context.Context, conns merchant.Connections, spec period.Spec, result *Result, fails *failures) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if conns.CommerceConnected() {
		g.Go(guard(func() (err error) {
			profiled(gctx, "commerce", spec, func(ctx context.Context) {
				result.CommerceMetrics, err = s.fetchCommerce(ctx, conns.Commerce, spec, fails)
			})
			return err
		}))
	}
	if conns.TrafficReady() {
		g.Go(guard(func() (err error) {
			profiled(gctx, "traffic", spec, func(ctx context.Context) {
				result.TrafficMetrics, err = s.fetchTraffic(ctx, conns.Traffic, spec, fails)
			})
			return err
		}))
	}
	return g.Wait()
}

func (s *Service) fetchCommerce(ctx context.Context, conn *merchant.CommerceConnection, spec period.Spec, fails *failures) (CommerceMetrics, error) {
	var (
		summary    *integration.ShopSummary
		paidSales  *decimal.Decimal
		paidOrders *int64
		allOrders  *int64
		trend      []integration.DailySales
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(guard(func() error {
		if v, err := s.commerce.ShopSummary(gctx, conn); fails.note(err) {
			summary = v
		}
		return nil
	}))
	g.Go(guard(func() error {
		if v, err := s.commerce.PaidSalesTotal(gctx, conn, spec.Start, spec.End); fails.note(err) {
			paidSales = &v
		}
		return nil
	}))
	g.Go(guard(func() error {
		q := integration.OrderQuery{Start: spec.Start, End: spec.End, Status: integration.OrderStatusAny, FinancialStatus: integration.FinancialStatusPaid}
		if v, err := s.commerce.OrderCount(gctx, conn, q); fails.note(err) {
			paidOrders = &v
		}
		return nil
	}))
	g.Go(guard(func() error {
		q := integration.OrderQuery{Start: spec.Start, End: spec.End, Status: integration.OrderStatusAny}
		if v, err := s.commerce.OrderCount(gctx, conn, q); fails.note(err) {
			allOrders = &v
		}
		return nil
	}))
	g.Go(guard(func() error {
		if v, err := s.commerce.SalesTrend(gctx, conn, spec.Start, spec.End); fails.note(err) {
			trend = v
		}
		return nil
	}))
	if err := g.Wait(); err != nil {
		return CommerceMetrics{}, err
	}

	m := CommerceMetrics{
		ShopName:    conn.ShopDomain,
		TotalOrders: allOrders,
		PaidOrders:  paidOrders,
		PaidSales:   paidSales,
		SalesTrend:  trend,
	}
	if summary != nil {
		if summary.Name != "" {
			m.ShopName = summary.Name
		}
		m.Currency = summary.Currency
	}
	if paidSales != nil && paidOrders != nil {
		aov := decimal.Zero
		if *paidOrders > 0 {
			aov = paidSales.Div(decimal.NewFromInt(*paidOrders)).Round(2)
		}
		m.AverageOrderValue = &aov
	}
	return m, nil
}

func (s *Service) fetchTraffic(ctx context.Context, conn *merchant.TrafficConnection, spec period.Spec, fails *failures) (TrafficMetrics, error) {
	var m TrafficMetrics

	g, gctx := errgroup.WithContext(ctx)
	g.Go(guard(func() error {
		if totals, err := s.traffic.BasicMetrics(gctx, conn, spec.Start, spec.End); fails.note(err) {
			m.Sessions = &totals.Sessions
			m.ActiveUsers = &totals.ActiveUsers
		}
		return nil
	}))
	g.Go(guard(func() error {
		if channels, err := s.traffic.SessionsByChannel(gctx, conn, spec.Start, spec.End); fails.note(err) {
			m.TrafficSources = channels
		}
		return nil
	}))
	if err := g.Wait(); err != nil {
		return TrafficMetrics{}, err
	}
	return m, nil
}

// correlate runs the insight analysis. Failures and panics become an empty list.
func (s *Service) correlate(ctx context.Context, merchantID uuid.UUID, spec period.Spec, fails *failures) (insights []insight.Insight) {
	defer func() {
		if r := recover(); r != nil {
			logger.L(ctx).Error("Insight correlation panicked", zap.Any("panic", r))
			fails.note(integration.ErrInternalFailure)
			insights = []insight.Insight{}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	insights, err := s.insights.Analyze(ctx, merchantID, spec)
	if !fails.note(err) {
		logger.L(ctx).Warn("Insight correlation failed", zap.Error(err))
		return []insight.Insight{}
	}
	if insights == nil {
		return []insight.Insight{}
	}
	return insights
}

// calculate derives the combined metrics. conversion_rate needs both total orders and sessions.
func calculate(commerce CommerceMetrics, traffic TrafficMetrics) CalculatedMetrics {
	var c CalculatedMetrics
	if commerce.TotalOrders == nil || traffic.Sessions == nil {
		return c
	}
	rate := 0.0
	if *traffic.Sessions > 0 {
		rate = float64(*commerce.TotalOrders) / float64(*traffic.Sessions) * 100
	}
	c.ConversionRate = &rate
	return c
}

// profiled labels the provider fetch in CPU profiles
func profiled(ctx context.Context, provider string, spec period.Spec, fn func(context.Context)) {
	telemetry.WithProfilingLabels(ctx, map[string]string{
		telemetry.ProfilingLabelOperation: "dashboard.fetch",
		telemetry.ProfilingLabelProvider:  provider,
		telemetry.ProfilingLabelPeriod:    spec.ID.String(),
	}, fn)
}

// guard turns a panic inside an errgroup task into an error
func guard(fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	}
}
