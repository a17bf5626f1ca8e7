// Package insight runs the traffic/inventory correlation for a merchant and caches the result.
package insight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storepulse/backend/internal/domain/insight"
	"github.com/storepulse/backend/internal/domain/integration"
	"github.com/storepulse/backend/internal/domain/merchant"
	"github.com/storepulse/backend/internal/domain/period"
	"github.com/storepulse/backend/internal/infrastructure/cache"
	"github.com/storepulse/backend/internal/infrastructure/logger"
	"github.com/storepulse/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const (
	// DefaultProductLimit is how many top viewed products are analysed
	DefaultProductLimit = 100
	// DefaultTTL is how long an analysis stays cached
	DefaultTTL = time.Hour
)

// errSkipCache marks a computation whose empty result must not be cached
var errSkipCache = errors.New("insight: result not cacheable")

// Config holds the analysis settings
type Config struct {
	Thresholds   insight.Thresholds
	ProductLimit int
	TTL          time.Duration
}

// Service correlates top viewed products with inventory levels
type Service struct {
	connections merchant.ConnectionReader
	commerce    integration.CommercePlatform
	traffic     integration.TrafficPlatform
	cache       *cache.ResultCache
	config      Config
}

// NewService creates an insight service. Zero config values fall back to defaults.
func NewService(
	connections merchant.ConnectionReader,
	commerce integration.CommercePlatform,
	traffic integration.TrafficPlatform,
	results *cache.ResultCache,
	cfg Config,
) (*Service, error) {
	if cfg.Thresholds == (insight.Thresholds{}) {
		cfg.Thresholds = insight.DefaultThresholds()
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if cfg.ProductLimit <= 0 {
		cfg.ProductLimit = DefaultProductLimit
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Service{
		connections: connections,
		commerce:    commerce,
		traffic:     traffic,
		cache:       results,
		config:      cfg,
	}, nil
}

// CacheKey returns the cache key of an analysis; insights are keyed by their date range.
func CacheKey(merchantID uuid.UUID, spec period.Spec) cache.Key {
	return cache.Key{
		Kind:       cache.KindInsights,
		MerchantID: merchantID,
		Period:     spec.StartDate() + "_" + spec.EndDate(),
	}
}

// Analyze returns the insights of a period, in traffic rank order. The result is never nil.
// Provider failures yield an empty, uncached result; only credential store failures are
// returned as errors.
func (s *Service) Analyze(ctx context.Context, merchantID uuid.UUID, spec period.Spec) ([]insight.Insight, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "insight", "analyze",
		telemetry.WithAttribute(telemetry.SpanAttrMerchantID, merchantID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrPeriod, spec.StartDate()+"_"+spec.EndDate()),
	)
	defer span.End()

	insights, err := cache.GetOrCompute(ctx, s.cache, CacheKey(merchantID, spec), s.config.TTL,
		func(ctx context.Context) ([]insight.Insight, error) {
			return s.compute(ctx, merchantID, spec)
		})
	switch {
	case errors.Is(err, errSkipCache):
		return []insight.Insight{}, nil
	case err != nil:
		telemetry.RecordError(span, err)
		return []insight.Insight{}, err
	}
	if insights == nil {
		insights = []insight.Insight{}
	}
	return insights, nil
}

func (s *Service) compute(ctx context.Context, merchantID uuid.UUID, spec period.Spec) ([]insight.Insight, error) {
	log := logger.L(ctx).With(zap.String("merchant_id", merchantID.String()))

	conns, err := merchant.LoadConnections(ctx, s.connections, merchantID)
	if err != nil {
		return nil, fmt.Errorf("load connections: %w", err)
	}
	if !conns.CommerceConnected() || !conns.TrafficReady() {
		log.Debug("Insight preconditions unmet",
			zap.Bool("commerce_connected", conns.CommerceConnected()),
			zap.Bool("traffic_ready", conns.TrafficReady()),
		)
		return []insight.Insight{}, nil
	}

	rows, err := s.traffic.TopProducts(ctx, conns.Traffic, spec.Start, spec.End, s.config.ProductLimit)
	if err != nil {
		if integration.KindOf(err).Cacheable() {
			return []insight.Insight{}, nil
		}
		log.Warn("Top products unavailable, skipping analysis", zap.Error(err))
		return nil, errSkipCache
	}
	if len(rows) == 0 {
		return []insight.Insight{}, nil
	}

	ids := insight.DistinctProductIDs(rows)
	levels, err := s.commerce.InventoryLevels(ctx, conns.Commerce, ids)
	if err != nil {
		log.Warn("Inventory levels unavailable, skipping analysis",
			zap.Int("products", len(ids)),
			zap.Error(err),
		)
		return nil, errSkipCache
	}

	insights := insight.Correlate(rows, levels, s.config.Thresholds)
	log.Info("Insight analysis completed",
		zap.Int("products", len(ids)),
		zap.Int("insights", len(insights)),
	)
	return insights, nil
}
