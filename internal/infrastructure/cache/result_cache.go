package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storepulse/backend/internal/infrastructure/logger"
	"github.com/storepulse/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Kind names a family of cached results.
type Kind string

const (
	KindDashboard Kind = "dashboard"
	KindInsights  Kind = "insights"
)

// Kinds returns every result family
func Kinds() []Kind {
	return []Kind{KindDashboard, KindInsights}
}

// Key identifies one cached result.
type Key struct {
	Kind       Kind
	MerchantID uuid.UUID
	// Period is the period id, or start_end dates for insights.
	Period string
}

// ResultCache is a cache-aside layer over a Store. Values are JSON encoded.
type ResultCache struct {
	store   Store
	prefix  string
	metrics *telemetry.Metrics
	group   singleflight.Group
}

// NewResultCache creates a result cache. A nil metrics disables instrumentation.
func NewResultCache(store Store, prefix string, metrics *telemetry.Metrics) *ResultCache {
	if prefix == "" {
		prefix = "storepulse"
	}
	return &ResultCache{store: store, prefix: prefix, metrics: metrics}
}

// Format renders a key as {prefix}:{kind}:{merchant}:{period}
func (c *ResultCache) Format(k Key) string {
	return fmt.Sprintf("%s:%s:%s:%s", c.prefix, k.Kind, k.MerchantID, k.Period)
}

func (c *ResultCache) merchantPrefix(kind Kind, merchantID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s:", c.prefix, kind, merchantID)
}

// InvalidateMerchant drops every cached result of a merchant.
func (c *ResultCache) InvalidateMerchant(ctx context.Context, merchantID uuid.UUID) error {
	var errs []error
	total := 0
	for _, kind := range Kinds() {
		n, err := c.store.DeletePrefix(ctx, c.merchantPrefix(kind, merchantID))
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	logger.L(ctx).Debug("Invalidated cached results",
		zap.String("merchant_id", merchantID.String()),
		zap.Int("deleted", total),
	)
	return errors.Join(errs...)
}

// GetOrCompute returns the cached value for key, or calls fn and stores its result for ttl.
// An error from fn is returned and nothing is stored. Concurrent misses for the same key
// share one call to fn, which runs detached from the cancellation of the caller that started it. Store failures are logged and the value is computed uncached.
func GetOrCompute[T any](ctx context.Context, c *ResultCache, key Key, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	formatted := c.Format(key)
	ctx, span := telemetry.StartSpan(ctx, "cache.get_or_compute",
		telemetry.WithAttribute(telemetry.SpanAttrCacheKey, formatted))
	defer span.End()

	if v, ok := lookup[T](ctx, c, key.Kind, formatted); ok {
		telemetry.SetAttributes(span, telemetry.SpanAttrCacheHit, true)
		return v, nil
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrCacheHit, false)

	// The shared call outlives the caller that started it; fn bounds its own fetches.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(formatted, func() (any, error) {
		v, err := fn(shared)
		if err != nil {
			return v, err
		}
		c.put(shared, formatted, v, ttl)
		return v, nil
	})

	select {
	case res := <-ch:
		v, _ := res.Val.(T)
		if res.Err != nil {
			telemetry.RecordError(span, res.Err)
		}
		return v, res.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func lookup[T any](ctx context.Context, c *ResultCache, kind Kind, key string) (T, bool) {
	var zero T
	raw, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, ErrCacheMiss):
		c.metrics.RecordCacheLookup(ctx, string(kind), "miss")
		return zero, false
	case err != nil:
		c.metrics.RecordCacheLookup(ctx, string(kind), "error")
		logger.L(ctx).Warn("Result cache read failed", zap.String("key", key), zap.Error(err))
		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		c.metrics.RecordCacheLookup(ctx, string(kind), "error")
		logger.L(ctx).Warn("Cached result could not be decoded", zap.String("key", key), zap.Error(err))
		return zero, false
	}
	c.metrics.RecordCacheLookup(ctx, string(kind), "hit")
	return v, true
}

func (c *ResultCache) put(ctx context.Context, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		logger.L(ctx).Warn("Result could not be encoded for caching", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, raw, ttl); err != nil {
		logger.L(ctx).Warn("Result cache write failed", zap.String("key", key), zap.Error(err))
	}
}
