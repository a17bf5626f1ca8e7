package cache

import (
	"context"
	"fmt"

	"github.com/storepulse/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// StoreFactory picks the result store based on configuration
type StoreFactory struct {
	redisConfig           config.RedisConfig
	redisEnabled          bool
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to the in-memory store.
// Default is true.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a new factory. With redisEnabled false it always builds the in-memory store.
func NewStoreFactory(cfg config.RedisConfig, redisEnabled bool, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		redisConfig:           cfg,
		redisEnabled:          redisEnabled,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore tries Redis first when enabled and falls back to memory if allowed.
func (f *StoreFactory) CreateStore(ctx context.Context) (Store, error) {
	if !f.redisEnabled {
		f.logger.Info("using in-memory result cache")
		return NewInMemoryStore(), nil
	}

	store, err := NewRedisStore(ctx, f.redisConfig)
	if err == nil {
		f.logger.Info("using Redis result cache", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis result cache unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory result cache. "+
		"Cached results will not be shared between instances.",
		zap.Error(err),
	)
	return NewInMemoryStore(), nil
}
