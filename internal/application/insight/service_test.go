package insight

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storepulse/backend/internal/domain/insight"
	"github.com/storepulse/backend/internal/domain/integration"
	"github.com/storepulse/backend/internal/domain/merchant"
	"github.com/storepulse/backend/internal/domain/period"
	"github.com/storepulse/backend/internal/infrastructure/cache"
	"github.com/storepulse/backend/tests/testutil"
)

type fixture struct {
	creds    *testutil.MemoryCredentials
	commerce *testutil.MockCommercePlatform
	traffic  *testutil.MockTrafficPlatform
	store    *cache.InMemoryStore
	service  *Service
	merchant uuid.UUID
	spec     period.Spec
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		creds:    testutil.NewMemoryCredentials(),
		commerce: &testutil.MockCommercePlatform{},
		traffic:  &testutil.MockTrafficPlatform{},
		store:    cache.NewInMemoryStore(),
		merchant: uuid.New(),
	}
	var err error
	f.service, err = NewService(f.creds, f.commerce, f.traffic, cache.NewResultCache(f.store, "test", nil), Config{})
	require.NoError(t, err)

	f.spec, err = period.ParseAndResolve("7d", time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return f
}

func (f *fixture) connectBoth() {
	f.creds.PutCommerce(f.merchant, "demo.myshopify.com", "shpat")
	f.creds.PutTraffic(merchant.TrafficConnection{MerchantID: f.merchant, PropertyID: "properties/1", AccessToken: merchant.SealedSecret("ya29")})
}

func TestNewService_RejectsOverlappingThresholds(t *testing.T) {
	_, err := NewService(nil, nil, nil, nil, Config{Thresholds: insight.Thresholds{LowStock: 100, HighStock: 10, HighTraffic: 50, LowTraffic: 5}})
	assert.ErrorIs(t, err, insight.ErrInvalidThresholds)
}

func TestService_Analyze(t *testing.T) {
	f := newFixture(t)
	f.connectBoth()

	rows := []insight.TrafficRow{
		{ProductID: "1", ProductName: "Hat", Views: 1200},
		{ProductID: "2", ProductName: "Scarf", Views: 2},
		{ProductID: "1", ProductName: "Hat", Views: 7},
		{ProductID: "3", ProductName: "Ghost", Views: 80},
		{ProductID: "4", ProductName: "Socks", Views: 20},
	}
	f.traffic.On("TopProducts", mock.Anything, mock.Anything, f.spec.Start, f.spec.End, DefaultProductLimit).Return(rows, nil).Once()
	f.commerce.On("InventoryLevels", mock.Anything, mock.Anything, []string{"1", "2", "3", "4"}).
		Return(insight.InventoryLevels{"1": 3, "2": 500, "4": 50}, nil).Once()

	got, err := f.service.Analyze(context.Background(), f.merchant, f.spec)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, insight.StatusStockoutRisk, got[0].Status)
	assert.Equal(t, "1", got[0].ProductID)
	assert.Equal(t, "Low stock (3) with high interest (1,200 views).", got[0].Message)
	assert.Equal(t, insight.StatusPromotionCandidate, got[1].Status)

	// Second call is served from the cache
	again, err := f.service.Analyze(context.Background(), f.merchant, f.spec)
	require.NoError(t, err)
	assert.Equal(t, got, again)
	f.traffic.AssertExpectations(t)
	f.commerce.AssertExpectations(t)
}

func TestService_AnalyzePreconditionsUnmetAreCached(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
	}{
		{name: "nothing connected", setup: func(f *fixture) {}},
		{name: "traffic only", setup: func(f *fixture) {
			f.creds.PutTraffic(merchant.TrafficConnection{MerchantID: f.merchant, PropertyID: "properties/1"})
		}},
		{name: "property missing", setup: func(f *fixture) {
			f.creds.PutCommerce(f.merchant, "demo.myshopify.com", "shpat")
			f.creds.PutTraffic(merchant.TrafficConnection{MerchantID: f.merchant})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			got, err := f.service.Analyze(context.Background(), f.merchant, f.spec)
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Empty(t, got)
			assert.Equal(t, 1, f.store.Size())
			f.traffic.AssertNotCalled(t, "TopProducts", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestService_AnalyzeProviderFailuresAreNotCached(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
	}{
		{name: "top products fail", setup: func(f *fixture) {
			f.traffic.On("TopProducts", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(nil, integration.ErrTransientTransport)
		}},
		{name: "inventory fails", setup: func(f *fixture) {
			f.traffic.On("TopProducts", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return([]insight.TrafficRow{{ProductID: "1", Views: 90}}, nil)
			f.commerce.On("InventoryLevels", mock.Anything, mock.Anything, []string{"1"}).
				Return(nil, integration.ErrRateLimited)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.connectBoth()
			tt.setup(f)

			got, err := f.service.Analyze(context.Background(), f.merchant, f.spec)
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Empty(t, got)
			assert.Zero(t, f.store.Size())
		})
	}
}

func TestService_AnalyzeEmptyTrafficIsCached(t *testing.T) {
	f := newFixture(t)
	f.connectBoth()
	f.traffic.On("TopProducts", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]insight.TrafficRow{}, nil).Once()

	got, err := f.service.Analyze(context.Background(), f.merchant, f.spec)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, f.store.Size())
	f.commerce.AssertNotCalled(t, "InventoryLevels", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_AnalyzeStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.creds.GetErr = errors.New("database is down")

	got, err := f.service.Analyze(context.Background(), f.merchant, f.spec)
	require.Error(t, err)
	assert.NotNil(t, got)
	assert.Zero(t, f.store.Size())
}

func TestCacheKey(t *testing.T) {
	id := uuid.New()
	spec := period.Spec{
		Start: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 2, 28, 23, 59, 59, 0, time.UTC),
	}
	key := CacheKey(id, spec)
	assert.Equal(t, cache.KindInsights, key.Kind)
	assert.Equal(t, "2025-02-01_2025-02-28", key.Period)
}
