package testutil

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/storepulse/backend/internal/domain/insight"
	"github.com/storepulse/backend/internal/domain/integration"
	"github.com/storepulse/backend/internal/domain/merchant"
)

// MockCommercePlatform is a testify mock of integration.CommercePlatform
type MockCommercePlatform struct {
	mock.Mock
}

var _ integration.CommercePlatform = (*MockCommercePlatform)(nil)

func (m *MockCommercePlatform) ShopSummary(ctx context.Context, conn *merchant.CommerceConnection) (*integration.ShopSummary, error) {
	args := m.Called(ctx, conn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.ShopSummary), args.Error(1)
}

func (m *MockCommercePlatform) PaidSalesTotal(ctx context.Context, conn *merchant.CommerceConnection, start, end time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, conn, start, end)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockCommercePlatform) OrderCount(ctx context.Context, conn *merchant.CommerceConnection, q integration.OrderQuery) (int64, error) {
	args := m.Called(ctx, conn, q)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCommercePlatform) SalesTrend(ctx context.Context, conn *merchant.CommerceConnection, start, end time.Time) ([]integration.DailySales, error) {
	args := m.Called(ctx, conn, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.DailySales), args.Error(1)
}

func (m *MockCommercePlatform) ListOrders(ctx context.Context, conn *merchant.CommerceConnection, q integration.OrderQuery, cursor string, pageSize int) (*integration.OrderPage, error) {
	args := m.Called(ctx, conn, q, cursor, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.OrderPage), args.Error(1)
}

func (m *MockCommercePlatform) InventoryLevels(ctx context.Context, conn *merchant.CommerceConnection, productIDs []string) (insight.InventoryLevels, error) {
	args := m.Called(ctx, conn, productIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(insight.InventoryLevels), args.Error(1)
}

// MockTrafficPlatform is a testify mock of integration.TrafficPlatform
type MockTrafficPlatform struct {
	mock.Mock
}

var _ integration.TrafficPlatform = (*MockTrafficPlatform)(nil)

func (m *MockTrafficPlatform) BasicMetrics(ctx context.Context, conn *merchant.TrafficConnection, start, end time.Time) (*integration.TrafficTotals, error) {
	args := m.Called(ctx, conn, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.TrafficTotals), args.Error(1)
}

func (m *MockTrafficPlatform) SessionsByChannel(ctx context.Context, conn *merchant.TrafficConnection, start, end time.Time) ([]integration.ChannelSessions, error) {
	args := m.Called(ctx, conn, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.ChannelSessions), args.Error(1)
}

func (m *MockTrafficPlatform) TopProducts(ctx context.Context, conn *merchant.TrafficConnection, start, end time.Time, limit int) ([]insight.TrafficRow, error) {
	args := m.Called(ctx, conn, start, end, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]insight.TrafficRow), args.Error(1)
}

func (m *MockTrafficPlatform) MultipleReports(ctx context.Context, conn *merchant.TrafficConnection, start, end time.Time, defs map[string]integration.ReportDefinition) (map[string][]integration.ReportRow, error) {
	args := m.Called(ctx, conn, start, end, defs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]integration.ReportRow), args.Error(1)
}
