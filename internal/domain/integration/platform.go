package integration

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storepulse/backend/internal/domain/insight"
	"github.com/storepulse/backend/internal/domain/merchant"
)

// ---------------------------------------------------------------------------
// Commerce Platform
// ---------------------------------------------------------------------------

// ShopSummary is the storefront metadata.
type ShopSummary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Domain   string `json:"domain"`
	Email    string `json:"email,omitempty"`
	Currency string `json:"currency,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// DailySales is the paid sales total for one calendar day.
type DailySales struct {
	Date  string          `json:"date"`
	Sales decimal.Decimal `json:"sales"`
}

// OrderStatus filters orders by lifecycle state.
type OrderStatus string

const (
	OrderStatusAny       OrderStatus = "any"
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusClosed    OrderStatus = "closed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsValid returns true if the status is a known filter
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusAny, OrderStatusOpen, OrderStatusClosed, OrderStatusCancelled:
		return true
	}
	return false
}

// FinancialStatus filters orders by payment state. Empty means no filter.
type FinancialStatus string

const (
	FinancialStatusAny      FinancialStatus = ""
	FinancialStatusPaid     FinancialStatus = "paid"
	FinancialStatusPending  FinancialStatus = "pending"
	FinancialStatusRefunded FinancialStatus = "refunded"
)

// OrderQuery selects orders created within [Start, End].
type OrderQuery struct {
	Start           time.Time
	End             time.Time
	Status          OrderStatus
	FinancialStatus FinancialStatus
}

// Order is the subset of order fields StorePulse reads.
type Order struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	CreatedAt         time.Time       `json:"created_at"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	Currency          string          `json:"currency"`
	FinancialStatus   string          `json:"financial_status"`
	FulfillmentStatus string          `json:"fulfillment_status,omitempty"`
}

// OrderPage is one page of an order listing. NextCursor is empty on the last page.
type OrderPage struct {
	Orders     []Order `json:"orders"`
	NextCursor string  `json:"next_page_info,omitempty"`
}

// CommercePlatform is the port for the storefront provider.
// Every method returns an error wrapping one of the sentinels in errors.go.
type CommercePlatform interface {
	ShopSummary(ctx context.Context, conn *merchant.CommerceConnection) (*ShopSummary, error)
	// PaidSalesTotal sums total_price over all paid orders in the range.
	PaidSalesTotal(ctx context.Context, conn *merchant.CommerceConnection, start, end time.Time) (decimal.Decimal, error)
	OrderCount(ctx context.Context, conn *merchant.CommerceConnection, q OrderQuery) (int64, error)
	// SalesTrend returns one zero-filled entry per calendar day of the range.
	SalesTrend(ctx context.Context, conn *merchant.CommerceConnection, start, end time.Time) ([]DailySales, error)
	// ListOrders returns one page. An empty cursor starts from the first page.
	ListOrders(ctx context.Context, conn *merchant.CommerceConnection, q OrderQuery, cursor string, pageSize int) (*OrderPage, error)
	// InventoryLevels fails as a whole if any batch fails; it never returns partial levels.
	InventoryLevels(ctx context.Context, conn *merchant.CommerceConnection, productIDs []string) (insight.InventoryLevels, error)
}

// ---------------------------------------------------------------------------
// Traffic Platform
// ---------------------------------------------------------------------------

// TrafficTotals holds the headline traffic numbers of a period.
type TrafficTotals struct {
	Sessions    int64 `json:"sessions"`
	ActiveUsers int64 `json:"active_users"`
}

// ChannelSessions is the session count of one acquisition channel.
type ChannelSessions struct {
	Channel  string `json:"channel"`
	Sessions int64  `json:"sessions"`
}

// ReportDefinition describes one report of a batched request.
type ReportDefinition struct {
	Metrics    []string
	Dimensions []string
	// OrderBy names a metric to sort by. Empty means provider order.
	OrderBy string
	// Ascending flips the default descending sort.
	Ascending bool
	// Limit caps the row count; zero uses the adapter default.
	Limit int
}

// ReportRow is a raw report row of dimension and metric values.
type ReportRow struct {
	Dimensions []string `json:"dimensions"`
	Metrics    []string `json:"metrics"`
}

// TrafficPlatform is the port for the analytics provider.
// Calls against a connection without a property id fail with ErrPreconditionUnmet.
type TrafficPlatform interface {
	BasicMetrics(ctx context.Context, conn *merchant.TrafficConnection, start, end time.Time) (*TrafficTotals, error)
	// SessionsByChannel is ordered by sessions, descending.
	SessionsByChannel(ctx context.Context, conn *merchant.TrafficConnection, start, end time.Time) ([]ChannelSessions, error)
	// TopProducts is ordered by views, descending, and holds at most limit rows.
	TopProducts(ctx context.Context, conn *merchant.TrafficConnection, start, end time.Time, limit int) ([]insight.TrafficRow, error)
	// MultipleReports runs all definitions in one batched call, keyed by definition name.
	MultipleReports(ctx context.Context, conn *merchant.TrafficConnection, start, end time.Time, defs map[string]ReportDefinition) (map[string][]ReportRow, error)
}
