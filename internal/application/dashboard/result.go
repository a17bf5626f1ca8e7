package dashboard

import (
	"github.com/shopspring/decimal"
	"github.com/storepulse/backend/internal/domain/insight"
	"github.com/storepulse/backend/internal/domain/integration"
	"github.com/storepulse/backend/internal/domain/merchant"
	"github.com/storepulse/backend/internal/domain/period"
)

// ConnectionFlags tells the client which providers are usable
type ConnectionFlags struct {
	CommerceConnected  bool `json:"commerce_connected"`
	TrafficConnected   bool `json:"traffic_connected"`
	PropertyConfigured bool `json:"property_configured"`
}

// CommerceMetrics are the storefront numbers of a period. A nil field means the
// provider did not deliver it.
type CommerceMetrics struct {
	ShopName          string                   `json:"shop_name,omitempty"`
	Currency          string                   `json:"currency,omitempty"`
	TotalOrders       *int64                   `json:"total_orders,omitempty"`
	PaidOrders        *int64                   `json:"paid_orders,omitempty"`
	PaidSales         *decimal.Decimal         `json:"paid_sales,omitempty"`
	AverageOrderValue *decimal.Decimal         `json:"average_order_value,omitempty"`
	SalesTrend        []integration.DailySales `json:"sales_trend,omitempty"`
}

// TrafficMetrics are the analytics numbers of a period
type TrafficMetrics struct {
	Sessions       *int64                        `json:"sessions,omitempty"`
	ActiveUsers    *int64                        `json:"active_users,omitempty"`
	TrafficSources []integration.ChannelSessions `json:"traffic_sources,omitempty"`
}

// CalculatedMetrics combine commerce and traffic numbers
type CalculatedMetrics struct {
	// ConversionRate is total orders per 100 sessions
	ConversionRate *float64 `json:"conversion_rate,omitempty"`
}

// PeriodInfo echoes the resolved period
type PeriodInfo struct {
	Label     string `json:"label"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Result is the dashboard payload. Sections are values so they serialise as {} when empty.
type Result struct {
	Connections       ConnectionFlags   `json:"connections"`
	CommerceMetrics   CommerceMetrics   `json:"commerce_metrics"`
	TrafficMetrics    TrafficMetrics    `json:"traffic_metrics"`
	CalculatedMetrics CalculatedMetrics `json:"calculated_metrics"`
	Insights          []insight.Insight `json:"insights"`
	Period            PeriodInfo        `json:"period"`
	Error             string            `json:"error,omitempty"`
}

func newResult(spec period.Spec, conns merchant.Connections) *Result {
	return &Result{
		Connections: ConnectionFlags{
			CommerceConnected:  conns.CommerceConnected(),
			TrafficConnected:   conns.TrafficConnected(),
			PropertyConfigured: conns.TrafficReady(),
		},
		Insights: []insight.Insight{},
		Period: PeriodInfo{
			Label:     spec.Label,
			StartDate: spec.StartDate(),
			EndDate:   spec.EndDate(),
		},
	}
}

// failed returns the result reported when the build could not complete: connection flags
// and period only, every section empty.
func failed(spec period.Spec, conns merchant.Connections, message string) *Result {
	r := newResult(spec, conns)
	r.Error = message
	return r
}
