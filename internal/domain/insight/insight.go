// Package insight joins per-product traffic with inventory levels and classifies products.
package insight

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ErrInvalidThresholds is returned by Thresholds.Validate.
var ErrInvalidThresholds = errors.New("insight: invalid thresholds")

// Status is the classification attached to a product.
type Status string

const (
	// StatusStockoutRisk marks low stock with high interest.
	StatusStockoutRisk Status = "stockout_risk"
	// StatusPromotionCandidate marks high stock with low interest.
	StatusPromotionCandidate Status = "promotion_candidate"
)

// IsValid returns true if the status is known
func (s Status) IsValid() bool {
	return s == StatusStockoutRisk || s == StatusPromotionCandidate
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// TrafficRow is one product line of the analytics "top viewed products" report.
type TrafficRow struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Views       int64  `json:"views"`
}

// InventoryLevels maps product id to total stock. A missing key means the product
// is not in the catalog, which is different from a present zero.
type InventoryLevels map[string]int64

// Lookup returns the stock of a product and whether the catalog knows it
func (l InventoryLevels) Lookup(productID string) (int64, bool) {
	v, ok := l[productID]
	return v, ok
}

// Insight is a derived classification of one product.
type Insight struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Status      Status `json:"status"`
	Stock       int64  `json:"stock"`
	Views       int64  `json:"views"`
	Message     string `json:"message"`
}

// Thresholds are the inclusive bounds used by Correlate.
type Thresholds struct {
	LowStock    int64
	HighStock   int64
	HighTraffic int64
	LowTraffic  int64
}

// DefaultThresholds returns the stock/traffic bounds used when nothing is configured
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowStock:    10,
		HighStock:   100,
		HighTraffic: 50,
		LowTraffic:  5,
	}
}

// Validate checks that the two rules cannot both match the same product.
func (t Thresholds) Validate() error {
	if t.LowStock < 0 || t.LowTraffic < 0 {
		return fmt.Errorf("%w: thresholds must not be negative", ErrInvalidThresholds)
	}
	if t.LowStock >= t.HighStock {
		return fmt.Errorf("%w: low_stock (%d) must be below high_stock (%d)", ErrInvalidThresholds, t.LowStock, t.HighStock)
	}
	if t.LowTraffic >= t.HighTraffic {
		return fmt.Errorf("%w: low_traffic (%d) must be below high_traffic (%d)", ErrInvalidThresholds, t.LowTraffic, t.HighTraffic)
	}
	return nil
}

// Classify returns the status for one product, or false when no rule matches.
func (t Thresholds) Classify(stock, views int64) (Status, bool) {
	switch {
	case stock <= t.LowStock && views >= t.HighTraffic:
		return StatusStockoutRisk, true
	case stock >= t.HighStock && views <= t.LowTraffic:
		return StatusPromotionCandidate, true
	}
	return "", false
}

// DistinctProductIDs returns the non-empty product ids of rows in first-seen order.
func DistinctProductIDs(rows []TrafficRow) []string {
	seen := make(map[string]struct{}, len(rows))
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.ProductID == "" {
			continue
		}
		if _, ok := seen[r.ProductID]; ok {
			continue
		}
		seen[r.ProductID] = struct{}{}
		ids = append(ids, r.ProductID)
	}
	return ids
}

// Correlate walks rows in order and emits at most one insight per product.
// Duplicate ids and products missing from inventory are skipped. The result
// keeps the traffic rank order and is never nil.
func Correlate(rows []TrafficRow, inventory InventoryLevels, t Thresholds) []Insight {
	p := message.NewPrinter(language.English)
	processed := make(map[string]struct{}, len(rows))
	insights := make([]Insight, 0)

	for _, row := range rows {
		if row.ProductID == "" {
			continue
		}
		if _, dup := processed[row.ProductID]; dup {
			continue
		}
		processed[row.ProductID] = struct{}{}

		stock, ok := inventory.Lookup(row.ProductID)
		if !ok {
			continue
		}

		status, ok := t.Classify(stock, row.Views)
		if !ok {
			continue
		}

		insights = append(insights, Insight{
			ProductID:   row.ProductID,
			ProductName: row.ProductName,
			Status:      status,
			Stock:       stock,
			Views:       row.Views,
			Message:     describe(p, status, stock, row.Views),
		})
	}
	return insights
}

func describe(p *message.Printer, status Status, stock, views int64) string {
	switch status {
	case StatusStockoutRisk:
		return p.Sprintf("Low stock (%d) with high interest (%d views).", stock, views)
	case StatusPromotionCandidate:
		return p.Sprintf("High stock (%d) with low interest (%d views).", stock, views)
	}
	return ""
}
