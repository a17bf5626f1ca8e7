package ecommerce

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Shopify Admin REST response types
// ---------------------------------------------------------------------------

// ShopifyShopResponse is the response of GET shop.json
type ShopifyShopResponse struct {
	Shop *ShopifyShop `json:"shop"`
}

// ShopifyShop is the subset of shop fields StorePulse reads
type ShopifyShop struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Domain   string `json:"domain"`
	Email    string `json:"email"`
	Currency string `json:"currency"`
	// IANATimezone is e.g. "America/New_York"
	IANATimezone string `json:"iana_timezone"`
}

// ShopifyCountResponse is the response of GET orders/count.json
type ShopifyCountResponse struct {
	Count *int64 `json:"count"`
}

// ShopifyOrdersResponse is the response of GET orders.json
type ShopifyOrdersResponse struct {
	Orders []ShopifyOrder `json:"orders"`
}

// ShopifyOrder is an order as returned by orders.json. Which fields are set depends on
// the fields parameter of the request.
type ShopifyOrder struct {
	ID                int64        `json:"id"`
	Name              string       `json:"name"`
	CreatedAt         string       `json:"created_at"`
	TotalPrice        NumericValue `json:"total_price"`
	Currency          string       `json:"currency"`
	FinancialStatus   string       `json:"financial_status"`
	FulfillmentStatus *string      `json:"fulfillment_status"`
}

// ShopifyProductsResponse is the response of GET products.json
type ShopifyProductsResponse struct {
	Products []ShopifyProduct `json:"products"`
}

// ShopifyProduct is a product with its variants
type ShopifyProduct struct {
	ID       int64            `json:"id"`
	Title    string           `json:"title"`
	Variants []ShopifyVariant `json:"variants"`
}

// ShopifyVariant carries the stock of one product variant
type ShopifyVariant struct {
	ID                int64        `json:"id"`
	InventoryQuantity NumericValue `json:"inventory_quantity"`
}

// NumericValue holds a JSON value that is expected to be numeric. Shopify encodes money
// as strings and counts as numbers; both forms are accepted. Anything else, including
// null, decodes to an invalid value instead of failing the whole response.
type NumericValue struct {
	raw   string
	valid bool
}

// UnmarshalJSON implements json.Unmarshaler
func (n *NumericValue) UnmarshalJSON(data []byte) error {
	*n = NumericValue{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
	}
	if _, err := decimal.NewFromString(s); err != nil {
		return nil
	}
	n.raw, n.valid = s, true
	return nil
}

// MarshalJSON implements json.Marshaler
func (n NumericValue) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.raw)
}

// Valid reports whether the value was numeric
func (n NumericValue) Valid() bool {
	return n.valid
}

// Decimal returns the value, or zero when it is not numeric
func (n NumericValue) Decimal() decimal.Decimal {
	if !n.valid {
		return decimal.Zero
	}
	return ParseDecimal(n.raw)
}

// Int64 returns the integer part of the value, or zero when it is not numeric
func (n NumericValue) Int64() int64 {
	if !n.valid {
		return 0
	}
	if v, err := strconv.ParseInt(n.raw, 10, 64); err == nil {
		return v
	}
	return ParseDecimal(n.raw).IntPart()
}

// ParseDecimal parses a decimal string and returns zero for empty or invalid input
func ParseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseShopifyTime parses the RFC 3339 timestamps Shopify returns
func parseShopifyTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
