package ecommerce

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storepulse/backend/internal/domain/insight"
	"github.com/storepulse/backend/internal/domain/integration"
	"github.com/storepulse/backend/internal/domain/merchant"
	"github.com/storepulse/backend/internal/domain/period"
	"github.com/storepulse/backend/internal/infrastructure/logger"
	"github.com/storepulse/backend/internal/infrastructure/oauth"
	"github.com/storepulse/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ShopifyProviderName identifies the commerce provider in logs, spans and metrics
const ShopifyProviderName = "shopify"

// DefaultOrderPageSize is used by ListOrders when no page size is given
const DefaultOrderPageSize = 50

// ShopifyAdapter implements integration.CommercePlatform against the Shopify Admin REST API.
type ShopifyAdapter struct {
	config     *ShopifyConfig
	httpClient *http.Client
	secrets    merchant.SecretReader
	metrics    *telemetry.Metrics
	limiters   *shopLimiters
	sleep      func(ctx context.Context, d time.Duration) error
}

var _ integration.CommercePlatform = (*ShopifyAdapter)(nil)

// ShopifyOption configures a ShopifyAdapter
type ShopifyOption func(*ShopifyAdapter)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) ShopifyOption {
	return func(a *ShopifyAdapter) {
		a.httpClient = client
	}
}

// WithMetrics records provider calls on m
func WithMetrics(m *telemetry.Metrics) ShopifyOption {
	return func(a *ShopifyAdapter) {
		a.metrics = m
	}
}

// NewShopifyAdapter creates a new Shopify adapter. Access tokens are opened with secrets.
func NewShopifyAdapter(config *ShopifyConfig, secrets merchant.SecretReader, opts ...ShopifyOption) (*ShopifyAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	a := &ShopifyAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
		secrets:  secrets,
		limiters: newShopLimiters(config.RequestsPerSecond),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// call runs fn with a requester for the connection's shop through the retry executor,
// and records the outcome.
func call[T any](ctx context.Context, a *ShopifyAdapter, conn *merchant.CommerceConnection, operation string, fn func(context.Context, *shopifyRequester) (T, error)) (T, error) {
	var zero T
	if conn == nil {
		return zero, fmt.Errorf("%w: no commerce connection", integration.ErrPreconditionUnmet)
	}

	ctx, span := telemetry.StartProviderSpan(ctx, ShopifyProviderName, operation,
		telemetry.WithAttribute(telemetry.SpanAttrMerchantID, conn.MerchantID.String()))
	defer span.End()

	token, _ := a.secrets.ReadPlain(ctx, conn.AccessToken)
	provider := oauth.NewStaticToken(ShopifyProviderName, token)

	start := time.Now()
	v, err := oauth.Execute(ctx, provider, conn.MerchantID, func(ctx context.Context, token merchant.Secret) (T, error) {
		return fn(ctx, &shopifyRequester{
			adapter: a,
			shop:    conn.ShopDomain,
			base:    a.config.APIBase(conn.ShopDomain),
			token:   token,
		})
	})

	kind := integration.KindOf(err)
	a.metrics.RecordProviderCall(ctx, ShopifyProviderName, operation, kind.String(), time.Since(start))
	fields := append(logger.ProviderCall(conn.MerchantID.String(), operation, kind.String()),
		zap.String("shop_domain", conn.ShopDomain),
		zap.Duration("duration", time.Since(start)),
	)
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.SetAttributes(span, telemetry.SpanAttrFailureKind, kind.String())
		logger.L(ctx).Warn("Shopify call failed", append(fields, zap.Error(err))...)
		return zero, err
	}
	logger.L(ctx).Info("Shopify call completed", fields...)
	return v, nil
}

// ---------------------------------------------------------------------------
// Shop
// ---------------------------------------------------------------------------

// ShopSummary returns the storefront metadata
func (a *ShopifyAdapter) ShopSummary(ctx context.Context, conn *merchant.CommerceConnection) (*integration.ShopSummary, error) {
	return call(ctx, a, conn, "shop_summary", func(ctx context.Context, r *shopifyRequester) (*integration.ShopSummary, error) {
		var resp ShopifyShopResponse
		if _, err := r.getJSON(ctx, "shop.json", nil, &resp); err != nil {
			return nil, err
		}
		if resp.Shop == nil {
			return nil, fmt.Errorf("%w: shop.json without shop object", integration.ErrMalformedResponse)
		}
		return &integration.ShopSummary{
			ID:       resp.Shop.ID,
			Name:     resp.Shop.Name,
			Domain:   resp.Shop.Domain,
			Email:    resp.Shop.Email,
			Currency: resp.Shop.Currency,
			Timezone: resp.Shop.IANATimezone,
		}, nil
	})
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// PaidSalesTotal sums total_price over every paid order created in the range
func (a *ShopifyAdapter) PaidSalesTotal(ctx context.Context, conn *merchant.CommerceConnection, start, end time.Time) (decimal.Decimal, error) {
	return call(ctx, a, conn, "paid_sales_total", func(ctx context.Context, r *shopifyRequester) (decimal.Decimal, error) {
		total := decimal.Zero
		err := r.eachOrderPage(ctx, paidOrdersQuery(start, end, "total_price"), func(orders []ShopifyOrder) {
			for _, o := range orders {
				if o.TotalPrice.Valid() {
					total = total.Add(o.TotalPrice.Decimal())
				}
			}
		})
		if err != nil {
			return decimal.Zero, err
		}
		return total, nil
	})
}

// OrderCount counts orders created in the range matching the status filters
func (a *ShopifyAdapter) OrderCount(ctx context.Context, conn *merchant.CommerceConnection, q integration.OrderQuery) (int64, error) {
	return call(ctx, a, conn, "order_count", func(ctx context.Context, r *shopifyRequester) (int64, error) {
		var resp ShopifyCountResponse
		if _, err := r.getJSON(ctx, "orders/count.json", orderFilter(q), &resp); err != nil {
			return 0, err
		}
		if resp.Count == nil {
			return 0, fmt.Errorf("%w: orders/count.json without count", integration.ErrMalformedResponse)
		}
		return *resp.Count, nil
	})
}

// SalesTrend returns paid sales per calendar day of the range, zero-filled and ordered by date.
// Days are taken in the location of start.
func (a *ShopifyAdapter) SalesTrend(ctx context.Context, conn *merchant.CommerceConnection, start, end time.Time) ([]integration.DailySales, error) {
	return call(ctx, a, conn, "sales_trend", func(ctx context.Context, r *shopifyRequester) ([]integration.DailySales, error) {
		days := period.DaysBetween(start, end)
		trend := make([]integration.DailySales, len(days))
		index := make(map[string]int, len(days))
		for i, d := range days {
			date := d.Format(period.DateLayout)
			trend[i] = integration.DailySales{Date: date, Sales: decimal.Zero}
			index[date] = i
		}

		loc := start.Location()
		err := r.eachOrderPage(ctx, paidOrdersQuery(start, end, "created_at,total_price"), func(orders []ShopifyOrder) {
			for _, o := range orders {
				created, ok := parseShopifyTime(o.CreatedAt)
				if !ok || !o.TotalPrice.Valid() {
					continue
				}
				if i, ok := index[created.In(loc).Format(period.DateLayout)]; ok {
					trend[i].Sales = trend[i].Sales.Add(o.TotalPrice.Decimal())
				}
			}
		})
		if err != nil {
			return nil, err
		}
		return trend, nil
	})
}

// ListOrders returns one page of orders. The cursor is the page_info of a previous page.
func (a *ShopifyAdapter) ListOrders(ctx context.Context, conn *merchant.CommerceConnection, q integration.OrderQuery, cursor string, pageSize int) (*integration.OrderPage, error) {
	if pageSize <= 0 {
		pageSize = DefaultOrderPageSize
	}
	if pageSize > ShopifyMaxPageSize {
		pageSize = ShopifyMaxPageSize
	}

	return call(ctx, a, conn, "list_orders", func(ctx context.Context, r *shopifyRequester) (*integration.OrderPage, error) {
		query := url.Values{}
		if cursor == "" {
			query = orderFilter(q)
		} else {
			// Shopify rejects filters alongside page_info
			query.Set("page_info", cursor)
		}
		query.Set("limit", strconv.Itoa(pageSize))
		query.Set("fields", "id,name,created_at,total_price,currency,financial_status,fulfillment_status")

		var resp ShopifyOrdersResponse
		header, err := r.getJSON(ctx, "orders.json", query, &resp)
		if err != nil {
			return nil, err
		}

		page := &integration.OrderPage{
			Orders:     make([]integration.Order, 0, len(resp.Orders)),
			NextCursor: nextPageInfo(header),
		}
		for _, o := range resp.Orders {
			page.Orders = append(page.Orders, convertShopifyOrder(o))
		}
		return page, nil
	})
}

// eachOrderPage walks every page of orders.json, following the Link header.
func (r *shopifyRequester) eachOrderPage(ctx context.Context, first url.Values, fn func([]ShopifyOrder)) error {
	query := first
	pages := 0
	for {
		var resp ShopifyOrdersResponse
		header, err := r.getJSON(ctx, "orders.json", query, &resp)
		if err != nil {
			return err
		}
		fn(resp.Orders)
		pages++

		next := nextPageInfo(header)
		if next == "" {
			logger.L(ctx).Debug("Shopify order pages fetched", zap.String("shop_domain", r.shop), zap.Int("pages", pages))
			return nil
		}
		query = url.Values{
			"page_info": {next},
			"limit":     {first.Get("limit")},
			"fields":    {first.Get("fields")},
		}
	}
}

func paidOrdersQuery(start, end time.Time, fields string) url.Values {
	query := orderFilter(integration.OrderQuery{
		Start:           start,
		End:             end,
		Status:          integration.OrderStatusAny,
		FinancialStatus: integration.FinancialStatusPaid,
	})
	query.Set("limit", strconv.Itoa(ShopifyMaxPageSize))
	query.Set("fields", fields)
	return query
}

// orderFilter renders the status and date filters shared by orders.json and orders/count.json
func orderFilter(q integration.OrderQuery) url.Values {
	status := q.Status
	if status == "" {
		status = integration.OrderStatusAny
	}
	query := url.Values{}
	query.Set("status", string(status))
	if q.FinancialStatus != integration.FinancialStatusAny {
		query.Set("financial_status", string(q.FinancialStatus))
	}
	if !q.Start.IsZero() {
		query.Set("created_at_min", q.Start.Format(time.RFC3339))
	}
	if !q.End.IsZero() {
		query.Set("created_at_max", q.End.Format(time.RFC3339))
	}
	return query
}

func convertShopifyOrder(o ShopifyOrder) integration.Order {
	order := integration.Order{
		ID:              o.ID,
		Name:            o.Name,
		TotalPrice:      o.TotalPrice.Decimal(),
		Currency:        o.Currency,
		FinancialStatus: o.FinancialStatus,
	}
	if t, ok := parseShopifyTime(o.CreatedAt); ok {
		order.CreatedAt = t
	}
	if o.FulfillmentStatus != nil {
		order.FulfillmentStatus = *o.FulfillmentStatus
	}
	return order
}

// ---------------------------------------------------------------------------
// Inventory
// ---------------------------------------------------------------------------

// InventoryLevels sums variant stock per product. Non-numeric ids are ignored. Ids are
// requested in chunks of ShopifyMaxPageSize and any failing chunk fails the whole call.
func (a *ShopifyAdapter) InventoryLevels(ctx context.Context, conn *merchant.CommerceConnection, productIDs []string) (insight.InventoryLevels, error) {
	ids := numericIDs(productIDs)
	if len(ids) == 0 {
		return insight.InventoryLevels{}, nil
	}

	return call(ctx, a, conn, "inventory_levels", func(ctx context.Context, r *shopifyRequester) (insight.InventoryLevels, error) {
		levels := make(insight.InventoryLevels, len(ids))
		for _, chunk := range chunkStrings(ids, ShopifyMaxPageSize) {
			query := url.Values{}
			query.Set("ids", strings.Join(chunk, ","))
			query.Set("fields", "id,title,variants")
			query.Set("limit", strconv.Itoa(ShopifyMaxPageSize))

			var resp ShopifyProductsResponse
			if _, err := r.getJSON(ctx, "products.json", query, &resp); err != nil {
				return nil, err
			}
			for _, p := range resp.Products {
				if p.ID == 0 {
					continue
				}
				var stock int64
				for _, v := range p.Variants {
					if v.InventoryQuantity.Valid() {
						stock += v.InventoryQuantity.Int64()
					}
				}
				levels[strconv.FormatInt(p.ID, 10)] = stock
			}
		}
		return levels, nil
	})
}

// numericIDs keeps the ids in canonical positive integer form, without duplicates.
// Levels are keyed by the formatted product id, so "0123" or " 42" could never match.
func numericIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil || n <= 0 || strconv.FormatInt(n, 10) != id {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func chunkStrings(items []string, size int) [][]string {
	var chunks [][]string
	for len(items) > size {
		chunks = append(chunks, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		chunks = append(chunks, items)
	}
	return chunks
}
