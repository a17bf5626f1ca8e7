// Package analytics implements the traffic provider: the Google Analytics 4 Data API
// and the OAuth grants that authorize it.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/storepulse/backend/internal/domain/insight"
	"github.com/storepulse/backend/internal/domain/integration"
	"github.com/storepulse/backend/internal/domain/merchant"
	"github.com/storepulse/backend/internal/domain/period"
	"github.com/storepulse/backend/internal/infrastructure/config"
	"github.com/storepulse/backend/internal/infrastructure/logger"
	"github.com/storepulse/backend/internal/infrastructure/oauth"
	"github.com/storepulse/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const (
	// GA4ProviderName identifies the traffic provider in logs, spans and metrics
	GA4ProviderName = "ga4"
	// DefaultTopProductsLimit is used by TopProducts when no limit is given
	DefaultTopProductsLimit = 50
	// MaxBatchReports is the most reports batchRunReports accepts per call
	MaxBatchReports = 5
	// UnknownProductName replaces empty item names
	UnknownProductName = "Unknown Name"

	maxResponseSize = 10 * 1024 * 1024
)

// GA4Config holds the Data API client settings
type GA4Config struct {
	// APIBaseURL is e.g. https://analyticsdata.googleapis.com
	APIBaseURL      string
	RequestTimeout  time.Duration
	DefaultRowLimit int
}

// GA4ConfigFrom maps the traffic section of the application config
func GA4ConfigFrom(cfg config.TrafficConfig) *GA4Config {
	return &GA4Config{
		APIBaseURL:      cfg.APIBaseURL,
		RequestTimeout:  cfg.RequestTimeout,
		DefaultRowLimit: cfg.DefaultRowLimit,
	}
}

func (c *GA4Config) applyDefaults() {
	if c.APIBaseURL == "" {
		c.APIBaseURL = "https://analyticsdata.googleapis.com"
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.DefaultRowLimit <= 0 {
		c.DefaultRowLimit = 10000
	}
}

// GA4Adapter implements integration.TrafficPlatform. Every call obtains its token
// through oauth.Execute, so an expired or revoked token is refreshed at most once.
type GA4Adapter struct {
	config     *GA4Config
	httpClient *http.Client
	tokens     oauth.TokenProvider
	metrics    *telemetry.Metrics
}

var _ integration.TrafficPlatform = (*GA4Adapter)(nil)

// GA4Option configures a GA4Adapter
type GA4Option func(*GA4Adapter)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) GA4Option {
	return func(a *GA4Adapter) {
		a.httpClient = client
	}
}

// WithMetrics records provider calls on m
func WithMetrics(m *telemetry.Metrics) GA4Option {
	return func(a *GA4Adapter) {
		a.metrics = m
	}
}

// NewGA4Adapter creates a Data API adapter that authenticates with tokens
func NewGA4Adapter(cfg *GA4Config, tokens oauth.TokenProvider, opts ...GA4Option) *GA4Adapter {
	cfg.applyDefaults()
	a := &GA4Adapter{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		tokens:     tokens,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BasicMetrics returns sessions and active users of the range. No rows means zeros.
func (a *GA4Adapter) BasicMetrics(ctx context.Context, conn *merchant.TrafficConnection, start, end time.Time) (*integration.TrafficTotals, error) {
	req := RunReportRequest{
		DateRanges: dateRanges(start, end),
		Metrics:    []Metric{{Name: "sessions"}, {Name: "activeUsers"}},
	}
	return run(ctx, a, conn, "basic_metrics", func(ctx context.Context, token merchant.Secret) (*integration.TrafficTotals, error) {
		resp, err := a.runReport(ctx, conn.PropertyID, token, req)
		if err != nil {
			return nil, err
		}
		totals := &integration.TrafficTotals{}
		if len(resp.Rows) > 0 {
			totals.Sessions = parseCount(resp.Rows[0].metric(0))
			totals.ActiveUsers = parseCount(resp.Rows[0].metric(1))
		}
		return totals, nil
	})
}

// SessionsByChannel returns sessions per default channel group, most sessions first
func (a *GA4Adapter) SessionsByChannel(ctx context.Context, conn *merchant.TrafficConnection, start, end time.Time) ([]integration.ChannelSessions, error) {
	req := RunReportRequest{
		DateRanges: dateRanges(start, end),
		Metrics:    []Metric{{Name: "sessions"}},
		Dimensions: []Dimension{{Name: "sessionDefaultChannelGroup"}},
		OrderBys:   []OrderBy{{Metric: &MetricOrderBy{MetricName: "sessions"}, Desc: true}},
	}
	return run(ctx, a, conn, "sessions_by_channel", func(ctx context.Context, token merchant.Secret) ([]integration.ChannelSessions, error) {
		resp, err := a.runReport(ctx, conn.PropertyID, token, req)
		if err != nil {
			return nil, err
		}
		channels := make([]integration.ChannelSessions, 0, len(resp.Rows))
		for _, row := range resp.Rows {
			name := row.dimension(0)
			if name == "" {
				name = "unknown"
			}
			channels = append(channels, integration.ChannelSessions{Channel: name, Sessions: parseCount(row.metric(0))})
		}
		sort.SliceStable(channels, func(i, j int) bool {
			return channels[i].Sessions > channels[j].Sessions
		})
		return channels, nil
	})
}

// TopProducts returns the most viewed items, at most limit rows. Rows without an item id
// are dropped and empty names become UnknownProductName.
func (a *GA4Adapter) TopProducts(ctx context.Context, conn *merchant.TrafficConnection, start, end time.Time, limit int) ([]insight.TrafficRow, error) {
	if limit <= 0 {
		limit = DefaultTopProductsLimit
	}
	req := RunReportRequest{
		DateRanges: dateRanges(start, end),
		Metrics:    []Metric{{Name: "itemsViewed"}},
		Dimensions: []Dimension{{Name: "itemId"}, {Name: "itemName"}},
		OrderBys:   []OrderBy{{Metric: &MetricOrderBy{MetricName: "itemsViewed"}, Desc: true}},
		Limit:      int64(limit),
	}
	return run(ctx, a, conn, "top_products", func(ctx context.Context, token merchant.Secret) ([]insight.TrafficRow, error) {
		resp, err := a.runReport(ctx, conn.PropertyID, token, req)
		if err != nil {
			return nil, err
		}
		rows := make([]insight.TrafficRow, 0, len(resp.Rows))
		for _, row := range resp.Rows {
			id := strings.TrimSpace(row.dimension(0))
			if id == "" || id == "(not set)" {
				continue
			}
			name := row.dimension(1)
			if name == "" {
				name = UnknownProductName
			}
			rows = append(rows, insight.TrafficRow{ProductID: id, ProductName: name, Views: parseCount(row.metric(0))})
		}
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Views > rows[j].Views
		})
		if len(rows) > limit {
			rows = rows[:limit]
		}
		return rows, nil
	})
}

// MultipleReports runs every definition in one batchRunReports call. Results are keyed by
// definition name; a report missing from the answer yields an empty list.
func (a *GA4Adapter) MultipleReports(ctx context.Context, conn *merchant.TrafficConnection, start, end time.Time, defs map[string]integration.ReportDefinition) (map[string][]integration.ReportRow, error) {
	if len(defs) > MaxBatchReports {
		return nil, fmt.Errorf("%w: %d reports requested, at most %d per batch", integration.ErrInternalFailure, len(defs), MaxBatchReports)
	}
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	batch := BatchRunReportsRequest{Requests: make([]RunReportRequest, 0, len(names))}
	for _, name := range names {
		batch.Requests = append(batch.Requests, a.reportRequest(defs[name], start, end))
	}

	return run(ctx, a, conn, "multiple_reports", func(ctx context.Context, token merchant.Secret) (map[string][]integration.ReportRow, error) {
		results := make(map[string][]integration.ReportRow, len(names))
		for _, name := range names {
			results[name] = []integration.ReportRow{}
		}
		if len(names) == 0 {
			return results, nil
		}

		var resp BatchRunReportsResponse
		if err := a.post(ctx, conn.PropertyID+":batchRunReports", token, batch, &resp); err != nil {
			return nil, err
		}
		for i, report := range resp.Reports {
			if i >= len(names) {
				break
			}
			rows := make([]integration.ReportRow, 0, len(report.Rows))
			for _, r := range report.Rows {
				row := integration.ReportRow{
					Dimensions: make([]string, len(r.DimensionValues)),
					Metrics:    make([]string, len(r.MetricValues)),
				}
				for j, v := range r.DimensionValues {
					row.Dimensions[j] = v.Value
				}
				for j, v := range r.MetricValues {
					row.Metrics[j] = v.Value
				}
				rows = append(rows, row)
			}
			results[names[i]] = rows
		}
		return results, nil
	})
}

func (a *GA4Adapter) reportRequest(def integration.ReportDefinition, start, end time.Time) RunReportRequest {
	req := RunReportRequest{
		DateRanges: dateRanges(start, end),
		Metrics:    make([]Metric, 0, len(def.Metrics)),
		Limit:      int64(a.config.DefaultRowLimit),
	}
	for _, m := range def.Metrics {
		req.Metrics = append(req.Metrics, Metric{Name: m})
	}
	for _, d := range def.Dimensions {
		req.Dimensions = append(req.Dimensions, Dimension{Name: d})
	}
	if def.OrderBy != "" {
		req.OrderBys = []OrderBy{{Metric: &MetricOrderBy{MetricName: def.OrderBy}, Desc: !def.Ascending}}
	}
	if def.Limit > 0 {
		req.Limit = int64(def.Limit)
	}
	return req
}

// run checks the property precondition, then executes fn with a token and records the outcome.
func run[T any](ctx context.Context, a *GA4Adapter, conn *merchant.TrafficConnection, operation string, fn func(context.Context, merchant.Secret) (T, error)) (T, error) {
	var zero T
	if conn == nil {
		return zero, fmt.Errorf("%w: no traffic connection", integration.ErrPreconditionUnmet)
	}
	if !conn.PropertyConfigured() {
		return zero, fmt.Errorf("%w: no analytics property configured", integration.ErrPreconditionUnmet)
	}

	ctx, span := telemetry.StartProviderSpan(ctx, GA4ProviderName, operation,
		telemetry.WithAttribute(telemetry.SpanAttrMerchantID, conn.MerchantID.String()))
	defer span.End()

	start := time.Now()
	v, err := oauth.Execute(ctx, a.tokens, conn.MerchantID, fn)

	kind := integration.KindOf(err)
	a.metrics.RecordProviderCall(ctx, GA4ProviderName, operation, kind.String(), time.Since(start))
	fields := append(logger.ProviderCall(conn.MerchantID.String(), operation, kind.String()),
		zap.String("property_id", conn.PropertyID),
		zap.Duration("duration", time.Since(start)),
	)
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.SetAttributes(span, telemetry.SpanAttrFailureKind, kind.String())
		logger.L(ctx).Warn("GA4 call failed", append(fields, zap.Error(err))...)
		return zero, err
	}
	logger.L(ctx).Info("GA4 call completed", fields...)
	return v, nil
}

func (a *GA4Adapter) runReport(ctx context.Context, property string, token merchant.Secret, req RunReportRequest) (*RunReportResponse, error) {
	var resp RunReportResponse
	if err := a.post(ctx, property+":runReport", token, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// post sends a JSON request to /v1beta/{resource} and decodes the answer into out
func (a *GA4Adapter) post(ctx context.Context, resource string, token merchant.Secret, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: encode request: %v", integration.ErrInternalFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.APIBaseURL+"/v1beta/"+resource, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", integration.ErrInternalFailure, err)
	}
	req.Header.Set("Authorization", "Bearer "+token.Reveal())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	if len(raw) > maxResponseSize {
		return fmt.Errorf("%w: response exceeds %d bytes", integration.ErrMalformedResponse, maxResponseSize)
	}

	if resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: failed to parse %s: %v", integration.ErrMalformedResponse, resource, err)
	}
	return nil
}

// statusError maps a Data API error answer onto the error taxonomy
func statusError(status int, body []byte) error {
	var envelope ErrorResponse
	_ = json.Unmarshal(body, &envelope)
	detail := envelope.Error.Status
	if envelope.Error.Message != "" {
		detail += " " + envelope.Error.Message
	}

	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: HTTP %d %s", integration.ErrAuthRejected, status, detail)
	case status == http.StatusForbidden:
		// The token is valid but cannot read this property
		return fmt.Errorf("%w: property not accessible: HTTP %d %s", integration.ErrPreconditionUnmet, status, detail)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d %s", integration.ErrRateLimited, status, detail)
	case status >= 500:
		return fmt.Errorf("%w: HTTP %d %s", integration.ErrTransientTransport, status, detail)
	default:
		return fmt.Errorf("%w: HTTP %d %s", integration.ErrInternalFailure, status, detail)
	}
}

func classifyTransportError(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", integration.ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", integration.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", integration.ErrTransientTransport, err)
}

func dateRanges(start, end time.Time) []DateRange {
	return []DateRange{{StartDate: start.Format(period.DateLayout), EndDate: end.Format(period.DateLayout)}}
}

// parseCount reads an integer metric value. Non-integer values are truncated; garbage is zero.
func parseCount(v string) int64 {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return int64(f)
	}
	return 0
}
