package ecommerce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/storepulse/backend/internal/domain/integration"
	"github.com/storepulse/backend/internal/domain/merchant"
	"github.com/storepulse/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxResponseSize is the maximum allowed response size from the Admin API (10MB)
const maxResponseSize = 10 * 1024 * 1024

var linkPattern = regexp.MustCompile(`<([^>]+)>\s*;\s*rel="?([a-z]+)"?`)

// shopLimiters paces requests per shop with a token bucket
type shopLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newShopLimiters(rps float64) *shopLimiters {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &shopLimiters{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

func (s *shopLimiters) get(shop string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[shop]
	if !ok {
		l = rate.NewLimiter(s.limit, s.burst)
		s.limiters[shop] = l
	}
	return l
}

// shopifyRequester issues authenticated requests against one shop
type shopifyRequester struct {
	adapter *ShopifyAdapter
	shop    string
	base    string
	token   merchant.Secret
}

// getJSON performs GET {base}/{path}?{query}, retrying 429 answers with a fixed delay,
// and decodes the body into out. It returns the response headers for pagination.
func (r *shopifyRequester) getJSON(ctx context.Context, path string, query url.Values, out any) (http.Header, error) {
	target := r.base + "/" + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	cfg := r.adapter.config
	for attempt := 0; ; attempt++ {
		if err := r.adapter.limiters.get(r.shop).Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: waiting for request slot: %v", integration.ErrTimeout, err)
		}

		status, header, body, err := r.do(ctx, target)
		if err != nil {
			return nil, err
		}

		switch {
		case status == http.StatusTooManyRequests:
			if attempt >= cfg.MaxRetries {
				return nil, fmt.Errorf("%w: HTTP 429 after %d retries", integration.ErrRateLimited, attempt)
			}
			logger.L(ctx).Debug("Shopify rate limited, retrying",
				zap.String("shop_domain", r.shop),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", cfg.RetryDelay),
			)
			if err := r.adapter.sleep(ctx, cfg.RetryDelay); err != nil {
				return nil, fmt.Errorf("%w: %v", integration.ErrTimeout, err)
			}
			continue
		case status == http.StatusUnauthorized, status == http.StatusForbidden:
			return nil, fmt.Errorf("%w: HTTP %d", integration.ErrAuthRejected, status)
		case status >= 500:
			return nil, fmt.Errorf("%w: HTTP %d", integration.ErrTransientTransport, status)
		case status >= 400:
			return nil, fmt.Errorf("%w: shopify answered HTTP %d for %s", integration.ErrInternalFailure, status, path)
		}

		if out != nil {
			if err := json.Unmarshal(body, out); err != nil {
				return nil, fmt.Errorf("%w: failed to parse %s: %v", integration.ErrMalformedResponse, path, err)
			}
		}
		return header, nil
	}
}

func (r *shopifyRequester) do(ctx context.Context, target string) (int, http.Header, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: failed to create request: %v", integration.ErrInternalFailure, err)
	}
	req.Header.Set("X-Shopify-Access-Token", r.token.Reveal())
	req.Header.Set("Accept", "application/json")

	resp, err := r.adapter.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return 0, nil, nil, classifyTransportError(ctx, err)
	}
	if len(body) > maxResponseSize {
		return 0, nil, nil, fmt.Errorf("%w: response exceeds %d bytes", integration.ErrMalformedResponse, maxResponseSize)
	}
	return resp.StatusCode, resp.Header, body, nil
}

// classifyTransportError maps a failed round trip onto the error taxonomy
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

// nextPageInfo extracts the page_info cursor of the rel="next" entry of a Link header
func nextPageInfo(header http.Header) string {
	for _, value := range header.Values("Link") {
		for _, part := range strings.Split(value, ",") {
			m := linkPattern.FindStringSubmatch(part)
			if m == nil || m[2] != "next" {
				continue
			}
			u, err := url.Parse(m[1])
			if err != nil {
				continue
			}
			if info := u.Query().Get("page_info"); info != "" {
				return info
			}
		}
	}
	return ""
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
