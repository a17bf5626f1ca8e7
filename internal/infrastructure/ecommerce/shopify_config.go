package ecommerce

import (
	"errors"
	"strings"
	"time"

	"github.com/storepulse/backend/internal/infrastructure/config"
)

const (
	// ShopifyDefaultAPIVersion is the Admin REST API version requests are pinned to
	ShopifyDefaultAPIVersion = "2024-04"
	// ShopifyMaxPageSize is the largest page orders.json and products.json accept
	ShopifyMaxPageSize = 250
)

// Errors for Shopify configuration
var (
	ErrShopifyConfigInvalidRetries = errors.New("shopify: max retries must not be negative")
	ErrShopifyConfigInvalidRate    = errors.New("shopify: requests per second must be positive")
)

// ShopifyConfig holds the Shopify Admin API client settings
type ShopifyConfig struct {
	// APIVersion is the Admin API version, e.g. "2024-04"
	APIVersion string
	// BaseURL replaces https://{shop} when set, e.g. for a proxy or a test server
	BaseURL string
	// RequestTimeout bounds one HTTP round trip
	RequestTimeout time.Duration
	// MaxRetries is how often a 429 answer is retried
	MaxRetries int
	// RetryDelay is the fixed wait between 429 retries
	RetryDelay time.Duration
	// RequestsPerSecond paces requests per shop
	RequestsPerSecond float64
}

// NewShopifyConfig creates a configuration with defaults
func NewShopifyConfig() *ShopifyConfig {
	return &ShopifyConfig{
		APIVersion:        ShopifyDefaultAPIVersion,
		RequestTimeout:    30 * time.Second,
		MaxRetries:        3,
		RetryDelay:        2 * time.Second,
		RequestsPerSecond: 2,
	}
}

// ShopifyConfigFrom maps the commerce section of the application config
func ShopifyConfigFrom(cfg config.CommerceConfig) *ShopifyConfig {
	return &ShopifyConfig{
		APIVersion:        cfg.APIVersion,
		BaseURL:           cfg.BaseURL,
		RequestTimeout:    cfg.RequestTimeout,
		MaxRetries:        cfg.MaxRetries,
		RetryDelay:        cfg.RetryDelay,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}
}

// Validate validates the configuration and fills in defaults
func (c *ShopifyConfig) Validate() error {
	if c.MaxRetries < 0 {
		return ErrShopifyConfigInvalidRetries
	}
	if c.RequestsPerSecond < 0 {
		return ErrShopifyConfigInvalidRate
	}
	if c.APIVersion == "" {
		c.APIVersion = ShopifyDefaultAPIVersion
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 2
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return nil
}

// APIBase returns the versioned Admin API root for a shop
func (c *ShopifyConfig) APIBase(shopDomain string) string {
	root := c.BaseURL
	if root == "" {
		root = "https://" + shopDomain
	}
	return root + "/admin/api/" + c.APIVersion
}
