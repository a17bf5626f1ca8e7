// Package merchant holds the merchant account and its provider connections.
package merchant

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrConnectionNotFound = errors.New("merchant: connection not found")
	// ErrTokenVersionConflict is returned when a compare-and-set token write lost a race.
	ErrTokenVersionConflict = errors.New("merchant: token version conflict")
	ErrInvalidShopDomain    = errors.New("merchant: invalid shop domain")
	ErrInvalidPropertyID    = errors.New("merchant: invalid property id")
	// ErrShopDomainInUse is returned when another merchant already connected the shop.
	ErrShopDomainInUse = errors.New("merchant: shop domain already connected")
)

// ConnectionStatus tracks whether a traffic connection can still be refreshed.
type ConnectionStatus string

const (
	ConnectionStatusActive ConnectionStatus = "active"
	// ConnectionStatusNeedsReauth is set when the provider rejected the refresh token.
	ConnectionStatusNeedsReauth ConnectionStatus = "needs_reauth"
)

// IsValid returns true if the status is known
func (s ConnectionStatus) IsValid() bool {
	return s == ConnectionStatusActive || s == ConnectionStatusNeedsReauth
}

// String returns the string representation of the status
func (s ConnectionStatus) String() string {
	return string(s)
}

// CommerceConnection links a merchant to its storefront.
type CommerceConnection struct {
	MerchantID  uuid.UUID
	ShopDomain  string
	AccessToken SealedSecret
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TrafficConnection links a merchant to its analytics property.
type TrafficConnection struct {
	MerchantID   uuid.UUID
	PropertyID   string
	AccessToken  SealedSecret
	RefreshToken SealedSecret
	// ExpiresAt is nil for tokens the provider issued without a lifetime.
	ExpiresAt    *time.Time
	Status       ConnectionStatus
	TokenVersion int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PropertyConfigured reports whether reports can be run against this connection.
func (c *TrafficConnection) PropertyConfigured() bool {
	return c != nil && c.PropertyID != ""
}

// NeedsReauth reports whether the user must reconnect before the token can be refreshed.
func (c *TrafficConnection) NeedsReauth() bool {
	return c != nil && c.Status == ConnectionStatusNeedsReauth
}

// HasRefreshToken reports whether a sealed refresh token is stored.
func (c *TrafficConnection) HasRefreshToken() bool {
	return c != nil && !c.RefreshToken.IsEmpty()
}

// TokenFresh reports whether the stored access token is still usable at now, leaving at
// least skew of headroom. A nil expiry means the token does not expire.
func (c *TrafficConnection) TokenFresh(now time.Time, skew time.Duration) bool {
	if c == nil || c.AccessToken.IsEmpty() {
		return false
	}
	if c.ExpiresAt == nil {
		return true
	}
	return c.ExpiresAt.After(now.Add(skew))
}

// TrafficGrant carries plaintext tokens returned by an OAuth exchange or refresh.
type TrafficGrant struct {
	AccessToken Secret
	// RefreshToken is empty when the provider did not issue a new one.
	RefreshToken Secret
	ExpiresAt    *time.Time
}
