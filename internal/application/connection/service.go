// Package connection manages a merchant's provider connections: the storefront token, the
// analytics OAuth consent round trip and the analytics property selection.
package connection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storepulse/backend/internal/domain/merchant"
	"github.com/storepulse/backend/internal/infrastructure/auth"
	"github.com/storepulse/backend/internal/infrastructure/logger"
	"github.com/storepulse/backend/internal/infrastructure/telemetry"
)

var (
	// ErrInvalidState wraps every reason a returned OAuth state is refused
	ErrInvalidState = errors.New("connection: invalid oauth state")
	// ErrConsentUnavailable is returned when no analytics OAuth client is configured
	ErrConsentUnavailable = errors.New("connection: analytics oauth is not configured")
	ErrMissingCode        = errors.New("connection: authorization code is required")
	ErrMissingAccessToken = errors.New("connection: access token is required")
)

// minStateTTL keeps a consumed state id around even when the state is about to expire
const minStateTTL = time.Second

// Store is the part of the credential store the service writes
type Store interface {
	merchant.CommerceCredentials
	merchant.TrafficCredentials
}

// StateSigner signs and verifies the OAuth state parameter
type StateSigner interface {
	SignState(merchantID uuid.UUID) (string, error)
	VerifyState(state string, merchantID uuid.UUID) (*auth.Claims, error)
}

// Consent runs the analytics authorization-code flow
type Consent interface {
	AuthorizationURL(state string) string
	Exchange(ctx context.Context, code string) (merchant.TrafficGrant, error)
}

// Invalidator drops a merchant's cached results
type Invalidator interface {
	InvalidateMerchant(ctx context.Context, merchantID uuid.UUID) error
}

// Status describes both connections of a merchant. Secrets never leave the store.
type Status struct {
	CommerceConnected  bool       `json:"commerce_connected"`
	ShopDomain         string     `json:"shop_domain,omitempty"`
	TrafficConnected   bool       `json:"traffic_connected"`
	PropertyConfigured bool       `json:"property_configured"`
	PropertyID         string     `json:"property_id,omitempty"`
	TrafficStatus      string     `json:"traffic_status,omitempty"`
	TokenExpiresAt     *time.Time `json:"token_expires_at,omitempty"`
}

// Service manages connections
type Service struct {
	store   Store
	signer  StateSigner
	guard   auth.StateGuard
	consent Consent
	cache   Invalidator
	now     func() time.Time
}

// NewService creates a connection service. A nil consent disables the analytics OAuth flow.
func NewService(store Store, signer StateSigner, guard auth.StateGuard, consent Consent, cache Invalidator) *Service {
	return &Service{
		store:   store,
		signer:  signer,
		guard:   guard,
		consent: consent,
		cache:   cache,
		now:     time.Now,
	}
}

// Status returns the connection overview
func (s *Service) Status(ctx context.Context, merchantID uuid.UUID) (*Status, error) {
	conns, err := merchant.LoadConnections(ctx, s.store, merchantID)
	if err != nil {
		return nil, err
	}

	st := &Status{
		CommerceConnected:  conns.CommerceConnected(),
		TrafficConnected:   conns.TrafficConnected(),
		PropertyConfigured: conns.TrafficReady(),
	}
	if conns.Commerce != nil {
		st.ShopDomain = conns.Commerce.ShopDomain
	}
	if conns.Traffic != nil {
		st.PropertyID = conns.Traffic.PropertyID
		st.TrafficStatus = conns.Traffic.Status.String()
		st.TokenExpiresAt = conns.Traffic.ExpiresAt
	}
	return st, nil
}

// SaveCommerce stores the storefront domain and access token
func (s *Service) SaveCommerce(ctx context.Context, merchantID uuid.UUID, shopDomain, accessToken string) (*Status, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "connection", "save_commerce")
	defer span.End()

	domain, err := merchant.NormalizeShopDomain(shopDomain)
	if err != nil {
		return nil, err
	}
	token := strings.TrimSpace(accessToken)
	if token == "" {
		return nil, ErrMissingAccessToken
	}

	if _, err := s.store.UpsertCommerce(ctx, merchantID, domain, merchant.Secret(token)); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	logger.L(ctx).Info("Commerce connection saved",
		zap.String("merchant_id", merchantID.String()),
		zap.String("shop_domain", domain),
	)

	s.invalidate(ctx, merchantID)
	return s.Status(ctx, merchantID)
}

// AuthorizationURL starts the analytics consent round trip
func (s *Service) AuthorizationURL(_ context.Context, merchantID uuid.UUID) (string, error) {
	if s.consent == nil {
		return "", ErrConsentUnavailable
	}
	state, err := s.signer.SignState(merchantID)
	if err != nil {
		return "", fmt.Errorf("sign oauth state: %w", err)
	}
	return s.consent.AuthorizationURL(state), nil
}

// CompleteAuthorization verifies the returned state, consumes it and exchanges the code.
// A state can be used once.
func (s *Service) CompleteAuthorization(ctx context.Context, merchantID uuid.UUID, code, state string) (*Status, error) {
	if s.consent == nil {
		return nil, ErrConsentUnavailable
	}
	if strings.TrimSpace(code) == "" {
		return nil, ErrMissingCode
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "connection", "complete_authorization")
	defer span.End()

	claims, err := s.signer.VerifyState(state, merchantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	ttl := claims.RemainingTTL(s.now())
	if ttl < minStateTTL {
		ttl = minStateTTL
	}
	fresh, err := s.guard.Consume(ctx, claims.ID, ttl)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("consume oauth state: %w", err)
	}
	if !fresh {
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, auth.ErrStateReused)
	}

	grant, err := s.consent.Exchange(ctx, code)
	if err != nil {
		telemetry.RecordError(span, err)
		logger.L(ctx).Warn("Authorization code exchange failed",
			zap.String("merchant_id", merchantID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	conn, err := s.store.UpsertTraffic(ctx, merchantID, grant)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	logger.L(ctx).Info("Traffic connection authorized",
		zap.String("merchant_id", merchantID.String()),
		zap.Bool("refresh_token", conn.HasRefreshToken()),
		zap.Bool("property_configured", conn.PropertyConfigured()),
	)

	s.invalidate(ctx, merchantID)
	return s.Status(ctx, merchantID)
}

// SetProperty selects the analytics property. It fails with merchant.ErrConnectionNotFound
// before the consent round trip has completed.
func (s *Service) SetProperty(ctx context.Context, merchantID uuid.UUID, propertyID string) (*Status, error) {
	propertyID = strings.TrimSpace(propertyID)
	if err := merchant.ValidatePropertyID(propertyID); err != nil {
		return nil, err
	}
	if err := s.store.SetPropertyID(ctx, merchantID, propertyID); err != nil {
		return nil, err
	}

	s.invalidate(ctx, merchantID)
	return s.Status(ctx, merchantID)
}

// invalidate drops cached results. Failures only delay fresh data until the TTL runs out.
func (s *Service) invalidate(ctx context.Context, merchantID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateMerchant(ctx, merchantID); err != nil {
		logger.L(ctx).Warn("Failed to invalidate cached results",
			zap.String("merchant_id", merchantID.String()),
			zap.Error(err),
		)
	}
}
