package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storepulse/backend/internal/domain/integration"
	"github.com/storepulse/backend/internal/domain/merchant"
	"github.com/storepulse/backend/internal/infrastructure/logger"
	"github.com/storepulse/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultExpirySkew is the headroom a stored token must have left to be served without refresh.
const DefaultExpirySkew = 60 * time.Second

// TokenProvider hands out access tokens for a merchant. Execute depends on this.
type TokenProvider interface {
	// Name identifies the provider in logs and metrics
	Name() string
	Token(ctx context.Context, session *Session, merchantID uuid.UUID) (merchant.Secret, error)
	// ForceRefresh replaces a token the provider rejected, regardless of its expiry.
	ForceRefresh(ctx context.Context, session *Session, merchantID uuid.UUID, rejected merchant.Secret) (merchant.Secret, error)
}

// Refresher performs the refresh-token grant against the provider. It returns an error
// wrapping integration.ErrRefreshRejected when the provider reports invalid_grant.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken merchant.Secret) (merchant.TrafficGrant, error)
}

// TrafficTokenStore is the part of the credential store the token manager needs.
type TrafficTokenStore interface {
	merchant.TrafficCredentials
	merchant.SecretReader
}

// Option configures a TokenManager
type Option func(*TokenManager)

// WithExpirySkew overrides DefaultExpirySkew
func WithExpirySkew(skew time.Duration) Option {
	return func(m *TokenManager) {
		if skew >= 0 {
			m.skew = skew
		}
	}
}

// WithMetrics records refresh outcomes on m
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(m *TokenManager) {
		m.metrics = metrics
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *TokenManager) {
		m.now = now
	}
}

// TokenManager serves and refreshes traffic access tokens.
type TokenManager struct {
	name      string
	store     TrafficTokenStore
	refresher Refresher
	skew      time.Duration
	locks     *keyedMutex
	metrics   *telemetry.Metrics
	now       func() time.Time
}

var _ TokenProvider = (*TokenManager)(nil)

// NewTokenManager creates a token manager for the named provider.
func NewTokenManager(name string, store TrafficTokenStore, refresher Refresher, opts ...Option) *TokenManager {
	m := &TokenManager{
		name:      name,
		store:     store,
		refresher: refresher,
		skew:      DefaultExpirySkew,
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the provider name
func (m *TokenManager) Name() string {
	return m.name
}

// Token returns a usable access token, refreshing it when it is missing or about to expire.
func (m *TokenManager) Token(ctx context.Context, session *Session, merchantID uuid.UUID) (merchant.Secret, error) {
	conn, err := m.load(ctx, merchantID)
	if err != nil {
		return "", err
	}

	var current merchant.Secret
	if conn.TokenFresh(m.now(), m.skew) {
		if plain, ok := m.store.ReadPlain(ctx, conn.AccessToken); ok {
			return plain, nil
		}
	} else if plain, ok := m.store.ReadPlain(ctx, conn.AccessToken); ok {
		current = plain
	}

	if conn.NeedsReauth() {
		return "", fmt.Errorf("%w: connection needs reauthorization", integration.ErrNoCredential)
	}
	if !conn.HasRefreshToken() {
		return "", fmt.Errorf("%w: token expired and no refresh token stored", integration.ErrNoCredential)
	}
	return m.refresh(ctx, session, merchantID, current)
}

// ForceRefresh refreshes the token after the provider rejected it. If another request
// already replaced the rejected token, the replacement is returned without a provider call.
func (m *TokenManager) ForceRefresh(ctx context.Context, session *Session, merchantID uuid.UUID, rejected merchant.Secret) (merchant.Secret, error) {
	return m.refresh(ctx, session, merchantID, rejected)
}

func (m *TokenManager) load(ctx context.Context, merchantID uuid.UUID) (*merchant.TrafficConnection, error) {
	conn, err := m.store.GetTraffic(ctx, merchantID)
	if err != nil {
		if errors.Is(err, merchant.ErrConnectionNotFound) {
			return nil, fmt.Errorf("%w: no traffic connection", integration.ErrNoCredential)
		}
		return nil, fmt.Errorf("%w: load traffic connection: %v", integration.ErrNoCredential, err)
	}
	return conn, nil
}

// refresh runs the refresh grant under the merchant lock. stale is the token the caller
// saw before locking; an empty stale means no usable token was seen.
func (m *TokenManager) refresh(ctx context.Context, session *Session, merchantID uuid.UUID, stale merchant.Secret) (merchant.Secret, error) {
	ctx, span := telemetry.StartSpan(ctx, "oauth.refresh",
		telemetry.WithAttribute(telemetry.SpanAttrProvider, m.name),
		telemetry.WithAttribute(telemetry.SpanAttrMerchantID, merchantID.String()))
	defer span.End()

	unlock := m.locks.Lock(merchantID.String())
	defer unlock()

	conn, err := m.load(ctx, merchantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return "", err
	}
	if conn.NeedsReauth() {
		return "", fmt.Errorf("%w: connection needs reauthorization", integration.ErrNoCredential)
	}

	// Another request refreshed while we waited for the lock
	if current, ok := m.store.ReadPlain(ctx, conn.AccessToken); ok && current != stale {
		m.metrics.RecordTokenRefresh(ctx, m.name, "reused")
		telemetry.AddEvent(span, "token.reused")
		session.markRefreshed()
		return current, nil
	}

	if m.refresher == nil {
		return "", fmt.Errorf("%w: token refresh is not configured", integration.ErrNoCredential)
	}
	refreshToken, ok := m.store.ReadPlain(ctx, conn.RefreshToken)
	if !ok {
		return "", fmt.Errorf("%w: no readable refresh token", integration.ErrNoCredential)
	}

	log := logger.L(ctx).With(zap.String("merchant_id", merchantID.String()), zap.String("provider", m.name))

	grant, err := m.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		telemetry.RecordError(span, err)
		if errors.Is(err, integration.ErrRefreshRejected) {
			m.metrics.RecordTokenRefresh(ctx, m.name, "rejected")
			if markErr := m.store.MarkNeedsReauth(ctx, merchantID); markErr != nil {
				log.Error("Failed to flag connection for reauthorization", zap.Error(markErr))
			}
			log.Warn("Refresh token rejected, connection needs reauthorization")
			return "", fmt.Errorf("%w: %w: %v", integration.ErrNoCredential, integration.ErrAuthExhausted, err)
		}
		m.metrics.RecordTokenRefresh(ctx, m.name, "error")
		log.Warn("Token refresh failed", zap.String("failure_kind", integration.KindOf(err).String()), zap.Error(err))
		return "", fmt.Errorf("%w: refresh failed: %w", integration.ErrNoCredential, err)
	}
	if grant.AccessToken.IsEmpty() {
		m.metrics.RecordTokenRefresh(ctx, m.name, "error")
		return "", fmt.Errorf("%w: %w: refresh returned no access token", integration.ErrNoCredential, integration.ErrMalformedResponse)
	}

	err = m.store.UpdateTrafficTokens(ctx, merchantID, conn.TokenVersion, grant)
	switch {
	case errors.Is(err, merchant.ErrTokenVersionConflict):
		// Another instance won the race; its token is the one to use
		winner, loadErr := m.load(ctx, merchantID)
		if loadErr != nil {
			return "", loadErr
		}
		if plain, ok := m.store.ReadPlain(ctx, winner.AccessToken); ok {
			m.metrics.RecordTokenRefresh(ctx, m.name, "reused")
			session.markRefreshed()
			return plain, nil
		}
		return "", fmt.Errorf("%w: concurrent refresh left no readable token", integration.ErrNoCredential)
	case err != nil:
		// The new token is valid even though it could not be stored
		log.Error("Failed to persist refreshed token", zap.Error(err))
	}

	m.metrics.RecordTokenRefresh(ctx, m.name, "success")
	session.markRefreshed()
	log.Info("Access token refreshed")
	return grant.AccessToken, nil
}
