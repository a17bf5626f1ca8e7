// Package auth validates merchant bearer tokens and signs the OAuth state parameter.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/storepulse/backend/internal/infrastructure/config"
)

// TokenType distinguishes merchant access tokens from OAuth state tokens
type TokenType string

const (
	TokenTypeAccess TokenType = "access"
	TokenTypeState  TokenType = "oauth_state"
)

// DefaultStateTokenLifetime bounds how long a consent round trip may take
const DefaultStateTokenLifetime = 10 * time.Minute

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidTokenType = errors.New("invalid token type")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingMerchant  = errors.New("missing merchant_id in claims")
	ErrStateMismatch    = errors.New("oauth state belongs to another merchant")
	ErrStateReused      = errors.New("oauth state has already been used")
)

// Claims are the claims StorePulse reads from a token
type Claims struct {
	jwt.RegisteredClaims
	MerchantID string `json:"merchant_id"`
	// TokenType is empty on tokens from the identity service and treated as access
	TokenType TokenType `json:"token_type,omitempty"`
}

// MerchantUUID parses the merchant id claim
func (c *Claims) MerchantUUID() (uuid.UUID, error) {
	return uuid.Parse(c.MerchantID)
}

// RemainingTTL returns the time until the token expires, zero if it already has
func (c *Claims) RemainingTTL(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	remaining := c.ExpiresAt.Time.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// JWTService validates access tokens and issues state tokens. Both use HS256 with the
// secret shared with the identity service.
type JWTService struct {
	secret        []byte
	issuer        string
	stateLifetime time.Duration
	now           func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	lifetime := cfg.StateTokenLifetime
	if lifetime <= 0 {
		lifetime = DefaultStateTokenLifetime
	}
	return &JWTService{
		secret:        []byte(cfg.Secret),
		issuer:        cfg.Issuer,
		stateLifetime: lifetime,
		now:           time.Now,
	}
}

// IssueAccessToken signs a merchant access token. Production tokens come from the identity
// service; this is used by tooling and tests.
func (s *JWTService) IssueAccessToken(merchantID uuid.UUID, ttl time.Duration) (string, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: s.registered(merchantID, now, ttl),
		MerchantID:       merchantID.String(),
		TokenType:        TokenTypeAccess,
	}
	return s.sign(claims)
}

// ValidateAccessToken validates a bearer token and returns its claims
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != "" && claims.TokenType != TokenTypeAccess {
		return nil, ErrInvalidTokenType
	}
	return claims, nil
}

// SignState issues the state parameter for an OAuth consent round trip
func (s *JWTService) SignState(merchantID uuid.UUID) (string, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: s.registered(merchantID, now, s.stateLifetime),
		MerchantID:       merchantID.String(),
		TokenType:        TokenTypeState,
	}
	return s.sign(claims)
}

// VerifyState checks a returned state parameter against the merchant completing the flow
func (s *JWTService) VerifyState(state string, merchantID uuid.UUID) (*Claims, error) {
	claims, err := s.parse(state)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeState {
		return nil, ErrInvalidTokenType
	}
	if claims.MerchantID != merchantID.String() {
		return nil, ErrStateMismatch
	}
	if claims.ID == "" {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

func (s *JWTService) registered(merchantID uuid.UUID, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	rc := jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		Subject:   merchantID.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		NotBefore: jwt.NewNumericDate(now),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	if s.issuer != "" {
		rc.Issuer = s.issuer
	}
	return rc
}

func (s *JWTService) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *JWTService) parse(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.MerchantID == "" {
		return nil, ErrMissingMerchant
	}
	if _, err := uuid.Parse(claims.MerchantID); err != nil {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}
