package analytics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/storepulse/backend/internal/domain/integration"
	"github.com/storepulse/backend/internal/domain/merchant"
	"github.com/storepulse/backend/internal/infrastructure/config"
	"github.com/storepulse/backend/internal/infrastructure/oauth"
	"golang.org/x/oauth2"
)

// DefaultScope grants read access to analytics reports
const DefaultScope = "https://www.googleapis.com/auth/analytics.readonly"

// GoogleEndpoint is the Google OAuth 2.0 authorization server
var GoogleEndpoint = oauth2.Endpoint{
	AuthURL:   "https://accounts.google.com/o/oauth2/auth",
	TokenURL:  "https://oauth2.googleapis.com/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// ErrOAuthNotConfigured is returned when no client id or secret is set
var ErrOAuthNotConfigured = errors.New("analytics: oauth client id and secret are required")

// OAuthClient drives the authorization-code flow and the refresh grant of the
// analytics provider.
type OAuthClient struct {
	config     *oauth2.Config
	httpClient *http.Client
}

var _ oauth.Refresher = (*OAuthClient)(nil)

// NewOAuthClient creates a client from the traffic config. Empty endpoint URLs fall
// back to Google's.
func NewOAuthClient(cfg config.TrafficConfig) (*OAuthClient, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrOAuthNotConfigured
	}
	endpoint := GoogleEndpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{DefaultScope}
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OAuthClient{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// AuthorizationURL returns the consent page URL. Offline access and a forced consent
// prompt make the provider issue a refresh token on every connect.
func (c *OAuthClient) AuthorizationURL(state string) string {
	return c.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for tokens
func (c *OAuthClient) Exchange(ctx context.Context, code string) (merchant.TrafficGrant, error) {
	if strings.TrimSpace(code) == "" {
		return merchant.TrafficGrant{}, fmt.Errorf("%w: empty authorization code", integration.ErrAuthRejected)
	}
	tok, err := c.config.Exchange(c.withClient(ctx), code)
	if err != nil {
		return merchant.TrafficGrant{}, classifyGrantError(ctx, err, integration.ErrAuthRejected)
	}
	return grantFromToken(tok)
}

// Refresh runs the refresh grant. A revoked or expired refresh token yields
// ErrRefreshRejected.
func (c *OAuthClient) Refresh(ctx context.Context, refreshToken merchant.Secret) (merchant.TrafficGrant, error) {
	src := c.config.TokenSource(c.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken.Reveal()})
	tok, err := src.Token()
	if err != nil {
		return merchant.TrafficGrant{}, classifyGrantError(ctx, err, integration.ErrRefreshRejected)
	}
	return grantFromToken(tok)
}

func (c *OAuthClient) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func grantFromToken(tok *oauth2.Token) (merchant.TrafficGrant, error) {
	if tok == nil || tok.AccessToken == "" {
		return merchant.TrafficGrant{}, fmt.Errorf("%w: token response without access_token", integration.ErrMalformedResponse)
	}
	grant := merchant.TrafficGrant{
		AccessToken:  merchant.Secret(tok.AccessToken),
		RefreshToken: merchant.Secret(tok.RefreshToken),
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		grant.ExpiresAt = &exp
	}
	return grant, nil
}

// classifyGrantError maps token endpoint failures. invalid_grant becomes rejected.
func classifyGrantError(ctx context.Context, err error, rejected error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		switch {
		case re.ErrorCode == "invalid_grant":
			return fmt.Errorf("%w: %s %s", rejected, re.ErrorCode, re.ErrorDescription)
		case status == http.StatusTooManyRequests:
			return fmt.Errorf("%w: token endpoint HTTP %d", integration.ErrRateLimited, status)
		case status >= 500:
			return fmt.Errorf("%w: token endpoint HTTP %d", integration.ErrTransientTransport, status)
		case re.ErrorCode != "":
			return fmt.Errorf("%w: token endpoint: %s %s", integration.ErrInternalFailure, re.ErrorCode, re.ErrorDescription)
		default:
			return fmt.Errorf("%w: token endpoint HTTP %d", integration.ErrInternalFailure, status)
		}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) || ctx.Err() != nil {
		return classifyTransportError(ctx, err)
	}
	return fmt.Errorf("%w: token response: %v", integration.ErrMalformedResponse, err)
}
