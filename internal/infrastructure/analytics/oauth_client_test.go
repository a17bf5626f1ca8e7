package analytics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storepulse/backend/internal/domain/integration"
	"github.com/storepulse/backend/internal/infrastructure/config"
)

func newTestOAuthClient(t *testing.T, handler http.HandlerFunc) *OAuthClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewOAuthClient(config.TrafficConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://app.example.com/oauth/callback",
		AuthURL:      server.URL + "/auth",
		TokenURL:     server.URL + "/token",
	})
	require.NoError(t, err)
	return client
}

func TestNewOAuthClient_RequiresCredentials(t *testing.T) {
	_, err := NewOAuthClient(config.TrafficConfig{ClientID: "id"})
	assert.ErrorIs(t, err, ErrOAuthNotConfigured)
}

func TestOAuthClient_AuthorizationURL(t *testing.T) {
	client := newTestOAuthClient(t, func(w http.ResponseWriter, r *http.Request) {})

	u, err := url.Parse(client.AuthorizationURL("signed-state"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "/auth", u.Path)
	assert.Equal(t, "signed-state", q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, DefaultScope, q.Get("scope"))
}

func TestOAuthClient_Exchange(t *testing.T) {
	client := newTestOAuthClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		writeJSON(w, `{"access_token":"ya29.a","refresh_token":"1//r","expires_in":3599,"token_type":"Bearer"}`)
	})

	grant, err := client.Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "ya29.a", grant.AccessToken.Reveal())
	assert.Equal(t, "1//r", grant.RefreshToken.Reveal())
	require.NotNil(t, grant.ExpiresAt)
}

func TestOAuthClient_ExchangeErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "invalid grant", status: http.StatusBadRequest, body: `{"error":"invalid_grant","error_description":"Bad Request"}`, want: integration.ErrAuthRejected},
		{name: "server error", status: http.StatusBadGateway, body: `oops`, want: integration.ErrTransientTransport},
		{name: "invalid client", status: http.StatusUnauthorized, body: `{"error":"invalid_client"}`, want: integration.ErrInternalFailure},
		{name: "no access token", status: http.StatusOK, body: `{"token_type":"Bearer"}`, want: integration.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestOAuthClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := client.Exchange(context.Background(), "code")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOAuthClient_Refresh(t *testing.T) {
	client := newTestOAuthClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "1//r", r.PostForm.Get("refresh_token"))
		writeJSON(w, `{"access_token":"ya29.b","token_type":"Bearer"}`)
	})

	grant, err := client.Refresh(context.Background(), "1//r")
	require.NoError(t, err)
	assert.Equal(t, "ya29.b", grant.AccessToken.Reveal())
	// No expires_in means the token does not expire
	assert.Nil(t, grant.ExpiresAt)
}

func TestOAuthClient_RefreshRejected(t *testing.T) {
	client := newTestOAuthClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`))
	})

	_, err := client.Refresh(context.Background(), "1//r")
	assert.ErrorIs(t, err, integration.ErrRefreshRejected)
	assert.Equal(t, integration.FailureAuthExhausted, integration.KindOf(err))
}

func TestOAuthClient_EmptyCode(t *testing.T) {
	client := newTestOAuthClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("token endpoint must not be called")
	})
	_, err := client.Exchange(context.Background(), "  ")
	assert.ErrorIs(t, err, integration.ErrAuthRejected)
}
