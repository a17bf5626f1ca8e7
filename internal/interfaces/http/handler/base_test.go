package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/storepulse/backend/internal/application/connection"
	"github.com/storepulse/backend/internal/domain/integration"
	"github.com/storepulse/backend/internal/domain/merchant"
	"github.com/storepulse/backend/internal/domain/period"
	"github.com/storepulse/backend/internal/infrastructure/auth"
	"github.com/storepulse/backend/internal/interfaces/http/dto"
	"github.com/storepulse/backend/internal/interfaces/http/middleware"
	"github.com/storepulse/backend/tests/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// authenticated stands in for the JWT middleware
func authenticated(merchantID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.JWTMerchantIDKey, merchantID)
		c.Next()
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid period", fmt.Errorf("%w: %q", period.ErrInvalidPeriod, "90d"), http.StatusBadRequest, dto.ErrCodeInvalidPeriod},
		{"invalid shop", merchant.ErrInvalidShopDomain, http.StatusBadRequest, dto.ErrCodeValidation},
		{"invalid property", merchant.ErrInvalidPropertyID, http.StatusBadRequest, dto.ErrCodeValidation},
		{"missing code", connection.ErrMissingCode, http.StatusBadRequest, dto.ErrCodeValidation},
		{"shop in use", merchant.ErrShopDomainInUse, http.StatusConflict, dto.ErrCodeConflict},
		{"no connection", merchant.ErrConnectionNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"replayed state", fmt.Errorf("%w: %w", connection.ErrInvalidState, auth.ErrStateReused), http.StatusBadRequest, dto.ErrCodeInvalidOAuthState},
		{"consent disabled", connection.ErrConsentUnavailable, http.StatusNotImplemented, dto.ErrCodeOAuthDisabled},
		{"not connected", fmt.Errorf("orders: %w", integration.ErrPreconditionUnmet), http.StatusConflict, dto.ErrCodeNotConnected},
		{"auth exhausted", integration.ErrAuthExhausted, http.StatusBadGateway, dto.ErrCodeProviderAuth},
		{"refresh rejected", integration.ErrRefreshRejected, http.StatusBadGateway, dto.ErrCodeProviderAuth},
		{"provider rate limit", integration.ErrRateLimited, http.StatusTooManyRequests, dto.ErrCodeRateLimited},
		{"timeout", integration.ErrTimeout, http.StatusBadGateway, dto.ErrCodeProviderUnavailable},
		{"malformed", integration.ErrMalformedResponse, http.StatusBadGateway, dto.ErrCodeProviderUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/", func(c *gin.Context) {
				(&BaseHandler{}).HandleError(c, tt.err)
			})
			w := testutil.PerformRequest(t, router, http.MethodGet, "/", nil, nil)
			testutil.AssertErrorResponse(t, w, tt.status, tt.code)
		})
	}
}

func TestHandleError_DoesNotLeakInternals(t *testing.T) {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.GET("/", func(c *gin.Context) {
		(&BaseHandler{}).HandleError(c, errors.New("pq: password authentication failed"))
	})

	w := testutil.PerformRequest(t, router, http.MethodGet, "/", nil, nil)
	env := testutil.DecodeEnvelope[any](t, w)
	assert.NotContains(t, w.Body.String(), "pq:")
	assert.NotEmpty(t, env.Error.RequestID)
}

func TestMerchantID_Missing(t *testing.T) {
	router := gin.New()
	router.GET("/", func(c *gin.Context) {
		if _, ok := (&BaseHandler{}).merchantID(c); ok {
			c.Status(http.StatusOK)
		}
	})

	w := testutil.PerformRequest(t, router, http.MethodGet, "/", nil, nil)
	testutil.AssertErrorResponse(t, w, http.StatusUnauthorized, dto.ErrCodeUnauthorized)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	healthy := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	t.Run("health", func(t *testing.T) {
		h := NewHealthHandler("storepulse", "1.2.3", nil)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)
		h.Health(c)

		env := testutil.DecodeEnvelope[HealthResponse](t, w)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", env.Data.Status)
		assert.Equal(t, "1.2.3", env.Data.Version)
	})

	t.Run("ready", func(t *testing.T) {
		h := NewHealthHandler("storepulse", "1.2.3", map[string]Pinger{"database": healthy})
		router := gin.New()
		router.GET("/ready", h.Ready)

		w := testutil.PerformRequest(t, router, http.MethodGet, "/ready", nil, nil)
		env := testutil.DecodeEnvelope[ReadyResponse](t, w)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[string]string{"database": "ok"}, env.Data.Checks)
	})

	t.Run("not ready", func(t *testing.T) {
		h := NewHealthHandler("storepulse", "1.2.3", map[string]Pinger{"database": down, "cache": healthy})
		router := gin.New()
		router.GET("/ready", h.Ready)

		w := testutil.PerformRequest(t, router, http.MethodGet, "/ready", nil, nil)
		testutil.AssertErrorResponse(t, w, http.StatusServiceUnavailable, dto.ErrCodeServiceUnavailable)
		env := testutil.DecodeEnvelope[ReadyResponse](t, w)
		assert.Equal(t, "unavailable", env.Data.Checks["database"])
		assert.Equal(t, "ok", env.Data.Checks["cache"])
	})
}
