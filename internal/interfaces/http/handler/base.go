// Package handler implements the HTTP handlers of the StorePulse API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storepulse/backend/internal/application/connection"
	"github.com/storepulse/backend/internal/domain/integration"
	"github.com/storepulse/backend/internal/domain/merchant"
	"github.com/storepulse/backend/internal/domain/period"
	"github.com/storepulse/backend/internal/infrastructure/logger"
	"github.com/storepulse/backend/internal/interfaces/http/dto"
	"github.com/storepulse/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	if id := middleware.GetRequestID(c); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// merchantID returns the authenticated merchant or writes a 401
func (h *BaseHandler) merchantID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.GetMerchantID(c)
	if !ok {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	return id, true
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// ErrorWithCode sends an error response, deriving the status from the code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BindError answers a failed ShouldBind: oversized bodies, malformed JSON and
// validation failures each get their own code.
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	var syntax *json.SyntaxError
	var unmarshalType *json.UnmarshalTypeError
	switch {
	case errors.As(err, &tooLarge):
		h.ErrorWithCode(c, dto.ErrCodeRequestTooLarge, "Request body too large")
	case errors.As(err, &syntax), errors.As(err, &unmarshalType):
		h.ErrorWithCode(c, dto.ErrCodeInvalidJSON, "Request body is not valid JSON")
	default:
		middleware.HandleValidationError(c, err)
	}
}

// HandleError maps service errors onto API error codes. Server-side failures are logged;
// client errors are not.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	code, message := classify(err)
	status := dto.GetHTTPStatus(code)
	if status >= http.StatusInternalServerError {
		logger.L(c.Request.Context()).Error("Request failed",
			zap.String("error_code", code),
			zap.String("failure_kind", integration.KindOf(err).String()),
			zap.Error(err),
		)
	}
	h.Error(c, status, code, message)
}

func classify(err error) (code, message string) {
	switch {
	case errors.Is(err, period.ErrInvalidPeriod):
		return dto.ErrCodeInvalidPeriod, "Unknown period; use 7d, 30d, this_month or last_month"
	case errors.Is(err, merchant.ErrInvalidShopDomain), errors.Is(err, merchant.ErrInvalidPropertyID),
		errors.Is(err, connection.ErrMissingCode), errors.Is(err, connection.ErrMissingAccessToken):
		return dto.ErrCodeValidation, err.Error()
	case errors.Is(err, merchant.ErrShopDomainInUse):
		return dto.ErrCodeConflict, "This shop is already connected to another account"
	case errors.Is(err, merchant.ErrConnectionNotFound):
		return dto.ErrCodeNotFound, "Connection not found"
	case errors.Is(err, connection.ErrInvalidState):
		return dto.ErrCodeInvalidOAuthState, "Authorization state is invalid or has already been used"
	case errors.Is(err, connection.ErrConsentUnavailable):
		return dto.ErrCodeOAuthDisabled, "Analytics authorization is not configured"
	case errors.Is(err, integration.ErrPreconditionUnmet):
		return dto.ErrCodeNotConnected, "The required store connection is missing or incomplete"
	case errors.Is(err, integration.ErrNoCredential), errors.Is(err, integration.ErrAuthRejected),
		errors.Is(err, integration.ErrAuthExhausted), errors.Is(err, integration.ErrRefreshRejected):
		return dto.ErrCodeProviderAuth, "The provider rejected the stored credentials; please reconnect"
	case errors.Is(err, integration.ErrRateLimited):
		return dto.ErrCodeRateLimited, "The provider is rate limiting requests; try again shortly"
	case errors.Is(err, integration.ErrTransientTransport), errors.Is(err, integration.ErrTimeout),
		errors.Is(err, integration.ErrMalformedResponse):
		return dto.ErrCodeProviderUnavailable, "The provider is temporarily unavailable"
	default:
		return dto.ErrCodeInternal, "An unexpected error occurred"
	}
}
