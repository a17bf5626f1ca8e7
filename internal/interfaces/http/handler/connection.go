package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/storepulse/backend/internal/application/connection"
	"github.com/storepulse/backend/internal/interfaces/http/dto"
)

// ConnectionService manages provider connections
type ConnectionService interface {
	Status(ctx context.Context, merchantID uuid.UUID) (*connection.Status, error)
	SaveCommerce(ctx context.Context, merchantID uuid.UUID, shopDomain, accessToken string) (*connection.Status, error)
	AuthorizationURL(ctx context.Context, merchantID uuid.UUID) (string, error)
	CompleteAuthorization(ctx context.Context, merchantID uuid.UUID, code, state string) (*connection.Status, error)
	SetProperty(ctx context.Context, merchantID uuid.UUID, propertyID string) (*connection.Status, error)
}

// ConnectionHandler serves the connection endpoints
type ConnectionHandler struct {
	BaseHandler
	connections ConnectionService
}

// NewConnectionHandler creates a ConnectionHandler
func NewConnectionHandler(connections ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{connections: connections}
}

// GetStatus godoc
// @ID           getConnections
// @Summary      Get connection status
// @Tags         connections
// @Produce      json
// @Success      200 {object} dto.Response{data=connection.Status}
// @Failure      401 {object} dto.Response
// @Security     BearerAuth
// @Router       /connections [get]
func (h *ConnectionHandler) GetStatus(c *gin.Context) {
	merchantID, ok := h.merchantID(c)
	if !ok {
		return
	}
	status, err := h.connections.Status(c.Request.Context(), merchantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}

// SaveCommerce godoc
// @ID           saveCommerceConnection
// @Summary      Connect a Shopify store
// @Tags         connections
// @Accept       json
// @Produce      json
// @Param        request body dto.SaveCommerceRequest true "Shop domain and Admin API token"
// @Success      200 {object} dto.Response{data=connection.Status}
// @Failure      400 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Security     BearerAuth
// @Router       /connections/commerce [post]
func (h *ConnectionHandler) SaveCommerce(c *gin.Context) {
	merchantID, ok := h.merchantID(c)
	if !ok {
		return
	}
	var req dto.SaveCommerceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	status, err := h.connections.SaveCommerce(c.Request.Context(), merchantID, req.ShopDomain, req.AccessToken)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}

// AuthorizeTraffic godoc
// @ID           authorizeTraffic
// @Summary      Start Google Analytics authorization
// @Description  Returns the consent URL carrying a signed one-time state
// @Tags         connections
// @Produce      json
// @Success      200 {object} dto.Response{data=dto.AuthorizationURLResponse}
// @Failure      501 {object} dto.Response
// @Security     BearerAuth
// @Router       /connections/traffic/authorize [get]
func (h *ConnectionHandler) AuthorizeTraffic(c *gin.Context) {
	merchantID, ok := h.merchantID(c)
	if !ok {
		return
	}
	url, err := h.connections.AuthorizationURL(c.Request.Context(), merchantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.AuthorizationURLResponse{AuthorizationURL: url})
}

// TrafficCallback godoc
// @ID           completeTrafficAuthorization
// @Summary      Complete Google Analytics authorization
// @Tags         connections
// @Accept       json
// @Produce      json
// @Param        request body dto.TrafficCallbackRequest true "Authorization code and state"
// @Success      200 {object} dto.Response{data=connection.Status}
// @Failure      400 {object} dto.Response
// @Failure      502 {object} dto.Response
// @Security     BearerAuth
// @Router       /connections/traffic/callback [post]
func (h *ConnectionHandler) TrafficCallback(c *gin.Context) {
	merchantID, ok := h.merchantID(c)
	if !ok {
		return
	}
	var req dto.TrafficCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	status, err := h.connections.CompleteAuthorization(c.Request.Context(), merchantID, req.Code, req.State)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}

// SetProperty godoc
// @ID           setTrafficProperty
// @Summary      Select the Google Analytics property
// @Tags         connections
// @Accept       json
// @Produce      json
// @Param        request body dto.SetPropertyRequest true "Property id such as properties/123"
// @Success      200 {object} dto.Response{data=connection.Status}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /connections/traffic/property [put]
func (h *ConnectionHandler) SetProperty(c *gin.Context) {
	merchantID, ok := h.merchantID(c)
	if !ok {
		return
	}
	var req dto.SetPropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	status, err := h.connections.SetProperty(c.Request.Context(), merchantID, req.PropertyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}
