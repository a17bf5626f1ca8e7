package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/storepulse/backend/internal/application/dashboard"
	"github.com/storepulse/backend/internal/domain/insight"
	"github.com/storepulse/backend/internal/domain/period"
	"github.com/storepulse/backend/internal/interfaces/http/dto"
)

// DashboardService builds dashboards and order pages
type DashboardService interface {
	GetDashboard(ctx context.Context, merchantID uuid.UUID, rawPeriod string) (*dashboard.Result, error)
	ListOrders(ctx context.Context, merchantID uuid.UUID, rawPeriod, cursor string, pageSize int) (*dashboard.OrdersPage, error)
}

// InsightService correlates traffic with stock
type InsightService interface {
	Analyze(ctx context.Context, merchantID uuid.UUID, spec period.Spec) ([]insight.Insight, error)
}

// DashboardHandler serves the reporting endpoints
type DashboardHandler struct {
	BaseHandler
	dashboards DashboardService
	insights   InsightService
	now        func() time.Time
}

// NewDashboardHandler creates a DashboardHandler
func NewDashboardHandler(dashboards DashboardService, insights InsightService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards, insights: insights, now: time.Now}
}

// InsightsResponse wraps the insight list of a period
// @name HandlerInsightsResponse
type InsightsResponse struct {
	Insights []insight.Insight    `json:"insights"`
	Period   dashboard.PeriodInfo `json:"period"`
}

// GetDashboard godoc
// @ID           getDashboard
// @Summary      Get the merchant dashboard
// @Description  Storefront and analytics metrics for a period. Sections of unconnected or failing providers are empty.
// @Tags         dashboard
// @Produce      json
// @Param        period query string false "Period" Enums(7d, 30d, this_month, last_month) default(7d)
// @Success      200 {object} dto.Response{data=dashboard.Result}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Security     BearerAuth
// @Router       /dashboard [get]
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	merchantID, ok := h.merchantID(c)
	if !ok {
		return
	}
	var q dto.PeriodQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.dashboards.GetDashboard(c.Request.Context(), merchantID, q.Period)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GetInsights godoc
// @ID           getInsights
// @Summary      Get traffic and stock insights
// @Tags         dashboard
// @Produce      json
// @Param        period query string false "Period" Enums(7d, 30d, this_month, last_month) default(7d)
// @Success      200 {object} dto.Response{data=InsightsResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Security     BearerAuth
// @Router       /insights [get]
func (h *DashboardHandler) GetInsights(c *gin.Context) {
	merchantID, ok := h.merchantID(c)
	if !ok {
		return
	}
	var q dto.PeriodQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	spec, err := period.ParseAndResolve(q.Period, h.now())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	insights, err := h.insights.Analyze(c.Request.Context(), merchantID, spec)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, InsightsResponse{
		Insights: insights,
		Period: dashboard.PeriodInfo{
			Label:     spec.Label,
			StartDate: spec.StartDate(),
			EndDate:   spec.EndDate(),
		},
	})
}

// ListOrders godoc
// @ID           listOrders
// @Summary      List one page of orders
// @Description  Orders created in the period, newest first. Pass next_page_info back as page_info for the next page.
// @Tags         dashboard
// @Produce      json
// @Param        period query string false "Period" Enums(7d, 30d, this_month, last_month) default(7d)
// @Param        page_info query string false "Cursor from a previous page"
// @Param        limit query int false "Page size" minimum(1) maximum(250) default(50)
// @Success      200 {object} dto.Response{data=dashboard.OrdersPage}
// @Failure      400 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      502 {object} dto.Response
// @Security     BearerAuth
// @Router       /orders [get]
func (h *DashboardHandler) ListOrders(c *gin.Context) {
	merchantID, ok := h.merchantID(c)
	if !ok {
		return
	}
	var q dto.OrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.dashboards.ListOrders(c.Request.Context(), merchantID, q.Period, q.PageInfo, q.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, page)
}
