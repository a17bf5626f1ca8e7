package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storepulse/backend/internal/domain/integration"
	"github.com/storepulse/backend/internal/domain/merchant"
	"github.com/storepulse/backend/internal/domain/period"
	"github.com/storepulse/backend/internal/infrastructure/logger"
	"github.com/storepulse/backend/internal/infrastructure/telemetry"
)

// Order listing page sizes
const (
	DefaultOrderPageSize = 50
	MaxOrderPageSize     = 250
)

// OrdersPage is one page of the order listing
type OrdersPage struct {
	Orders       []integration.Order `json:"orders"`
	NextPageInfo string              `json:"next_page_info,omitempty"`
	Period       PeriodInfo          `json:"period"`
}

// ListOrders returns one page of the period's orders. Listings are never cached.
// A merchant without a commerce connection gets integration.ErrPreconditionUnmet.
func (s *Service) ListOrders(ctx context.Context, merchantID uuid.UUID, rawPeriod, cursor string, pageSize int) (*OrdersPage, error) {
	spec, err := period.ParseAndResolve(rawPeriod, s.now())
	if err != nil {
		return nil, err
	}
	switch {
	case pageSize <= 0:
		pageSize = DefaultOrderPageSize
	case pageSize > MaxOrderPageSize:
		pageSize = MaxOrderPageSize
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "dashboard", "list_orders",
		telemetry.WithAttribute(telemetry.SpanAttrPeriod, spec.ID.String()),
	)
	defer span.End()

	conn, err := s.connections.GetCommerce(ctx, merchantID)
	if errors.Is(err, merchant.ErrConnectionNotFound) {
		return nil, fmt.Errorf("%w: commerce not connected", integration.ErrPreconditionUnmet)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	q := integration.OrderQuery{Start: spec.Start, End: spec.End, Status: integration.OrderStatusAny}
	page, err := s.commerce.ListOrders(ctx, conn, q, cursor, pageSize)
	if err != nil {
		telemetry.RecordError(span, err)
		logger.L(ctx).Warn("Order listing failed",
			zap.String("merchant_id", merchantID.String()),
			zap.String("failure_kind", integration.KindOf(err).String()),
		)
		return nil, err
	}

	out := &OrdersPage{
		Orders:       page.Orders,
		NextPageInfo: page.NextCursor,
		Period:       PeriodInfo{Label: spec.Label, StartDate: spec.StartDate(), EndDate: spec.EndDate()},
	}
	if out.Orders == nil {
		out.Orders = []integration.Order{}
	}
	return out, nil
}
