package checkout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
)

// SetOrderStatus is the operator override. Paid is reserved for provider confirmation, so
// it is never accepted here.
func (uc *DefaultCheckoutUsecase) SetOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() || status == domain.StatusPending {
		return nil, fmt.Errorf("%w: unknown target status %q", domain.ErrInvalidStatusTransition, status)
	}
	if status == domain.StatusPaid {
		return nil, fmt.Errorf("%w: paid is set by payment confirmation only", domain.ErrInvalidStatusTransition)
	}

	order, err := uc.OrderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	changed, err := uc.OrderRepo.UpdateOrderStatus(ctx, order.ID, status)
	if err != nil {
		return nil, err
	}
	if changed {
		slog.Info("order status changed by operator",
			"order_id", order.ID,
			"order_number", order.OrderNumber,
			"from", order.Status,
			"to", status,
		)
		uc.Metrics.RecordStatusChange(status)
		uc.logEvent(ctx, order, domain.EventStatusChanged, fmt.Sprintf("%s -> %s", order.Status, status), false)
	}

	return uc.OrderRepo.GetOrderByID(ctx, order.ID)
}
