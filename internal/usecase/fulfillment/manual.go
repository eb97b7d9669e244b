package fulfillment

import (
	"context"
	"log/slog"
	"strings"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
)

// DeliverManually records an operator hand-over for one item of a paid order and
// completes the order when it was the last pending item.
func (uc *DefaultFulfillmentUsecase) DeliverManually(ctx context.Context, itemID, code string) (*domain.Order, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrEmptyDeliveryCode
	}

	orderID, err := uc.CodeRepo.DeliverItemManually(ctx, itemID, code)
	if err != nil {
		return nil, err
	}
	slog.Info("item delivered manually", "order_id", orderID, "item_id", itemID)
	uc.Metrics.RecordFulfillment("manual_delivered", 1)

	if _, err := uc.completeOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return uc.OrderRepo.GetOrderByID(ctx, orderID)
}
