package checkout

import (
	"context"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
)

func (uc *DefaultCheckoutUsecase) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return uc.OrderRepo.GetOrderByID(ctx, orderID)
}

// GetOrderView returns the receipt: the order with its items and delivery codes, plus the
// support contacts when something paid is still waiting for delivery.
func (uc *DefaultCheckoutUsecase) GetOrderView(ctx context.Context, orderID string) (*OrderView, error) {
	order, err := uc.OrderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	view := &OrderView{Order: order, NeedsSupport: order.NeedsSupport()}
	if !view.NeedsSupport {
		return view, nil
	}

	settings, err := uc.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	view.Support = settings.SupportLinks()
	return view, nil
}

func (uc *DefaultCheckoutUsecase) ListOrders(ctx context.Context, filter domain.OrderFilter, page, limit int) ([]*domain.Order, int64, error) {
	return uc.OrderRepo.ListOrders(ctx, filter, page, limit)
}
