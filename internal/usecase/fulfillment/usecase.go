// Package fulfillment hands out goods for paid orders: codes from the pool for auto
// products, operator deliveries for everything else.
package fulfillment

import (
	"context"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/metrics"
)

type FulfillmentUsecase interface {
	Fulfill(ctx context.Context, orderID string) (*domain.FulfillmentReport, error)
	DeliverManually(ctx context.Context, itemID, code string) (*domain.Order, error)
	StockCounts(ctx context.Context, productIDs ...string) ([]domain.StockCount, error)
	ImportCodes(ctx context.Context, productID string, codes []string) (int, error)
}

type DefaultFulfillmentUsecase struct {
	OrderRepo domain.OrderRepository
	CodeRepo  domain.CodeRepository
	Metrics   *metrics.CheckoutMetrics
}

func NewDefaultFulfillmentUsecase(
	orderRepo domain.OrderRepository,
	codeRepo domain.CodeRepository,
	checkoutMetrics *metrics.CheckoutMetrics,
) *DefaultFulfillmentUsecase {
	return &DefaultFulfillmentUsecase{
		OrderRepo: orderRepo,
		CodeRepo:  codeRepo,
		Metrics:   checkoutMetrics,
	}
}
