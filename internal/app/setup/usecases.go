package setup

import (
	"fmt"

	"github.com/LavaJover/shvark-checkout-service/internal/usecase/admin"
	"github.com/LavaJover/shvark-checkout-service/internal/usecase/checkout"
	"github.com/LavaJover/shvark-checkout-service/internal/usecase/fulfillment"
)

type UseCases struct {
	CheckoutUsecase    checkout.CheckoutUsecase
	FulfillmentUsecase fulfillment.FulfillmentUsecase
	SessionUsecase     admin.SessionUsecase
}

func InitializeUseCases(deps *Dependencies) (*UseCases, error) {
	fulfillmentUsecase := fulfillment.NewDefaultFulfillmentUsecase(
		deps.Repositories.OrderRepo,
		deps.Repositories.CodeRepo,
		deps.Metrics,
	)

	checkoutUsecase := checkout.NewDefaultCheckoutUsecase(
		deps.Repositories.OrderRepo,
		deps.Repositories.ProductRepo,
		deps.Repositories.CartRepo,
		deps.Settings,
		deps.Gateways,
		fulfillmentUsecase,
		deps.Dispatcher,
		deps.EventLogger,
		deps.Metrics,
	)

	sessionUsecase, err := admin.NewDefaultSessionUsecase(deps.Config.Admin.PasswordHash, deps.Config.Admin.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("admin sessions: %w", err)
	}

	return &UseCases{
		CheckoutUsecase:    checkoutUsecase,
		FulfillmentUsecase: fulfillmentUsecase,
		SessionUsecase:     sessionUsecase,
	}, nil
}
