package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
)

// StartCheckout snapshots the cart, creates the order and hands it to the payment
// gateway. When the gateway fails after the order was created, the pending order is
// returned together with the error so the customer can retry payment for it.
func (uc *DefaultCheckoutUsecase) StartCheckout(ctx context.Context, input *CheckoutInput) (*CheckoutResult, error) {
	items := input.Items
	if len(items) == 0 {
		owner := cartOwner(input.UserID, input.SessionID)
		if owner != "" {
			cart, err := uc.CartRepo.GetCart(ctx, owner)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrOrderCreationFailed, err)
			}
			items = cart.Lines()
		}
	}

	order, err := uc.CreateOrder(ctx, domain.PaymentRequest{
		Method:        input.Method,
		CustomerEmail: input.CustomerEmail,
		CustomerPhone: input.CustomerPhone,
		Items:         items,
		UserID:        input.UserID,
		SessionID:     input.SessionID,
	})
	if err != nil {
		return nil, err
	}

	redirectURL, err := uc.initiate(ctx, order)
	if err != nil {
		return &CheckoutResult{Order: order}, err
	}
	return &CheckoutResult{Order: order, RedirectURL: redirectURL}, nil
}

// InitiatePayment retries the provider hand-off for an order that is still pending. The
// payment method is fixed at creation.
func (uc *DefaultCheckoutUsecase) InitiatePayment(ctx context.Context, orderID string) (*CheckoutResult, error) {
	order, err := uc.OrderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.StatusPending {
		return nil, fmt.Errorf("%w: order %s is %s", domain.ErrOrderNotPending, order.OrderNumber, order.Status)
	}

	settings, err := uc.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if settings.MaintenanceMode {
		return nil, domain.ErrMaintenanceMode
	}
	if !settings.MethodEnabled(order.PaymentMethod) {
		return nil, fmt.Errorf("%w: %s", domain.ErrPaymentMethodDisabled, order.PaymentMethod)
	}

	redirectURL, err := uc.initiate(ctx, order)
	if err != nil {
		return &CheckoutResult{Order: order}, err
	}
	return &CheckoutResult{Order: order, RedirectURL: redirectURL}, nil
}

// initiate creates the provider-side payment and records its reference on the order. The
// order stays pending whatever happens here.
func (uc *DefaultCheckoutUsecase) initiate(ctx context.Context, order *domain.Order) (string, error) {
	gw, err := uc.gateway(order.PaymentMethod)
	if err != nil {
		uc.logGatewayFailure(ctx, order, "initiate", err)
		return "", err
	}

	started := time.Now()
	initiation, err := gw.Initiate(ctx, order, paymentRequest(order))
	uc.Metrics.ObserveGateway(order.PaymentMethod, "initiate", started, err)
	if err != nil {
		uc.logGatewayFailure(ctx, order, "initiate", err)
		return "", err
	}

	if err := uc.OrderRepo.SetPaymentReference(ctx, order.ID, initiation.ProviderPaymentID, initiation.PaymentData); err != nil {
		return "", fmt.Errorf("store payment reference: %w", err)
	}
	order.PaymentID = initiation.ProviderPaymentID
	if order.PaymentData == nil {
		order.PaymentData = make(map[string]any, len(initiation.PaymentData))
	}
	for k, v := range initiation.PaymentData {
		order.PaymentData[k] = v
	}

	slog.Info("payment initiated",
		"order_id", order.ID,
		"method", order.PaymentMethod,
		"payment_id", initiation.ProviderPaymentID,
		"charged", initiation.ChargedAmount.String(),
		"charged_currency", initiation.ChargedCurrency,
	)
	uc.logEvent(ctx, order, domain.EventPaymentInitiated, "", false)

	return initiation.RedirectURL, nil
}

func paymentRequest(order *domain.Order) domain.PaymentRequest {
	lines := make([]domain.CartLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, domain.CartLine{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	return domain.PaymentRequest{
		Method:        order.PaymentMethod,
		Amount:        order.TotalAmount,
		Currency:      order.Currency,
		CustomerEmail: order.CustomerEmail,
		CustomerPhone: order.CustomerPhone,
		Items:         lines,
		UserID:        order.UserID,
		SessionID:     order.SessionID,
	}
}

func cartOwner(userID, sessionID string) string {
	if userID != "" {
		return userID
	}
	return sessionID
}
