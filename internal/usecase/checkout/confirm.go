package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
)

// ConfirmPayment asks the provider whether the order was paid. The provider API is the
// only source of truth: return URLs, webhooks and explicit checks all end up here. A paid
// order is fulfilled right away; repeated or concurrent calls fulfill at most once and
// notify at most once.
func (uc *DefaultCheckoutUsecase) ConfirmPayment(ctx context.Context, orderID, providerToken string) (*domain.Order, error) {
	order, err := uc.OrderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case domain.StatusPaid:
		// paid but not fully delivered yet, e.g. after a crash or a stockout
		uc.fulfill(ctx, order.ID)
		return uc.OrderRepo.GetOrderByID(ctx, order.ID)
	case domain.StatusDelivered, domain.StatusRefunded:
		return order, nil
	}

	gw, err := uc.gateway(order.PaymentMethod)
	if err != nil {
		uc.logGatewayFailure(ctx, order, "confirm", err)
		return nil, err
	}

	started := time.Now()
	confirmation, err := gw.Confirm(ctx, order, providerToken)
	uc.Metrics.ObserveGateway(order.PaymentMethod, "confirm", started, err)
	if err != nil {
		if errors.Is(err, domain.ErrTokenMismatch) {
			slog.Warn("provider token does not match order", "order_id", order.ID, "method", order.PaymentMethod, "error", err)
			return nil, err
		}
		uc.logGatewayFailure(ctx, order, "confirm", err)
		return nil, err
	}

	if len(confirmation.PaymentData) > 0 {
		if err := uc.OrderRepo.MergePaymentData(ctx, order.ID, confirmation.PaymentData); err != nil {
			return nil, fmt.Errorf("store confirmation data: %w", err)
		}
	}

	if !confirmation.Paid {
		slog.Info("payment not confirmed yet",
			"order_id", order.ID,
			"method", order.PaymentMethod,
			"provider_status", confirmation.ProviderStatus,
		)
		uc.logEvent(ctx, order, domain.EventPaymentUnconfirmed, confirmation.ProviderStatus, false)
		return uc.OrderRepo.GetOrderByID(ctx, order.ID)
	}

	changed, err := uc.OrderRepo.UpdateOrderStatus(ctx, order.ID, domain.StatusPaid)
	if err != nil {
		// a concurrent confirmation may have moved the order past paid already
		if errors.Is(err, domain.ErrInvalidStatusTransition) {
			return uc.OrderRepo.GetOrderByID(ctx, order.ID)
		}
		return nil, err
	}

	if changed {
		slog.Info("payment confirmed",
			"order_id", order.ID,
			"order_number", order.OrderNumber,
			"method", order.PaymentMethod,
			"provider_status", confirmation.ProviderStatus,
		)
		uc.Metrics.RecordStatusChange(domain.StatusPaid)
		uc.Metrics.RecordPaymentConfirmed(order.PaymentMethod)
		uc.logEvent(ctx, order, domain.EventPaymentConfirmed, confirmation.ProviderStatus, false)
		uc.clearCart(ctx, order)
	}

	uc.fulfill(ctx, order.ID)

	confirmed, err := uc.OrderRepo.GetOrderByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if changed {
		uc.notify(domain.NotifyOrderPaid, confirmed)
	}
	return confirmed, nil
}

// CheckStatus is an explicit status check by the customer; it confirms with the stored
// provider reference.
func (uc *DefaultCheckoutUsecase) CheckStatus(ctx context.Context, orderID string) (*domain.Order, error) {
	return uc.ConfirmPayment(ctx, orderID, "")
}

// HandleWebhook verifies a provider callback and confirms the order it points at. The
// callback body is never trusted for the payment state.
func (uc *DefaultCheckoutUsecase) HandleWebhook(ctx context.Context, method domain.PaymentMethod, body []byte, signature string) error {
	gw, err := uc.gateway(method)
	if err != nil {
		uc.Metrics.RecordWebhook(method, "unavailable")
		return err
	}
	verifier, ok := gw.(domain.WebhookVerifier)
	if !ok {
		uc.Metrics.RecordWebhook(method, "unsupported")
		return fmt.Errorf("%w: %s has no webhooks", domain.ErrUnknownPaymentMethod, method)
	}

	notice, err := verifier.VerifyWebhook(body, signature)
	if err != nil {
		slog.Warn("webhook rejected", "method", method, "error", err)
		uc.Metrics.RecordWebhook(method, "rejected")
		return err
	}

	order, err := uc.webhookOrder(ctx, method, notice)
	if err != nil {
		slog.Warn("webhook for unknown order",
			"method", method,
			"event", notice.Event,
			"order_id", notice.OrderID,
			"payment_id", notice.ProviderPaymentID,
		)
		uc.Metrics.RecordWebhook(method, "unknown_order")
		return err
	}
	if order.PaymentMethod != method {
		uc.Metrics.RecordWebhook(method, "rejected")
		return fmt.Errorf("%w: order %s is paid with %s", domain.ErrTokenMismatch, order.ID, order.PaymentMethod)
	}

	slog.Info("webhook received", "method", method, "event", notice.Event, "order_id", order.ID)
	if _, err := uc.ConfirmPayment(ctx, order.ID, notice.Token); err != nil {
		uc.Metrics.RecordWebhook(method, "failed")
		return err
	}
	uc.Metrics.RecordWebhook(method, "ok")
	return nil
}

func (uc *DefaultCheckoutUsecase) webhookOrder(ctx context.Context, method domain.PaymentMethod, notice *domain.WebhookNotice) (*domain.Order, error) {
	if notice.OrderID != "" {
		order, err := uc.OrderRepo.GetOrderByID(ctx, notice.OrderID)
		if err == nil || !errors.Is(err, domain.ErrOrderNotFound) || notice.ProviderPaymentID == "" {
			return order, err
		}
	}
	if notice.ProviderPaymentID == "" {
		return nil, domain.ErrOrderNotFound
	}
	return uc.OrderRepo.GetOrderByPaymentID(ctx, method, notice.ProviderPaymentID)
}

// fulfill runs fulfillment for a paid order. Its failures never undo the payment: the
// order stays paid and the next confirmation or an operator retries.
func (uc *DefaultCheckoutUsecase) fulfill(ctx context.Context, orderID string) {
	if uc.Fulfiller == nil {
		return
	}
	report, err := uc.Fulfiller.Fulfill(ctx, orderID)
	if err != nil {
		slog.Error("fulfillment failed", "order_id", orderID, "error", err)
		return
	}
	if len(report.Stockouts) > 0 || len(report.Manual) > 0 {
		slog.Warn("order needs operator attention",
			"order_id", orderID,
			"stockouts", report.Stockouts,
			"manual", report.Manual,
		)
	}
}

func (uc *DefaultCheckoutUsecase) clearCart(ctx context.Context, order *domain.Order) {
	owner := cartOwner(order.UserID, order.SessionID)
	if owner == "" || uc.CartRepo == nil {
		return
	}
	if err := uc.CartRepo.Clear(ctx, owner); err != nil {
		slog.Warn("failed to clear cart", "order_id", order.ID, "owner", owner, "error", err)
	}
}
