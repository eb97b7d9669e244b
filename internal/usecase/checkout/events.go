package checkout

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
)

func (uc *DefaultCheckoutUsecase) logEvent(ctx context.Context, order *domain.Order, eventType domain.PaymentEventType, reason string, transient bool) {
	if uc.EventLogger == nil {
		return
	}
	event := domain.PaymentEvent{
		OrderID:   order.ID,
		Type:      eventType,
		Method:    order.PaymentMethod,
		Amount:    order.TotalAmount.String(),
		Currency:  order.Currency,
		Reason:    reason,
		Transient: transient,
		Timestamp: uc.now(),
	}
	if err := uc.EventLogger.LogPaymentEvent(context.WithoutCancel(ctx), event); err != nil {
		slog.Error("failed to log payment event", "order_id", order.ID, "type", eventType, "error", err)
	}
}

func (uc *DefaultCheckoutUsecase) logGatewayFailure(ctx context.Context, order *domain.Order, op string, err error) {
	transient := false
	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) {
		transient = gwErr.Transient()
	}
	slog.Error("payment gateway call failed",
		"order_id", order.ID,
		"method", order.PaymentMethod,
		"op", op,
		"transient", transient,
		"error", err,
	)
	uc.logEvent(ctx, order, domain.EventPaymentFailed, op+": "+err.Error(), transient)
}

func (uc *DefaultCheckoutUsecase) notify(kind domain.NotificationKind, order *domain.Order) {
	if uc.Notifier == nil {
		return
	}
	snapshot := *order
	snapshot.Items = slices.Clone(order.Items)
	uc.Notifier.NotifyOrder(domain.OrderNotification{
		Kind:       kind,
		Order:      snapshot,
		OccurredAt: uc.now(),
	})
}

func (uc *DefaultCheckoutUsecase) gateway(method domain.PaymentMethod) (domain.PaymentGateway, error) {
	gw, ok := uc.Gateways[method]
	if !ok {
		return nil, domain.NewGatewayError(method, "lookup", domain.ErrCredentialsMissing, errors.New("gateway not configured"))
	}
	return gw, nil
}
