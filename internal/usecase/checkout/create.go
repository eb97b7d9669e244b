package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const orderNumberAttempts = 3

var hundred = decimal.NewFromInt(100)

// CreateOrder validates the request, prices every line in the settlement currency of the
// payment method and stores the pending order with its items in one transaction.
func (uc *DefaultCheckoutUsecase) CreateOrder(ctx context.Context, req domain.PaymentRequest) (*domain.Order, error) {
	order, err := uc.buildOrder(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrOrderCreationFailed, err)
	}

	for attempt := 1; ; attempt++ {
		order.OrderNumber, err = uc.newOrderNumber(uc.now())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrOrderCreationFailed, err)
		}

		err = uc.OrderRepo.CreateOrder(ctx, order)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrDuplicateOrderNumber) || attempt == orderNumberAttempts {
			return nil, fmt.Errorf("%w: %w", domain.ErrOrderCreationFailed, err)
		}
		slog.Warn("order number collision, retrying", "order_number", order.OrderNumber, "attempt", attempt)
	}

	slog.Info("order created",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"method", order.PaymentMethod,
		"total", order.TotalAmount.String(),
		"currency", order.Currency,
	)
	uc.Metrics.RecordOrderCreated(order)
	uc.logEvent(ctx, order, domain.EventOrderCreated, "", false)
	uc.notify(domain.NotifyOrderCreated, order)

	return order, nil
}

func (uc *DefaultCheckoutUsecase) buildOrder(ctx context.Context, req domain.PaymentRequest) (*domain.Order, error) {
	if !req.Method.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPaymentMethod, req.Method)
	}
	email := strings.TrimSpace(req.CustomerEmail)
	if email == "" {
		return nil, domain.ErrCustomerEmailRequired
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: %q is not a valid address", domain.ErrCustomerEmailRequired, email)
	}
	if len(req.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}
	for _, line := range req.Items {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("%w: product %s", domain.ErrInvalidQuantity, line.ProductID)
		}
	}

	settings, err := uc.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if settings.MaintenanceMode {
		return nil, domain.ErrMaintenanceMode
	}
	if !settings.MethodEnabled(req.Method) {
		return nil, fmt.Errorf("%w: %s", domain.ErrPaymentMethodDisabled, req.Method)
	}

	productIDs := lo.Uniq(lo.Map(req.Items, func(line domain.CartLine, _ int) string { return line.ProductID }))
	products, err := uc.ProductRepo.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	currency := req.Method.SettlementCurrency()
	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, line := range req.Items {
		item, err := priceLine(line, products, currency, settings.ExchangeRate)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	subtotal := lo.Reduce(items, func(sum decimal.Decimal, item domain.OrderItem, _ int) decimal.Decimal {
		return sum.Add(item.TotalPrice)
	}, decimal.Zero)
	tax := currency.Round(subtotal.Mul(settings.TaxRate).Div(hundred))

	return &domain.Order{
		Status:        domain.StatusPending,
		PaymentMethod: req.Method,
		Currency:      currency,
		Subtotal:      subtotal,
		TaxAmount:     tax,
		TotalAmount:   subtotal.Add(tax),
		CustomerEmail: email,
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		UserID:        req.UserID,
		SessionID:     req.SessionID,
		PaymentData:   map[string]any{},
		Items:         items,
	}, nil
}

func priceLine(line domain.CartLine, products map[string]*domain.Product, cur domain.Currency, rate decimal.Decimal) (domain.OrderItem, error) {
	product, ok := products[line.ProductID]
	if !ok || !product.Active {
		return domain.OrderItem{}, fmt.Errorf("%w: %s", domain.ErrProductNotFound, line.ProductID)
	}

	var variant *domain.ProductVariant
	name := product.NameEN
	if line.VariantID != "" {
		variant, ok = product.Variant(line.VariantID)
		if !ok {
			return domain.OrderItem{}, fmt.Errorf("%w: %s", domain.ErrVariantNotFound, line.VariantID)
		}
		name = product.NameEN + " - " + variant.Name
	}

	unit := product.UnitPrice(variant, cur, rate)
	return domain.OrderItem{
		ProductID:       product.ID,
		VariantID:       line.VariantID,
		ProductName:     name,
		FulfillmentType: product.FulfillmentType,
		Quantity:        line.Quantity,
		UnitPrice:       unit,
		TotalPrice:      unit.Mul(decimal.NewFromInt(int64(line.Quantity))),
		DeliveryStatus:  domain.DeliveryPending,
	}, nil
}
