// Package checkout turns cart snapshots into orders and drives them through payment.
package checkout

import (
	"context"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/metrics"
)

type CheckoutUsecase interface {
	StartCheckout(ctx context.Context, input *CheckoutInput) (*CheckoutResult, error)
	CreateOrder(ctx context.Context, req domain.PaymentRequest) (*domain.Order, error)
	InitiatePayment(ctx context.Context, orderID string) (*CheckoutResult, error)

	ConfirmPayment(ctx context.Context, orderID, providerToken string) (*domain.Order, error)
	CheckStatus(ctx context.Context, orderID string) (*domain.Order, error)
	HandleWebhook(ctx context.Context, method domain.PaymentMethod, body []byte, signature string) error

	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	GetOrderView(ctx context.Context, orderID string) (*OrderView, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter, page, limit int) ([]*domain.Order, int64, error)

	SetOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error)
	ExpirePendingOrders(ctx context.Context, olderThan time.Duration) (int, error)
}

// CheckoutInput is a checkout request from the storefront. Items, when empty, are taken
// from the cart of the user or, for anonymous visitors, the session.
type CheckoutInput struct {
	Method        domain.PaymentMethod
	CustomerEmail string
	CustomerPhone string
	UserID        string
	SessionID     string
	Items         []domain.CartLine
}

type CheckoutResult struct {
	Order       *domain.Order
	RedirectURL string
}

// OrderView is the receipt read model.
type OrderView struct {
	Order        *domain.Order
	NeedsSupport bool
	Support      domain.SupportLinks
}

type DefaultCheckoutUsecase struct {
	OrderRepo   domain.OrderRepository
	ProductRepo domain.ProductRepository
	CartRepo    domain.CartRepository
	Settings    domain.SettingsProvider
	Gateways    map[domain.PaymentMethod]domain.PaymentGateway
	Fulfiller   domain.Fulfiller
	Notifier    domain.OrderNotifier
	EventLogger domain.PaymentEventLogger
	Metrics     *metrics.CheckoutMetrics

	now            func() time.Time
	newOrderNumber func(time.Time) (string, error)
}

func NewDefaultCheckoutUsecase(
	orderRepo domain.OrderRepository,
	productRepo domain.ProductRepository,
	cartRepo domain.CartRepository,
	settings domain.SettingsProvider,
	gateways []domain.PaymentGateway,
	fulfiller domain.Fulfiller,
	notifier domain.OrderNotifier,
	eventLogger domain.PaymentEventLogger,
	checkoutMetrics *metrics.CheckoutMetrics,
) *DefaultCheckoutUsecase {
	byMethod := make(map[domain.PaymentMethod]domain.PaymentGateway, len(gateways))
	for _, gw := range gateways {
		byMethod[gw.Method()] = gw
	}

	return &DefaultCheckoutUsecase{
		OrderRepo:      orderRepo,
		ProductRepo:    productRepo,
		CartRepo:       cartRepo,
		Settings:       settings,
		Gateways:       byMethod,
		Fulfiller:      fulfiller,
		Notifier:       notifier,
		EventLogger:    eventLogger,
		Metrics:        checkoutMetrics,
		now:            time.Now,
		newOrderNumber: NewOrderNumber,
	}
}
