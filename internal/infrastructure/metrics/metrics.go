package metrics

import (
	"errors"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CheckoutMetrics holds the checkout, payment and fulfillment metrics.
type CheckoutMetrics struct {
	// Orders
	OrdersCreatedTotal       *prometheus.CounterVec
	OrdersCreatedAmountTotal *prometheus.CounterVec
	OrderStatusChangesTotal  *prometheus.CounterVec
	OrdersExpiredTotal       prometheus.Counter

	// Payments
	PaymentsConfirmedTotal *prometheus.CounterVec
	PaymentFailuresTotal   *prometheus.CounterVec
	GatewayRequestDuration *prometheus.HistogramVec
	WebhooksTotal          *prometheus.CounterVec

	// Fulfillment
	FulfillmentItemsTotal *prometheus.CounterVec

	// Notifications
	NotificationsTotal *prometheus.CounterVec
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	factory := promauto.With(reg)

	return &CheckoutMetrics{
		OrdersCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_orders_created_total",
				Help: "Orders created, by payment method and settlement currency",
			},
			[]string{"method", "currency"},
		),

		OrdersCreatedAmountTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_orders_created_amount_total",
				Help: "Sum of created order totals in the settlement currency",
			},
			[]string{"method", "currency"},
		),

		OrderStatusChangesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_order_status_changes_total",
				Help: "Applied order status transitions, by target status",
			},
			[]string{"status"},
		),

		OrdersExpiredTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "checkout_orders_expired_total",
				Help: "Pending orders moved to failed by the expiry task",
			},
		),

		PaymentsConfirmedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_payments_confirmed_total",
				Help: "Payments confirmed by the provider",
			},
			[]string{"method"},
		),

		PaymentFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_payment_failures_total",
				Help: "Failed provider calls, by method, operation and failure kind",
			},
			[]string{"method", "op", "kind"},
		),

		GatewayRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "checkout_gateway_request_duration_seconds",
				Help:    "Duration of payment provider calls",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"method", "op"},
		),

		WebhooksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_webhooks_total",
				Help: "Provider callbacks received, by method and outcome",
			},
			[]string{"method", "result"},
		),

		FulfillmentItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_fulfillment_items_total",
				Help: "Order items processed by fulfillment, by outcome",
			},
			[]string{"result"},
		),

		NotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_notifications_total",
				Help: "Notifications sent, by sink and outcome",
			},
			[]string{"sink", "result"},
		),
	}
}

func (m *CheckoutMetrics) RecordOrderCreated(order *domain.Order) {
	if m == nil {
		return
	}
	method, currency := string(order.PaymentMethod), string(order.Currency)
	m.OrdersCreatedTotal.WithLabelValues(method, currency).Inc()
	m.OrdersCreatedAmountTotal.WithLabelValues(method, currency).Add(order.TotalAmount.InexactFloat64())
}

func (m *CheckoutMetrics) RecordStatusChange(status domain.OrderStatus) {
	if m == nil {
		return
	}
	m.OrderStatusChangesTotal.WithLabelValues(string(status)).Inc()
}

func (m *CheckoutMetrics) RecordExpired(n int) {
	if m == nil || n == 0 {
		return
	}
	m.OrdersExpiredTotal.Add(float64(n))
}

func (m *CheckoutMetrics) RecordPaymentConfirmed(method domain.PaymentMethod) {
	if m == nil {
		return
	}
	m.PaymentsConfirmedTotal.WithLabelValues(string(method)).Inc()
}

// ObserveGateway records the call duration and, on failure, its kind.
func (m *CheckoutMetrics) ObserveGateway(method domain.PaymentMethod, op string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.GatewayRequestDuration.WithLabelValues(string(method), op).Observe(time.Since(started).Seconds())
	if err != nil {
		m.PaymentFailuresTotal.WithLabelValues(string(method), op, FailureKind(err)).Inc()
	}
}

func (m *CheckoutMetrics) RecordWebhook(method domain.PaymentMethod, result string) {
	if m == nil {
		return
	}
	m.WebhooksTotal.WithLabelValues(string(method), result).Inc()
}

func (m *CheckoutMetrics) RecordFulfillment(result string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.FulfillmentItemsTotal.WithLabelValues(result).Add(float64(n))
}

func (m *CheckoutMetrics) RecordNotification(sink string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.NotificationsTotal.WithLabelValues(sink, result).Inc()
}

// FailureKind is a low-cardinality label for a gateway error.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrCredentialsMissing):
		return "credentials_missing"
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrProviderRejected):
		return "rejected"
	case errors.Is(err, domain.ErrTokenMismatch):
		return "token_mismatch"
	}
	return "other"
}
