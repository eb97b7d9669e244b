package notifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
)

// Sink is one notification channel.
type Sink interface {
	Name() string
	Send(ctx context.Context, n domain.OrderNotification) error
}

const (
	markerAuto   = "⚡"
	markerManual = "👤"
)

// FormatOrderMessage renders the operator message for a notification.
func FormatOrderMessage(n domain.OrderNotification) string {
	order := n.Order

	var b strings.Builder
	switch n.Kind {
	case domain.NotifyOrderPaid:
		fmt.Fprintf(&b, "✅ Payment received: %s\n", order.OrderNumber)
	default:
		fmt.Fprintf(&b, "🛒 New order: %s\n", order.OrderNumber)
	}
	fmt.Fprintf(&b, "Status: %s\n", order.Status)
	fmt.Fprintf(&b, "Email: %s\n", order.CustomerEmail)
	if order.CustomerPhone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", order.CustomerPhone)
	}
	fmt.Fprintf(&b, "Method: %s\n", order.PaymentMethod.DisplayName())
	fmt.Fprintf(&b, "Total: %s %s\n", formatAmount(order), order.Currency)

	b.WriteString("Items:\n")
	for _, item := range order.Items {
		marker := markerManual
		if item.FulfillmentType == domain.FulfillmentAuto {
			marker = markerAuto
		}
		fmt.Fprintf(&b, "%s %s x%d", marker, item.ProductName, item.Quantity)
		if item.DeliveryStatus == domain.DeliveryDelivered {
			b.WriteString(" (delivered)")
		}
		b.WriteString("\n")
	}
	if order.NeedsSupport() {
		b.WriteString("⚠️ Needs manual delivery\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatAmount(order domain.Order) string {
	if order.Currency == domain.CurrencyDZD {
		return order.TotalAmount.StringFixed(0)
	}
	return order.TotalAmount.StringFixed(2)
}
