package domain

import "time"

type NotificationKind string

const (
	NotifyOrderCreated NotificationKind = "order_created"
	NotifyOrderPaid    NotificationKind = "order_paid"
)

// OrderNotification carries a snapshot of the order at the moment of the event.
type OrderNotification struct {
	Kind       NotificationKind
	Order      Order
	OccurredAt time.Time
}

// OrderNotifier delivers notifications best effort. It never reports failures back.
type OrderNotifier interface {
	NotifyOrder(n OrderNotification)
}
