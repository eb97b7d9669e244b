package domain

import (
	"context"
	"time"
)

type PaymentEventType string

const (
	EventOrderCreated       PaymentEventType = "order_created"
	EventPaymentInitiated   PaymentEventType = "payment_initiated"
	EventPaymentFailed      PaymentEventType = "payment_failed"
	EventPaymentConfirmed   PaymentEventType = "payment_confirmed"
	EventPaymentUnconfirmed PaymentEventType = "payment_unconfirmed"
	EventStatusChanged      PaymentEventType = "status_changed"
	EventOrderExpired       PaymentEventType = "order_expired"
)

// PaymentEvent is an audit record of one step of a checkout attempt. Transient marks
// network/outage failures so they can be told apart from provider rejections even
// though the order itself stays pending in both cases.
type PaymentEvent struct {
	OrderID   string
	Type      PaymentEventType
	Method    PaymentMethod
	Amount    string
	Currency  Currency
	Reason    string
	Transient bool
	Timestamp time.Time
}

type PaymentEventLogger interface {
	LogPaymentEvent(ctx context.Context, event PaymentEvent) error
}
