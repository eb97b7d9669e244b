package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusFailed    OrderStatus = "failed"
	StatusDelivered OrderStatus = "delivered"
	StatusRefunded  OrderStatus = "refunded"
)

// orderTransitions lists, for every target status, the statuses an order may move from.
// Re-applying the current status is handled separately as a no-op.
var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPaid:      {StatusPending, StatusFailed},
	StatusFailed:    {StatusPending},
	StatusDelivered: {StatusPaid},
	StatusRefunded:  {StatusPaid, StatusDelivered},
}

// AllowedPredecessors returns the statuses from which an order may transition into target.
func AllowedPredecessors(target OrderStatus) []OrderStatus {
	return orderTransitions[target]
}

func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, from := range orderTransitions[target] {
		if from == s {
			return true
		}
	}
	return false
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusFailed, StatusDelivered, StatusRefunded:
		return true
	}
	return false
}

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
)

type Order struct {
	ID            string
	OrderNumber   string
	Status        OrderStatus
	PaymentMethod PaymentMethod
	Currency      Currency
	Subtotal      decimal.Decimal
	TaxAmount     decimal.Decimal
	TotalAmount   decimal.Decimal
	CustomerEmail string
	CustomerPhone string
	UserID        string
	SessionID     string
	PaymentID     string
	PaymentData   map[string]any
	Items         []OrderItem
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type OrderItem struct {
	ID              string
	OrderID         string
	ProductID       string
	VariantID       string
	ProductName     string
	FulfillmentType FulfillmentType
	Quantity        int
	UnitPrice       decimal.Decimal
	TotalPrice      decimal.Decimal
	DeliveryStatus  DeliveryStatus
	DeliveryCode    string
	DeliveredAt     *time.Time
	CreatedAt       time.Time
}

// AllDelivered reports whether every line item of the order has been delivered.
func (o *Order) AllDelivered() bool {
	if len(o.Items) == 0 {
		return false
	}
	for _, item := range o.Items {
		if item.DeliveryStatus != DeliveryDelivered {
			return false
		}
	}
	return true
}

// NeedsSupport is true for a paid order that still has undelivered items: a stockout
// or a manual product the operator has to hand over.
func (o *Order) NeedsSupport() bool {
	if o.Status != StatusPaid && o.Status != StatusDelivered {
		return false
	}
	for _, item := range o.Items {
		if item.DeliveryStatus == DeliveryPending {
			return true
		}
	}
	return false
}

type OrderFilter struct {
	Status        OrderStatus
	PaymentMethod PaymentMethod
	CustomerEmail string
	OrderNumber   string
	CreatedFrom   time.Time
	CreatedTo     time.Time
}
