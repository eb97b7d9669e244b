package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
)

type OrderEventItem struct {
	ProductID       string `json:"product_id"`
	ProductName     string `json:"product_name"`
	FulfillmentType string `json:"fulfillment_type"`
	Quantity        int    `json:"quantity"`
	UnitPrice       string `json:"unit_price"`
	DeliveryStatus  string `json:"delivery_status"`
}

type OrderEvent struct {
	Event         string           `json:"event"`
	OrderID       string           `json:"order_id"`
	OrderNumber   string           `json:"order_number"`
	Status        string           `json:"status"`
	PaymentMethod string           `json:"payment_method"`
	TotalAmount   string           `json:"total_amount"`
	Currency      string           `json:"currency"`
	CustomerEmail string           `json:"customer_email"`
	Items         []OrderEventItem `json:"items"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

func NewOrderEvent(n domain.OrderNotification) OrderEvent {
	order := n.Order
	items := make([]OrderEventItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderEventItem{
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			FulfillmentType: string(item.FulfillmentType),
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice.String(),
			DeliveryStatus:  string(item.DeliveryStatus),
		})
	}
	return OrderEvent{
		Event:         string(n.Kind),
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        string(order.Status),
		PaymentMethod: string(order.PaymentMethod),
		TotalAmount:   order.TotalAmount.String(),
		Currency:      string(order.Currency),
		CustomerEmail: order.CustomerEmail,
		Items:         items,
		OccurredAt:    n.OccurredAt,
	}
}

// OrderEventSink publishes order notifications to a topic, keyed by order id so events
// of one order stay ordered within a partition.
type OrderEventSink struct {
	publisher domain.PublisherPort
	topic     string
}

func NewOrderEventSink(publisher domain.PublisherPort, topic string) *OrderEventSink {
	return &OrderEventSink{publisher: publisher, topic: topic}
}

func (s *OrderEventSink) Name() string {
	return "kafka"
}

func (s *OrderEventSink) Send(ctx context.Context, n domain.OrderNotification) error {
	value, err := json.Marshal(NewOrderEvent(n))
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	return s.publisher.Publish(ctx, s.topic, domain.Message{Key: []byte(n.Order.ID), Value: value})
}
