package response

import (
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
)

type CheckoutResponse struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	RedirectURL string `json:"redirect_url"`
}

type OrderItemResponse struct {
	ID              string     `json:"id"`
	ProductID       string     `json:"product_id"`
	VariantID       string     `json:"variant_id,omitempty"`
	ProductName     string     `json:"product_name"`
	FulfillmentType string     `json:"fulfillment_type"`
	Quantity        int        `json:"quantity"`
	UnitPrice       string     `json:"unit_price"`
	TotalPrice      string     `json:"total_price"`
	DeliveryStatus  string     `json:"delivery_status"`
	DeliveryCode    string     `json:"delivery_code,omitempty"`
	DeliveredAt     *time.Time `json:"delivered_at,omitempty"`
}

type OrderResponse struct {
	ID            string              `json:"id"`
	OrderNumber   string              `json:"order_number"`
	Status        string              `json:"status"`
	PaymentMethod string              `json:"payment_method"`
	Currency      string              `json:"currency"`
	Subtotal      string              `json:"subtotal"`
	TaxAmount     string              `json:"tax_amount"`
	TotalAmount   string              `json:"total_amount"`
	CustomerEmail string              `json:"customer_email"`
	CustomerPhone string              `json:"customer_phone,omitempty"`
	Items         []OrderItemResponse `json:"items"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// OrderViewResponse is the receipt shown on the success page.
type OrderViewResponse struct {
	OrderResponse
	NeedsSupport bool                 `json:"needs_support"`
	Support      *domain.SupportLinks `json:"support,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	BackURL string `json:"back_url,omitempty"`
}

func NewOrderResponse(order *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemResponse{
			ID:              item.ID,
			ProductID:       item.ProductID,
			VariantID:       item.VariantID,
			ProductName:     item.ProductName,
			FulfillmentType: string(item.FulfillmentType),
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice.String(),
			TotalPrice:      item.TotalPrice.String(),
			DeliveryStatus:  string(item.DeliveryStatus),
			DeliveryCode:    item.DeliveryCode,
			DeliveredAt:     item.DeliveredAt,
		})
	}

	return OrderResponse{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        string(order.Status),
		PaymentMethod: string(order.PaymentMethod),
		Currency:      string(order.Currency),
		Subtotal:      order.Subtotal.String(),
		TaxAmount:     order.TaxAmount.String(),
		TotalAmount:   order.TotalAmount.String(),
		CustomerEmail: order.CustomerEmail,
		CustomerPhone: order.CustomerPhone,
		Items:         items,
		PaidAt:        order.PaidAt,
		CreatedAt:     order.CreatedAt,
	}
}
