package response

import (
	"time"

	checkoutResponse "github.com/LavaJover/shvark-checkout-service/internal/delivery/http/dto/checkout/response"
)

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type OrdersResponse struct {
	Orders []checkoutResponse.OrderResponse `json:"orders"`
	Total  int64                            `json:"total"`
	Page   int                              `json:"page"`
	Limit  int                              `json:"limit"`
}

type FulfillResponse struct {
	OrderID        string   `json:"order_id"`
	Delivered      []string `json:"delivered"`
	Stockouts      []string `json:"stockouts"`
	Manual         []string `json:"manual"`
	OrderDelivered bool     `json:"order_delivered"`
}

type StockCount struct {
	ProductID string `json:"product_id"`
	Available int64  `json:"available"`
	Used      int64  `json:"used"`
}

type StockResponse struct {
	Products []StockCount `json:"products"`
}

type ImportCodesResponse struct {
	ProductID string `json:"product_id"`
	Submitted int    `json:"submitted"`
	Inserted  int    `json:"inserted"`
}
