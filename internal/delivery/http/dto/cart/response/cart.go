package response

import "github.com/LavaJover/shvark-checkout-service/internal/domain"

type CartItemResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

type CartResponse struct {
	OwnerID string             `json:"owner_id"`
	Items   []CartItemResponse `json:"items"`
}

func NewCartResponse(cart *domain.Cart) CartResponse {
	items := make([]CartItemResponse, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, CartItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	return CartResponse{OwnerID: cart.OwnerID, Items: items}
}
