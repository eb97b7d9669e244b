package handlers

import (
	"fmt"
	"net/http"

	cartRequest "github.com/LavaJover/shvark-checkout-service/internal/delivery/http/dto/cart/request"
	cartResponse "github.com/LavaJover/shvark-checkout-service/internal/delivery/http/dto/cart/response"
	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/go-chi/chi/v5"
)

// CartHandler exposes the cart of a user or an anonymous session. Every mutation
// answers with the cart as stored after it.
type CartHandler struct {
	Carts domain.CartRepository
}

func NewCartHandler(carts domain.CartRepository) *CartHandler {
	return &CartHandler{Carts: carts}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.Carts.GetCart(r.Context(), chi.URLParam(r, "ownerID"))
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, cartResponse.NewCartResponse(cart))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req cartRequest.AddItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "")
		return
	}
	if req.ProductID == "" {
		writeError(w, r, fmt.Errorf("%w: product_id is required", errBadRequest), "")
		return
	}
	if req.Quantity < 1 {
		writeError(w, r, domain.ErrInvalidQuantity, "")
		return
	}

	cart, err := h.Carts.AddItem(r.Context(), chi.URLParam(r, "ownerID"), domain.CartLine{
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, cartResponse.NewCartResponse(cart))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.Carts.RemoveItem(r.Context(), chi.URLParam(r, "ownerID"), chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, cartResponse.NewCartResponse(cart))
}
