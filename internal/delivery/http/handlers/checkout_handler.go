package handlers

import (
	"fmt"
	"net/http"

	checkoutRequest "github.com/LavaJover/shvark-checkout-service/internal/delivery/http/dto/checkout/request"
	checkoutResponse "github.com/LavaJover/shvark-checkout-service/internal/delivery/http/dto/checkout/response"
	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/gateway"
	"github.com/LavaJover/shvark-checkout-service/internal/usecase/checkout"
	"github.com/go-chi/chi/v5"
)

type CheckoutHandler struct {
	Checkout     checkout.CheckoutUsecase
	PublicOrigin string
}

func NewCheckoutHandler(checkoutUsecase checkout.CheckoutUsecase, publicOrigin string) *CheckoutHandler {
	return &CheckoutHandler{
		Checkout:     checkoutUsecase,
		PublicOrigin: publicOrigin,
	}
}

func (h *CheckoutHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest.CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "")
		return
	}

	items := make([]domain.CartLine, 0, len(req.Items))
	for _, line := range req.Items {
		items = append(items, domain.CartLine{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
		})
	}

	result, err := h.Checkout.StartCheckout(r.Context(), &checkout.CheckoutInput{
		Method:        domain.PaymentMethod(req.Method),
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		UserID:        req.UserID,
		SessionID:     req.SessionID,
		Items:         items,
	})
	if err != nil {
		writeError(w, r, err, gateway.CancelURL(h.PublicOrigin))
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse.CheckoutResponse{
		OrderID:     result.Order.ID,
		OrderNumber: result.Order.OrderNumber,
		RedirectURL: result.RedirectURL,
	})
}

// Pay retries the provider hand-off for a pending order.
func (h *CheckoutHandler) Pay(w http.ResponseWriter, r *http.Request) {
	result, err := h.Checkout.InitiatePayment(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, r, err, gateway.CancelURL(h.PublicOrigin))
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse.CheckoutResponse{
		OrderID:     result.Order.ID,
		OrderNumber: result.Order.OrderNumber,
		RedirectURL: result.RedirectURL,
	})
}

// OrderSuccess is the provider return URL. PayPal appends token, NOWPayments appends
// NP_id; Chargily adds nothing and the stored checkout id is used.
func (h *CheckoutHandler) OrderSuccess(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	orderID := query.Get("order")
	if orderID == "" {
		writeError(w, r, fmt.Errorf("%w: order is required", errBadRequest), "")
		return
	}

	token := query.Get("token")
	if token == "" {
		token = query.Get("NP_id")
	}

	if _, err := h.Checkout.ConfirmPayment(r.Context(), orderID, token); err != nil {
		writeError(w, r, err, gateway.CancelURL(h.PublicOrigin))
		return
	}
	h.writeView(w, r, orderID)
}

func (h *CheckoutHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if _, err := h.Checkout.CheckStatus(r.Context(), orderID); err != nil {
		writeError(w, r, err, "")
		return
	}
	h.writeView(w, r, orderID)
}

func (h *CheckoutHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	h.writeView(w, r, chi.URLParam(r, "orderID"))
}

func (h *CheckoutHandler) writeView(w http.ResponseWriter, r *http.Request, orderID string) {
	view, err := h.Checkout.GetOrderView(r.Context(), orderID)
	if err != nil {
		writeError(w, r, err, "")
		return
	}

	resp := checkoutResponse.OrderViewResponse{
		OrderResponse: checkoutResponse.NewOrderResponse(view.Order),
		NeedsSupport:  view.NeedsSupport,
	}
	if view.NeedsSupport {
		resp.Support = &view.Support
	}
	writeJSON(w, http.StatusOK, resp)
}
