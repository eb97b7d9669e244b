package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/usecase/checkout"
)

const maxWebhookBytes = 64 << 10

type WebhookHandler struct {
	Checkout checkout.CheckoutUsecase
}

func NewWebhookHandler(checkoutUsecase checkout.CheckoutUsecase) *WebhookHandler {
	return &WebhookHandler{Checkout: checkoutUsecase}
}

func (h *WebhookHandler) NowPayments(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, domain.MethodCrypto, r.Header.Get("x-nowpayments-sig"))
}

func (h *WebhookHandler) Chargily(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, domain.MethodEdahabia, r.Header.Get("signature"))
}

func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request, method domain.PaymentMethod, signature string) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err), "")
		return
	}

	if err := h.Checkout.HandleWebhook(r.Context(), method, body, signature); err != nil {
		writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
