package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	adminRequest "github.com/LavaJover/shvark-checkout-service/internal/delivery/http/dto/admin/request"
	adminResponse "github.com/LavaJover/shvark-checkout-service/internal/delivery/http/dto/admin/response"
	checkoutResponse "github.com/LavaJover/shvark-checkout-service/internal/delivery/http/dto/checkout/response"
	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/usecase/admin"
	"github.com/LavaJover/shvark-checkout-service/internal/usecase/checkout"
	"github.com/LavaJover/shvark-checkout-service/internal/usecase/fulfillment"
	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
)

const adminTokenHeader = "X-Admin-Token"

type AdminHandler struct {
	Sessions    admin.SessionUsecase
	Checkout    checkout.CheckoutUsecase
	Fulfillment fulfillment.FulfillmentUsecase
}

func NewAdminHandler(
	sessions admin.SessionUsecase,
	checkoutUsecase checkout.CheckoutUsecase,
	fulfillmentUsecase fulfillment.FulfillmentUsecase,
) *AdminHandler {
	return &AdminHandler{
		Sessions:    sessions,
		Checkout:    checkoutUsecase,
		Fulfillment: fulfillmentUsecase,
	}
}

// RequireSession rejects requests without a live admin session token.
func (h *AdminHandler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.Sessions.Authenticate(r.Context(), sessionToken(r)); err != nil {
			writeError(w, r, err, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionToken(r *http.Request) string {
	if token := r.Header.Get(adminTokenHeader); token != "" {
		return token
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req adminRequest.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "")
		return
	}

	session, err := h.Sessions.Login(r.Context(), req.Password)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, adminResponse.LoginResponse{Token: session.Token, ExpiresAt: session.ExpiresAt})
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Logout(r.Context(), sessionToken(r))
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.OrderFilter{
		Status:        domain.OrderStatus(query.Get("status")),
		PaymentMethod: domain.PaymentMethod(query.Get("method")),
		CustomerEmail: query.Get("email"),
		OrderNumber:   query.Get("order_number"),
	}

	var err error
	if filter.CreatedFrom, err = parseTime(query.Get("from")); err != nil {
		writeError(w, r, err, "")
		return
	}
	if filter.CreatedTo, err = parseTime(query.Get("to")); err != nil {
		writeError(w, r, err, "")
		return
	}
	page, _ := strconv.Atoi(query.Get("page"))
	limit, _ := strconv.Atoi(query.Get("limit"))

	orders, total, err := h.Checkout.ListOrders(r.Context(), filter, page, limit)
	if err != nil {
		writeError(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, adminResponse.OrdersResponse{
		Orders: lo.Map(orders, func(o *domain.Order, _ int) checkoutResponse.OrderResponse {
			return checkoutResponse.NewOrderResponse(o)
		}),
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return t, nil
}

func (h *AdminHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req adminRequest.SetStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "")
		return
	}

	order, err := h.Checkout.SetOrderStatus(r.Context(), chi.URLParam(r, "orderID"), domain.OrderStatus(req.Status))
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse.NewOrderResponse(order))
}

// Fulfill re-runs fulfillment, e.g. after codes were restocked.
func (h *AdminHandler) Fulfill(w http.ResponseWriter, r *http.Request) {
	report, err := h.Fulfillment.Fulfill(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, adminResponse.FulfillResponse{
		OrderID:        report.OrderID,
		Delivered:      lo.Ternary(report.Delivered == nil, []string{}, report.Delivered),
		Stockouts:      lo.Ternary(report.Stockouts == nil, []string{}, report.Stockouts),
		Manual:         lo.Ternary(report.Manual == nil, []string{}, report.Manual),
		OrderDelivered: report.OrderDelivered,
	})
}

func (h *AdminHandler) DeliverItem(w http.ResponseWriter, r *http.Request) {
	var req adminRequest.DeliverItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "")
		return
	}

	order, err := h.Fulfillment.DeliverManually(r.Context(), chi.URLParam(r, "itemID"), req.Code)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse.NewOrderResponse(order))
}

func (h *AdminHandler) Stock(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Fulfillment.StockCounts(r.Context(), r.URL.Query()["product_id"]...)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, adminResponse.StockResponse{
		Products: lo.Map(counts, func(c domain.StockCount, _ int) adminResponse.StockCount {
			return adminResponse.StockCount{ProductID: c.ProductID, Available: c.Available, Used: c.Used}
		}),
	})
}

func (h *AdminHandler) ImportCodes(w http.ResponseWriter, r *http.Request) {
	var req adminRequest.ImportCodesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "")
		return
	}

	productID := chi.URLParam(r, "productID")
	inserted, err := h.Fulfillment.ImportCodes(r.Context(), productID, req.Codes)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, adminResponse.ImportCodesResponse{
		ProductID: productID,
		Submitted: len(req.Codes),
		Inserted:  inserted,
	})
}
