package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/LavaJover/shvark-checkout-service/internal/delivery/http/dto/checkout/response"
	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

var errBadRequest = errors.New("malformed request")

// writeError maps a usecase error to its HTTP status. backURL, when set, is returned
// with payment failures so the storefront can send the customer back to the cart.
func writeError(w http.ResponseWriter, r *http.Request, err error, backURL string) {
	status, message := classify(err)

	attrs := []any{"status", status, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", attrs...)
	} else {
		slog.Warn("request rejected", attrs...)
	}

	body := response.ErrorResponse{Success: false, Error: message}
	if status == http.StatusBadGateway || status == http.StatusServiceUnavailable {
		body.BackURL = backURL
	}
	writeJSON(w, status, body)
}

func classify(err error) (int, string) {
	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) && !errors.Is(err, domain.ErrCredentialsMissing) {
		reason := gwErr.Kind.Error()
		if gwErr.Err != nil {
			reason = gwErr.Err.Error()
		}
		return http.StatusBadGateway, fmt.Sprintf("%s payment failed: %s", gwErr.Method.DisplayName(), reason)
	}

	switch {
	case errors.Is(err, domain.ErrMaintenanceMode):
		return http.StatusServiceUnavailable, domain.ErrMaintenanceMode.Error()
	case errors.Is(err, domain.ErrCredentialsMissing),
		errors.Is(err, domain.ErrPaymentMethodDisabled):
		return http.StatusServiceUnavailable, "payment method unavailable"

	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusUnauthorized, err.Error()

	case errors.Is(err, domain.ErrOrderCreationFailed):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrOrderItemNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrCartItemNotFound):
		return http.StatusNotFound, err.Error()

	case errors.Is(err, domain.ErrInvalidStatusTransition),
		errors.Is(err, domain.ErrOrderNotPending),
		errors.Is(err, domain.ErrOrderNotPaid),
		errors.Is(err, domain.ErrItemAlreadyDelivered):
		return http.StatusConflict, err.Error()

	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrTokenMismatch),
		errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrCustomerEmailRequired),
		errors.Is(err, domain.ErrUnknownPaymentMethod),
		errors.Is(err, domain.ErrVariantNotFound),
		errors.Is(err, domain.ErrEmptyDeliveryCode):
		return http.StatusBadRequest, err.Error()
	}

	return http.StatusInternalServerError, "internal error"
}
