package domain

import (
	"errors"
	"fmt"
)

var (
	ErrOrderCreationFailed     = errors.New("order creation failed")
	ErrOrderNotFound           = errors.New("order not found")
	ErrOrderItemNotFound       = errors.New("order item not found")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrOrderNotPending         = errors.New("order is not pending")
	ErrOrderNotPaid            = errors.New("order is not paid")
	ErrEmptyCart               = errors.New("no items in order")
	ErrInvalidQuantity         = errors.New("quantity must be at least 1")
	ErrProductNotFound         = errors.New("product not found")
	ErrVariantNotFound         = errors.New("product variant not found")
	ErrCustomerEmailRequired   = errors.New("customer email is required")
	ErrUnknownPaymentMethod    = errors.New("unknown payment method")
	ErrPaymentMethodDisabled   = errors.New("payment method is unavailable")
	ErrMaintenanceMode         = errors.New("store is in maintenance mode")
	ErrTokenMismatch           = errors.New("provider token does not match order")
	ErrCartItemNotFound        = errors.New("cart item not found")
	ErrSettingsNotFound        = errors.New("store settings not found")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrDuplicateOrderNumber    = errors.New("order number already taken")
	ErrItemAlreadyDelivered    = errors.New("order item already delivered")
	ErrInvalidSignature        = errors.New("invalid webhook signature")
	ErrEmptyDeliveryCode       = errors.New("delivery code is empty")

	// gateway failure kinds
	ErrCredentialsMissing = errors.New("payment provider credentials missing")
	ErrGatewayUnavailable = errors.New("payment provider unavailable")
	ErrProviderRejected   = errors.New("payment provider rejected the request")
)

// GatewayError carries which provider call failed and whether it is worth a user retry.
type GatewayError struct {
	Method PaymentMethod
	Op     string
	Kind   error
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Op, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Method, e.Op, e.Kind, e.Err)
}

func (e *GatewayError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Transient reports a network or provider-side outage as opposed to a rejection.
func (e *GatewayError) Transient() bool {
	return errors.Is(e.Kind, ErrGatewayUnavailable)
}

func NewGatewayError(method PaymentMethod, op string, kind, err error) *GatewayError {
	return &GatewayError{Method: method, Op: op, Kind: kind, Err: err}
}
