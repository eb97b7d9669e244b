package domain

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

type PaymentMethod string

const (
	MethodPayPal   PaymentMethod = "paypal"
	MethodCrypto   PaymentMethod = "crypto"
	MethodEdahabia PaymentMethod = "edahabia"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodPayPal, MethodCrypto, MethodEdahabia:
		return true
	}
	return false
}

// SettlementCurrency is the currency the provider behind the method settles in,
// independent of the currency the customer browses in.
func (m PaymentMethod) SettlementCurrency() Currency {
	if m == MethodEdahabia {
		return CurrencyDZD
	}
	return CurrencyUSD
}

func (m PaymentMethod) DisplayName() string {
	switch m {
	case MethodPayPal:
		return "PayPal"
	case MethodCrypto:
		return "Crypto"
	case MethodEdahabia:
		return "Edahabia"
	}
	return string(m)
}

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyDZD Currency = "DZD"
)

// Places is the number of decimal places amounts carry in the currency. Dinar amounts
// are whole units.
func (c Currency) Places() int32 {
	if c == CurrencyDZD {
		return 0
	}
	return 2
}

func (c Currency) Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(c.Places())
}

func ParseCurrency(s string) (Currency, error) {
	unit, err := currency.ParseISO(s)
	if err != nil {
		return "", fmt.Errorf("currency.ParseISO: %w", err)
	}
	switch c := Currency(unit.String()); c {
	case CurrencyUSD, CurrencyDZD:
		return c, nil
	default:
		return "", fmt.Errorf("unsupported currency %q", s)
	}
}

// PaymentRequest is the normalized, per-attempt input to order creation and to a gateway.
type PaymentRequest struct {
	Method        PaymentMethod
	Amount        decimal.Decimal
	Currency      Currency
	CustomerEmail string
	CustomerPhone string
	Items         []CartLine
	UserID        string
	SessionID     string
}

// Initiation is what a gateway hands back after creating the provider-side payment.
type Initiation struct {
	RedirectURL       string
	ProviderPaymentID string
	ChargedAmount     decimal.Decimal
	ChargedCurrency   Currency
	PaymentData       map[string]any
}

// Confirmation is the normalized result of asking the provider about a payment.
type Confirmation struct {
	Paid           bool
	ProviderStatus string
	PaymentData    map[string]any
}

type PaymentGateway interface {
	Method() PaymentMethod
	Initiate(ctx context.Context, order *Order, req PaymentRequest) (*Initiation, error)
	Confirm(ctx context.Context, order *Order, providerToken string) (*Confirmation, error)
}

// WebhookNotice is a verified provider callback. It only points at a payment; whether the
// payment is settled is always decided by Confirm.
type WebhookNotice struct {
	Event             string
	OrderID           string
	ProviderPaymentID string
	Token             string
}

// WebhookVerifier is implemented by gateways whose provider pushes signed callbacks.
type WebhookVerifier interface {
	VerifyWebhook(body []byte, signature string) (*WebhookNotice, error)
}
