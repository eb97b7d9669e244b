// Package nowpayments implements crypto checkout through hosted NOWPayments invoices.
package nowpayments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/LavaJover/shvark-checkout-service/internal/config"
	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/gateway"
	"github.com/shopspring/decimal"
)

// paymentIDKey is where the per-payment id reported by the provider is kept, so a later
// status check without a return token can still poll it.
const paymentIDKey = "np_payment_id"

var paidStatuses = map[string]bool{
	"finished":  true,
	"confirmed": true,
}

type Gateway struct {
	cfg       config.NowPayments
	origin    string
	rates     domain.ExchangeRateProvider
	requester *gateway.Requester
}

func NewGateway(cfg config.NowPayments, origin string, rates domain.ExchangeRateProvider, client *http.Client) *Gateway {
	return &Gateway{
		cfg:       cfg,
		origin:    origin,
		rates:     rates,
		requester: gateway.NewRequester(domain.MethodCrypto, client),
	}
}

func (g *Gateway) Method() domain.PaymentMethod {
	return domain.MethodCrypto
}

type invoiceRequest struct {
	PriceAmount      json.Number `json:"price_amount"`
	PriceCurrency    string      `json:"price_currency"`
	PayCurrency      string      `json:"pay_currency,omitempty"`
	OrderID          string      `json:"order_id"`
	OrderDescription string      `json:"order_description"`
	IPNCallbackURL   string      `json:"ipn_callback_url"`
	SuccessURL       string      `json:"success_url"`
	CancelURL        string      `json:"cancel_url"`
}

type invoiceResponse struct {
	ID         json.Number `json:"id"`
	InvoiceURL string      `json:"invoice_url"`
	OrderID    string      `json:"order_id"`
}

type paymentResponse struct {
	PaymentID     json.Number `json:"payment_id"`
	InvoiceID     json.Number `json:"invoice_id"`
	PaymentStatus string      `json:"payment_status"`
	OrderID       string      `json:"order_id"`
	PayAmount     json.Number `json:"pay_amount"`
	ActuallyPaid  json.Number `json:"actually_paid"`
	PayCurrency   string      `json:"pay_currency"`
	PriceAmount   json.Number `json:"price_amount"`
}

func (g *Gateway) Initiate(ctx context.Context, order *domain.Order, req domain.PaymentRequest) (*domain.Initiation, error) {
	if g.cfg.APIKey == "" {
		return nil, domain.NewGatewayError(domain.MethodCrypto, "initiate", domain.ErrCredentialsMissing, nil)
	}

	charge, err := gateway.Convert(ctx, g.rates, order.TotalAmount, order.Currency, domain.CurrencyUSD)
	if err != nil {
		return nil, domain.NewGatewayError(domain.MethodCrypto, "initiate", domain.ErrGatewayUnavailable, err)
	}
	minAmount := decimal.NewFromFloat(g.cfg.MinAmountUSD).Round(2)
	if charge.Amount.LessThan(minAmount) {
		charge.Amount = minAmount
	}

	body := invoiceRequest{
		PriceAmount:      json.Number(charge.Value()),
		PriceCurrency:    strings.ToLower(string(charge.Currency)),
		PayCurrency:      g.cfg.PayCurrency,
		OrderID:          order.ID,
		OrderDescription: "Order " + order.OrderNumber,
		IPNCallbackURL:   gateway.WebhookURL(g.origin, domain.MethodCrypto),
		SuccessURL:       gateway.SuccessURL(g.origin, order.ID),
		CancelURL:        gateway.CancelURL(g.origin),
	}

	var resp invoiceResponse
	if err := g.requester.JSON(ctx, "create invoice", http.MethodPost, g.endpoint("/v1/invoice"), g.header(), body, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" || resp.InvoiceURL == "" {
		return nil, domain.NewGatewayError(domain.MethodCrypto, "create invoice", domain.ErrProviderRejected,
			fmt.Errorf("invoice response without id or url"))
	}

	data := charge.PaymentData()
	data["np_invoice_id"] = resp.ID.String()
	data["pay_currency"] = g.cfg.PayCurrency

	return &domain.Initiation{
		RedirectURL:       resp.InvoiceURL,
		ProviderPaymentID: resp.ID.String(),
		ChargedAmount:     charge.Amount,
		ChargedCurrency:   charge.Currency,
		PaymentData:       data,
	}, nil
}

// Confirm polls the payment the customer made against the order's invoice. The token is
// the NP_id from the return URL or the payment_id of an IPN; without either the invoice's
// payments are looked up.
func (g *Gateway) Confirm(ctx context.Context, order *domain.Order, providerToken string) (*domain.Confirmation, error) {
	if g.cfg.APIKey == "" {
		return nil, domain.NewGatewayError(domain.MethodCrypto, "confirm", domain.ErrCredentialsMissing, nil)
	}

	paymentID := providerToken
	if paymentID == "" {
		paymentID, _ = order.PaymentData[paymentIDKey].(string)
	}
	if paymentID == "" {
		found, err := g.findInvoicePayment(ctx, order.PaymentID)
		if err != nil {
			return nil, err
		}
		paymentID = found
	}
	if paymentID == "" {
		return &domain.Confirmation{Paid: false, ProviderStatus: "waiting"}, nil
	}

	var resp paymentResponse
	paymentURL := g.endpoint("/v1/payment/" + url.PathEscape(paymentID))
	if err := g.requester.JSON(ctx, "get payment", http.MethodGet, paymentURL, g.header(), nil, &resp); err != nil {
		return nil, err
	}

	if resp.OrderID != order.ID {
		return nil, fmt.Errorf("%w: payment %s belongs to order %q", domain.ErrTokenMismatch, paymentID, resp.OrderID)
	}
	if invoiceID := resp.InvoiceID.String(); invoiceID != "" && order.PaymentID != "" && invoiceID != order.PaymentID {
		return nil, fmt.Errorf("%w: payment %s belongs to invoice %s", domain.ErrTokenMismatch, paymentID, invoiceID)
	}

	return &domain.Confirmation{
		Paid:           paidStatuses[resp.PaymentStatus],
		ProviderStatus: resp.PaymentStatus,
		PaymentData: map[string]any{
			paymentIDKey:    paymentID,
			"np_status":     resp.PaymentStatus,
			"pay_amount":    resp.PayAmount.String(),
			"actually_paid": resp.ActuallyPaid.String(),
			"pay_currency":  resp.PayCurrency,
		},
	}, nil
}

func (g *Gateway) header() http.Header {
	header := http.Header{}
	header.Set("x-api-key", g.cfg.APIKey)
	return header
}

func (g *Gateway) endpoint(path string) string {
	return strings.TrimRight(g.cfg.BaseURL, "/") + path
}
