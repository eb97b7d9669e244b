// Package chargily implements Edahabia/CIB card checkout through Chargily Pay v2.
package chargily

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/LavaJover/shvark-checkout-service/internal/config"
	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/gateway"
)

const statusPaid = "paid"

type Gateway struct {
	cfg       config.Chargily
	origin    string
	rates     domain.ExchangeRateProvider
	requester *gateway.Requester
}

func NewGateway(cfg config.Chargily, origin string, rates domain.ExchangeRateProvider, client *http.Client) *Gateway {
	return &Gateway{
		cfg:       cfg,
		origin:    origin,
		rates:     rates,
		requester: gateway.NewRequester(domain.MethodEdahabia, client),
	}
}

func (g *Gateway) Method() domain.PaymentMethod {
	return domain.MethodEdahabia
}

type checkoutRequest struct {
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	PaymentMethod   string            `json:"payment_method"`
	SuccessURL      string            `json:"success_url"`
	FailureURL      string            `json:"failure_url"`
	WebhookEndpoint string            `json:"webhook_endpoint"`
	Description     string            `json:"description,omitempty"`
	Locale          string            `json:"locale,omitempty"`
	Metadata        map[string]string `json:"metadata"`
}

type checkoutResponse struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	CheckoutURL string          `json:"checkout_url"`
	Amount      json.Number     `json:"amount"`
	Currency    string          `json:"currency"`
	Metadata    json.RawMessage `json:"metadata"`
}

// orderID reads metadata.order_id; metadata may come back as an empty list.
func (r *checkoutResponse) orderID() string {
	var metadata map[string]any
	if json.Unmarshal(r.Metadata, &metadata) != nil {
		return ""
	}
	orderID, _ := metadata["order_id"].(string)
	return orderID
}

func (g *Gateway) Initiate(ctx context.Context, order *domain.Order, req domain.PaymentRequest) (*domain.Initiation, error) {
	if g.cfg.SecretKey == "" {
		return nil, domain.NewGatewayError(domain.MethodEdahabia, "initiate", domain.ErrCredentialsMissing, nil)
	}

	charge, err := gateway.Convert(ctx, g.rates, order.TotalAmount, order.Currency, domain.CurrencyDZD)
	if err != nil {
		return nil, domain.NewGatewayError(domain.MethodEdahabia, "initiate", domain.ErrGatewayUnavailable, err)
	}

	body := checkoutRequest{
		Amount:          charge.Amount.IntPart(),
		Currency:        "dzd",
		PaymentMethod:   "edahabia",
		SuccessURL:      gateway.SuccessURL(g.origin, order.ID),
		FailureURL:      gateway.CancelURL(g.origin),
		WebhookEndpoint: gateway.WebhookURL(g.origin, domain.MethodEdahabia),
		Description:     "Order " + order.OrderNumber,
		Locale:          g.cfg.Locale,
		Metadata: map[string]string{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
		},
	}

	var resp checkoutResponse
	if err := g.requester.JSON(ctx, "create checkout", http.MethodPost, g.endpoint("/checkouts"), g.header(), body, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" || resp.CheckoutURL == "" {
		return nil, domain.NewGatewayError(domain.MethodEdahabia, "create checkout", domain.ErrProviderRejected,
			fmt.Errorf("checkout response without id or url"))
	}

	data := charge.PaymentData()
	data["chargily_checkout_id"] = resp.ID
	data["chargily_status"] = resp.Status

	return &domain.Initiation{
		RedirectURL:       resp.CheckoutURL,
		ProviderPaymentID: resp.ID,
		ChargedAmount:     charge.Amount,
		ChargedCurrency:   charge.Currency,
		PaymentData:       data,
	}, nil
}

// Confirm polls the checkout stored on the order. The return URL carries no provider
// token, so an empty token means the stored checkout id.
func (g *Gateway) Confirm(ctx context.Context, order *domain.Order, providerToken string) (*domain.Confirmation, error) {
	if g.cfg.SecretKey == "" {
		return nil, domain.NewGatewayError(domain.MethodEdahabia, "confirm", domain.ErrCredentialsMissing, nil)
	}
	if order.PaymentID == "" {
		return &domain.Confirmation{Paid: false, ProviderStatus: "not_initiated"}, nil
	}
	if providerToken != "" && providerToken != order.PaymentID {
		return nil, domain.ErrTokenMismatch
	}

	var resp checkoutResponse
	checkoutURL := g.endpoint("/checkouts/" + url.PathEscape(order.PaymentID))
	if err := g.requester.JSON(ctx, "get checkout", http.MethodGet, checkoutURL, g.header(), nil, &resp); err != nil {
		return nil, err
	}
	if orderID := resp.orderID(); orderID != "" && orderID != order.ID {
		return nil, fmt.Errorf("%w: checkout %s belongs to order %q", domain.ErrTokenMismatch, resp.ID, orderID)
	}

	return &domain.Confirmation{
		Paid:           resp.Status == statusPaid,
		ProviderStatus: resp.Status,
		PaymentData:    map[string]any{"chargily_status": resp.Status},
	}, nil
}

type webhookEvent struct {
	Type string           `json:"type"`
	Data checkoutResponse `json:"data"`
}

// VerifyWebhook checks the signature header: a hex HMAC-SHA256 of the raw body keyed with
// the API secret.
func (g *Gateway) VerifyWebhook(body []byte, signature string) (*domain.WebhookNotice, error) {
	if g.cfg.SecretKey == "" {
		return nil, domain.NewGatewayError(domain.MethodEdahabia, "verify webhook", domain.ErrCredentialsMissing, nil)
	}
	if !hmac.Equal([]byte(Sign(g.cfg.SecretKey, body)), []byte(strings.ToLower(strings.TrimSpace(signature)))) {
		return nil, domain.ErrInvalidSignature
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	return &domain.WebhookNotice{
		Event:             event.Type,
		OrderID:           event.Data.orderID(),
		ProviderPaymentID: event.Data.ID,
		Token:             event.Data.ID,
	}, nil
}

func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *Gateway) header() http.Header {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+g.cfg.SecretKey)
	return header
}

func (g *Gateway) endpoint(path string) string {
	return strings.TrimRight(g.cfg.BaseURL, "/") + path
}
