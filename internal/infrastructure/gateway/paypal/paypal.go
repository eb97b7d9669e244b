// Package paypal implements card/PayPal-balance checkout through the PayPal Orders v2 API.
package paypal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/config"
	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/gateway"
)

const (
	statusCompleted       = "COMPLETED"
	issueAlreadyCaptured  = "ORDER_ALREADY_CAPTURED"
	issueOrderNotApproved = "ORDER_NOT_APPROVED"
	tokenExpiryMargin     = time.Minute
)

type Gateway struct {
	cfg       config.PayPal
	origin    string
	rates     domain.ExchangeRateProvider
	requester *gateway.Requester

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

func NewGateway(cfg config.PayPal, origin string, rates domain.ExchangeRateProvider, client *http.Client) *Gateway {
	return &Gateway{
		cfg:       cfg,
		origin:    origin,
		rates:     rates,
		requester: gateway.NewRequester(domain.MethodPayPal, client),
	}
}

func (g *Gateway) Method() domain.PaymentMethod {
	return domain.MethodPayPal
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	ReferenceID string `json:"reference_id"`
	CustomID    string `json:"custom_id"`
	InvoiceID   string `json:"invoice_id,omitempty"`
	Description string `json:"description,omitempty"`
	Amount      amount `json:"amount"`
}

type applicationContext struct {
	ReturnURL          string `json:"return_url"`
	CancelURL          string `json:"cancel_url"`
	UserAction         string `json:"user_action"`
	ShippingPreference string `json:"shipping_preference"`
}

type createOrderRequest struct {
	Intent             string             `json:"intent"`
	PurchaseUnits      []purchaseUnit     `json:"purchase_units"`
	ApplicationContext applicationContext `json:"application_context"`
}

type link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

type capture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type orderResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	Links         []link `json:"links"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []capture `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
	Payer struct {
		EmailAddress string `json:"email_address"`
	} `json:"payer"`
}

type errorResponse struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Details []struct {
		Issue       string `json:"issue"`
		Description string `json:"description"`
	} `json:"details"`
}

func (g *Gateway) Initiate(ctx context.Context, order *domain.Order, req domain.PaymentRequest) (*domain.Initiation, error) {
	if g.cfg.ClientID == "" || g.cfg.ClientSecret == "" {
		return nil, domain.NewGatewayError(domain.MethodPayPal, "initiate", domain.ErrCredentialsMissing, nil)
	}

	charge, err := gateway.Convert(ctx, g.rates, order.TotalAmount, order.Currency, domain.CurrencyUSD)
	if err != nil {
		return nil, domain.NewGatewayError(domain.MethodPayPal, "initiate", domain.ErrGatewayUnavailable, err)
	}

	token, err := g.token(ctx)
	if err != nil {
		return nil, err
	}

	body := createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			ReferenceID: order.ID,
			CustomID:    order.ID,
			InvoiceID:   order.OrderNumber,
			Description: "Order " + order.OrderNumber,
			Amount:      amount{CurrencyCode: string(charge.Currency), Value: charge.Value()},
		}},
		ApplicationContext: applicationContext{
			ReturnURL:          gateway.SuccessURL(g.origin, order.ID),
			CancelURL:          gateway.CancelURL(g.origin),
			UserAction:         "PAY_NOW",
			ShippingPreference: "NO_SHIPPING",
		},
	}

	header := g.authHeader(token)
	header.Set("PayPal-Request-Id", order.ID)

	var resp orderResponse
	if err := g.requester.JSON(ctx, "create order", http.MethodPost, g.endpoint("/v2/checkout/orders"), header, body, &resp); err != nil {
		return nil, err
	}

	approveURL := ""
	for _, l := range resp.Links {
		if l.Rel == "approve" {
			approveURL = l.Href
			break
		}
	}
	if resp.ID == "" || approveURL == "" {
		return nil, domain.NewGatewayError(domain.MethodPayPal, "create order", domain.ErrProviderRejected,
			fmt.Errorf("no approval link in response for order %q", resp.ID))
	}

	data := charge.PaymentData()
	data["paypal_order_id"] = resp.ID
	data["paypal_status"] = resp.Status

	return &domain.Initiation{
		RedirectURL:       approveURL,
		ProviderPaymentID: resp.ID,
		ChargedAmount:     charge.Amount,
		ChargedCurrency:   charge.Currency,
		PaymentData:       data,
	}, nil
}

// Confirm captures the approved PayPal order. An order captured earlier (a second return
// visit, a concurrent check) is looked up and treated as paid when COMPLETED.
func (g *Gateway) Confirm(ctx context.Context, order *domain.Order, providerToken string) (*domain.Confirmation, error) {
	if g.cfg.ClientID == "" || g.cfg.ClientSecret == "" {
		return nil, domain.NewGatewayError(domain.MethodPayPal, "confirm", domain.ErrCredentialsMissing, nil)
	}
	if order.PaymentID == "" {
		return &domain.Confirmation{Paid: false, ProviderStatus: "NOT_INITIATED"}, nil
	}
	if providerToken != "" && providerToken != order.PaymentID {
		return nil, domain.ErrTokenMismatch
	}

	token, err := g.token(ctx)
	if err != nil {
		return nil, err
	}

	var resp orderResponse
	captureURL := g.endpoint("/v2/checkout/orders/" + url.PathEscape(order.PaymentID) + "/capture")
	err = g.requester.JSON(ctx, "capture", http.MethodPost, captureURL, g.authHeader(token), struct{}{}, &resp)
	if err != nil {
		switch issue := issueOf(err); issue {
		case issueAlreadyCaptured:
			return g.lookup(ctx, token, order.PaymentID)
		case issueOrderNotApproved:
			return &domain.Confirmation{Paid: false, ProviderStatus: issue}, nil
		}
		return nil, err
	}

	return confirmation(&resp), nil
}

func (g *Gateway) lookup(ctx context.Context, token, paypalOrderID string) (*domain.Confirmation, error) {
	var resp orderResponse
	orderURL := g.endpoint("/v2/checkout/orders/" + url.PathEscape(paypalOrderID))
	if err := g.requester.JSON(ctx, "get order", http.MethodGet, orderURL, g.authHeader(token), nil, &resp); err != nil {
		return nil, err
	}
	return confirmation(&resp), nil
}

func confirmation(resp *orderResponse) *domain.Confirmation {
	data := map[string]any{"paypal_status": resp.Status}
	for _, unit := range resp.PurchaseUnits {
		for _, c := range unit.Payments.Captures {
			data["paypal_capture_id"] = c.ID
			data["paypal_capture_status"] = c.Status
		}
	}
	if resp.Payer.EmailAddress != "" {
		data["payer_email"] = resp.Payer.EmailAddress
	}
	return &domain.Confirmation{
		Paid:           resp.Status == statusCompleted,
		ProviderStatus: resp.Status,
		PaymentData:    data,
	}
}

func issueOf(err error) string {
	statusErr, ok := gateway.AsStatusError(err)
	if !ok || statusErr.StatusCode != http.StatusUnprocessableEntity {
		return ""
	}
	var body errorResponse
	if json.Unmarshal(statusErr.Body, &body) != nil {
		return ""
	}
	for _, d := range body.Details {
		if d.Issue != "" {
			return d.Issue
		}
	}
	return ""
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token returns a cached client-credentials access token, fetching a new one near expiry.
func (g *Gateway) token(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.accessToken != "" && time.Now().Before(g.expiresAt) {
		return g.accessToken, nil
	}

	header := http.Header{}
	header.Set("Authorization", "Basic "+basicAuth(g.cfg.ClientID, g.cfg.ClientSecret))

	var resp tokenResponse
	form := url.Values{"grant_type": {"client_credentials"}}
	if err := g.requester.Form(ctx, "oauth token", g.endpoint("/v1/oauth2/token"), header, form, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", domain.NewGatewayError(domain.MethodPayPal, "oauth token", domain.ErrProviderRejected,
			fmt.Errorf("empty access token"))
	}

	g.accessToken = resp.AccessToken
	g.expiresAt = time.Now().Add(time.Duration(resp.ExpiresIn)*time.Second - tokenExpiryMargin)
	return g.accessToken, nil
}

func (g *Gateway) authHeader(token string) http.Header {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	return header
}

func (g *Gateway) endpoint(path string) string {
	return strings.TrimRight(g.cfg.BaseURL, "/") + path
}

func basicAuth(clientID, secret string) string {
	return base64.StdEncoding.EncodeToString([]byte(clientID + ":" + secret))
}
