// Package gateway holds the HTTP plumbing shared by the payment provider adapters.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
)

const maxErrorBody = 4 << 10

// StatusError is a non-2xx provider answer. Body is truncated.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if body == "" {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, body)
}

// Requester performs provider calls and maps failures onto domain gateway errors:
// transport errors and 5xx are unavailable, other non-2xx answers are rejections.
type Requester struct {
	Method domain.PaymentMethod
	Client *http.Client
}

func NewRequester(method domain.PaymentMethod, client *http.Client) *Requester {
	if client == nil {
		client = http.DefaultClient
	}
	return &Requester{Method: method, Client: client}
}

// JSON sends body (when not nil) as a JSON document and decodes a 2xx answer into out.
func (r *Requester) JSON(ctx context.Context, op, httpMethod, endpoint string, header http.Header, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return domain.NewGatewayError(r.Method, op, domain.ErrProviderRejected, fmt.Errorf("marshal request: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, endpoint, reader)
	if err != nil {
		return domain.NewGatewayError(r.Method, op, domain.ErrGatewayUnavailable, err)
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return r.Do(req, op, out)
}

// Form posts url-encoded values and decodes a 2xx answer into out.
func (r *Requester) Form(ctx context.Context, op, endpoint string, header http.Header, values url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return domain.NewGatewayError(r.Method, op, domain.ErrGatewayUnavailable, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r.Do(req, op, out)
}

func (r *Requester) Do(req *http.Request, op string, out any) error {
	resp, err := r.Client.Do(req)
	if err != nil {
		return domain.NewGatewayError(r.Method, op, domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: body}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return domain.NewGatewayError(r.Method, op, domain.ErrGatewayUnavailable, statusErr)
		}
		return domain.NewGatewayError(r.Method, op, domain.ErrProviderRejected, statusErr)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return domain.NewGatewayError(r.Method, op, domain.ErrGatewayUnavailable, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// AsStatusError extracts the provider answer from a gateway error, if there was one.
func AsStatusError(err error) (*StatusError, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr, true
	}
	return nil, false
}

// SuccessURL is the storefront return page for a paid checkout.
func SuccessURL(origin, orderID string) string {
	return strings.TrimRight(origin, "/") + "/order-success?order=" + url.QueryEscape(orderID)
}

// CancelURL sends the customer back to their cart.
func CancelURL(origin string) string {
	return strings.TrimRight(origin, "/") + "/cart"
}

// WebhookURL is the public address of a provider callback endpoint.
func WebhookURL(origin string, method domain.PaymentMethod) string {
	provider := string(method)
	switch method {
	case domain.MethodCrypto:
		provider = "nowpayments"
	case domain.MethodEdahabia:
		provider = "chargily"
	}
	return strings.TrimRight(origin, "/") + "/api/v1/webhooks/" + provider
}
