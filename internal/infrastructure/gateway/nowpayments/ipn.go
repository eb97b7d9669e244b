package nowpayments

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
)

type ipnPayload struct {
	PaymentID     json.Number `json:"payment_id"`
	InvoiceID     json.Number `json:"invoice_id"`
	PaymentStatus string      `json:"payment_status"`
	OrderID       string      `json:"order_id"`
}

// VerifyWebhook checks the x-nowpayments-sig header: a hex HMAC-SHA512, keyed with the IPN
// secret, of the payload re-serialized with keys sorted.
func (g *Gateway) VerifyWebhook(body []byte, signature string) (*domain.WebhookNotice, error) {
	if g.cfg.IPNSecret == "" {
		return nil, domain.NewGatewayError(domain.MethodCrypto, "verify ipn", domain.ErrCredentialsMissing, nil)
	}

	canonical, err := canonicalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	if !hmac.Equal([]byte(Sign(g.cfg.IPNSecret, canonical)), []byte(strings.ToLower(strings.TrimSpace(signature)))) {
		return nil, domain.ErrInvalidSignature
	}

	var payload ipnPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	return &domain.WebhookNotice{
		Event:             payload.PaymentStatus,
		OrderID:           payload.OrderID,
		ProviderPaymentID: payload.InvoiceID.String(),
		Token:             payload.PaymentID.String(),
	}, nil
}

func Sign(secret string, canonical []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil))
}

// canonicalJSON re-encodes a JSON document with object keys sorted at every level,
// keeping number literals as sent.
func canonicalJSON(body []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
