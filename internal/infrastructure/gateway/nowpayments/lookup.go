package nowpayments

import (
	"context"
	"net/http"
	"net/url"
)

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
}

type paymentList struct {
	Data []paymentResponse `json:"data"`
}

// findInvoicePayment returns the id of the payment made against an invoice, preferring a
// settled one. Listing payments needs the account login on top of the API key, so without
// it, or without any payment yet, the id is empty.
func (g *Gateway) findInvoicePayment(ctx context.Context, invoiceID string) (string, error) {
	if invoiceID == "" || g.cfg.Email == "" || g.cfg.Password == "" {
		return "", nil
	}

	var auth authResponse
	login := authRequest{Email: g.cfg.Email, Password: g.cfg.Password}
	if err := g.requester.JSON(ctx, "authenticate", http.MethodPost, g.endpoint("/v1/auth"), nil, login, &auth); err != nil {
		return "", err
	}

	header := g.header()
	header.Set("Authorization", "Bearer "+auth.Token)
	query := url.Values{
		"invoiceId": {invoiceID},
		"limit":     {"10"},
		"sortBy":    {"updated_at"},
		"orderBy":   {"desc"},
	}

	var list paymentList
	if err := g.requester.JSON(ctx, "list payments", http.MethodGet, g.endpoint("/v1/payment/")+"?"+query.Encode(), header, nil, &list); err != nil {
		return "", err
	}
	if len(list.Data) == 0 {
		return "", nil
	}
	for _, p := range list.Data {
		if paidStatuses[p.PaymentStatus] {
			return p.PaymentID.String(), nil
		}
	}
	return list.Data[0].PaymentID.String(), nil
}
