package gateway

import (
	"context"
	"fmt"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/shopspring/decimal"
)

// Charge is the amount actually sent to a provider after currency conversion.
type Charge struct {
	Amount   decimal.Decimal
	Currency domain.Currency
	// Rate is the DZD per USD rate used, zero when no conversion happened.
	Rate decimal.Decimal
}

// Convert expresses amount in the target currency at the current DZD/USD rate. Dinar
// amounts are whole units, dollar amounts are rounded to cents.
func Convert(ctx context.Context, rates domain.ExchangeRateProvider, amount decimal.Decimal, from, to domain.Currency) (Charge, error) {
	if from == to {
		return Charge{Amount: to.Round(amount), Currency: to}, nil
	}
	if rates == nil {
		return Charge{}, fmt.Errorf("no exchange rate provider for %s -> %s", from, to)
	}
	rate, err := rates.DZDPerUSD(ctx)
	if err != nil {
		return Charge{}, fmt.Errorf("exchange rate: %w", err)
	}
	if !rate.IsPositive() {
		return Charge{}, fmt.Errorf("invalid exchange rate %s", rate)
	}

	switch {
	case from == domain.CurrencyUSD && to == domain.CurrencyDZD:
		return Charge{Amount: to.Round(amount.Mul(rate)), Currency: to, Rate: rate}, nil
	case from == domain.CurrencyDZD && to == domain.CurrencyUSD:
		return Charge{Amount: to.Round(amount.Div(rate)), Currency: to, Rate: rate}, nil
	}
	return Charge{}, fmt.Errorf("unsupported conversion %s -> %s", from, to)
}

// Value is the amount formatted with the currency's minor units, e.g. "12.50" or "3250".
func (c Charge) Value() string {
	return c.Amount.StringFixed(c.Currency.Places())
}

// PaymentData records the charge next to the provider reference in the order's payment data.
func (c Charge) PaymentData() map[string]any {
	data := map[string]any{
		"charged_amount":   c.Value(),
		"charged_currency": string(c.Currency),
	}
	if !c.Rate.IsZero() {
		data["exchange_rate"] = c.Rate.String()
	}
	return data
}
