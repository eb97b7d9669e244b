package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// ExchangeRateProvider returns how many DZD one USD buys at call time.
type ExchangeRateProvider interface {
	DZDPerUSD(ctx context.Context) (decimal.Decimal, error)
}
