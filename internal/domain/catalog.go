package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type FulfillmentType string

const (
	FulfillmentAuto     FulfillmentType = "auto"
	FulfillmentManual   FulfillmentType = "manual"
	FulfillmentAssisted FulfillmentType = "assisted"
)

type Product struct {
	ID              string
	NameEN          string
	NameAR          string
	PriceUSD        decimal.Decimal
	PriceDZD        *decimal.Decimal
	FulfillmentType FulfillmentType
	Active          bool
	Variants        []ProductVariant
}

type ProductVariant struct {
	ID        string
	ProductID string
	Name      string
	PriceUSD  *decimal.Decimal
	PriceDZD  *decimal.Decimal
}

func (p *Product) Variant(variantID string) (*ProductVariant, bool) {
	for i := range p.Variants {
		if p.Variants[i].ID == variantID {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// UnitPrice resolves the price of one unit in the settlement currency. Variant prices
// override product prices; a missing DZD price is derived from USD at dzdPerUSD and
// rounded to whole dinars.
func (p *Product) UnitPrice(variant *ProductVariant, cur Currency, dzdPerUSD decimal.Decimal) decimal.Decimal {
	usd := p.PriceUSD
	dzd := p.PriceDZD
	if variant != nil {
		if variant.PriceUSD != nil {
			usd = *variant.PriceUSD
			// a variant USD override without its own DZD price must not fall back
			// to the base product's DZD price
			dzd = nil
		}
		if variant.PriceDZD != nil {
			dzd = variant.PriceDZD
		}
	}
	if cur == CurrencyDZD {
		if dzd != nil {
			return *dzd
		}
		return CurrencyDZD.Round(usd.Mul(dzdPerUSD))
	}
	return usd
}

// StoreSettings is the single row of operator settings the checkout reads.
type StoreSettings struct {
	ExchangeRate    decimal.Decimal
	TaxRate         decimal.Decimal
	PayPalEnabled   bool
	CryptoEnabled   bool
	EdahabiaEnabled bool
	MaintenanceMode bool
	SupportWhatsApp string
	SupportTelegram string
	SupportEmail    string
	UpdatedAt       time.Time
}

func (s *StoreSettings) MethodEnabled(m PaymentMethod) bool {
	switch m {
	case MethodPayPal:
		return s.PayPalEnabled
	case MethodCrypto:
		return s.CryptoEnabled
	case MethodEdahabia:
		return s.EdahabiaEnabled
	}
	return false
}

type SupportLinks struct {
	WhatsApp string `json:"whatsapp,omitempty"`
	Telegram string `json:"telegram,omitempty"`
	Email    string `json:"email,omitempty"`
}

func (s *StoreSettings) SupportLinks() SupportLinks {
	return SupportLinks{
		WhatsApp: s.SupportWhatsApp,
		Telegram: s.SupportTelegram,
		Email:    s.SupportEmail,
	}
}
