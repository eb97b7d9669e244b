package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductModel struct {
	ID              string                `gorm:"primaryKey;type:uuid"`
	NameEN          string                `gorm:"column:name_en;not null"`
	NameAR          string                `gorm:"column:name_ar"`
	PriceUSD        decimal.Decimal       `gorm:"column:price_usd;type:numeric(12,2);not null"`
	PriceDZD        decimal.NullDecimal   `gorm:"column:price_dzd;type:numeric(12,2)"`
	FulfillmentType string                `gorm:"not null"`
	Active          bool                  `gorm:"not null;default:true"`
	Variants        []ProductVariantModel `gorm:"foreignKey:ProductID;references:ID"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (ProductModel) TableName() string {
	return "products"
}

type ProductVariantModel struct {
	ID        string              `gorm:"primaryKey;type:uuid"`
	ProductID string              `gorm:"type:uuid;index;not null"`
	Name      string              `gorm:"not null"`
	PriceUSD  decimal.NullDecimal `gorm:"column:price_usd;type:numeric(12,2)"`
	PriceDZD  decimal.NullDecimal `gorm:"column:price_dzd;type:numeric(12,2)"`
}

func (ProductVariantModel) TableName() string {
	return "product_variants"
}

type StoreSettingsModel struct {
	ID              int             `gorm:"primaryKey"`
	ExchangeRate    decimal.Decimal `gorm:"type:numeric(12,4);not null"`
	TaxRate         decimal.Decimal `gorm:"type:numeric(5,2);not null"`
	PayPalEnabled   bool            `gorm:"column:paypal_enabled"`
	CryptoEnabled   bool
	EdahabiaEnabled bool
	MaintenanceMode bool
	SupportWhatsApp string          `gorm:"column:support_whatsapp"`
	SupportTelegram string
	SupportEmail    string
	UpdatedAt       time.Time
}

func (StoreSettingsModel) TableName() string {
	return "store_settings"
}
