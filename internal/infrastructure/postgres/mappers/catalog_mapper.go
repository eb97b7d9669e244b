package mappers

import (
	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/postgres/models"
	"github.com/shopspring/decimal"
)

func ToDomainProduct(model *models.ProductModel) *domain.Product {
	variants := make([]domain.ProductVariant, 0, len(model.Variants))
	for _, v := range model.Variants {
		variants = append(variants, domain.ProductVariant{
			ID:        v.ID,
			ProductID: v.ProductID,
			Name:      v.Name,
			PriceUSD:  nullDecimal(v.PriceUSD),
			PriceDZD:  nullDecimal(v.PriceDZD),
		})
	}
	return &domain.Product{
		ID:              model.ID,
		NameEN:          model.NameEN,
		NameAR:          model.NameAR,
		PriceUSD:        model.PriceUSD,
		PriceDZD:        nullDecimal(model.PriceDZD),
		FulfillmentType: domain.FulfillmentType(model.FulfillmentType),
		Active:          model.Active,
		Variants:        variants,
	}
}

func ToDomainSettings(model *models.StoreSettingsModel) *domain.StoreSettings {
	return &domain.StoreSettings{
		ExchangeRate:    model.ExchangeRate,
		TaxRate:         model.TaxRate,
		PayPalEnabled:   model.PayPalEnabled,
		CryptoEnabled:   model.CryptoEnabled,
		EdahabiaEnabled: model.EdahabiaEnabled,
		MaintenanceMode: model.MaintenanceMode,
		SupportWhatsApp: model.SupportWhatsApp,
		SupportTelegram: model.SupportTelegram,
		SupportEmail:    model.SupportEmail,
		UpdatedAt:       model.UpdatedAt,
	}
}

func ToDomainCartItem(model *models.CartItemModel) domain.CartItem {
	return domain.CartItem{
		ID:        model.ID,
		OwnerID:   model.OwnerID,
		ProductID: model.ProductID,
		VariantID: derefString(model.VariantID),
		Quantity:  model.Quantity,
		CreatedAt: model.CreatedAt,
	}
}

func nullDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
