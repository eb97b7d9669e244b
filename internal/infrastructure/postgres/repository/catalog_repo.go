package repository

import (
	"context"
	"fmt"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/postgres/models"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type DefaultProductRepository struct {
	DB *gorm.DB
}

func NewDefaultProductRepository(db *gorm.DB) *DefaultProductRepository {
	return &DefaultProductRepository{DB: db}
}

// GetProductsByIDs returns the products found, keyed by id. Unknown ids are simply absent.
func (r *DefaultProductRepository) GetProductsByIDs(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	valid := lo.Uniq(lo.Filter(ids, func(id string, _ int) bool {
		_, err := uuid.Parse(id)
		return err == nil
	}))
	products := make(map[string]*domain.Product, len(valid))
	if len(valid) == 0 {
		return products, nil
	}

	var productModels []models.ProductModel
	err := r.DB.WithContext(ctx).
		Preload("Variants").
		Where("id IN ?", valid).
		Find(&productModels).Error
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	for i := range productModels {
		product := mappers.ToDomainProduct(&productModels[i])
		products[product.ID] = product
	}
	return products, nil
}
