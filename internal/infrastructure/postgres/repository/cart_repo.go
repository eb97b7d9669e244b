package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/postgres/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DefaultCartRepository struct {
	DB *gorm.DB
}

func NewDefaultCartRepository(db *gorm.DB) *DefaultCartRepository {
	return &DefaultCartRepository{DB: db}
}

func (r *DefaultCartRepository) GetCart(ctx context.Context, ownerID string) (*domain.Cart, error) {
	return r.getCart(r.DB.WithContext(ctx), ownerID)
}

func (r *DefaultCartRepository) getCart(db *gorm.DB, ownerID string) (*domain.Cart, error) {
	var itemModels []models.CartItemModel
	if err := db.Where("owner_id = ?", ownerID).Order("created_at ASC, id ASC").Find(&itemModels).Error; err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	cart := &domain.Cart{OwnerID: ownerID, Items: make([]domain.CartItem, 0, len(itemModels))}
	for i := range itemModels {
		cart.Items = append(cart.Items, mappers.ToDomainCartItem(&itemModels[i]))
	}
	return cart, nil
}

// AddItem adds the line to the cart, bumping the quantity of an existing line for the same
// product and variant, and returns the cart as stored after the change.
func (r *DefaultCartRepository) AddItem(ctx context.Context, ownerID string, line domain.CartLine) (*domain.Cart, error) {
	if line.Quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	if _, err := uuid.Parse(line.ProductID); err != nil {
		return nil, domain.ErrProductNotFound
	}
	if line.VariantID != "" {
		if _, err := uuid.Parse(line.VariantID); err != nil {
			return nil, domain.ErrVariantNotFound
		}
	}

	var cart *domain.Cart
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("owner_id = ? AND product_id = ?", ownerID, line.ProductID)
		if line.VariantID == "" {
			query = query.Where("variant_id IS NULL")
		} else {
			query = query.Where("variant_id = ?", line.VariantID)
		}

		var existing models.CartItemModel
		err := query.First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Model(&existing).
				Update("quantity", gorm.Expr("quantity + ?", line.Quantity)).Error; err != nil {
				return fmt.Errorf("update cart item: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			item := models.CartItemModel{
				ID:        uuid.NewString(),
				OwnerID:   ownerID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
			}
			if line.VariantID != "" {
				item.VariantID = &line.VariantID
			}
			if err := tx.Create(&item).Error; err != nil {
				if isForeignKeyViolation(err) {
					return domain.ErrProductNotFound
				}
				return fmt.Errorf("insert cart item: %w", err)
			}
		default:
			return fmt.Errorf("find cart item: %w", err)
		}

		cart, err = r.getCart(tx, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (r *DefaultCartRepository) RemoveItem(ctx context.Context, ownerID, itemID string) (*domain.Cart, error) {
	if _, err := uuid.Parse(itemID); err != nil {
		return nil, domain.ErrCartItemNotFound
	}

	var cart *domain.Cart
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND owner_id = ?", itemID, ownerID).Delete(&models.CartItemModel{})
		if res.Error != nil {
			return fmt.Errorf("delete cart item: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrCartItemNotFound
		}
		var err error
		cart, err = r.getCart(tx, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (r *DefaultCartRepository) Clear(ctx context.Context, ownerID string) error {
	if err := r.DB.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&models.CartItemModel{}).Error; err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
