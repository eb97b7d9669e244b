package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/postgres/models"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errInsufficientCodes = errors.New("insufficient codes")

const claimCodesQuery = `
UPDATE codes
SET is_used = TRUE, used_at = ?, order_item_id = ?
WHERE id IN (
    SELECT id FROM codes
    WHERE product_id = ? AND NOT is_used
    ORDER BY created_at, id
    LIMIT ?
    FOR UPDATE SKIP LOCKED
)
RETURNING id, product_id, code, is_used, used_at, order_item_id, created_at`

type DefaultCodeRepository struct {
	DB *gorm.DB
}

func NewDefaultCodeRepository(db *gorm.DB) *DefaultCodeRepository {
	return &DefaultCodeRepository{DB: db}
}

func (r *DefaultCodeRepository) DeliverItem(ctx context.Context, itemID, productID string, n int) (bool, error) {
	if n < 1 {
		return false, domain.ErrInvalidQuantity
	}
	if _, err := uuid.Parse(itemID); err != nil {
		return false, domain.ErrOrderItemNotFound
	}

	delivered := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := lockOrderItem(tx, itemID)
		if err != nil {
			return err
		}
		if item.DeliveryStatus == string(domain.DeliveryDelivered) {
			delivered = true
			return nil
		}

		now := time.Now().UTC()
		var claimed []models.CodeModel
		if err := tx.Raw(claimCodesQuery, now, itemID, productID, n).Scan(&claimed).Error; err != nil {
			return fmt.Errorf("claim codes: %w", err)
		}
		if len(claimed) < n {
			// rolls back the partial claim
			return errInsufficientCodes
		}

		codes := lo.Map(claimed, func(c models.CodeModel, _ int) string { return c.Code })
		if err := tx.Model(&models.OrderItemModel{}).
			Where("id = ?", itemID).
			Updates(map[string]any{
				"delivery_status": string(domain.DeliveryDelivered),
				"delivery_code":   strings.Join(codes, "\n"),
				"delivered_at":    now,
			}).Error; err != nil {
			return fmt.Errorf("mark item delivered: %w", err)
		}
		delivered = true
		return nil
	})
	if errors.Is(err, errInsufficientCodes) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return delivered, nil
}

func (r *DefaultCodeRepository) DeliverItemManually(ctx context.Context, itemID, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", domain.ErrEmptyDeliveryCode
	}
	if _, err := uuid.Parse(itemID); err != nil {
		return "", domain.ErrOrderItemNotFound
	}

	var orderID string
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := lockOrderItem(tx, itemID)
		if err != nil {
			return err
		}
		orderID = item.OrderID
		if item.DeliveryStatus == string(domain.DeliveryDelivered) {
			return domain.ErrItemAlreadyDelivered
		}

		var status string
		if err := tx.Model(&models.OrderModel{}).Select("status").Where("id = ?", item.OrderID).Scan(&status).Error; err != nil {
			return fmt.Errorf("read order status: %w", err)
		}
		if status != string(domain.StatusPaid) && status != string(domain.StatusDelivered) {
			return fmt.Errorf("%w: order is %s", domain.ErrOrderNotPaid, status)
		}
		return tx.Model(&models.OrderItemModel{}).
			Where("id = ?", itemID).
			Updates(map[string]any{
				"delivery_status": string(domain.DeliveryDelivered),
				"delivery_code":   code,
				"delivered_at":    time.Now().UTC(),
			}).Error
	})
	if err != nil {
		return "", err
	}
	return orderID, nil
}

// ImportCodes adds codes to a product's pool, skipping blanks and codes the pool already has.
// It returns the number of codes actually inserted.
func (r *DefaultCodeRepository) ImportCodes(ctx context.Context, productID string, codes []string) (int, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return 0, domain.ErrProductNotFound
	}

	cleaned := lo.Uniq(lo.FilterMap(codes, func(c string, _ int) (string, bool) {
		c = strings.TrimSpace(c)
		return c, c != ""
	}))
	if len(cleaned) == 0 {
		return 0, nil
	}

	var inserted int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.ProductModel{}).Where("id = ?", productID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrProductNotFound
		}

		rows := lo.Map(cleaned, func(c string, _ int) models.CodeModel {
			return models.CodeModel{
				ID:        uuid.NewString(),
				ProductID: productID,
				Code:      c,
			}
		})
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, 500)
		if res.Error != nil {
			return fmt.Errorf("insert codes: %w", res.Error)
		}
		inserted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(inserted), nil
}

// CountAvailable reports pool sizes for the given products, or for every auto-fulfilled
// product when none are given. Products without codes are reported with zero counts.
func (r *DefaultCodeRepository) CountAvailable(ctx context.Context, productIDs ...string) ([]domain.StockCount, error) {
	query := r.DB.WithContext(ctx).
		Table("products AS p").
		Select(`p.id AS product_id,
			COUNT(c.id) FILTER (WHERE NOT c.is_used) AS available,
			COUNT(c.id) FILTER (WHERE c.is_used) AS used`).
		Joins("LEFT JOIN codes c ON c.product_id = p.id").
		Group("p.id").
		Order("p.id")

	if len(productIDs) > 0 {
		ids := lo.Filter(productIDs, func(id string, _ int) bool {
			_, err := uuid.Parse(id)
			return err == nil
		})
		if len(ids) == 0 {
			return []domain.StockCount{}, nil
		}
		query = query.Where("p.id IN ?", ids)
	} else {
		query = query.Where("p.fulfillment_type = ?", string(domain.FulfillmentAuto))
	}

	var rows []models.StockCountRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count codes: %w", err)
	}

	return lo.Map(rows, func(row models.StockCountRow, _ int) domain.StockCount {
		return domain.StockCount{
			ProductID: row.ProductID,
			Available: row.Available,
			Used:      row.Used,
		}
	}), nil
}

func lockOrderItem(tx *gorm.DB, itemID string) (*models.OrderItemModel, error) {
	var item models.OrderItemModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "id = ?", itemID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderItemNotFound
		}
		return nil, fmt.Errorf("lock order item: %w", err)
	}
	return &item, nil
}
