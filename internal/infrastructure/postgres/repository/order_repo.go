package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/postgres/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type DefaultOrderRepository struct {
	DB *gorm.DB
}

func NewDefaultOrderRepository(db *gorm.DB) *DefaultOrderRepository {
	return &DefaultOrderRepository{DB: db}
}

func (r *DefaultOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	orderModel := mappers.ToGORMOrder(order)
	items := orderModel.Items
	orderModel.Items = nil

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(orderModel).Error; err != nil {
			return err
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err, "uq_orders_order_number") {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateOrderNumber, order.OrderNumber)
		}
		return fmt.Errorf("create order: %w", err)
	}

	order.CreatedAt = orderModel.CreatedAt
	order.UpdatedAt = orderModel.UpdatedAt
	for i := range order.Items {
		order.Items[i].CreatedAt = items[i].CreatedAt
	}
	return nil
}

func (r *DefaultOrderRepository) GetOrderByID(ctx context.Context, orderID string) (*domain.Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, domain.ErrOrderNotFound
	}
	return r.getOrder(ctx, "id = ?", orderID)
}

func (r *DefaultOrderRepository) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return r.getOrder(ctx, "order_number = ?", orderNumber)
}

func (r *DefaultOrderRepository) GetOrderByPaymentID(ctx context.Context, method domain.PaymentMethod, paymentID string) (*domain.Order, error) {
	if paymentID == "" {
		return nil, domain.ErrOrderNotFound
	}
	return r.getOrder(ctx, "payment_method = ? AND payment_id = ?", string(method), paymentID)
}

func (r *DefaultOrderRepository) getOrder(ctx context.Context, query string, args ...any) (*domain.Order, error) {
	var order models.OrderModel
	err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_items.created_at ASC, order_items.id ASC")
		}).
		Where(query, args...).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return mappers.ToDomainOrder(&order), nil
}

// UpdateOrderStatus moves the order only from one of the allowed predecessor statuses,
// so concurrent confirmations of the same order cannot double-apply a transition.
func (r *DefaultOrderRepository) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidStatusTransition, status)
	}
	if _, err := uuid.Parse(orderID); err != nil {
		return false, domain.ErrOrderNotFound
	}

	now := time.Now().UTC()
	updates := map[string]any{
		"status":     string(status),
		"updated_at": now,
	}
	if status == domain.StatusPaid {
		updates["paid_at"] = gorm.Expr("COALESCE(paid_at, ?)", now)
	}

	from := lo.Map(domain.AllowedPredecessors(status), func(s domain.OrderStatus, _ int) string {
		return string(s)
	})
	if len(from) > 0 {
		res := r.DB.WithContext(ctx).
			Model(&models.OrderModel{}).
			Where("id = ? AND status IN ?", orderID, from).
			Updates(updates)
		if res.Error != nil {
			return false, fmt.Errorf("update order status: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			return true, nil
		}
	}

	var current models.OrderModel
	if err := r.DB.WithContext(ctx).Select("status").First(&current, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, domain.ErrOrderNotFound
		}
		return false, fmt.Errorf("get order status: %w", err)
	}
	if domain.OrderStatus(current.Status) == status {
		return false, nil
	}
	return false, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStatusTransition, current.Status, status)
}

func (r *DefaultOrderRepository) SetPaymentReference(ctx context.Context, orderID, paymentID string, data map[string]any) error {
	return r.mergePaymentData(ctx, orderID, map[string]any{"payment_id": paymentID}, data)
}

func (r *DefaultOrderRepository) MergePaymentData(ctx context.Context, orderID string, data map[string]any) error {
	return r.mergePaymentData(ctx, orderID, map[string]any{}, data)
}

// mergePaymentData appends keys to payment_data with jsonb concatenation; existing keys
// not present in data are kept.
func (r *DefaultOrderRepository) mergePaymentData(ctx context.Context, orderID string, updates, data map[string]any) error {
	if _, err := uuid.Parse(orderID); err != nil {
		return domain.ErrOrderNotFound
	}
	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payment data: %w", err)
	}

	updates["payment_data"] = gorm.Expr("payment_data || ?::jsonb", string(payload))
	updates["updated_at"] = time.Now().UTC()

	res := r.DB.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ?", orderID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("merge payment data: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *DefaultOrderRepository) ListOrders(ctx context.Context, filter domain.OrderFilter, page, limit int) ([]*domain.Order, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := r.DB.WithContext(ctx).Model(&models.OrderModel{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.PaymentMethod != "" {
		query = query.Where("payment_method = ?", string(filter.PaymentMethod))
	}
	if filter.CustomerEmail != "" {
		query = query.Where("LOWER(customer_email) = LOWER(?)", filter.CustomerEmail)
	}
	if filter.OrderNumber != "" {
		query = query.Where("order_number = ?", filter.OrderNumber)
	}
	if !filter.CreatedFrom.IsZero() {
		query = query.Where("created_at >= ?", filter.CreatedFrom)
	}
	if !filter.CreatedTo.IsZero() {
		query = query.Where("created_at <= ?", filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	var orderModels []models.OrderModel
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_items.created_at ASC, order_items.id ASC")
		}).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&orderModels).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	orders := make([]*domain.Order, 0, len(orderModels))
	for i := range orderModels {
		orders = append(orders, mappers.ToDomainOrder(&orderModels[i]))
	}
	return orders, total, nil
}

func (r *DefaultOrderRepository) FindPendingCreatedBefore(ctx context.Context, before time.Time, limit int) ([]*domain.Order, error) {
	var orderModels []models.OrderModel
	err := r.DB.WithContext(ctx).
		Where("status = ? AND created_at < ?", string(domain.StatusPending), before).
		Order("created_at ASC").
		Limit(limit).
		Find(&orderModels).Error
	if err != nil {
		return nil, fmt.Errorf("find pending orders: %w", err)
	}

	orders := make([]*domain.Order, 0, len(orderModels))
	for i := range orderModels {
		orders = append(orders, mappers.ToDomainOrder(&orderModels[i]))
	}
	return orders, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}
