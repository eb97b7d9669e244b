package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type OrderModel struct {
	ID            string            `gorm:"primaryKey;type:uuid"`
	OrderNumber   string            `gorm:"uniqueIndex;not null"`
	Status        string            `gorm:"index:idx_orders_status_created;not null"`
	PaymentMethod string            `gorm:"not null"`
	Currency      string            `gorm:"size:3;not null"`
	Subtotal      decimal.Decimal   `gorm:"type:numeric(14,2);not null"`
	TaxAmount     decimal.Decimal   `gorm:"type:numeric(14,2);not null"`
	TotalAmount   decimal.Decimal   `gorm:"type:numeric(14,2);not null"`
	CustomerEmail string            `gorm:"not null"`
	CustomerPhone string
	UserID        string
	SessionID     string
	PaymentID     string            `gorm:"index:idx_orders_payment"`
	PaymentData   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	PaidAt        *time.Time
	CreatedAt     time.Time         `gorm:"index:idx_orders_status_created"`
	UpdatedAt     time.Time
	Items         []OrderItemModel  `gorm:"foreignKey:OrderID;references:ID;constraint:OnDelete:CASCADE"`
}

func (OrderModel) TableName() string {
	return "orders"
}

type OrderItemModel struct {
	ID              string          `gorm:"primaryKey;type:uuid"`
	OrderID         string          `gorm:"type:uuid;index;not null"`
	ProductID       string          `gorm:"type:uuid;not null"`
	VariantID       *string         `gorm:"type:uuid"`
	ProductName     string
	FulfillmentType string          `gorm:"not null"`
	Quantity        int             `gorm:"not null"`
	UnitPrice       decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	TotalPrice      decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	DeliveryStatus  string          `gorm:"not null;default:pending"`
	DeliveryCode    string
	DeliveredAt     *time.Time
	CreatedAt       time.Time
}

func (OrderItemModel) TableName() string {
	return "order_items"
}
