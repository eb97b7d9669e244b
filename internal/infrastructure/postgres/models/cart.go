package models

import "time"

type CartItemModel struct {
	ID        string  `gorm:"primaryKey;type:uuid"`
	OwnerID   string  `gorm:"index;not null"`
	ProductID string  `gorm:"type:uuid;not null"`
	VariantID *string `gorm:"type:uuid"`
	Quantity  int     `gorm:"not null"`
	CreatedAt time.Time
}

func (CartItemModel) TableName() string {
	return "cart_items"
}
