package models

import "time"

type CodeModel struct {
	ID          string     `gorm:"primaryKey;type:uuid"`
	ProductID   string     `gorm:"type:uuid;not null;uniqueIndex:uq_codes_product_code"`
	Code        string     `gorm:"not null;uniqueIndex:uq_codes_product_code"`
	IsUsed      bool       `gorm:"not null;default:false"`
	UsedAt      *time.Time
	OrderItemID *string    `gorm:"type:uuid"`
	CreatedAt   time.Time
}

func (CodeModel) TableName() string {
	return "codes"
}

type StockCountRow struct {
	ProductID string
	Available int64
	Used      int64
}
