package logger

import (
	"context"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"gorm.io/gorm"
)

// PaymentEventModel is the audit row of one checkout step.
type PaymentEventModel struct {
	ID        uint   `gorm:"primaryKey"`
	OrderID   string `gorm:"type:uuid;index"`
	Type      string `gorm:"index"`
	Method    string
	Amount    string
	Currency  string
	Reason    string
	Transient bool
	Timestamp time.Time
}

func (PaymentEventModel) TableName() string {
	return "payment_events"
}

type PGPaymentEventLogger struct {
	db *gorm.DB
}

func NewPGPaymentEventLogger(db *gorm.DB) *PGPaymentEventLogger {
	return &PGPaymentEventLogger{db: db}
}

func (l *PGPaymentEventLogger) LogPaymentEvent(ctx context.Context, event domain.PaymentEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return l.db.WithContext(ctx).Create(&PaymentEventModel{
		OrderID:   event.OrderID,
		Type:      string(event.Type),
		Method:    string(event.Method),
		Amount:    event.Amount,
		Currency:  string(event.Currency),
		Reason:    event.Reason,
		Transient: event.Transient,
		Timestamp: event.Timestamp,
	}).Error
}
