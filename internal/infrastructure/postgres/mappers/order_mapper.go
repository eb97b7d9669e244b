package mappers

import (
	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/postgres/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ToGORMOrder converts a domain order with its items, assigning ids where missing.
func ToGORMOrder(order *domain.Order) *models.OrderModel {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	paymentData := datatypes.JSONMap{}
	for k, v := range order.PaymentData {
		paymentData[k] = v
	}

	items := make([]models.OrderItemModel, 0, len(order.Items))
	for i := range order.Items {
		item := &order.Items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.OrderID = order.ID
		items = append(items, *ToGORMOrderItem(item))
	}

	return &models.OrderModel{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        string(order.Status),
		PaymentMethod: string(order.PaymentMethod),
		Currency:      string(order.Currency),
		Subtotal:      order.Subtotal,
		TaxAmount:     order.TaxAmount,
		TotalAmount:   order.TotalAmount,
		CustomerEmail: order.CustomerEmail,
		CustomerPhone: order.CustomerPhone,
		UserID:        order.UserID,
		SessionID:     order.SessionID,
		PaymentID:     order.PaymentID,
		PaymentData:   paymentData,
		PaidAt:        order.PaidAt,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
		Items:         items,
	}
}

func ToGORMOrderItem(item *domain.OrderItem) *models.OrderItemModel {
	return &models.OrderItemModel{
		ID:              item.ID,
		OrderID:         item.OrderID,
		ProductID:       item.ProductID,
		VariantID:       optionalString(item.VariantID),
		ProductName:     item.ProductName,
		FulfillmentType: string(item.FulfillmentType),
		Quantity:        item.Quantity,
		UnitPrice:       item.UnitPrice,
		TotalPrice:      item.TotalPrice,
		DeliveryStatus:  string(item.DeliveryStatus),
		DeliveryCode:    item.DeliveryCode,
		DeliveredAt:     item.DeliveredAt,
		CreatedAt:       item.CreatedAt,
	}
}

func ToDomainOrder(model *models.OrderModel) *domain.Order {
	paymentData := make(map[string]any, len(model.PaymentData))
	for k, v := range model.PaymentData {
		paymentData[k] = v
	}

	items := make([]domain.OrderItem, 0, len(model.Items))
	for i := range model.Items {
		items = append(items, *ToDomainOrderItem(&model.Items[i]))
	}

	return &domain.Order{
		ID:            model.ID,
		OrderNumber:   model.OrderNumber,
		Status:        domain.OrderStatus(model.Status),
		PaymentMethod: domain.PaymentMethod(model.PaymentMethod),
		Currency:      domain.Currency(model.Currency),
		Subtotal:      model.Subtotal,
		TaxAmount:     model.TaxAmount,
		TotalAmount:   model.TotalAmount,
		CustomerEmail: model.CustomerEmail,
		CustomerPhone: model.CustomerPhone,
		UserID:        model.UserID,
		SessionID:     model.SessionID,
		PaymentID:     model.PaymentID,
		PaymentData:   paymentData,
		Items:         items,
		PaidAt:        model.PaidAt,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

func ToDomainOrderItem(model *models.OrderItemModel) *domain.OrderItem {
	return &domain.OrderItem{
		ID:              model.ID,
		OrderID:         model.OrderID,
		ProductID:       model.ProductID,
		VariantID:       derefString(model.VariantID),
		ProductName:     model.ProductName,
		FulfillmentType: domain.FulfillmentType(model.FulfillmentType),
		Quantity:        model.Quantity,
		UnitPrice:       model.UnitPrice,
		TotalPrice:      model.TotalPrice,
		DeliveryStatus:  domain.DeliveryStatus(model.DeliveryStatus),
		DeliveryCode:    model.DeliveryCode,
		DeliveredAt:     model.DeliveredAt,
		CreatedAt:       model.CreatedAt,
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
