package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
)

// Fulfill delivers every pending auto item of a paid order from the code pool. Items whose
// pool runs dry stay pending as stockouts; manual and assisted items are left to the
// operator. Once every item is delivered the order moves to delivered. Safe to call any
// number of times and concurrently.
func (uc *DefaultFulfillmentUsecase) Fulfill(ctx context.Context, orderID string) (*domain.FulfillmentReport, error) {
	order, err := uc.OrderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.StatusPaid && order.Status != domain.StatusDelivered {
		return nil, fmt.Errorf("%w: order %s is %s", domain.ErrOrderNotPaid, order.OrderNumber, order.Status)
	}

	report := &domain.FulfillmentReport{OrderID: order.ID}
	for _, item := range order.Items {
		if item.DeliveryStatus == domain.DeliveryDelivered {
			continue
		}

		if item.FulfillmentType != domain.FulfillmentAuto {
			report.Manual = append(report.Manual, item.ID)
			continue
		}

		delivered, err := uc.CodeRepo.DeliverItem(ctx, item.ID, item.ProductID, item.Quantity)
		if err != nil {
			uc.record(report)
			return report, fmt.Errorf("deliver item %s: %w", item.ID, err)
		}
		if !delivered {
			slog.Warn("out of codes",
				"order_id", order.ID,
				"item_id", item.ID,
				"product_id", item.ProductID,
				"quantity", item.Quantity,
			)
			report.Stockouts = append(report.Stockouts, item.ID)
			continue
		}
		report.Delivered = append(report.Delivered, item.ID)
	}
	uc.record(report)

	if len(report.Stockouts) > 0 || len(report.Manual) > 0 {
		return report, nil
	}

	done, err := uc.completeOrder(ctx, order.ID)
	if err != nil {
		return report, err
	}
	report.OrderDelivered = done

	if len(report.Delivered) > 0 {
		slog.Info("order fulfilled",
			"order_id", order.ID,
			"order_number", order.OrderNumber,
			"delivered", len(report.Delivered),
			"order_delivered", report.OrderDelivered,
		)
	}
	return report, nil
}

// completeOrder moves the order to delivered when all of its items are delivered.
func (uc *DefaultFulfillmentUsecase) completeOrder(ctx context.Context, orderID string) (bool, error) {
	order, err := uc.OrderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return false, err
	}
	if order.Status == domain.StatusDelivered {
		return true, nil
	}
	if !order.AllDelivered() {
		return false, nil
	}

	changed, err := uc.OrderRepo.UpdateOrderStatus(ctx, order.ID, domain.StatusDelivered)
	if err != nil {
		// refunded in the meantime
		if errors.Is(err, domain.ErrInvalidStatusTransition) {
			slog.Warn("order left its paid state during fulfillment", "order_id", order.ID, "error", err)
			return false, nil
		}
		return false, fmt.Errorf("mark order delivered: %w", err)
	}
	if changed {
		uc.Metrics.RecordStatusChange(domain.StatusDelivered)
	}
	return true, nil
}

func (uc *DefaultFulfillmentUsecase) record(report *domain.FulfillmentReport) {
	uc.Metrics.RecordFulfillment("delivered", len(report.Delivered))
	uc.Metrics.RecordFulfillment("stockout", len(report.Stockouts))
	uc.Metrics.RecordFulfillment("manual", len(report.Manual))
}
