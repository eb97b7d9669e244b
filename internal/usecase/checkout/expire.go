package checkout

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
)

const expireBatchSize = 100

// ExpirePendingOrders fails pending orders created more than olderThan ago. A late
// provider confirmation can still move such an order to paid. A non-positive olderThan
// disables expiry.
func (uc *DefaultCheckoutUsecase) ExpirePendingOrders(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		return 0, nil
	}
	before := uc.now().Add(-olderThan)

	expired := 0
	for {
		batch, err := uc.OrderRepo.FindPendingCreatedBefore(ctx, before, expireBatchSize)
		if err != nil {
			uc.Metrics.RecordExpired(expired)
			return expired, err
		}

		n := 0
		for _, order := range batch {
			changed, err := uc.OrderRepo.UpdateOrderStatus(ctx, order.ID, domain.StatusFailed)
			if err != nil {
				if !errors.Is(err, domain.ErrInvalidStatusTransition) {
					slog.Error("failed to expire order", "order_id", order.ID, "error", err)
				}
				continue
			}
			if !changed {
				continue
			}
			n++
			uc.Metrics.RecordStatusChange(domain.StatusFailed)
			uc.logEvent(ctx, order, domain.EventOrderExpired, "pending for more than "+olderThan.String(), false)
		}
		expired += n

		if len(batch) < expireBatchSize || n == 0 {
			break
		}
	}

	if expired > 0 {
		slog.Info("expired pending orders", "count", expired, "older_than", olderThan)
		uc.Metrics.RecordExpired(expired)
	}
	return expired, nil
}
