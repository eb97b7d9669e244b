package fulfillment

import (
	"context"
	"log/slog"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
)

func (uc *DefaultFulfillmentUsecase) StockCounts(ctx context.Context, productIDs ...string) ([]domain.StockCount, error) {
	return uc.CodeRepo.CountAvailable(ctx, productIDs...)
}

// ImportCodes adds codes to the pool of a product and returns how many were new.
func (uc *DefaultFulfillmentUsecase) ImportCodes(ctx context.Context, productID string, codes []string) (int, error) {
	inserted, err := uc.CodeRepo.ImportCodes(ctx, productID, codes)
	if err != nil {
		return 0, err
	}
	slog.Info("codes imported",
		"product_id", productID,
		"submitted", len(codes),
		"inserted", inserted,
	)
	return inserted, nil
}
