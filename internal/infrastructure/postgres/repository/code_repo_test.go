package repository_test

import (
	"strings"
	"sync"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/postgres/models"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/postgres/repository"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *repositorySuite) TestDeliverItemConcurrentClaims() {
	t := s.T()
	ctx := t.Context()
	orders := repository.NewDefaultOrderRepository(s.db)
	codes := repository.NewDefaultCodeRepository(s.db)

	const (
		buyers    = 12
		available = 5
	)

	productID := s.insertProduct(domain.FulfillmentAuto)
	pool := s.insertCodes(productID, available)

	items := make([]string, 0, buyers)
	for i := 0; i < buyers; i++ {
		order := newOrder(productID, domain.FulfillmentAuto, 1)
		require.NoError(t, orders.CreateOrder(ctx, order))
		s.setStatus(order.ID, domain.StatusPaid)
		items = append(items, order.Items[0].ID)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		delivered int
		start     = make(chan struct{})
	)
	for _, itemID := range items {
		wg.Add(1)
		go func(itemID string) {
			defer wg.Done()
			<-start
			ok, err := codes.DeliverItem(ctx, itemID, productID, 1)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				delivered++
				mu.Unlock()
			}
		}(itemID)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, available, delivered)

	used := usedCodes(t, s.db, productID)
	require.Len(t, used, available)
	assert.ElementsMatch(t, pool, codeValues(used))

	owners := lo.Uniq(lo.Map(used, func(c models.CodeModel, _ int) string { return *c.OrderItemID }))
	assert.Len(t, owners, available, "every code goes to exactly one item")

	stock, err := codes.CountAvailable(ctx, productID)
	require.NoError(t, err)
	require.Len(t, stock, 1)
	assert.Equal(t, domain.StockCount{ProductID: productID, Available: 0, Used: available}, stock[0])
}

func (s *repositorySuite) TestDeliverItemAllOrNothing() {
	t := s.T()
	ctx := t.Context()
	orders := repository.NewDefaultOrderRepository(s.db)
	codes := repository.NewDefaultCodeRepository(s.db)

	productID := s.insertProduct(domain.FulfillmentAuto)
	s.insertCodes(productID, 2)

	order := newOrder(productID, domain.FulfillmentAuto, 3)
	require.NoError(t, orders.CreateOrder(ctx, order))
	itemID := order.Items[0].ID

	ok, err := codes.DeliverItem(ctx, itemID, productID, 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, usedCodes(t, s.db, productID), "a short pool must not be partially consumed")

	imported, err := codes.ImportCodes(ctx, productID, []string{gofakeit.LetterN(16)})
	require.NoError(t, err)
	require.Equal(t, 1, imported)

	ok, err = codes.DeliverItem(ctx, itemID, productID, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = codes.DeliverItem(ctx, itemID, productID, 3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, usedCodes(t, s.db, productID), 3)

	stored, err := orders.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryDelivered, stored.Items[0].DeliveryStatus)
	assert.Len(t, strings.Split(stored.Items[0].DeliveryCode, "\n"), 3)
	assert.NotNil(t, stored.Items[0].DeliveredAt)

	_, err = codes.DeliverItem(ctx, gofakeit.UUID(), productID, 1)
	assert.ErrorIs(t, err, domain.ErrOrderItemNotFound)
}

func (s *repositorySuite) TestDeliverItemManually() {
	t := s.T()
	ctx := t.Context()
	orders := repository.NewDefaultOrderRepository(s.db)
	codes := repository.NewDefaultCodeRepository(s.db)

	order := newOrder(s.insertProduct(domain.FulfillmentManual), domain.FulfillmentManual, 1)
	require.NoError(t, orders.CreateOrder(ctx, order))
	itemID := order.Items[0].ID

	_, err := codes.DeliverItemManually(ctx, itemID, "GIFT-1")
	assert.ErrorIs(t, err, domain.ErrOrderNotPaid)

	s.setStatus(order.ID, domain.StatusPaid)

	_, err = codes.DeliverItemManually(ctx, itemID, "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyDeliveryCode)

	orderID, err := codes.DeliverItemManually(ctx, itemID, " GIFT-1 ")
	require.NoError(t, err)
	assert.Equal(t, order.ID, orderID)

	_, err = codes.DeliverItemManually(ctx, itemID, "GIFT-2")
	assert.ErrorIs(t, err, domain.ErrItemAlreadyDelivered)

	stored, err := orders.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "GIFT-1", stored.Items[0].DeliveryCode)

	_, err = codes.DeliverItemManually(ctx, gofakeit.UUID(), "GIFT-3")
	assert.ErrorIs(t, err, domain.ErrOrderItemNotFound)
}

func (s *repositorySuite) TestImportCodes() {
	codes := repository.NewDefaultCodeRepository(s.db)
	productID := s.insertProduct(domain.FulfillmentAuto)

	tests := []struct {
		name      string
		productID string
		codes     []string
		want      int
		wantError error
	}{
		{
			name:      "blanks and duplicates are dropped: ok",
			productID: productID,
			codes:     []string{"A-1", " A-1 ", "", "B-2", "C-3"},
			want:      3,
		},
		{
			name:      "codes already in the pool are skipped: ok",
			productID: productID,
			codes:     []string{"C-3", "D-4"},
			want:      1,
		},
		{
			name:      "unknown product: fail",
			productID: gofakeit.UUID(),
			codes:     []string{"E-5"},
			wantError: domain.ErrProductNotFound,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			t := s.T()

			got, err := codes.ImportCodes(t.Context(), tt.productID, tt.codes)
			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	stock, err := codes.CountAvailable(s.T().Context(), productID)
	s.Require().NoError(err)
	s.Require().Len(stock, 1)
	s.Equal(int64(4), stock[0].Available)
}
