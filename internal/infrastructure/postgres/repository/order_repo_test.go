package repository_test

import (
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/postgres/models"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/postgres/repository"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *repositorySuite) TestCreateOrder() {
	repo := repository.NewDefaultOrderRepository(s.db)
	productID := s.insertProduct(domain.FulfillmentAuto)

	s.Run("order with items: ok", func() {
		t := s.T()
		ctx := t.Context()

		order := newOrder(productID, domain.FulfillmentAuto, 2)
		require.NoError(t, repo.CreateOrder(ctx, order))
		require.NotEmpty(t, order.ID)
		assert.False(t, order.CreatedAt.IsZero())

		stored, err := repo.GetOrderByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, order.OrderNumber, stored.OrderNumber)
		assert.Equal(t, domain.StatusPending, stored.Status)
		assert.True(t, order.TotalAmount.Equal(stored.TotalAmount))
		assert.Equal(t, "test", stored.PaymentData["source"])
		require.Len(t, stored.Items, 1)
		assert.Equal(t, order.Items[0].ID, stored.Items[0].ID)
		assert.Equal(t, 2, stored.Items[0].Quantity)
		assert.Equal(t, domain.DeliveryPending, stored.Items[0].DeliveryStatus)

		byNumber, err := repo.GetOrderByNumber(ctx, order.OrderNumber)
		require.NoError(t, err)
		assert.Equal(t, order.ID, byNumber.ID)
	})

	s.Run("duplicate order number: fail", func() {
		t := s.T()
		ctx := t.Context()

		first := newOrder(productID, domain.FulfillmentAuto, 1)
		require.NoError(t, repo.CreateOrder(ctx, first))

		second := newOrder(productID, domain.FulfillmentAuto, 1)
		second.OrderNumber = first.OrderNumber
		err := repo.CreateOrder(ctx, second)
		assert.ErrorIs(t, err, domain.ErrDuplicateOrderNumber)
	})

	s.Run("broken item rolls back the order: fail", func() {
		t := s.T()
		ctx := t.Context()

		order := newOrder(productID, domain.FulfillmentAuto, 1)
		order.Items[0].FulfillmentType = "unknown"
		require.Error(t, repo.CreateOrder(ctx, order))

		_, err := repo.GetOrderByID(ctx, order.ID)
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})

	s.Run("malformed id: fail", func() {
		_, err := repo.GetOrderByID(s.T().Context(), "not-a-uuid")
		assert.ErrorIs(s.T(), err, domain.ErrOrderNotFound)
	})
}

func (s *repositorySuite) TestUpdateOrderStatus() {
	t := s.T()
	ctx := t.Context()
	repo := repository.NewDefaultOrderRepository(s.db)

	order := newOrder(s.insertProduct(domain.FulfillmentManual), domain.FulfillmentManual, 1)
	require.NoError(t, repo.CreateOrder(ctx, order))

	steps := []struct {
		name        string
		status      domain.OrderStatus
		wantChanged bool
		wantError   error
	}{
		{name: "pending to failed: ok", status: domain.StatusFailed, wantChanged: true},
		{name: "failed to paid: ok", status: domain.StatusPaid, wantChanged: true},
		{name: "paid again is a no-op: ok", status: domain.StatusPaid},
		{name: "paid to pending: fail", status: domain.StatusPending, wantError: domain.ErrInvalidStatusTransition},
		{name: "paid to failed: fail", status: domain.StatusFailed, wantError: domain.ErrInvalidStatusTransition},
		{name: "paid to delivered: ok", status: domain.StatusDelivered, wantChanged: true},
		{name: "delivered to refunded: ok", status: domain.StatusRefunded, wantChanged: true},
		{name: "unknown status: fail", status: "lost", wantError: domain.ErrInvalidStatusTransition},
	}

	for _, step := range steps {
		changed, err := repo.UpdateOrderStatus(ctx, order.ID, step.status)
		if step.wantError != nil {
			assert.ErrorIs(t, err, step.wantError, step.name)
			continue
		}
		require.NoError(t, err, step.name)
		assert.Equal(t, step.wantChanged, changed, step.name)
	}

	stored, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefunded, stored.Status)
	assert.NotNil(t, stored.PaidAt)

	_, err = repo.UpdateOrderStatus(ctx, gofakeit.UUID(), domain.StatusPaid)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func (s *repositorySuite) TestPaymentData() {
	t := s.T()
	ctx := t.Context()
	repo := repository.NewDefaultOrderRepository(s.db)

	order := newOrder(s.insertProduct(domain.FulfillmentAuto), domain.FulfillmentAuto, 1)
	require.NoError(t, repo.CreateOrder(ctx, order))

	paymentID := "PAY-" + gofakeit.LetterN(12)
	require.NoError(t, repo.SetPaymentReference(ctx, order.ID, paymentID, map[string]any{"paypal_order_id": paymentID}))
	require.NoError(t, repo.MergePaymentData(ctx, order.ID, map[string]any{"capture_status": "COMPLETED"}))

	stored, err := repo.GetOrderByPaymentID(ctx, domain.MethodPayPal, paymentID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, stored.ID)
	assert.Equal(t, paymentID, stored.PaymentID)
	assert.Equal(t, map[string]any{
		"source":          "test",
		"paypal_order_id": paymentID,
		"capture_status":  "COMPLETED",
	}, stored.PaymentData)

	_, err = repo.GetOrderByPaymentID(ctx, domain.MethodCrypto, paymentID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	err = repo.MergePaymentData(ctx, gofakeit.UUID(), map[string]any{"k": "v"})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func (s *repositorySuite) TestListOrders() {
	t := s.T()
	ctx := t.Context()
	repo := repository.NewDefaultOrderRepository(s.db)
	productID := s.insertProduct(domain.FulfillmentAuto)

	email := gofakeit.Email()
	for i := 0; i < 3; i++ {
		order := newOrder(productID, domain.FulfillmentAuto, 1)
		order.CustomerEmail = email
		require.NoError(t, repo.CreateOrder(ctx, order))
	}

	orders, total, err := repo.ListOrders(ctx, domain.OrderFilter{CustomerEmail: email}, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, orders, 2)
	assert.Len(t, orders[0].Items, 1)

	orders, _, err = repo.ListOrders(ctx, domain.OrderFilter{CustomerEmail: email, Status: domain.StatusPaid}, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func (s *repositorySuite) TestFindPendingCreatedBefore() {
	t := s.T()
	ctx := t.Context()
	repo := repository.NewDefaultOrderRepository(s.db)
	productID := s.insertProduct(domain.FulfillmentAuto)

	stale := newOrder(productID, domain.FulfillmentAuto, 1)
	fresh := newOrder(productID, domain.FulfillmentAuto, 1)
	require.NoError(t, repo.CreateOrder(ctx, stale))
	require.NoError(t, repo.CreateOrder(ctx, fresh))
	require.NoError(t, s.db.Model(&models.OrderModel{}).
		Where("id = ?", stale.ID).
		Update("created_at", time.Now().UTC().Add(-2*time.Hour)).Error)

	cutoff := time.Now().UTC().Add(-time.Hour)
	found, err := repo.FindPendingCreatedBefore(ctx, cutoff, 1000)
	require.NoError(t, err)

	ids := lo.Map(found, func(o *domain.Order, _ int) string { return o.ID })
	assert.Contains(t, ids, stale.ID)
	assert.NotContains(t, ids, fresh.ID)

	s.setStatus(stale.ID, domain.StatusFailed)
	found, err = repo.FindPendingCreatedBefore(ctx, cutoff, 1000)
	require.NoError(t, err)
	assert.False(t, lo.ContainsBy(found, func(o *domain.Order) bool { return o.ID == stale.ID }))
}
