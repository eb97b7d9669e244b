package repository_test

import (
	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/logger"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/postgres/repository"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *repositorySuite) TestCart() {
	t := s.T()
	ctx := t.Context()
	carts := repository.NewDefaultCartRepository(s.db)

	ownerID := gofakeit.UUID()
	first := s.insertProduct(domain.FulfillmentAuto)
	second := s.insertProduct(domain.FulfillmentManual)

	_, err := carts.AddItem(ctx, ownerID, domain.CartLine{ProductID: first, Quantity: 1})
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, ownerID, domain.CartLine{ProductID: first, Quantity: 2})
	require.NoError(t, err)
	cart, err := carts.AddItem(ctx, ownerID, domain.CartLine{ProductID: second, Quantity: 1})
	require.NoError(t, err)

	require.Len(t, cart.Items, 2)
	assert.Equal(t, []domain.CartLine{
		{ProductID: first, Quantity: 3},
		{ProductID: second, Quantity: 1},
	}, cart.Lines())

	_, err = carts.AddItem(ctx, ownerID, domain.CartLine{ProductID: gofakeit.UUID(), Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = carts.AddItem(ctx, ownerID, domain.CartLine{ProductID: first, Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	cart, err = carts.RemoveItem(ctx, ownerID, cart.Items[0].ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)

	_, err = carts.RemoveItem(ctx, gofakeit.UUID(), cart.Items[0].ID)
	assert.ErrorIs(t, err, domain.ErrCartItemNotFound)

	require.NoError(t, carts.Clear(ctx, ownerID))
	cart, err = carts.GetCart(ctx, ownerID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func (s *repositorySuite) TestProductsAndSettings() {
	t := s.T()
	ctx := t.Context()

	productID := s.insertProduct(domain.FulfillmentAuto)
	products, err := repository.NewDefaultProductRepository(s.db).
		GetProductsByIDs(ctx, []string{productID, gofakeit.UUID(), "not-a-uuid"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, domain.FulfillmentAuto, products[productID].FulfillmentType)
	assert.True(t, products[productID].PriceUSD.Equal(decimal.RequireFromString("9.99")))

	settings, err := repository.NewDefaultSettingsRepository(s.db).GetSettings(ctx)
	require.NoError(t, err)
	assert.True(t, settings.ExchangeRate.Equal(decimal.NewFromInt(250)))
	assert.True(t, settings.MethodEnabled(domain.MethodPayPal))
	assert.True(t, settings.MethodEnabled(domain.MethodEdahabia))
	assert.False(t, settings.MaintenanceMode)
}

func (s *repositorySuite) TestPaymentEventLog() {
	t := s.T()
	ctx := t.Context()
	events := logger.NewPGPaymentEventLogger(s.db)

	orderID := gofakeit.UUID()
	require.NoError(t, events.LogPaymentEvent(ctx, domain.PaymentEvent{
		OrderID:   orderID,
		Type:      domain.EventPaymentFailed,
		Method:    domain.MethodCrypto,
		Amount:    "12.5",
		Currency:  domain.CurrencyUSD,
		Reason:    "initiate: crypto initiate: payment provider unavailable",
		Transient: true,
	}))
	require.NoError(t, events.LogPaymentEvent(ctx, domain.PaymentEvent{OrderID: orderID, Type: domain.EventOrderExpired}))

	var rows []logger.PaymentEventModel
	require.NoError(t, s.db.Where("order_id = ?", orderID).Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, string(domain.EventPaymentFailed), rows[0].Type)
	assert.True(t, rows[0].Transient)
	assert.False(t, rows[0].Timestamp.IsZero())
	assert.Equal(t, string(domain.EventOrderExpired), rows[1].Type)
}
