package checkout

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/metrics"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	autoProductID     = uuid.NewString()
	manualProductID   = uuid.NewString()
	variantProductID  = uuid.NewString()
	inactiveProductID = uuid.NewString()
	variantID         = uuid.NewString()
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func testProducts() memProductRepo {
	return memProductRepo{
		autoProductID: {
			ID: autoProductID, NameEN: "Steam Card 10", PriceUSD: dec("10"),
			FulfillmentType: domain.FulfillmentAuto, Active: true,
		},
		manualProductID: {
			ID: manualProductID, NameEN: "Account Setup", PriceUSD: dec("9.99"), PriceDZD: decPtr("3000"),
			FulfillmentType: domain.FulfillmentManual, Active: true,
		},
		variantProductID: {
			ID: variantProductID, NameEN: "Netflix", PriceUSD: dec("5"), PriceDZD: decPtr("1300"),
			FulfillmentType: domain.FulfillmentAuto, Active: true,
			Variants: []domain.ProductVariant{{ID: variantID, ProductID: variantProductID, Name: "Premium", PriceUSD: decPtr("12.50")}},
		},
		inactiveProductID: {
			ID: inactiveProductID, NameEN: "Retired", PriceUSD: dec("1"),
			FulfillmentType: domain.FulfillmentAuto, Active: false,
		},
	}
}

type testEnv struct {
	uc        *DefaultCheckoutUsecase
	orders    *memOrderRepo
	carts     *memCartRepo
	settings  *staticSettings
	gateways  map[domain.PaymentMethod]*fakeGateway
	fulfiller *fakeFulfiller
	notifier  *recordingNotifier
	events    *memEventLog
	metrics   *metrics.CheckoutMetrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		orders: newMemOrderRepo(),
		carts:  newMemCartRepo(),
		settings: &staticSettings{settings: domain.StoreSettings{
			ExchangeRate:    dec("250"),
			TaxRate:         decimal.Zero,
			PayPalEnabled:   true,
			CryptoEnabled:   true,
			EdahabiaEnabled: true,
			SupportWhatsApp: "https://wa.me/213000000000",
			SupportEmail:    "support@example.com",
		}},
		gateways: map[domain.PaymentMethod]*fakeGateway{
			domain.MethodPayPal:   {method: domain.MethodPayPal},
			domain.MethodCrypto:   {method: domain.MethodCrypto},
			domain.MethodEdahabia: {method: domain.MethodEdahabia},
		},
		notifier: &recordingNotifier{},
		events:   &memEventLog{},
		metrics:  metrics.NewCheckoutMetrics(prometheus.NewRegistry()),
	}
	env.fulfiller = &fakeFulfiller{repo: env.orders}

	gateways := make([]domain.PaymentGateway, 0, len(env.gateways))
	for _, gw := range env.gateways {
		gateways = append(gateways, gw)
	}
	env.uc = NewDefaultCheckoutUsecase(
		env.orders,
		testProducts(),
		env.carts,
		env.settings,
		gateways,
		env.fulfiller,
		env.notifier,
		env.events,
		env.metrics,
	)
	return env
}

func (e *testEnv) request(method domain.PaymentMethod, lines ...domain.CartLine) domain.PaymentRequest {
	return domain.PaymentRequest{
		Method:        method,
		CustomerEmail: gofakeit.Email(),
		CustomerPhone: gofakeit.Phone(),
		Items:         lines,
	}
}

func line(productID string, qty int) domain.CartLine {
	return domain.CartLine{ProductID: productID, Quantity: qty}
}

type pricedItem struct {
	Name  string
	Qty   int
	Unit  decimal.Decimal
	Total decimal.Decimal
}

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func pricedItems(order *domain.Order) []pricedItem {
	out := make([]pricedItem, 0, len(order.Items))
	for _, item := range order.Items {
		out = append(out, pricedItem{Name: item.ProductName, Qty: item.Quantity, Unit: item.UnitPrice, Total: item.TotalPrice})
	}
	return out
}

func TestCreateOrder(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(env *testEnv)
		req      func(env *testEnv) domain.PaymentRequest
		items    []pricedItem
		currency domain.Currency
		subtotal string
		tax      string
		total    string
		wantErr  error
	}{
		{
			name: "usd with tax: ok",
			mutate: func(env *testEnv) {
				env.settings.settings.TaxRate = dec("19")
			},
			req: func(env *testEnv) domain.PaymentRequest {
				return env.request(domain.MethodPayPal, line(autoProductID, 2))
			},
			items:    []pricedItem{{Name: "Steam Card 10", Qty: 2, Unit: dec("10"), Total: dec("20")}},
			currency: domain.CurrencyUSD,
			subtotal: "20",
			tax:      "3.8",
			total:    "23.8",
		},
		{
			name: "dzd derived from usd and explicit dzd: ok",
			req: func(env *testEnv) domain.PaymentRequest {
				return env.request(domain.MethodEdahabia, line(autoProductID, 1), line(manualProductID, 1))
			},
			items: []pricedItem{
				{Name: "Steam Card 10", Qty: 1, Unit: dec("2500"), Total: dec("2500")},
				{Name: "Account Setup", Qty: 1, Unit: dec("3000"), Total: dec("3000")},
			},
			currency: domain.CurrencyDZD,
			subtotal: "5500",
			tax:      "0",
			total:    "5500",
		},
		{
			name: "dzd rounded to whole dinars: ok",
			mutate: func(env *testEnv) {
				env.uc.ProductRepo = memProductRepo{autoProductID: {
					ID: autoProductID, NameEN: "Gift", PriceUSD: dec("9.99"),
					FulfillmentType: domain.FulfillmentAuto, Active: true,
				}}
			},
			req: func(env *testEnv) domain.PaymentRequest {
				return env.request(domain.MethodEdahabia, line(autoProductID, 1))
			},
			items:    []pricedItem{{Name: "Gift", Qty: 1, Unit: dec("2498"), Total: dec("2498")}},
			currency: domain.CurrencyDZD,
			subtotal: "2498",
			tax:      "0",
			total:    "2498",
		},
		{
			name: "dzd tax rounded to whole dinars: ok",
			mutate: func(env *testEnv) {
				env.settings.settings.TaxRate = dec("7.55")
			},
			req: func(env *testEnv) domain.PaymentRequest {
				return env.request(domain.MethodEdahabia, line(manualProductID, 1))
			},
			items:    []pricedItem{{Name: "Account Setup", Qty: 1, Unit: dec("3000"), Total: dec("3000")}},
			currency: domain.CurrencyDZD,
			subtotal: "3000",
			tax:      "227",
			total:    "3227",
		},
		{
			name: "usd tax rounded to cents: ok",
			mutate: func(env *testEnv) {
				env.settings.settings.TaxRate = dec("7.55")
			},
			req: func(env *testEnv) domain.PaymentRequest {
				return env.request(domain.MethodPayPal, line(autoProductID, 1))
			},
			items:    []pricedItem{{Name: "Steam Card 10", Qty: 1, Unit: dec("10"), Total: dec("10")}},
			currency: domain.CurrencyUSD,
			subtotal: "10",
			tax:      "0.76",
			total:    "10.76",
		},
		{
			name: "variant usd override ignores product dzd: ok",
			req: func(env *testEnv) domain.PaymentRequest {
				return env.request(domain.MethodEdahabia, domain.CartLine{ProductID: variantProductID, VariantID: variantID, Quantity: 2})
			},
			items:    []pricedItem{{Name: "Netflix - Premium", Qty: 2, Unit: dec("3125"), Total: dec("6250")}},
			currency: domain.CurrencyDZD,
			subtotal: "6250",
			tax:      "0",
			total:    "6250",
		},
		{
			name: "empty items: fail",
			req: func(env *testEnv) domain.PaymentRequest {
				return env.request(domain.MethodPayPal)
			},
			wantErr: domain.ErrEmptyCart,
		},
		{
			name: "zero quantity: fail",
			req: func(env *testEnv) domain.PaymentRequest {
				return env.request(domain.MethodPayPal, line(autoProductID, 0))
			},
			wantErr: domain.ErrInvalidQuantity,
		},
		{
			name: "missing email: fail",
			req: func(env *testEnv) domain.PaymentRequest {
				req := env.request(domain.MethodPayPal, line(autoProductID, 1))
				req.CustomerEmail = "  "
				return req
			},
			wantErr: domain.ErrCustomerEmailRequired,
		},
		{
			name: "malformed email: fail",
			req: func(env *testEnv) domain.PaymentRequest {
				req := env.request(domain.MethodPayPal, line(autoProductID, 1))
				req.CustomerEmail = "not-an-address"
				return req
			},
			wantErr: domain.ErrCustomerEmailRequired,
		},
		{
			name: "unknown method: fail",
			req: func(env *testEnv) domain.PaymentRequest {
				return env.request("cash", line(autoProductID, 1))
			},
			wantErr: domain.ErrUnknownPaymentMethod,
		},
		{
			name: "disabled method: fail",
			mutate: func(env *testEnv) {
				env.settings.settings.CryptoEnabled = false
			},
			req: func(env *testEnv) domain.PaymentRequest {
				return env.request(domain.MethodCrypto, line(autoProductID, 1))
			},
			wantErr: domain.ErrPaymentMethodDisabled,
		},
		{
			name: "maintenance: fail",
			mutate: func(env *testEnv) {
				env.settings.settings.MaintenanceMode = true
			},
			req: func(env *testEnv) domain.PaymentRequest {
				return env.request(domain.MethodPayPal, line(autoProductID, 1))
			},
			wantErr: domain.ErrMaintenanceMode,
		},
		{
			name: "unknown product: fail",
			req: func(env *testEnv) domain.PaymentRequest {
				return env.request(domain.MethodPayPal, line(uuid.NewString(), 1))
			},
			wantErr: domain.ErrProductNotFound,
		},
		{
			name: "inactive product: fail",
			req: func(env *testEnv) domain.PaymentRequest {
				return env.request(domain.MethodPayPal, line(inactiveProductID, 1))
			},
			wantErr: domain.ErrProductNotFound,
		},
		{
			name: "unknown variant: fail",
			req: func(env *testEnv) domain.PaymentRequest {
				return env.request(domain.MethodPayPal, domain.CartLine{ProductID: variantProductID, VariantID: uuid.NewString(), Quantity: 1})
			},
			wantErr: domain.ErrVariantNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tc.mutate != nil {
				tc.mutate(env)
			}

			order, err := env.uc.CreateOrder(t.Context(), tc.req(env))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, domain.ErrOrderCreationFailed)
				require.ErrorIs(t, err, tc.wantErr)
				assert.Empty(t, env.orders.orders)
				assert.Empty(t, env.notifier.kinds())
				return
			}
			require.NoError(t, err)

			assert.Equal(t, domain.StatusPending, order.Status)
			assert.Equal(t, tc.currency, order.Currency)
			assert.Regexp(t, `^ORD-\d{6}-[A-Z0-9]{5}$`, order.OrderNumber)
			if diff := cmp.Diff(tc.items, pricedItems(order), decimalEqual); diff != "" {
				t.Errorf("items mismatch (-want +got):\n%s", diff)
			}
			assert.True(t, dec(tc.subtotal).Equal(order.Subtotal), "subtotal %s", order.Subtotal)
			assert.True(t, dec(tc.tax).Equal(order.TaxAmount), "tax %s", order.TaxAmount)
			assert.True(t, dec(tc.total).Equal(order.TotalAmount), "total %s", order.TotalAmount)

			stored, err := env.orders.GetOrderByID(t.Context(), order.ID)
			require.NoError(t, err)
			assert.Len(t, stored.Items, len(tc.items))
			assert.Equal(t, []domain.NotificationKind{domain.NotifyOrderCreated}, env.notifier.kinds())
			assert.Len(t, env.events.ofType(domain.EventOrderCreated), 1)
		})
	}
}

func TestCreateOrderRetriesOrderNumber(t *testing.T) {
	t.Run("two collisions: ok", func(t *testing.T) {
		env := newTestEnv(t)
		env.orders.dupes = 2

		order, err := env.uc.CreateOrder(t.Context(), env.request(domain.MethodPayPal, line(autoProductID, 1)))
		require.NoError(t, err)
		assert.NotEmpty(t, order.ID)
	})

	t.Run("three collisions: fail", func(t *testing.T) {
		env := newTestEnv(t)
		env.orders.dupes = 3

		_, err := env.uc.CreateOrder(t.Context(), env.request(domain.MethodPayPal, line(autoProductID, 1)))
		require.ErrorIs(t, err, domain.ErrOrderCreationFailed)
		require.ErrorIs(t, err, domain.ErrDuplicateOrderNumber)
	})
}

func TestStartCheckout(t *testing.T) {
	t.Run("snapshots session cart: ok", func(t *testing.T) {
		env := newTestEnv(t)
		session := uuid.NewString()
		_, err := env.carts.AddItem(t.Context(), session, line(autoProductID, 3))
		require.NoError(t, err)

		result, err := env.uc.StartCheckout(t.Context(), &CheckoutInput{
			Method:        domain.MethodCrypto,
			CustomerEmail: gofakeit.Email(),
			SessionID:     session,
		})
		require.NoError(t, err)

		assert.Equal(t, "https://provider.test/pay/"+result.Order.ID, result.RedirectURL)
		require.Len(t, result.Order.Items, 1)
		assert.Equal(t, 3, result.Order.Items[0].Quantity)

		stored, err := env.orders.GetOrderByID(t.Context(), result.Order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, stored.Status)
		assert.Equal(t, "PAY-"+stored.ID[:8], stored.PaymentID)
		assert.Equal(t, "crypto", stored.PaymentData["provider"])
		assert.Len(t, env.events.ofType(domain.EventPaymentInitiated), 1)
	})

	t.Run("explicit items override cart: ok", func(t *testing.T) {
		env := newTestEnv(t)
		user := uuid.NewString()
		_, err := env.carts.AddItem(t.Context(), user, line(autoProductID, 3))
		require.NoError(t, err)

		result, err := env.uc.StartCheckout(t.Context(), &CheckoutInput{
			Method:        domain.MethodPayPal,
			CustomerEmail: gofakeit.Email(),
			UserID:        user,
			Items:         []domain.CartLine{line(manualProductID, 1)},
		})
		require.NoError(t, err)
		require.Len(t, result.Order.Items, 1)
		assert.Equal(t, manualProductID, result.Order.Items[0].ProductID)
	})

	t.Run("empty cart: fail", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.uc.StartCheckout(t.Context(), &CheckoutInput{
			Method:        domain.MethodPayPal,
			CustomerEmail: gofakeit.Email(),
			SessionID:     uuid.NewString(),
		})
		require.ErrorIs(t, err, domain.ErrEmptyCart)
	})

	t.Run("provider outage keeps order pending: fail", func(t *testing.T) {
		env := newTestEnv(t)
		env.gateways[domain.MethodPayPal].initErr = domain.NewGatewayError(
			domain.MethodPayPal, "create order", domain.ErrGatewayUnavailable, errors.New("connection reset"),
		)

		result, err := env.uc.StartCheckout(t.Context(), &CheckoutInput{
			Method:        domain.MethodPayPal,
			CustomerEmail: gofakeit.Email(),
			Items:         []domain.CartLine{line(autoProductID, 1)},
		})
		require.ErrorIs(t, err, domain.ErrGatewayUnavailable)
		require.NotNil(t, result)
		require.NotNil(t, result.Order)
		assert.Empty(t, result.RedirectURL)

		stored, err := env.orders.GetOrderByID(t.Context(), result.Order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, stored.Status)
		assert.Empty(t, stored.PaymentID)

		failures := env.events.ofType(domain.EventPaymentFailed)
		require.Len(t, failures, 1)
		assert.True(t, failures[0].Transient)
	})

	t.Run("provider rejection is not transient: fail", func(t *testing.T) {
		env := newTestEnv(t)
		env.gateways[domain.MethodEdahabia].initErr = domain.NewGatewayError(
			domain.MethodEdahabia, "create checkout", domain.ErrProviderRejected, errors.New("amount too low"),
		)

		_, err := env.uc.StartCheckout(t.Context(), &CheckoutInput{
			Method:        domain.MethodEdahabia,
			CustomerEmail: gofakeit.Email(),
			Items:         []domain.CartLine{line(autoProductID, 1)},
		})
		require.ErrorIs(t, err, domain.ErrProviderRejected)

		failures := env.events.ofType(domain.EventPaymentFailed)
		require.Len(t, failures, 1)
		assert.False(t, failures[0].Transient)
	})

	t.Run("gateway not configured: fail", func(t *testing.T) {
		env := newTestEnv(t)
		delete(env.uc.Gateways, domain.MethodPayPal)

		_, err := env.uc.StartCheckout(t.Context(), &CheckoutInput{
			Method:        domain.MethodPayPal,
			CustomerEmail: gofakeit.Email(),
			Items:         []domain.CartLine{line(autoProductID, 1)},
		})
		require.ErrorIs(t, err, domain.ErrCredentialsMissing)
	})
}

func TestInitiatePayment(t *testing.T) {
	t.Run("retry on pending order: ok", func(t *testing.T) {
		env := newTestEnv(t)
		order, err := env.uc.CreateOrder(t.Context(), env.request(domain.MethodPayPal, line(autoProductID, 1)))
		require.NoError(t, err)

		result, err := env.uc.InitiatePayment(t.Context(), order.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, result.RedirectURL)
		assert.Equal(t, int32(1), env.gateways[domain.MethodPayPal].initiateCalls.Load())
	})

	t.Run("paid order: fail", func(t *testing.T) {
		env := newTestEnv(t)
		order := env.orders.put(&domain.Order{Status: domain.StatusPaid, PaymentMethod: domain.MethodPayPal})

		_, err := env.uc.InitiatePayment(t.Context(), order.ID)
		require.ErrorIs(t, err, domain.ErrOrderNotPending)
	})

	t.Run("method disabled after creation: fail", func(t *testing.T) {
		env := newTestEnv(t)
		order, err := env.uc.CreateOrder(t.Context(), env.request(domain.MethodCrypto, line(autoProductID, 1)))
		require.NoError(t, err)
		env.settings.settings.CryptoEnabled = false

		_, err = env.uc.InitiatePayment(t.Context(), order.ID)
		require.ErrorIs(t, err, domain.ErrPaymentMethodDisabled)
	})

	t.Run("unknown order: fail", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.uc.InitiatePayment(t.Context(), uuid.NewString())
		require.ErrorIs(t, err, domain.ErrOrderNotFound)
	})
}

func (e *testEnv) pendingOrder(t *testing.T, method domain.PaymentMethod) *domain.Order {
	t.Helper()
	user := uuid.NewString()
	_, err := e.carts.AddItem(t.Context(), user, line(autoProductID, 1))
	require.NoError(t, err)

	result, err := e.uc.StartCheckout(t.Context(), &CheckoutInput{
		Method:        method,
		CustomerEmail: gofakeit.Email(),
		UserID:        user,
	})
	require.NoError(t, err)
	return result.Order
}

func TestConfirmPayment(t *testing.T) {
	t.Run("paid and fulfilled: ok", func(t *testing.T) {
		env := newTestEnv(t)
		order := env.pendingOrder(t, domain.MethodPayPal)
		env.gateways[domain.MethodPayPal].confirmation = &domain.Confirmation{
			Paid:           true,
			ProviderStatus: "COMPLETED",
			PaymentData:    map[string]any{"capture_id": "CAP-1"},
		}

		confirmed, err := env.uc.ConfirmPayment(t.Context(), order.ID, order.PaymentID)
		require.NoError(t, err)

		assert.Equal(t, domain.StatusDelivered, confirmed.Status)
		assert.NotNil(t, confirmed.PaidAt)
		assert.Equal(t, "CAP-1", confirmed.PaymentData["capture_id"])
		assert.Equal(t, "paypal", confirmed.PaymentData["provider"], "merge keeps earlier keys")
		assert.NotEmpty(t, confirmed.Items[0].DeliveryCode)
		assert.Equal(t, []string{order.UserID}, env.carts.cleared)
		assert.Equal(t, []domain.NotificationKind{domain.NotifyOrderCreated, domain.NotifyOrderPaid}, env.notifier.kinds())
		assert.Equal(t, []string{order.PaymentID}, env.gateways[domain.MethodPayPal].tokens)
	})

	t.Run("repeat confirmation is a no-op: ok", func(t *testing.T) {
		env := newTestEnv(t)
		order := env.pendingOrder(t, domain.MethodPayPal)

		_, err := env.uc.ConfirmPayment(t.Context(), order.ID, order.PaymentID)
		require.NoError(t, err)
		again, err := env.uc.ConfirmPayment(t.Context(), order.ID, order.PaymentID)
		require.NoError(t, err)

		assert.Equal(t, domain.StatusDelivered, again.Status)
		assert.Equal(t, int32(1), env.gateways[domain.MethodPayPal].confirmCalls.Load())
		assert.Equal(t, []domain.NotificationKind{domain.NotifyOrderCreated, domain.NotifyOrderPaid}, env.notifier.kinds())
	})

	t.Run("not paid yet: ok", func(t *testing.T) {
		env := newTestEnv(t)
		order := env.pendingOrder(t, domain.MethodCrypto)
		env.gateways[domain.MethodCrypto].confirmation = &domain.Confirmation{Paid: false, ProviderStatus: "waiting"}

		got, err := env.uc.ConfirmPayment(t.Context(), order.ID, "")
		require.NoError(t, err)

		assert.Equal(t, domain.StatusPending, got.Status)
		assert.Nil(t, got.PaidAt)
		assert.Zero(t, env.fulfiller.calls.Load())
		assert.Empty(t, env.carts.cleared)
		assert.Equal(t, []domain.NotificationKind{domain.NotifyOrderCreated}, env.notifier.kinds())

		unconfirmed := env.events.ofType(domain.EventPaymentUnconfirmed)
		require.Len(t, unconfirmed, 1)
		assert.Equal(t, "waiting", unconfirmed[0].Reason)
	})

	t.Run("stockout stays paid and needs support: ok", func(t *testing.T) {
		env := newTestEnv(t)
		env.fulfiller.stockout = true
		order := env.pendingOrder(t, domain.MethodEdahabia)

		confirmed, err := env.uc.ConfirmPayment(t.Context(), order.ID, order.PaymentID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPaid, confirmed.Status)

		view, err := env.uc.GetOrderView(t.Context(), order.ID)
		require.NoError(t, err)
		assert.True(t, view.NeedsSupport)
		assert.Equal(t, "support@example.com", view.Support.Email)
	})

	t.Run("late payment of an expired order: ok", func(t *testing.T) {
		env := newTestEnv(t)
		order := env.pendingOrder(t, domain.MethodCrypto)
		_, err := env.orders.UpdateOrderStatus(t.Context(), order.ID, domain.StatusFailed)
		require.NoError(t, err)

		confirmed, err := env.uc.ConfirmPayment(t.Context(), order.ID, "5077125051")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusDelivered, confirmed.Status)
	})

	t.Run("provider outage leaves order pending: fail", func(t *testing.T) {
		env := newTestEnv(t)
		order := env.pendingOrder(t, domain.MethodEdahabia)
		env.gateways[domain.MethodEdahabia].confirmErr = domain.NewGatewayError(
			domain.MethodEdahabia, "get checkout", domain.ErrGatewayUnavailable, errors.New("503"),
		)

		_, err := env.uc.ConfirmPayment(t.Context(), order.ID, order.PaymentID)
		require.ErrorIs(t, err, domain.ErrGatewayUnavailable)

		stored, err := env.orders.GetOrderByID(t.Context(), order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, stored.Status)
		assert.Len(t, env.events.ofType(domain.EventPaymentFailed), 1)
	})

	t.Run("token mismatch: fail", func(t *testing.T) {
		env := newTestEnv(t)
		order := env.pendingOrder(t, domain.MethodPayPal)
		env.gateways[domain.MethodPayPal].confirmErr = domain.ErrTokenMismatch

		_, err := env.uc.ConfirmPayment(t.Context(), order.ID, "someone-elses-token")
		require.ErrorIs(t, err, domain.ErrTokenMismatch)
		assert.Empty(t, env.events.ofType(domain.EventPaymentFailed))
	})

	t.Run("refunded order is left alone: ok", func(t *testing.T) {
		env := newTestEnv(t)
		order := env.orders.put(&domain.Order{Status: domain.StatusRefunded, PaymentMethod: domain.MethodPayPal})

		got, err := env.uc.ConfirmPayment(t.Context(), order.ID, "")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRefunded, got.Status)
		assert.Zero(t, env.gateways[domain.MethodPayPal].confirmCalls.Load())
	})
}

func TestConfirmPaymentConcurrent(t *testing.T) {
	env := newTestEnv(t)
	order := env.pendingOrder(t, domain.MethodCrypto)

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.uc.ConfirmPayment(t.Context(), order.ID, "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := env.orders.GetOrderByID(t.Context(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, stored.Status)
	assert.Equal(t, []domain.NotificationKind{domain.NotifyOrderCreated, domain.NotifyOrderPaid}, env.notifier.kinds())
	assert.Len(t, env.events.ofType(domain.EventPaymentConfirmed), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.PaymentsConfirmedTotal.WithLabelValues(string(domain.MethodCrypto))))
}

func TestHandleWebhook(t *testing.T) {
	t.Run("by order id: ok", func(t *testing.T) {
		env := newTestEnv(t)
		order := env.pendingOrder(t, domain.MethodCrypto)
		gw := env.gateways[domain.MethodCrypto]
		gw.notice = &domain.WebhookNotice{Event: "finished", OrderID: order.ID, Token: "5077125051"}

		err := env.uc.HandleWebhook(t.Context(), domain.MethodCrypto, []byte(`{}`), "good")
		require.NoError(t, err)

		stored, err := env.orders.GetOrderByID(t.Context(), order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusDelivered, stored.Status)
		assert.Equal(t, []string{"5077125051"}, gw.tokens)
	})

	t.Run("by provider payment id: ok", func(t *testing.T) {
		env := newTestEnv(t)
		order := env.pendingOrder(t, domain.MethodEdahabia)
		env.gateways[domain.MethodEdahabia].notice = &domain.WebhookNotice{
			Event:             "checkout.paid",
			ProviderPaymentID: order.PaymentID,
			Token:             order.PaymentID,
		}

		require.NoError(t, env.uc.HandleWebhook(t.Context(), domain.MethodEdahabia, []byte(`{}`), "good"))

		stored, err := env.orders.GetOrderByID(t.Context(), order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusDelivered, stored.Status)
	})

	t.Run("bad signature: fail", func(t *testing.T) {
		env := newTestEnv(t)
		order := env.pendingOrder(t, domain.MethodCrypto)
		env.gateways[domain.MethodCrypto].notice = &domain.WebhookNotice{OrderID: order.ID}

		err := env.uc.HandleWebhook(t.Context(), domain.MethodCrypto, []byte(`{}`), "forged")
		require.ErrorIs(t, err, domain.ErrInvalidSignature)
		assert.Zero(t, env.gateways[domain.MethodCrypto].confirmCalls.Load())
	})

	t.Run("order paid with another method: fail", func(t *testing.T) {
		env := newTestEnv(t)
		order := env.pendingOrder(t, domain.MethodPayPal)
		env.gateways[domain.MethodCrypto].notice = &domain.WebhookNotice{OrderID: order.ID}

		err := env.uc.HandleWebhook(t.Context(), domain.MethodCrypto, []byte(`{}`), "good")
		require.ErrorIs(t, err, domain.ErrTokenMismatch)
	})

	t.Run("unknown order: fail", func(t *testing.T) {
		env := newTestEnv(t)
		env.gateways[domain.MethodCrypto].notice = &domain.WebhookNotice{OrderID: uuid.NewString(), ProviderPaymentID: "404"}

		err := env.uc.HandleWebhook(t.Context(), domain.MethodCrypto, []byte(`{}`), "good")
		require.ErrorIs(t, err, domain.ErrOrderNotFound)
	})

	t.Run("gateway without webhooks: fail", func(t *testing.T) {
		env := newTestEnv(t)
		env.uc.Gateways[domain.MethodPayPal] = pollOnlyGateway{env.gateways[domain.MethodPayPal]}

		err := env.uc.HandleWebhook(t.Context(), domain.MethodPayPal, []byte(`{}`), "good")
		require.Error(t, err)
	})
}

func TestSetOrderStatus(t *testing.T) {
	cases := []struct {
		name    string
		from    domain.OrderStatus
		to      domain.OrderStatus
		wantErr error
	}{
		{name: "refund paid: ok", from: domain.StatusPaid, to: domain.StatusRefunded},
		{name: "refund delivered: ok", from: domain.StatusDelivered, to: domain.StatusRefunded},
		{name: "cancel pending: ok", from: domain.StatusPending, to: domain.StatusFailed},
		{name: "deliver paid: ok", from: domain.StatusPaid, to: domain.StatusDelivered},
		{name: "same status: ok", from: domain.StatusRefunded, to: domain.StatusRefunded},
		{name: "mark paid: fail", from: domain.StatusPending, to: domain.StatusPaid, wantErr: domain.ErrInvalidStatusTransition},
		{name: "refund pending: fail", from: domain.StatusPending, to: domain.StatusRefunded, wantErr: domain.ErrInvalidStatusTransition},
		{name: "back to pending: fail", from: domain.StatusFailed, to: domain.StatusPending, wantErr: domain.ErrInvalidStatusTransition},
		{name: "unknown status: fail", from: domain.StatusPaid, to: "lost", wantErr: domain.ErrInvalidStatusTransition},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			order := env.orders.put(&domain.Order{Status: tc.from, PaymentMethod: domain.MethodPayPal})

			got, err := env.uc.SetOrderStatus(t.Context(), order.ID, tc.to)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				stored, err := env.orders.GetOrderByID(t.Context(), order.ID)
				require.NoError(t, err)
				assert.Equal(t, tc.from, stored.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.to, got.Status)
		})
	}
}

func TestExpirePendingOrders(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env.uc.now = func() time.Time { return now }

	stale := env.orders.put(&domain.Order{Status: domain.StatusPending, PaymentMethod: domain.MethodCrypto, CreatedAt: now.Add(-2 * time.Hour)})
	fresh := env.orders.put(&domain.Order{Status: domain.StatusPending, PaymentMethod: domain.MethodCrypto, CreatedAt: now.Add(-10 * time.Minute)})
	paid := env.orders.put(&domain.Order{Status: domain.StatusPaid, PaymentMethod: domain.MethodCrypto, CreatedAt: now.Add(-3 * time.Hour)})

	t.Run("disabled: ok", func(t *testing.T) {
		n, err := env.uc.ExpirePendingOrders(t.Context(), 0)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("expires stale pending only: ok", func(t *testing.T) {
		n, err := env.uc.ExpirePendingOrders(t.Context(), time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		for id, want := range map[string]domain.OrderStatus{
			stale.ID: domain.StatusFailed,
			fresh.ID: domain.StatusPending,
			paid.ID:  domain.StatusPaid,
		} {
			got, err := env.orders.GetOrderByID(t.Context(), id)
			require.NoError(t, err)
			assert.Equal(t, want, got.Status)
		}
		assert.Len(t, env.events.ofType(domain.EventOrderExpired), 1)
		assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.OrdersExpiredTotal))
	})

	t.Run("second run finds nothing: ok", func(t *testing.T) {
		n, err := env.uc.ExpirePendingOrders(t.Context(), time.Hour)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestGetOrderView(t *testing.T) {
	env := newTestEnv(t)
	order := env.pendingOrder(t, domain.MethodPayPal)

	view, err := env.uc.GetOrderView(t.Context(), order.ID)
	require.NoError(t, err)
	assert.False(t, view.NeedsSupport)
	assert.Empty(t, view.Support)

	_, err = env.uc.GetOrderView(t.Context(), uuid.NewString())
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestNewOrderNumber(t *testing.T) {
	now := time.UnixMilli(1_700_000_123_456)
	seen := make(map[string]struct{})
	for range 50 {
		n, err := NewOrderNumber(now)
		require.NoError(t, err)
		assert.Regexp(t, `^ORD-123456-[A-Z0-9]{5}$`, n)
		seen[n] = struct{}{}
	}
	assert.Greater(t, len(seen), 45)
}
