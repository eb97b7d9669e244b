package domain

import (
	"context"
	"time"
)

type OrderRepository interface {
	// CreateOrder persists the order and all of its items atomically and fills in
	// the generated identifiers.
	CreateOrder(ctx context.Context, order *Order) error
	GetOrderByID(ctx context.Context, orderID string) (*Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*Order, error)
	GetOrderByPaymentID(ctx context.Context, method PaymentMethod, paymentID string) (*Order, error)
	// UpdateOrderStatus applies a validated transition and reports whether this call
	// changed the row. Re-applying the current status is a no-op.
	UpdateOrderStatus(ctx context.Context, orderID string, status OrderStatus) (bool, error)
	// SetPaymentReference stores the provider id and merges data into payment_data
	// without dropping existing keys.
	SetPaymentReference(ctx context.Context, orderID, paymentID string, data map[string]any) error
	MergePaymentData(ctx context.Context, orderID string, data map[string]any) error
	ListOrders(ctx context.Context, filter OrderFilter, page, limit int) ([]*Order, int64, error)
	FindPendingCreatedBefore(ctx context.Context, before time.Time, limit int) ([]*Order, error)
}

// CodeRepository owns the code pool and the delivery fields of order items.
type CodeRepository interface {
	// DeliverItem atomically claims n unused codes of productID for the item and marks the
	// item delivered. It returns delivered=false without changes when fewer than n codes
	// are available, and is a no-op for an item that is already delivered.
	DeliverItem(ctx context.Context, itemID, productID string, n int) (delivered bool, err error)
	// DeliverItemManually marks an item delivered with an operator supplied code and
	// returns the id of the order the item belongs to.
	DeliverItemManually(ctx context.Context, itemID, code string) (string, error)
	ImportCodes(ctx context.Context, productID string, codes []string) (int, error)
	CountAvailable(ctx context.Context, productIDs ...string) ([]StockCount, error)
}

type ProductRepository interface {
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]*Product, error)
}

type CartRepository interface {
	GetCart(ctx context.Context, ownerID string) (*Cart, error)
	AddItem(ctx context.Context, ownerID string, line CartLine) (*Cart, error)
	RemoveItem(ctx context.Context, ownerID, itemID string) (*Cart, error)
	Clear(ctx context.Context, ownerID string) error
}

type SettingsRepository interface {
	GetSettings(ctx context.Context) (*StoreSettings, error)
}

// SettingsProvider serves the current store settings, possibly from a cache.
type SettingsProvider interface {
	Get(ctx context.Context) (*StoreSettings, error)
}
