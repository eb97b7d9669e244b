package checkout

import (
	"context"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/google/uuid"
)

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	// dupes makes the next CreateOrder calls fail with a number collision
	dupes int
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[string]*domain.Order)}
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	c.PaymentData = maps.Clone(o.PaymentData)
	if c.PaymentData == nil {
		c.PaymentData = map[string]any{}
	}
	return &c
}

func (r *memOrderRepo) put(o *domain.Order) *domain.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	r.orders[o.ID] = cloneOrder(o)
	return o
}

func (r *memOrderRepo) CreateOrder(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dupes > 0 {
		r.dupes--
		return domain.ErrDuplicateOrderNumber
	}
	order.ID = uuid.NewString()
	order.CreatedAt = time.Now()
	for i := range order.Items {
		order.Items[i].ID = uuid.NewString()
		order.Items[i].OrderID = order.ID
	}
	r.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *memOrderRepo) GetOrderByID(_ context.Context, orderID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *memOrderRepo) GetOrderByNumber(_ context.Context, orderNumber string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.OrderNumber == orderNumber {
			return cloneOrder(o), nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (r *memOrderRepo) GetOrderByPaymentID(_ context.Context, method domain.PaymentMethod, paymentID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.PaymentMethod == method && o.PaymentID == paymentID {
			return cloneOrder(o), nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (r *memOrderRepo) UpdateOrderStatus(_ context.Context, orderID string, status domain.OrderStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return false, domain.ErrOrderNotFound
	}
	if o.Status == status {
		return false, nil
	}
	if !o.Status.CanTransitionTo(status) {
		return false, domain.ErrInvalidStatusTransition
	}
	o.Status = status
	if status == domain.StatusPaid && o.PaidAt == nil {
		now := time.Now()
		o.PaidAt = &now
	}
	return true, nil
}

func (r *memOrderRepo) SetPaymentReference(_ context.Context, orderID, paymentID string, data map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.PaymentID = paymentID
	maps.Copy(o.PaymentData, data)
	return nil
}

func (r *memOrderRepo) MergePaymentData(_ context.Context, orderID string, data map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	maps.Copy(o.PaymentData, data)
	return nil
}

func (r *memOrderRepo) ListOrders(_ context.Context, filter domain.OrderFilter, _, _ int) ([]*domain.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, o := range r.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	return out, int64(len(out)), nil
}

func (r *memOrderRepo) FindPendingCreatedBefore(_ context.Context, before time.Time, limit int) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, o := range r.orders {
		if o.Status == domain.StatusPending && o.CreatedAt.Before(before) && len(out) < limit {
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

func (r *memOrderRepo) deliverAll(orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.orders[orderID]
	for i := range o.Items {
		o.Items[i].DeliveryStatus = domain.DeliveryDelivered
		o.Items[i].DeliveryCode = "CODE-" + o.Items[i].ID[:8]
	}
}

type memProductRepo map[string]*domain.Product

func (r memProductRepo) GetProductsByIDs(_ context.Context, ids []string) (map[string]*domain.Product, error) {
	out := make(map[string]*domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := r[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type memCartRepo struct {
	mu      sync.Mutex
	carts   map[string][]domain.CartItem
	cleared []string
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{carts: make(map[string][]domain.CartItem)}
}

func (r *memCartRepo) GetCart(_ context.Context, ownerID string) (*domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &domain.Cart{OwnerID: ownerID, Items: slices.Clone(r.carts[ownerID])}, nil
}

func (r *memCartRepo) AddItem(ctx context.Context, ownerID string, line domain.CartLine) (*domain.Cart, error) {
	r.mu.Lock()
	r.carts[ownerID] = append(r.carts[ownerID], domain.CartItem{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		ProductID: line.ProductID,
		VariantID: line.VariantID,
		Quantity:  line.Quantity,
	})
	r.mu.Unlock()
	return r.GetCart(ctx, ownerID)
}

func (r *memCartRepo) RemoveItem(ctx context.Context, ownerID, itemID string) (*domain.Cart, error) {
	r.mu.Lock()
	r.carts[ownerID] = slices.DeleteFunc(r.carts[ownerID], func(item domain.CartItem) bool { return item.ID == itemID })
	r.mu.Unlock()
	return r.GetCart(ctx, ownerID)
}

func (r *memCartRepo) Clear(_ context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, ownerID)
	r.cleared = append(r.cleared, ownerID)
	return nil
}

type staticSettings struct {
	settings domain.StoreSettings
	err      error
}

func (s *staticSettings) Get(context.Context) (*domain.StoreSettings, error) {
	if s.err != nil {
		return nil, s.err
	}
	settings := s.settings
	return &settings, nil
}

type fakeGateway struct {
	method domain.PaymentMethod

	mu           sync.Mutex
	initiation   *domain.Initiation
	initErr      error
	confirmation *domain.Confirmation
	confirmErr   error
	notice       *domain.WebhookNotice
	verifyErr    error
	tokens       []string

	initiateCalls atomic.Int32
	confirmCalls  atomic.Int32
}

func (g *fakeGateway) Method() domain.PaymentMethod { return g.method }

func (g *fakeGateway) Initiate(_ context.Context, order *domain.Order, _ domain.PaymentRequest) (*domain.Initiation, error) {
	g.initiateCalls.Add(1)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.initErr != nil {
		return nil, g.initErr
	}
	if g.initiation != nil {
		return g.initiation, nil
	}
	return &domain.Initiation{
		RedirectURL:       "https://provider.test/pay/" + order.ID,
		ProviderPaymentID: "PAY-" + order.ID[:8],
		ChargedAmount:     order.TotalAmount,
		ChargedCurrency:   order.Currency,
		PaymentData:       map[string]any{"provider": string(g.method)},
	}, nil
}

func (g *fakeGateway) Confirm(_ context.Context, _ *domain.Order, providerToken string) (*domain.Confirmation, error) {
	g.confirmCalls.Add(1)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokens = append(g.tokens, providerToken)
	if g.confirmErr != nil {
		return nil, g.confirmErr
	}
	if g.confirmation != nil {
		c := *g.confirmation
		return &c, nil
	}
	return &domain.Confirmation{Paid: true, ProviderStatus: "COMPLETED"}, nil
}

func (g *fakeGateway) VerifyWebhook(_ []byte, signature string) (*domain.WebhookNotice, error) {
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	if signature != "good" {
		return nil, domain.ErrInvalidSignature
	}
	return g.notice, nil
}

// pollOnlyGateway hides VerifyWebhook.
type pollOnlyGateway struct {
	domain.PaymentGateway
}

type fakeFulfiller struct {
	repo     *memOrderRepo
	stockout bool
	calls    atomic.Int32
}

func (f *fakeFulfiller) Fulfill(ctx context.Context, orderID string) (*domain.FulfillmentReport, error) {
	f.calls.Add(1)
	order, err := f.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.StatusPaid && order.Status != domain.StatusDelivered {
		return nil, domain.ErrOrderNotPaid
	}

	report := &domain.FulfillmentReport{OrderID: orderID}
	if f.stockout {
		for _, item := range order.Items {
			report.Stockouts = append(report.Stockouts, item.ID)
		}
		return report, nil
	}

	f.repo.deliverAll(orderID)
	if _, err := f.repo.UpdateOrderStatus(ctx, orderID, domain.StatusDelivered); err != nil {
		return nil, err
	}
	report.OrderDelivered = true
	return report, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.OrderNotification
}

func (n *recordingNotifier) NotifyOrder(notification domain.OrderNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
}

func (n *recordingNotifier) kinds() []domain.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]domain.NotificationKind, 0, len(n.sent))
	for _, s := range n.sent {
		kinds = append(kinds, s.Kind)
	}
	return kinds
}

type memEventLog struct {
	mu     sync.Mutex
	events []domain.PaymentEvent
}

func (l *memEventLog) LogPaymentEvent(_ context.Context, event domain.PaymentEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *memEventLog) ofType(t domain.PaymentEventType) []domain.PaymentEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.PaymentEvent
	for _, e := range l.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
