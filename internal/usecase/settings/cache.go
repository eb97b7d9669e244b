// Package settings caches the store settings row and fans out changes to subscribers.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/shopspring/decimal"
)

type Cache struct {
	repo domain.SettingsRepository
	ttl  time.Duration
	now  func() time.Time

	mu       sync.RWMutex
	current  *domain.StoreSettings
	loadedAt time.Time
	subs     map[int]chan domain.StoreSettings
	nextSub  int
}

func NewCache(repo domain.SettingsRepository, ttl time.Duration) *Cache {
	return &Cache{
		repo: repo,
		ttl:  ttl,
		now:  time.Now,
		subs: make(map[int]chan domain.StoreSettings),
	}
}

// Get returns the cached settings, reloading them once the TTL has passed. When the
// reload fails the last known settings are served.
func (c *Cache) Get(ctx context.Context) (*domain.StoreSettings, error) {
	c.mu.RLock()
	current, loadedAt := c.current, c.loadedAt
	c.mu.RUnlock()

	if current != nil && c.now().Sub(loadedAt) < c.ttl {
		s := *current
		return &s, nil
	}

	fresh, err := c.Refresh(ctx)
	if err != nil {
		if current != nil {
			slog.Warn("serving stale store settings", "error", err)
			s := *current
			return &s, nil
		}
		return nil, err
	}
	return fresh, nil
}

// Refresh reloads the settings and notifies subscribers when anything changed.
func (c *Cache) Refresh(ctx context.Context) (*domain.StoreSettings, error) {
	fresh, err := c.repo.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	c.mu.Lock()
	changed := c.current == nil || !equal(c.current, fresh)
	c.current = fresh
	c.loadedAt = c.now()
	if changed {
		for _, ch := range c.subs {
			publish(ch, *fresh)
		}
	}
	c.mu.Unlock()

	s := *fresh
	return &s, nil
}

// DZDPerUSD is the operator configured exchange rate.
func (c *Cache) DZDPerUSD(ctx context.Context) (decimal.Decimal, error) {
	s, err := c.Get(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return s.ExchangeRate, nil
}

// Subscribe returns a channel that receives the settings after every change, keeping only
// the latest value for a slow reader, and a func that cancels the subscription.
func (c *Cache) Subscribe() (<-chan domain.StoreSettings, func()) {
	ch := make(chan domain.StoreSettings, 1)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	if c.current != nil {
		publish(ch, *c.current)
	}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			close(ch)
			c.mu.Unlock()
		})
	}
}

// publish must be called with c.mu held.
func publish(ch chan domain.StoreSettings, s domain.StoreSettings) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}

func equal(a, b *domain.StoreSettings) bool {
	return a.ExchangeRate.Equal(b.ExchangeRate) &&
		a.TaxRate.Equal(b.TaxRate) &&
		a.PayPalEnabled == b.PayPalEnabled &&
		a.CryptoEnabled == b.CryptoEnabled &&
		a.EdahabiaEnabled == b.EdahabiaEnabled &&
		a.MaintenanceMode == b.MaintenanceMode &&
		a.SupportWhatsApp == b.SupportWhatsApp &&
		a.SupportTelegram == b.SupportTelegram &&
		a.SupportEmail == b.SupportEmail
}
