package background

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/config"
	"github.com/LavaJover/shvark-checkout-service/internal/delivery/grpcapi"
	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	publisher "github.com/LavaJover/shvark-checkout-service/internal/infrastructure/kafka"
	"github.com/LavaJover/shvark-checkout-service/internal/usecase/checkout"
	"github.com/LavaJover/shvark-checkout-service/internal/usecase/settings"
)

const defaultExpiryInterval = time.Minute

type BackgroundTasks struct {
	Checkout checkout.CheckoutUsecase
	Settings *settings.Cache
	Health   *grpcapi.MaintenanceHealth
	// Subscriber is nil when Kafka is not configured.
	Subscriber domain.SubscriberPort
	Config     *config.CheckoutConfig

	wg sync.WaitGroup
}

func NewBackgroundTasks(
	checkoutUC checkout.CheckoutUsecase,
	settingsCache *settings.Cache,
	healthServer *grpcapi.MaintenanceHealth,
	subscriber domain.SubscriberPort,
	cfg *config.CheckoutConfig,
) *BackgroundTasks {
	return &BackgroundTasks{
		Checkout:   checkoutUC,
		Settings:   settingsCache,
		Health:     healthServer,
		Subscriber: subscriber,
		Config:     cfg,
	}
}

func (bt *BackgroundTasks) StartAll(ctx context.Context) {
	bt.spawn(func() { bt.startOrderExpiry(ctx) })
	bt.spawn(func() { bt.startSettingsRefresh(ctx) })
	bt.spawn(func() { bt.startHealthSync(ctx) })
	if bt.Subscriber != nil {
		bt.spawn(func() { bt.startSettingsListener(ctx) })
	}
}

// Wait blocks until every task has returned after ctx was cancelled.
func (bt *BackgroundTasks) Wait() {
	bt.wg.Wait()
}

func (bt *BackgroundTasks) spawn(task func()) {
	bt.wg.Add(1)
	go func() {
		defer bt.wg.Done()
		task()
	}()
}

func (bt *BackgroundTasks) startOrderExpiry(ctx context.Context) {
	ttl := bt.Config.Checkout.PendingTTL
	if ttl <= 0 {
		slog.Info("pending order expiry disabled")
		return
	}

	interval := bt.Config.Checkout.ExpiryInterval
	if interval <= 0 {
		interval = defaultExpiryInterval
		slog.Warn("non-positive expiry interval, using default", "interval", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := bt.Checkout.ExpirePendingOrders(ctx, ttl); err != nil {
				slog.Error("pending order expiry failed", "error", err)
			}
		}
	}
}

// startSettingsRefresh keeps the cache warm. A zero TTL disables caching, every read
// goes to the database and there is nothing to refresh.
func (bt *BackgroundTasks) startSettingsRefresh(ctx context.Context) {
	ttl := bt.Config.Checkout.SettingsTTL
	if ttl <= 0 {
		slog.Info("settings cache disabled, periodic refresh skipped")
		return
	}

	ticker := time.NewTicker(ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := bt.Settings.Refresh(ctx); err != nil {
				slog.Error("settings refresh failed", "error", err)
			}
		}
	}
}

func (bt *BackgroundTasks) startHealthSync(ctx context.Context) {
	updates, cancel := bt.Settings.Subscribe()
	defer cancel()
	bt.Health.Run(ctx, updates)
}

// startSettingsListener refreshes the settings cache as soon as the admin side announces
// a change instead of waiting for the next refresh tick.
func (bt *BackgroundTasks) startSettingsListener(ctx context.Context) {
	messages, err := bt.Subscriber.Subscribe(ctx, bt.Config.Kafka.SettingsTopic, bt.Config.Kafka.ConsumerGroup)
	if err != nil {
		slog.Error("failed to subscribe to settings events", "topic", bt.Config.Kafka.SettingsTopic, "error", err)
		return
	}

	for msg := range messages {
		var event publisher.SettingsEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			slog.Warn("malformed settings event", "error", err)
		}
		slog.Info("settings change announced", "event", event.Event, "updated_by", event.UpdatedBy)

		if _, err := bt.Settings.Refresh(ctx); err != nil {
			slog.Error("settings refresh failed", "error", err)
		}
	}
}
