package setup

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/LavaJover/shvark-checkout-service/internal/config"
	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/gateway/chargily"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/gateway/nowpayments"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/gateway/paypal"
	publisher "github.com/LavaJover/shvark-checkout-service/internal/infrastructure/kafka"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/logger"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/migrate"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/notifier"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/postgres"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/postgres/repository"
	"github.com/LavaJover/shvark-checkout-service/internal/usecase/settings"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
)

type Dependencies struct {
	Config       *config.CheckoutConfig
	DB           *gorm.DB
	Registry     *prometheus.Registry
	Metrics      *metrics.CheckoutMetrics
	Settings     *settings.Cache
	Gateways     []domain.PaymentGateway
	Dispatcher   *notifier.Dispatcher
	EventLogger  domain.PaymentEventLogger
	Repositories *Repositories

	// Publisher and Subscriber are nil when no Kafka brokers are configured.
	Publisher  *publisher.DefaultKafkaPublisher
	Subscriber *publisher.DefaultKafkaSubscriber
}

type Repositories struct {
	OrderRepo    domain.OrderRepository
	ProductRepo  domain.ProductRepository
	CartRepo     domain.CartRepository
	CodeRepo     domain.CodeRepository
	SettingsRepo domain.SettingsRepository
}

func InitializeDependencies(cfg *config.CheckoutConfig) (*Dependencies, error) {
	db, err := postgres.InitDB(cfg.CheckoutDB)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	if cfg.CheckoutDB.AutoMigrate {
		if err := migrate.RunMigrations(db); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	repos := &Repositories{
		OrderRepo:    repository.NewDefaultOrderRepository(db),
		ProductRepo:  repository.NewDefaultProductRepository(db),
		CartRepo:     repository.NewDefaultCartRepository(db),
		CodeRepo:     repository.NewDefaultCodeRepository(db),
		SettingsRepo: repository.NewDefaultSettingsRepository(db),
	}

	settingsCache := settings.NewCache(repos.SettingsRepo, cfg.Checkout.SettingsTTL)

	deps := &Dependencies{
		Config:       cfg,
		DB:           db,
		Registry:     registry,
		Metrics:      checkoutMetrics,
		Settings:     settingsCache,
		Gateways:     initGateways(cfg, settingsCache),
		EventLogger:  logger.NewPGPaymentEventLogger(db),
		Repositories: repos,
	}

	if len(cfg.Kafka.Brokers) > 0 {
		deps.Publisher = publisher.NewDefaultKafkaPublisher(cfg.Kafka.Brokers)
		deps.Subscriber = publisher.NewDefaultKafkaSubscriber(cfg.Kafka.Brokers)
	}
	deps.Dispatcher = initDispatcher(cfg, deps)

	return deps, nil
}

// Close releases the broker connection and the database pool.
func (d *Dependencies) Close() {
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			slog.Error("failed to close kafka publisher", "error", err)
		}
	}
	if sqlDB, err := d.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}
}

func initGateways(cfg *config.CheckoutConfig, rates domain.ExchangeRateProvider) []domain.PaymentGateway {
	client := &http.Client{Timeout: cfg.Checkout.GatewayTimeout}
	origin := cfg.Checkout.PublicOrigin

	return []domain.PaymentGateway{
		paypal.NewGateway(cfg.PayPal, origin, rates, client),
		nowpayments.NewGateway(cfg.NowPayments, origin, rates, client),
		chargily.NewGateway(cfg.Chargily, origin, rates, client),
	}
}

func initDispatcher(cfg *config.CheckoutConfig, deps *Dependencies) *notifier.Dispatcher {
	var sinks []notifier.Sink

	if telegram := notifier.NewTelegramSink(cfg.Telegram, &http.Client{Timeout: cfg.Checkout.GatewayTimeout}); telegram != nil {
		sinks = append(sinks, telegram)
	} else {
		slog.Warn("telegram notifications disabled: bot token or chat id missing")
	}

	if deps.Publisher != nil {
		sinks = append(sinks, publisher.NewOrderEventSink(deps.Publisher, cfg.Kafka.OrderTopic))
	}

	return notifier.NewDispatcher(cfg.Checkout.GatewayTimeout, deps.Metrics, sinks...)
}
