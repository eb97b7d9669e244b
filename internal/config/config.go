package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type CheckoutConfig struct {
	Env string `yaml:"env" env:"ENV" env-default:"local"`

	HTTPServer  `yaml:"http_server"`
	GRPCServer  `yaml:"grpc_server"`
	CheckoutDB  `yaml:"checkout_db"`
	LogConfig   `yaml:"log_config"`
	Checkout    `yaml:"checkout"`
	PayPal      `yaml:"paypal"`
	NowPayments `yaml:"nowpayments"`
	Chargily    `yaml:"chargily"`
	Telegram    `yaml:"telegram"`
	Kafka       `yaml:"kafka"`
	Admin       `yaml:"admin"`
}

type HTTPServer struct {
	Host         string        `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port         string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env-default:"30s"`
}

type GRPCServer struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"9090"`
}

type CheckoutDB struct {
	Dsn          string `yaml:"dsn" env:"CHECKOUT_DB_DSN" env-required:"true"`
	AutoMigrate  bool   `yaml:"auto_migrate" env:"CHECKOUT_DB_AUTO_MIGRATE" env-default:"true"`
	MaxOpenConns int    `yaml:"max_open_conns" env-default:"20"`
	MaxIdleConns int    `yaml:"max_idle_conns" env-default:"5"`
}

type LogConfig struct {
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" env-default:"json"`
	LogOutput string `yaml:"log_output" env:"LOG_OUTPUT" env-default:"stdout"`
}

type Checkout struct {
	// PublicOrigin is the storefront origin used to build provider return URLs.
	PublicOrigin   string        `yaml:"public_origin" env:"PUBLIC_ORIGIN" env-required:"true"`
	PendingTTL     time.Duration `yaml:"pending_ttl" env:"PENDING_TTL" env-default:"0s"`
	ExpiryInterval time.Duration `yaml:"expiry_interval" env-default:"1m"`
	SettingsTTL    time.Duration `yaml:"settings_ttl" env-default:"30s"`
	GatewayTimeout time.Duration `yaml:"gateway_timeout" env-default:"15s"`
}

type PayPal struct {
	ClientID     string `yaml:"client_id" env:"PAYPAL_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"PAYPAL_CLIENT_SECRET"`
	BaseURL      string `yaml:"base_url" env:"PAYPAL_BASE_URL" env-default:"https://api-m.sandbox.paypal.com"`
}

type NowPayments struct {
	APIKey       string  `yaml:"api_key" env:"NOWPAYMENTS_API_KEY"`
	IPNSecret    string  `yaml:"ipn_secret" env:"NOWPAYMENTS_IPN_SECRET"`
	Email        string  `yaml:"email" env:"NOWPAYMENTS_EMAIL"`
	Password     string  `yaml:"password" env:"NOWPAYMENTS_PASSWORD"`
	BaseURL      string  `yaml:"base_url" env:"NOWPAYMENTS_BASE_URL" env-default:"https://api.nowpayments.io"`
	PayCurrency  string  `yaml:"pay_currency" env-default:"usdttrc20"`
	MinAmountUSD float64 `yaml:"min_amount_usd" env-default:"3"`
}

type Chargily struct {
	SecretKey string `yaml:"secret_key" env:"CHARGILY_SECRET_KEY"`
	BaseURL   string `yaml:"base_url" env:"CHARGILY_BASE_URL" env-default:"https://pay.chargily.net/test/api/v2"`
	Locale    string `yaml:"locale" env-default:"ar"`
}

type Telegram struct {
	BotToken string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	ChatID   string `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
	BaseURL  string `yaml:"base_url" env-default:"https://api.telegram.org"`
}

type Kafka struct {
	Brokers       []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	OrderTopic    string   `yaml:"order_topic" env-default:"order-events"`
	SettingsTopic string   `yaml:"settings_topic" env-default:"settings-events"`
	ConsumerGroup string   `yaml:"consumer_group" env-default:"checkout-service"`
}

type Admin struct {
	PasswordHash string        `yaml:"password_hash" env:"ADMIN_PASSWORD_HASH"`
	SessionTTL   time.Duration `yaml:"session_ttl" env-default:"8h"`
}

func MustLoad() *CheckoutConfig {
	cfg, err := Load(os.Getenv("CHECKOUT_CONFIG_PATH"))
	if err != nil {
		log.Fatalf("failed to load config: %v\n", err)
	}
	return cfg
}

// Load reads the YAML file at configPath and applies environment overrides. An empty
// path reads the environment only.
func Load(configPath string) (*CheckoutConfig, error) {
	var cfg CheckoutConfig

	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("cleanenv.ReadEnv: %w", err)
		}
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("cleanenv.ReadConfig: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects intervals a ticker cannot run with. Zero pending_ttl disables expiry
// and zero settings_ttl disables caching.
func (cfg *CheckoutConfig) validate() error {
	c := cfg.Checkout
	switch {
	case c.PendingTTL < 0:
		return fmt.Errorf("checkout.pending_ttl must not be negative, got %s", c.PendingTTL)
	case c.SettingsTTL < 0:
		return fmt.Errorf("checkout.settings_ttl must not be negative, got %s", c.SettingsTTL)
	case c.PendingTTL > 0 && c.ExpiryInterval <= 0:
		return fmt.Errorf("checkout.expiry_interval must be positive when pending_ttl is set, got %s", c.ExpiryInterval)
	case c.GatewayTimeout <= 0:
		return fmt.Errorf("checkout.gateway_timeout must be positive, got %s", c.GatewayTimeout)
	}
	return nil
}
