package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	API          APIConfig
	Auth         AuthConfig
	Pricing      PricingConfig
	Checkout     CheckoutConfig
	Store        StoreConfig
	DB           DBConfig
	Redis        RedisConfig
	Metrics      MetricsConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FITCONNECT_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"FITCONNECT_LOG_LEVEL" default:"warn"`
	LogFormat    string `envconfig:"FITCONNECT_LOG_FORMAT" default:"console"`
	LogWarnStack bool   `envconfig:"FITCONNECT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type APIConfig struct {
	BaseURL string        `envconfig:"FITCONNECT_API_BASE_URL" default:"http://localhost:8080"`
	Timeout time.Duration `envconfig:"FITCONNECT_API_TIMEOUT" default:"15s"`

	BreakerMaxFailures uint32        `envconfig:"FITCONNECT_API_BREAKER_MAX_FAILURES" default:"5"`
	BreakerOpenTimeout time.Duration `envconfig:"FITCONNECT_API_BREAKER_OPEN_TIMEOUT" default:"30s"`
}

type AuthConfig struct {
	// Token is the bearer token issued by the marketplace sign-in flow.
	Token string `envconfig:"FITCONNECT_AUTH_TOKEN"`
}

type PricingConfig struct {
	FreeShippingThreshold decimal.Decimal `envconfig:"FITCONNECT_FREE_SHIPPING_THRESHOLD" default:"1000000"`
	ShippingFee           decimal.Decimal `envconfig:"FITCONNECT_SHIPPING_FEE" default:"30000"`
	TaxRate               decimal.Decimal `envconfig:"FITCONNECT_TAX_RATE" default:"0.08"`
	PromoCode             string          `envconfig:"FITCONNECT_PROMO_CODE" default:"FITCONNECT10"`
	PromoPercent          decimal.Decimal `envconfig:"FITCONNECT_PROMO_PERCENT" default:"10"`
	Currency              string          `envconfig:"FITCONNECT_CURRENCY" default:"VND"`
}

type CheckoutConfig struct {
	PaymentWindow time.Duration `envconfig:"FITCONNECT_PAYMENT_WINDOW" default:"10m"`
	// WalletPayee is encoded in the e-wallet QR code shown while awaiting confirmation.
	WalletPayee string `envconfig:"FITCONNECT_WALLET_PAYEE" default:"FITCONNECT"`
}

type StoreConfig struct {
	Driver      string        `envconfig:"FITCONNECT_CART_STORE" default:"sqlite"`
	SnapshotTTL time.Duration `envconfig:"FITCONNECT_CART_SNAPSHOT_TTL" default:"720h"`
}

type DBConfig struct {
	DSN             string        `envconfig:"FITCONNECT_DB_DSN" default:"fitconnect.db"`
	MaxOpenConns    int           `envconfig:"FITCONNECT_DB_MAX_OPEN_CONNS" default:"4"`
	MaxIdleConns    int           `envconfig:"FITCONNECT_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"FITCONNECT_DB_CONN_MAX_LIFETIME" default:"1h"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FITCONNECT_REDIS_URL"`
	Address      string        `envconfig:"FITCONNECT_REDIS_ADDR"`
	Password     string        `envconfig:"FITCONNECT_REDIS_PASSWORD"`
	DB           int           `envconfig:"FITCONNECT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FITCONNECT_REDIS_POOL_SIZE" default:"4"`
	DialTimeout  time.Duration `envconfig:"FITCONNECT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FITCONNECT_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"FITCONNECT_REDIS_WRITE_TIMEOUT" default:"3s"`
}

type MetricsConfig struct {
	// Textfile, when set, receives the session metrics in node-exporter textfile format on exit.
	Textfile string `envconfig:"FITCONNECT_METRICS_TEXTFILE"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FITCONNECT_AUTO_MIGRATE" default:"true"`
	CartSync    bool `envconfig:"FITCONNECT_CART_SYNC" default:"false"`
}

func (c *Config) validate() error {
	if !isKnownStoreDriver(c.Store.Driver) {
		return fmt.Errorf("%s must be one of %s", EnvCartStore, strings.Join(storeDrivers, ", "))
	}
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == StoreDriverRedis && c.Redis.URL == "" && c.Redis.Address == "" {
		return fmt.Errorf("%s or %s is required when %s=%s", EnvRedisURL, EnvRedisAddr, EnvCartStore, StoreDriverRedis)
	}
	if c.Pricing.TaxRate.IsNegative() || c.Pricing.ShippingFee.IsNegative() || c.Pricing.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("pricing values must be non-negative")
	}
	if c.Pricing.PromoPercent.IsNegative() || c.Pricing.PromoPercent.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%s must be between 0 and 100", EnvPromoPercent)
	}
	if c.Checkout.PaymentWindow < time.Second {
		return fmt.Errorf("%s must be at least one second", EnvPaymentWindow)
	}
	return nil
}

func isKnownStoreDriver(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, d := range storeDrivers {
		if d == v {
			return true
		}
	}
	return false
}
