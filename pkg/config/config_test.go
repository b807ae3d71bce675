package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if !cfg.App.IsDev() {
		t.Fatalf("expected dev env by default, got %q", cfg.App.Env)
	}
	if cfg.Store.Driver != StoreDriverSQLite {
		t.Fatalf("expected sqlite store, got %q", cfg.Store.Driver)
	}
	if got := cfg.Checkout.PaymentWindow; got != 10*time.Minute {
		t.Fatalf("expected 10m payment window, got %v", got)
	}
	if !cfg.Pricing.TaxRate.Equal(decimal.RequireFromString("0.08")) {
		t.Fatalf("unexpected tax rate %s", cfg.Pricing.TaxRate)
	}
	if !cfg.Pricing.FreeShippingThreshold.Equal(decimal.NewFromInt(1000000)) {
		t.Fatalf("unexpected free shipping threshold %s", cfg.Pricing.FreeShippingThreshold)
	}
	if cfg.Pricing.PromoCode != "FITCONNECT10" {
		t.Fatalf("unexpected promo code %q", cfg.Pricing.PromoCode)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv(EnvAppEnv, "prod")
	t.Setenv(EnvTaxRate, "0.1")
	t.Setenv(EnvPaymentWindow, "2m")
	t.Setenv(EnvCartSync, "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if !cfg.App.IsProd() {
		t.Fatalf("expected prod env, got %q", cfg.App.Env)
	}
	if !cfg.Pricing.TaxRate.Equal(decimal.RequireFromString("0.1")) {
		t.Fatalf("unexpected tax rate %s", cfg.Pricing.TaxRate)
	}
	if cfg.Checkout.PaymentWindow != 2*time.Minute {
		t.Fatalf("unexpected window %v", cfg.Checkout.PaymentWindow)
	}
	if !cfg.FeatureFlags.CartSync {
		t.Fatal("expected cart sync flag to be enabled")
	}
}

func TestLoad_RedisStoreRequiresAddress(t *testing.T) {
	t.Setenv(EnvCartStore, "redis")
	if _, err := Load(); err == nil {
		t.Fatal("expected redis store without address to fail")
	}

	t.Setenv(EnvRedisURL, "redis://localhost:6379/0")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store.Driver != StoreDriverRedis {
		t.Fatalf("expected redis driver, got %q", cfg.Store.Driver)
	}
}

func TestLoad_RejectsUnknownStore(t *testing.T) {
	t.Setenv(EnvCartStore, "mongo")
	if _, err := Load(); err == nil {
		t.Fatal("expected unknown store driver to fail")
	}
}

func TestLoad_RejectsPromoPercentAboveHundred(t *testing.T) {
	t.Setenv(EnvPromoPercent, "150")
	if _, err := Load(); err == nil {
		t.Fatal("expected promo percent above 100 to fail")
	}
}
