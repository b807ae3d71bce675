package checkout

import (
	"strings"

	"github.com/angelmondragon/fitconnect-client/pkg/config"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Policy holds the pricing rules applied to a draft.
type Policy struct {
	// Shipping is free when the subtotal is strictly above this amount.
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
	// TaxRate is a fraction, 0.08 for 8%.
	TaxRate      decimal.Decimal
	PromoCode    string
	PromoPercent decimal.Decimal
	Currency     string
}

// DefaultPolicy mirrors the storefront's published pricing.
func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: decimal.NewFromInt(1000000),
		ShippingFee:           decimal.NewFromInt(30000),
		TaxRate:               decimal.RequireFromString("0.08"),
		PromoCode:             "FITCONNECT10",
		PromoPercent:          decimal.NewFromInt(10),
		Currency:              "VND",
	}
}

func PolicyFromConfig(cfg config.PricingConfig) Policy {
	return Policy{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		ShippingFee:           cfg.ShippingFee,
		TaxRate:               cfg.TaxRate,
		PromoCode:             strings.TrimSpace(cfg.PromoCode),
		PromoPercent:          cfg.PromoPercent,
		Currency:              cfg.Currency,
	}
}

// ShippingFor returns the shipping fee for a subtotal.
func (p Policy) ShippingFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.ShippingFee
}

// PromoMatches reports whether code is the single accepted promotional code.
func (p Policy) PromoMatches(code string) bool {
	code = strings.TrimSpace(code)
	return code != "" && p.PromoCode != "" && strings.EqualFold(code, p.PromoCode)
}

// DiscountFor is the promotional discount on subtotal; zero unless code matches.
func (p Policy) DiscountFor(subtotal decimal.Decimal, code string) decimal.Decimal {
	if !p.PromoMatches(code) {
		return decimal.Zero
	}
	return subtotal.Mul(p.PromoPercent).Div(hundred).Round(2)
}

// TaxFor applies the tax rate to the discounted subtotal.
func (p Policy) TaxFor(subtotal, discount decimal.Decimal) decimal.Decimal {
	base := subtotal.Sub(discount)
	if base.IsNegative() {
		base = decimal.Zero
	}
	return base.Mul(p.TaxRate).Round(2)
}

// Totals is the priced breakdown of a draft.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Price computes the full breakdown for a subtotal and promo code.
func (p Policy) Price(subtotal decimal.Decimal, promo string) Totals {
	discount := p.DiscountFor(subtotal, promo)
	shipping := p.ShippingFor(subtotal)
	tax := p.TaxFor(subtotal, discount)
	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Sub(discount).Add(shipping).Add(tax),
	}
}
