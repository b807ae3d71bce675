package checkout

import (
	"strings"

	"github.com/angelmondragon/fitconnect-client/internal/cart"
	"github.com/angelmondragon/fitconnect-client/internal/orders"
	"github.com/angelmondragon/fitconnect-client/pkg/enums"
	"github.com/google/uuid"
)

// Draft is the order being assembled on the checkout screen. Its totals are
// always recomputed from the lines, the promo code and the policy.
type Draft struct {
	policy   Policy
	items    []cart.Item
	shipping orders.ShippingInfo
	payment  enums.PaymentMethod
	promo    string
	key      string
}

func newDraft(policy Policy, items []cart.Item) *Draft {
	d := &Draft{policy: policy, payment: enums.PaymentMethodCOD, key: uuid.NewString()}
	d.setItems(items)
	return d
}

func (d *Draft) setItems(items []cart.Item) {
	d.items = append([]cart.Item(nil), items...)
}

// applyPromo sets the promo code and reports whether it grants a discount.
// Any non-matching code clears the discount.
func (d *Draft) applyPromo(code string) bool {
	if d.policy.PromoMatches(code) {
		d.promo = strings.ToUpper(strings.TrimSpace(code))
		return true
	}
	d.promo = ""
	return false
}

// rotateKey starts a new idempotency scope once the draft produced an order.
func (d *Draft) rotateKey() {
	d.key = uuid.NewString()
}

func (d *Draft) totals() Totals {
	return d.policy.Price(cart.Subtotal(d.items), d.promo)
}

func (d *Draft) view() DraftView {
	return DraftView{
		Items:    append([]cart.Item(nil), d.items...),
		Totals:   d.totals(),
		Shipping: d.shipping,
		Payment:  d.payment,
		Promo:    d.promo,
	}
}

// DraftView is a read-only copy of a draft.
type DraftView struct {
	Items    []cart.Item
	Totals   Totals
	Shipping orders.ShippingInfo
	Payment  enums.PaymentMethod
	Promo    string
}
