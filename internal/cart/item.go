package cart

import (
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/fitconnect-client/pkg/errors"
	"github.com/angelmondragon/fitconnect-client/pkg/validate"
	"github.com/shopspring/decimal"
)

// DefaultSize is the variant chosen when the shopper does not pick one.
const DefaultSize = "M"

// Product is what the browsing screens hand to the cart.
type Product struct {
	ID       int64           `json:"id" validate:"gt=0"`
	Name     string          `json:"name" validate:"required"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"imageUrl"`
}

// Validate checks the product at the point it enters the cart.
func (p Product) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	if p.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	return nil
}

// Item is one line of the cart.
type Item struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size"`
	ImageURL  string          `json:"imageUrl,omitempty"`
	// Provisional lines were applied locally and are waiting for the
	// remote cart to acknowledge them.
	Provisional bool `json:"-"`
	// confirmedQuantity is the quantity the remote cart last acknowledged for
	// a provisional line; zero when the line is new.
	confirmedQuantity int
}

// markProvisional flags the line as pending, remembering the acknowledged
// quantity the first time.
func (i *Item) markProvisional() {
	if !i.Provisional {
		i.confirmedQuantity = i.Quantity
	}
	i.Provisional = true
}

// Confirmed is the line as last acknowledged by the remote cart; false for a
// line the remote cart has not seen yet.
func (i Item) Confirmed() (Item, bool) {
	if !i.Provisional {
		return i, true
	}
	if i.confirmedQuantity < 1 {
		return Item{}, false
	}
	confirmed := i
	confirmed.Quantity = i.confirmedQuantity
	confirmed.Provisional = false
	confirmed.confirmedQuantity = 0
	return confirmed, true
}

// LineTotal is unit price times quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i Item) String() string {
	return fmt.Sprintf("#%d %s (%s) x%d", i.ProductID, i.Name, i.Size, i.Quantity)
}

func normalizeSize(size string) string {
	trimmed := strings.TrimSpace(size)
	if trimmed == "" {
		return DefaultSize
	}
	return strings.ToUpper(trimmed)
}

// sanitizeItems enforces the line invariants on data coming from outside the
// store (snapshots, remote carts): positive ids, quantity >= 1, non-negative
// prices, one line per product.
func sanitizeItems(items []Item) []Item {
	out := make([]Item, 0, len(items))
	index := map[int64]int{}
	for _, item := range items {
		if item.ProductID <= 0 || item.Quantity < 1 || item.UnitPrice.IsNegative() {
			continue
		}
		item.Size = normalizeSize(item.Size)
		item.Provisional = false
		item.confirmedQuantity = 0
		if pos, ok := index[item.ProductID]; ok {
			out[pos].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(out)
		out = append(out, item)
	}
	return out
}
