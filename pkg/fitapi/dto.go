package fitapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// Amount renders a decimal as a bare JSON number so the service never has to
// parse quoted money.
func Amount(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

type CreateOrderItem struct {
	ProductID int64       `json:"productId"`
	Quantity  int         `json:"quantity"`
	Price     json.Number `json:"price"`
}

type CreateOrderRequest struct {
	UserID          int64             `json:"userId"`
	Items           []CreateOrderItem `json:"items"`
	TotalAmount     json.Number       `json:"totalAmount"`
	ShippingAddress string            `json:"shippingAddress"`
	PaymentMethod   string            `json:"paymentMethod"`
}

type OrderItem struct {
	ProductID   int64           `json:"productId" validate:"gt=0"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity" validate:"gte=1"`
	Price       decimal.Decimal `json:"price"`
}

type Order struct {
	ID              int64           `json:"id" validate:"gt=0"`
	UserID          int64           `json:"userId"`
	Items           []OrderItem     `json:"items" validate:"dive"`
	Status          string          `json:"status" validate:"required"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	ShippingAddress string          `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	CreatedAt       Timestamp       `json:"createdAt"`
}

type CartItemRequest struct {
	UserID    int64  `json:"userId"`
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
}

type CartLine struct {
	ProductID   int64           `json:"productId" validate:"gt=0"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity" validate:"gte=1"`
	Size        string          `json:"size"`
	ImageURL    string          `json:"imageUrl"`
}

type Cart struct {
	UserID int64      `json:"userId"`
	Items  []CartLine `json:"items" validate:"dive"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Timestamp accepts RFC 3339 as well as the zone-less local timestamps the
// service emits for older orders.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}
