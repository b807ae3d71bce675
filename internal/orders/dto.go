package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/fitconnect-client/internal/cart"
	"github.com/angelmondragon/fitconnect-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/fitconnect-client/pkg/errors"
	"github.com/angelmondragon/fitconnect-client/pkg/fitapi"
	"github.com/angelmondragon/fitconnect-client/pkg/validate"
	"github.com/shopspring/decimal"
)

// ShippingInfo is the contact block collected on the checkout screen.
type ShippingInfo struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address" validate:"required"`
}

// Normalize trims every field.
func (s ShippingInfo) Normalize() ShippingInfo {
	return ShippingInfo{
		Name:    validate.SanitizeString(s.Name, 200),
		Phone:   validate.SanitizeString(s.Phone, 40),
		Address: validate.SanitizeString(s.Address, 500),
	}
}

// Validate rejects blank fields once whitespace is ignored.
func (s ShippingInfo) Validate() error {
	return validate.Struct(s.Normalize())
}

// String is the single free-text address the order service stores.
func (s ShippingInfo) String() string {
	n := s.Normalize()
	return strings.Join([]string{n.Name, n.Phone, n.Address}, " | ")
}

// SubmitInput is everything needed to place one order.
type SubmitInput struct {
	UserID   int64
	Lines    []cart.Item
	Total    decimal.Decimal
	Shipping ShippingInfo
	Payment  enums.PaymentMethod
	// IdempotencyKey identifies the draft being submitted; a fresh key is
	// generated when empty.
	IdempotencyKey string
}

func (in SubmitInput) validate() error {
	if in.UserID <= 0 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "please sign in again")
	}
	if len(in.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "your cart is empty")
	}
	if err := in.Shipping.Validate(); err != nil {
		return err
	}
	if !in.Payment.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported payment method %q", in.Payment))
	}
	if in.Total.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "order total must not be negative")
	}
	return nil
}

func (in SubmitInput) request() fitapi.CreateOrderRequest {
	items := make([]fitapi.CreateOrderItem, 0, len(in.Lines))
	for _, line := range in.Lines {
		items = append(items, fitapi.CreateOrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     fitapi.Amount(line.UnitPrice),
		})
	}
	return fitapi.CreateOrderRequest{
		UserID:          in.UserID,
		Items:           items,
		TotalAmount:     fitapi.Amount(in.Total),
		ShippingAddress: in.Shipping.String(),
		PaymentMethod:   in.Payment.String(),
	}
}

// Item is one line of a placed order.
type Item struct {
	ProductID int64
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Order is a placed order as the client displays it.
type Order struct {
	ID              int64
	UserID          int64
	Items           []Item
	Status          enums.OrderStatus
	Total           decimal.Decimal
	ShippingAddress string
	PaymentMethod   enums.PaymentMethod
	CreatedAt       time.Time
}

// ItemCount is the number of units in the order.
func (o Order) ItemCount() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

func fromAPI(src fitapi.Order) (Order, error) {
	if err := validate.Struct(src); err != nil {
		return Order{}, err
	}
	status, err := enums.ParseOrderStatus(src.Status)
	if err != nil {
		return Order{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown order status")
	}
	items := make([]Item, 0, len(src.Items))
	for _, item := range src.Items {
		items = append(items, Item{
			ProductID: item.ProductID,
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
		})
	}
	return Order{
		ID:              src.ID,
		UserID:          src.UserID,
		Items:           items,
		Status:          status,
		Total:           src.TotalAmount,
		ShippingAddress: src.ShippingAddress,
		// historical orders may carry methods this client no longer offers
		PaymentMethod: enums.PaymentMethod(strings.ToUpper(strings.TrimSpace(src.PaymentMethod))),
		CreatedAt:     src.CreatedAt.Time,
	}, nil
}
