package checkout

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

// PaymentRequest is what the e-wallet QR code asks the shopper to pay.
type PaymentRequest struct {
	Payee    string
	OrderID  int64
	Amount   decimal.Decimal
	Currency string
}

// Payload is the text encoded in the QR code.
func (r PaymentRequest) Payload() string {
	q := url.Values{}
	q.Set("payee", strings.TrimSpace(r.Payee))
	q.Set("order", strconv.FormatInt(r.OrderID, 10))
	q.Set("amount", r.Amount.String())
	if r.Currency != "" {
		q.Set("currency", strings.ToUpper(r.Currency))
	}
	return "fitconnect://pay?" + q.Encode()
}

// RenderQR draws the payment QR code with half-block characters for a
// terminal.
func (r PaymentRequest) RenderQR() (string, error) {
	if r.OrderID <= 0 {
		return "", fmt.Errorf("payment request needs an order id")
	}
	code, err := qrcode.New(r.Payload(), qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("encode payment qr: %w", err)
	}
	return code.ToSmallString(false), nil
}
