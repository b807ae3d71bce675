package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod describes how a customer intends to settle an order.
type PaymentMethod string

const (
	PaymentMethodCOD     PaymentMethod = "COD"
	PaymentMethodEWallet PaymentMethod = "EWALLET"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCOD,
	PaymentMethodEWallet,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// RequiresConfirmation reports whether the method goes through the QR
// confirmation window before an order counts as placed.
func (p PaymentMethod) RequiresConfirmation() bool {
	return p == PaymentMethodEWallet
}

// ParsePaymentMethod converts raw input into a PaymentMethod. Matching is
// case-insensitive and accepts the short aliases used by the terminal UI.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	switch normalized {
	case "CASH", "CASH_ON_DELIVERY":
		return PaymentMethodCOD, nil
	case "QR", "WALLET", "E-WALLET", "E_WALLET":
		return PaymentMethodEWallet, nil
	}
	for _, candidate := range validPaymentMethods {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
