package enums

// CheckoutState is the screen the checkout flow is currently on.
type CheckoutState string

const (
	CheckoutStateCart                 CheckoutState = "cart"
	CheckoutStateCheckout             CheckoutState = "checkout"
	CheckoutStateAwaitingConfirmation CheckoutState = "awaiting_confirmation"
	CheckoutStateComplete             CheckoutState = "complete"
)

var validCheckoutStates = []CheckoutState{
	CheckoutStateCart,
	CheckoutStateCheckout,
	CheckoutStateAwaitingConfirmation,
	CheckoutStateComplete,
}

// String implements fmt.Stringer.
func (s CheckoutState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CheckoutState.
func (s CheckoutState) IsValid() bool {
	for _, candidate := range validCheckoutStates {
		if candidate == s {
			return true
		}
	}
	return false
}

func (s CheckoutState) IsTerminal() bool {
	return s == CheckoutStateComplete
}
