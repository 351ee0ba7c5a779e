package enums

import "fmt"

// PaymentMethod identifies how the customer intends to settle an order.
// PaymentMethodUndecided is an internal sentinel and is masked to an empty
// string whenever an order is returned to a non-privileged caller.
type PaymentMethod string

const (
	PaymentMethodUndecided      PaymentMethod = "undecided"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMethodUPIOnDelivery  PaymentMethod = "upi_on_delivery"
	PaymentMethodUPI            PaymentMethod = "upi"
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodNetBanking     PaymentMethod = "net_banking"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodUndecided,
	PaymentMethodCashOnDelivery,
	PaymentMethodUPIOnDelivery,
	PaymentMethodUPI,
	PaymentMethodCard,
	PaymentMethodNetBanking,
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

// SettlesOnDelivery reports whether the method is collected at the doorstep,
// leaving the payment pending until the order is delivered.
func (p PaymentMethod) SettlesOnDelivery() bool {
	return p == PaymentMethodCashOnDelivery || p == PaymentMethodUPIOnDelivery
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
