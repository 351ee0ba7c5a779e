package fulfillment

import (
	pkgerrors "github.com/localkart/localkart-backend/pkg/errors"

	"github.com/localkart/localkart-backend/pkg/enums"
)

// AxisCustomer and AxisDelivery name the two lifecycle axes for metrics and
// error details.
const (
	AxisCustomer = "customer"
	AxisDelivery = "delivery"
)

var customerChain = []enums.OrderStatus{
	enums.OrderStatusPlaced,
	enums.OrderStatusConfirmed,
	enums.OrderStatusPreparing,
	enums.OrderStatusReadyForPickup,
	enums.OrderStatusPickedUp,
	enums.OrderStatusInTransit,
	enums.OrderStatusOutForDelivery,
	enums.OrderStatusDelivered,
}

var deliveryChain = []enums.DeliveryStatus{
	enums.DeliveryStatusPending,
	enums.DeliveryStatusAcceptedByAgent,
	enums.DeliveryStatusOTPGenerated,
	enums.DeliveryStatusOTPVerified,
	enums.DeliveryStatusParcelPickedUp,
	enums.DeliveryStatusInTransit,
	enums.DeliveryStatusDelivered,
}

// NextOrderStatus returns the immediate successor on the customer axis.
func NextOrderStatus(current enums.OrderStatus) (enums.OrderStatus, bool) {
	for i, status := range customerChain {
		if status == current && i+1 < len(customerChain) {
			return customerChain[i+1], true
		}
	}
	return "", false
}

// NextDeliveryStatus returns the immediate successor on the delivery axis.
func NextDeliveryStatus(current enums.DeliveryStatus) (enums.DeliveryStatus, bool) {
	for i, status := range deliveryChain {
		if status == current && i+1 < len(deliveryChain) {
			return deliveryChain[i+1], true
		}
	}
	return "", false
}

// CheckOrderTransition reports whether target is reachable from current on
// the customer axis. Only the immediate successor is legal, except
// cancellation which is legal from any non-terminal state. The error carries
// both endpoints so callers can surface what was attempted.
func CheckOrderTransition(current, target enums.OrderStatus) error {
	if target == enums.OrderStatusCancelled {
		if current.IsTerminal() {
			return illegal(AxisCustomer, current.String(), target.String())
		}
		return nil
	}
	next, ok := NextOrderStatus(current)
	if !ok || next != target {
		return illegal(AxisCustomer, current.String(), target.String())
	}
	return nil
}

// CheckDeliveryTransition reports whether target is reachable from current on
// the delivery axis under the same immediate-successor rule.
func CheckDeliveryTransition(current, target enums.DeliveryStatus) error {
	if target == enums.DeliveryStatusCancelled {
		if current.IsTerminal() {
			return illegal(AxisDelivery, current.String(), target.String())
		}
		return nil
	}
	next, ok := NextDeliveryStatus(current)
	if !ok || next != target {
		return illegal(AxisDelivery, current.String(), target.String())
	}
	return nil
}

func illegal(axis, from, to string) error {
	return pkgerrors.New(pkgerrors.CodeIllegalTransition, "state transition disallowed").
		WithDetails(map[string]any{"axis": axis, "from": from, "to": to})
}
