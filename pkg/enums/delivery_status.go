package enums

import "fmt"

// DeliveryStatus tracks the delivery-agent lifecycle once an agent is involved.
type DeliveryStatus string

const (
	DeliveryStatusPending         DeliveryStatus = "pending"
	DeliveryStatusAcceptedByAgent DeliveryStatus = "accepted_by_agent"
	DeliveryStatusOTPGenerated    DeliveryStatus = "otp_generated"
	DeliveryStatusOTPVerified     DeliveryStatus = "otp_verified"
	DeliveryStatusParcelPickedUp  DeliveryStatus = "parcel_picked_up"
	DeliveryStatusInTransit       DeliveryStatus = "in_transit"
	DeliveryStatusDelivered       DeliveryStatus = "delivered"
	DeliveryStatusCancelled       DeliveryStatus = "cancelled"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusPending,
	DeliveryStatusAcceptedByAgent,
	DeliveryStatusOTPGenerated,
	DeliveryStatusOTPVerified,
	DeliveryStatusParcelPickedUp,
	DeliveryStatusInTransit,
	DeliveryStatusDelivered,
	DeliveryStatusCancelled,
}

// String implements fmt.Stringer.
func (d DeliveryStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryStatus.
func (d DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are permitted.
func (d DeliveryStatus) IsTerminal() bool {
	return d == DeliveryStatusDelivered || d == DeliveryStatusCancelled
}

// ParseDeliveryStatus converts raw input into a DeliveryStatus.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}
