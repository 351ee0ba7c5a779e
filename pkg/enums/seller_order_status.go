package enums

import "fmt"

// SellerOrderStatus tracks a single seller's slice of a parent order. It may
// diverge from the parent once delivery handoff begins, because each seller's
// handoff with the agent is independent.
type SellerOrderStatus string

const (
	SellerOrderStatusPending    SellerOrderStatus = "pending"
	SellerOrderStatusConfirmed  SellerOrderStatus = "confirmed"
	SellerOrderStatusPreparing  SellerOrderStatus = "preparing"
	SellerOrderStatusReady      SellerOrderStatus = "ready"
	SellerOrderStatusHandedOver SellerOrderStatus = "handed_over"
	SellerOrderStatusCompleted  SellerOrderStatus = "completed"
	SellerOrderStatusCancelled  SellerOrderStatus = "cancelled"
)

var validSellerOrderStatuses = []SellerOrderStatus{
	SellerOrderStatusPending,
	SellerOrderStatusConfirmed,
	SellerOrderStatusPreparing,
	SellerOrderStatusReady,
	SellerOrderStatusHandedOver,
	SellerOrderStatusCompleted,
	SellerOrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s SellerOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SellerOrderStatus.
func (s SellerOrderStatus) IsValid() bool {
	for _, candidate := range validSellerOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSellerOrderStatus converts raw input into a SellerOrderStatus.
func ParseSellerOrderStatus(value string) (SellerOrderStatus, error) {
	for _, candidate := range validSellerOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid seller order status %q", value)
}
