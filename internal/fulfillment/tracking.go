package fulfillment

// TrackingEntry is the human-readable description and location label written
// to the audit trail for one status value.
type TrackingEntry struct {
	Description string
	Location    string
}

// trackingEntries is the fixed status -> tracking text table. Keys cover both
// lifecycle axes; unknown statuses fall back to a generic entry.
var trackingEntries = map[string]TrackingEntry{
	"order_placed":      {"Order has been placed successfully.", "Seller Location"},
	"order_confirmed":   {"Order has been confirmed by seller.", "Seller Location"},
	"preparing_order":   {"Seller is preparing the order.", "Seller Location"},
	"ready_for_pickup":  {"Order is ready for pickup.", "Seller Location"},
	"picked_up":         {"Order has been picked up by delivery agent.", "In Transit"},
	"in_transit":        {"Order is in transit.", "In Transit"},
	"out_for_delivery":  {"Order is out for delivery.", "Near Delivery Address"},
	"delivered":         {"Order has been delivered.", "Delivery Address"},
	"cancelled":         {"Order has been cancelled.", "N/A"},
	"accepted_by_agent": {"Delivery agent has accepted the order.", "Seller Location"},
	"otp_generated":     {"Pickup code generated for parcel handoff.", "Seller Location"},
	"otp_verified":      {"Pickup code verified by seller.", "Seller Location"},
	"parcel_picked_up":  {"Parcel has been picked up by delivery agent.", "In Transit"},
}

// TrackingFor returns the tracking text for a status value.
func TrackingFor(status string) TrackingEntry {
	if entry, ok := trackingEntries[status]; ok {
		return entry
	}
	return TrackingEntry{Description: "Order status updated.", Location: "Unknown"}
}
