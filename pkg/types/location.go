package types

import "time"

// AgentLocation is the latest GPS ping pushed by a delivery agent while an
// order is in transit. Only the most recent position is retained.
type AgentLocation struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   float64   `json:"accuracy,omitempty"`
	Speed      float64   `json:"speed,omitempty"`
	Heading    float64   `json:"heading,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}
