package notifications

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/localkart/localkart-backend/pkg/metrics"
)

const subscriberBuffer = 16

// Hub is the in-process per-user channel registry behind the live push
// stream. Delivery is at-most-once: a user with no open subscription, or one
// whose buffer is full, simply misses the event.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[chan Notification]struct{}
	metrics     *metrics.FulfillmentMetrics
}

// NewHub builds an empty hub. Metrics may be nil.
func NewHub(m *metrics.FulfillmentMetrics) *Hub {
	return &Hub{
		subscribers: make(map[uuid.UUID]map[chan Notification]struct{}),
		metrics:     m,
	}
}

// Subscribe opens a buffered channel for the user. The returned cancel func
// must be called when the client disconnects.
func (h *Hub) Subscribe(userID uuid.UUID) (<-chan Notification, func()) {
	ch := make(chan Notification, subscriberBuffer)

	h.mu.Lock()
	set, ok := h.subscribers[userID]
	if !ok {
		set = make(map[chan Notification]struct{})
		h.subscribers[userID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subscribers[userID]; ok {
			if _, present := set[ch]; present {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subscribers, userID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Send pushes the notification to every open subscription for the user.
// Channels that cannot accept without blocking drop the event. Implements Sink.
func (h *Hub) Send(_ context.Context, userID uuid.UUID, notification Notification) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[userID] {
		select {
		case ch <- notification:
			h.metrics.ObserveNotification("delivered")
		default:
			h.metrics.ObserveNotification("dropped")
		}
	}
	return nil
}

// Connected reports whether the user has at least one open subscription.
func (h *Hub) Connected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID]) > 0
}
