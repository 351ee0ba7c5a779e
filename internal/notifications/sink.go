package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/localkart/localkart-backend/pkg/enums"
)

// Notification is the transient wire payload pushed to a connected user.
type Notification struct {
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]any         `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Sink delivers a notification to one user. Implementations are
// fire-and-forget; callers never treat a Send failure as fatal.
type Sink interface {
	Send(ctx context.Context, userID uuid.UUID, notification Notification) error
}

// NopSink discards everything. Used in tests and when push is disabled.
type NopSink struct{}

func (NopSink) Send(context.Context, uuid.UUID, Notification) error { return nil }
