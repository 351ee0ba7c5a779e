package notifications

import (
	"time"

	"github.com/google/uuid"

	"github.com/localkart/localkart-backend/pkg/db/models"
	"github.com/localkart/localkart-backend/pkg/enums"
	"github.com/localkart/localkart-backend/pkg/pagination"
	"github.com/localkart/localkart-backend/pkg/types"
)

// NotificationDTO is the wire shape of a stored notification.
type NotificationDTO struct {
	ID        uuid.UUID              `json:"id"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      types.JSONMap          `json:"data,omitempty"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// NotificationPage is one serialized page of stored notifications.
type NotificationPage struct {
	Notifications []NotificationDTO `json:"notifications"`
	Meta          pagination.Meta   `json:"meta"`
}

// PageFromResult converts a list result into its wire shape.
func PageFromResult(result *ListResult) *NotificationPage {
	if result == nil {
		return nil
	}
	page := &NotificationPage{Notifications: []NotificationDTO{}, Meta: result.Meta}
	for _, row := range result.Items {
		page.Notifications = append(page.Notifications, viewFromModel(row))
	}
	return page
}

func viewFromModel(row models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        row.ID,
		Type:      row.Type,
		Title:     row.Title,
		Message:   row.Message,
		Data:      row.Data,
		ReadAt:    row.ReadAt,
		CreatedAt: row.CreatedAt,
	}
}
