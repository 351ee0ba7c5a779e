package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderTracking is the append-only audit trail. Rows are never updated or
// deleted; one row is written on every accepted state transition.
type OrderTracking struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	Status      string    `gorm:"column:status;not null"`
	Description string    `gorm:"column:description;not null"`
	Location    string    `gorm:"column:location;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
