package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/localkart/localkart-backend/pkg/enums"
)

// SellerOrder is one seller's slice of a parent order, carrying its own
// commission and net-payout accounting. commission = subtotal * rate and
// net_amount = subtotal - commission at creation.
type SellerOrder struct {
	ID         uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	SellerID   uuid.UUID               `gorm:"column:seller_id;type:uuid;not null;index"`
	Subtotal   decimal.Decimal         `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Commission decimal.Decimal         `gorm:"column:commission;type:numeric(12,2);not null"`
	NetAmount  decimal.Decimal         `gorm:"column:net_amount;type:numeric(12,2);not null"`
	Status     enums.SellerOrderStatus `gorm:"column:status;type:seller_order_status;not null;default:'pending'"`
	Items      []OrderItem             `gorm:"foreignKey:SellerOrderID"`
	CreatedAt  time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
