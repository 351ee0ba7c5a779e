package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem snapshots one cart line. Product name/image/category are
// denormalized so later catalog edits cannot alter historical orders.
// Rows are immutable after creation.
type OrderItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	SellerOrderID   *uuid.UUID      `gorm:"column:seller_order_id;type:uuid;index"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	SellerID        uuid.UUID       `gorm:"column:seller_id;type:uuid;not null"`
	ProductName     string          `gorm:"column:product_name;not null"`
	ProductImage    *string         `gorm:"column:product_image"`
	ProductCategory string          `gorm:"column:product_category;not null"`
	Quantity        int             `gorm:"column:quantity;not null"`
	UnitPrice       decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal       decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}
