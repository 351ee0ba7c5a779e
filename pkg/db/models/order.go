package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/localkart/localkart-backend/pkg/enums"
	"github.com/localkart/localkart-backend/pkg/types"
)

// Order is the parent record produced from one checkout. Its total is fixed
// at creation (subtotal + delivery fee + tax) and never recomputed.
type Order struct {
	ID                    uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber           string                `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID            uuid.UUID             `gorm:"column:customer_id;type:uuid;not null;index"`
	DeliveryAddress       types.DeliveryAddress `gorm:"column:delivery_address;type:jsonb;serializer:json"`
	DeliveryInstructions  *string               `gorm:"column:delivery_instructions"`
	Subtotal              decimal.Decimal       `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DeliveryFee           decimal.Decimal       `gorm:"column:delivery_fee;type:numeric(12,2);not null;default:0"`
	Tax                   decimal.Decimal       `gorm:"column:tax;type:numeric(12,2);not null;default:0"`
	Total                 decimal.Decimal       `gorm:"column:total;type:numeric(12,2);not null"`
	Status                enums.OrderStatus     `gorm:"column:status;type:order_status;not null;default:'order_placed'"`
	DeliveryStatus        enums.DeliveryStatus  `gorm:"column:delivery_status;type:delivery_status;not null;default:'pending'"`
	PaymentStatus         enums.PaymentStatus   `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	PaymentMethod         enums.PaymentMethod   `gorm:"column:payment_method;type:payment_method;not null;default:'undecided'"`
	DeliveryAgentID       *uuid.UUID            `gorm:"column:delivery_agent_id;type:uuid;index"`
	ParcelOTP             *string               `gorm:"column:parcel_otp"`
	OTPVerified           bool                  `gorm:"column:otp_verified;not null;default:false"`
	EstimatedDeliveryTime *time.Time            `gorm:"column:estimated_delivery_time"`
	ActualDeliveryTime    *time.Time            `gorm:"column:actual_delivery_time"`
	Items                 []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	SellerOrders          []SellerOrder         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments              []Payment             `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
