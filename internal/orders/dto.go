package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/localkart/localkart-backend/pkg/db/models"
	"github.com/localkart/localkart-backend/pkg/enums"
	"github.com/localkart/localkart-backend/pkg/pagination"
	"github.com/localkart/localkart-backend/pkg/types"
)

// CartLine is one raw cart entry as submitted by the customer.
type CartLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// PlaceOrderInput carries everything needed to place an order. Amounts other
// than subtotal come from the client; subtotal and total are recomputed from
// the resolved catalog prices.
type PlaceOrderInput struct {
	CustomerID           uuid.UUID
	Items                []CartLine
	CustomerDetails      types.DeliveryAddress
	DeliveryInstructions *string
	PaymentMethod        enums.PaymentMethod
	PaymentReference     *string
	DeliveryFee          decimal.Decimal
	Tax                  decimal.Decimal
	TotalAmount          decimal.Decimal
}

// UpdateOrderInput is the partial patch accepted by UpdateOrder. Nil fields
// are left untouched.
type UpdateOrderInput struct {
	OrderID               uuid.UUID
	Status                *enums.OrderStatus
	PaymentStatus         *enums.PaymentStatus
	PaymentMethod         *enums.PaymentMethod
	PaymentReference      *string
	DeliveryAgentID       *uuid.UUID
	EstimatedDeliveryTime *time.Time
	ActualDeliveryTime    *time.Time
}

// ListOrdersInput scopes a paginated listing. Exactly one of the ID fields is
// normally set; all nil lists everything (admin surface).
type ListOrdersInput struct {
	CustomerID *uuid.UUID
	SellerID   *uuid.UUID
	AgentID    *uuid.UUID
	Status     *enums.OrderStatus
	Params     pagination.Params
}

// OrderList is one page of orders plus paging metadata.
type OrderList struct {
	Orders []models.Order
	Meta   pagination.Meta
}

// MaskSentinelPayment blanks the internal "undecided" payment method so
// customers never see the placeholder value.
func MaskSentinelPayment(order *models.Order) {
	if order != nil && order.PaymentMethod == enums.PaymentMethodUndecided {
		order.PaymentMethod = ""
	}
}
