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

// OrderDTO is the wire shape of an order. The parcel OTP never leaves the
// server through this view; agents receive it from the OTP endpoint only.
type OrderDTO struct {
	ID                    uuid.UUID             `json:"id"`
	OrderNumber           string                `json:"order_number"`
	CustomerID            uuid.UUID             `json:"customer_id"`
	DeliveryAddress       types.DeliveryAddress `json:"delivery_address"`
	DeliveryInstructions  *string               `json:"delivery_instructions,omitempty"`
	Subtotal              decimal.Decimal       `json:"subtotal"`
	DeliveryFee           decimal.Decimal       `json:"delivery_fee"`
	Tax                   decimal.Decimal       `json:"tax"`
	Total                 decimal.Decimal       `json:"total"`
	Status                enums.OrderStatus     `json:"status"`
	DeliveryStatus        enums.DeliveryStatus  `json:"delivery_status"`
	PaymentStatus         enums.PaymentStatus   `json:"payment_status"`
	PaymentMethod         enums.PaymentMethod   `json:"payment_method"`
	DeliveryAgentID       *uuid.UUID            `json:"delivery_agent_id,omitempty"`
	OTPVerified           bool                  `json:"otp_verified"`
	EstimatedDeliveryTime *time.Time            `json:"estimated_delivery_time,omitempty"`
	ActualDeliveryTime    *time.Time            `json:"actual_delivery_time,omitempty"`
	Items                 []OrderItemDTO        `json:"items,omitempty"`
	SellerOrders          []SellerOrderDTO      `json:"seller_orders,omitempty"`
	Payments              []PaymentDTO          `json:"payments,omitempty"`
	CreatedAt             time.Time             `json:"created_at"`
	UpdatedAt             time.Time             `json:"updated_at"`
}

type OrderItemDTO struct {
	ID              uuid.UUID       `json:"id"`
	ProductID       uuid.UUID       `json:"product_id"`
	SellerID        uuid.UUID       `json:"seller_id"`
	ProductName     string          `json:"product_name"`
	ProductImage    *string         `json:"product_image,omitempty"`
	ProductCategory string          `json:"product_category"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	LineTotal       decimal.Decimal `json:"line_total"`
}

type SellerOrderDTO struct {
	ID         uuid.UUID               `json:"id"`
	SellerID   uuid.UUID               `json:"seller_id"`
	Subtotal   decimal.Decimal         `json:"subtotal"`
	Commission decimal.Decimal         `json:"commission"`
	NetAmount  decimal.Decimal         `json:"net_amount"`
	Status     enums.SellerOrderStatus `json:"status"`
	Items      []OrderItemDTO          `json:"items,omitempty"`
}

type PaymentDTO struct {
	ID            uuid.UUID           `json:"id"`
	Amount        decimal.Decimal     `json:"amount"`
	Method        enums.PaymentMethod `json:"method"`
	Status        enums.PaymentStatus `json:"status"`
	TransactionID *string             `json:"transaction_id,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

type TrackingDTO struct {
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	CreatedAt   time.Time `json:"created_at"`
}

// OrderPage is one serialized page of orders.
type OrderPage struct {
	Orders []OrderDTO      `json:"orders"`
	Meta   pagination.Meta `json:"meta"`
}

// OrderViewFromModel converts a loaded order row into its wire shape.
func OrderViewFromModel(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}

	dto := &OrderDTO{
		ID:                    order.ID,
		OrderNumber:           order.OrderNumber,
		CustomerID:            order.CustomerID,
		DeliveryAddress:       order.DeliveryAddress,
		DeliveryInstructions:  order.DeliveryInstructions,
		Subtotal:              order.Subtotal,
		DeliveryFee:           order.DeliveryFee,
		Tax:                   order.Tax,
		Total:                 order.Total,
		Status:                order.Status,
		DeliveryStatus:        order.DeliveryStatus,
		PaymentStatus:         order.PaymentStatus,
		PaymentMethod:         order.PaymentMethod,
		DeliveryAgentID:       order.DeliveryAgentID,
		OTPVerified:           order.OTPVerified,
		EstimatedDeliveryTime: order.EstimatedDeliveryTime,
		ActualDeliveryTime:    order.ActualDeliveryTime,
		CreatedAt:             order.CreatedAt,
		UpdatedAt:             order.UpdatedAt,
	}

	for _, item := range order.Items {
		dto.Items = append(dto.Items, orderItemView(item))
	}
	for _, so := range order.SellerOrders {
		view := SellerOrderDTO{
			ID:         so.ID,
			SellerID:   so.SellerID,
			Subtotal:   so.Subtotal,
			Commission: so.Commission,
			NetAmount:  so.NetAmount,
			Status:     so.Status,
		}
		for _, item := range so.Items {
			view.Items = append(view.Items, orderItemView(item))
		}
		dto.SellerOrders = append(dto.SellerOrders, view)
	}
	for _, payment := range order.Payments {
		dto.Payments = append(dto.Payments, PaymentDTO{
			ID:            payment.ID,
			Amount:        payment.Amount,
			Method:        payment.Method,
			Status:        payment.Status,
			TransactionID: payment.TransactionID,
			CreatedAt:     payment.CreatedAt,
		})
	}

	return dto
}

// OrderPageFromList serializes one page of orders without association detail.
func OrderPageFromList(list *OrderList) *OrderPage {
	if list == nil {
		return nil
	}
	page := &OrderPage{Orders: []OrderDTO{}, Meta: list.Meta}
	for i := range list.Orders {
		page.Orders = append(page.Orders, *OrderViewFromModel(&list.Orders[i]))
	}
	return page
}

// TrackingViewFromModels serializes the append-only trail oldest first.
func TrackingViewFromModels(rows []models.OrderTracking) []TrackingDTO {
	views := make([]TrackingDTO, 0, len(rows))
	for _, row := range rows {
		views = append(views, TrackingDTO{
			Status:      row.Status,
			Description: row.Description,
			Location:    row.Location,
			CreatedAt:   row.CreatedAt,
		})
	}
	return views
}

func orderItemView(item models.OrderItem) OrderItemDTO {
	return OrderItemDTO{
		ID:              item.ID,
		ProductID:       item.ProductID,
		SellerID:        item.SellerID,
		ProductName:     item.ProductName,
		ProductImage:    item.ProductImage,
		ProductCategory: item.ProductCategory,
		Quantity:        item.Quantity,
		UnitPrice:       item.UnitPrice,
		LineTotal:       item.LineTotal,
	}
}
