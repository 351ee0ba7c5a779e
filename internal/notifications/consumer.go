package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/localkart/localkart-backend/pkg/db/models"
	"github.com/localkart/localkart-backend/pkg/enums"
	"github.com/localkart/localkart-backend/pkg/logger"
	"github.com/localkart/localkart-backend/pkg/outbox"
	"github.com/localkart/localkart-backend/pkg/outbox/idempotency"
	"github.com/localkart/localkart-backend/pkg/types"
)

const orderNotificationConsumer = "order-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches domain events and persists in-app notification rows so
// users who were offline when an event fired can still list it later.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds an order notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

// orderPlacedPayload mirrors the order.placed event data emitted by intake.
type orderPlacedPayload struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	SellerIDs   []uuid.UUID     `json:"seller_ids"`
	Total       decimal.Decimal `json:"total"`
}

// statusMovedPayload mirrors order.status_moved and order.cancelled data.
type statusMovedPayload struct {
	OrderID     uuid.UUID   `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	CustomerID  uuid.UUID   `json:"customer_id"`
	SellerIDs   []uuid.UUID `json:"seller_ids"`
	AgentID     *uuid.UUID  `json:"agent_id,omitempty"`
	Axis        string      `json:"axis"`
	From        string      `json:"from"`
	To          string      `json:"to"`
}

// paymentRecordedPayload mirrors payment.recorded data.
type paymentRecordedPayload struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method"`
	Status      string          `json:"status"`
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	switch enums.OutboxEventType(eventType) {
	case enums.EventOrderPlaced, enums.EventOrderStatusMoved, enums.EventDeliveryProgress,
		enums.EventOrderCancelled, enums.EventPaymentRecorded:
	default:
		c.logg.Info(logCtx, "skipping unhandled event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handle(ctx, enums.OutboxEventType(eventType), envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage, logCtx context.Context) error {
	switch eventType {
	case enums.EventOrderPlaced:
		var payload orderPlacedPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse order placed payload: %w", err)
		}
		return c.handleOrderPlaced(ctx, payload)
	case enums.EventOrderStatusMoved, enums.EventDeliveryProgress, enums.EventOrderCancelled:
		var payload statusMovedPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse status payload: %w", err)
		}
		return c.handleStatusMoved(ctx, eventType, payload)
	case enums.EventPaymentRecorded:
		var payload paymentRecordedPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse payment payload: %w", err)
		}
		return c.handlePaymentRecorded(ctx, payload)
	default:
		c.logg.Info(logCtx, "event not handled")
		return nil
	}
}

func (c *Consumer) handleOrderPlaced(ctx context.Context, payload orderPlacedPayload) error {
	if payload.CustomerID == uuid.Nil {
		return fmt.Errorf("customer id missing")
	}
	data := types.JSONMap{"order_id": payload.OrderID.String(), "order_number": payload.OrderNumber}

	rows := []*models.Notification{{
		UserID:  payload.CustomerID,
		Type:    enums.NotificationTypeOrderPlaced,
		Title:   "Order placed",
		Message: fmt.Sprintf("Your order %s has been placed successfully.", payload.OrderNumber),
		Data:    data,
	}}
	for _, sellerID := range payload.SellerIDs {
		rows = append(rows, &models.Notification{
			UserID:  sellerID,
			Type:    enums.NotificationTypeOrderPlaced,
			Title:   "New order received",
			Message: fmt.Sprintf("You have a new order %s.", payload.OrderNumber),
			Data:    data,
		})
	}
	for _, row := range rows {
		if err := c.repo.Create(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func (c *Consumer) handleStatusMoved(ctx context.Context, eventType enums.OutboxEventType, payload statusMovedPayload) error {
	if payload.CustomerID == uuid.Nil {
		return fmt.Errorf("customer id missing")
	}
	data := types.JSONMap{
		"order_id":     payload.OrderID.String(),
		"order_number": payload.OrderNumber,
		"axis":         payload.Axis,
		"status":       payload.To,
	}
	title := "Order update"
	message := fmt.Sprintf("Order %s is now %s.", payload.OrderNumber, payload.To)
	if eventType == enums.EventOrderCancelled {
		title = "Order cancelled"
		message = fmt.Sprintf("Order %s has been cancelled.", payload.OrderNumber)
	}

	targets := append([]uuid.UUID{payload.CustomerID}, payload.SellerIDs...)
	if payload.AgentID != nil && *payload.AgentID != uuid.Nil {
		targets = append(targets, *payload.AgentID)
	}
	for _, userID := range targets {
		row := &models.Notification{
			UserID:  userID,
			Type:    enums.NotificationTypeOrderStatus,
			Title:   title,
			Message: message,
			Data:    data,
		}
		if err := c.repo.Create(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func (c *Consumer) handlePaymentRecorded(ctx context.Context, payload paymentRecordedPayload) error {
	if payload.CustomerID == uuid.Nil {
		return fmt.Errorf("customer id missing")
	}
	row := &models.Notification{
		UserID:  payload.CustomerID,
		Type:    enums.NotificationTypePayment,
		Title:   "Payment recorded",
		Message: fmt.Sprintf("Payment of %s for order %s is %s.", payload.Amount.StringFixed(2), payload.OrderNumber, payload.Status),
		Data: types.JSONMap{
			"order_id":     payload.OrderID.String(),
			"order_number": payload.OrderNumber,
			"method":       payload.Method,
			"status":       payload.Status,
		},
	}
	return c.repo.Create(ctx, row)
}
