package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/localkart/localkart-backend/internal/notifications"
	"github.com/localkart/localkart-backend/pkg/db/models"
	"github.com/localkart/localkart-backend/pkg/enums"
	pkgerrors "github.com/localkart/localkart-backend/pkg/errors"
	"github.com/localkart/localkart-backend/pkg/logger"
	"github.com/localkart/localkart-backend/pkg/metrics"
	"github.com/localkart/localkart-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type locationStore interface {
	DropAgentLocation(ctx context.Context, orderID string) error
}

// Actor identifies who requested a transition.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// AdvanceInput moves an order one step along the customer axis.
type AdvanceInput struct {
	OrderID uuid.UUID
	Target  enums.OrderStatus
	Actor   Actor
}

// CancelInput cancels an order on both axes.
type CancelInput struct {
	OrderID uuid.UUID
	Actor   Actor
}

// StatusMovedEvent is emitted on every accepted transition.
type StatusMovedEvent struct {
	OrderID     uuid.UUID   `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	CustomerID  uuid.UUID   `json:"customer_id"`
	SellerIDs   []uuid.UUID `json:"seller_ids"`
	AgentID     *uuid.UUID  `json:"agent_id,omitempty"`
	Axis        string      `json:"axis"`
	From        string      `json:"from"`
	To          string      `json:"to"`
}

// Service applies customer-axis transitions and cancellation. Delivery-axis
// transitions belong to the handoff service.
type Service interface {
	AdvanceOrderStatus(ctx context.Context, input AdvanceInput) (*models.Order, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	sink      notifications.Sink
	locations locationStore
	metrics   *metrics.FulfillmentMetrics
	logg      *logger.Logger
}

// NewService builds the fulfillment service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, sink notifications.Sink, locations locationStore, m *metrics.FulfillmentMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("fulfillment repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if sink == nil {
		return nil, fmt.Errorf("notification sink required")
	}
	if locations == nil {
		return nil, fmt.Errorf("location store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		outbox:    outboxSvc,
		sink:      sink,
		locations: locations,
		metrics:   m,
		logg:      logg,
	}, nil
}

func (s *service) AdvanceOrderStatus(ctx context.Context, input AdvanceInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"status": string(input.Target)})
	}
	if input.Target == enums.OrderStatusCancelled {
		return s.Cancel(ctx, CancelInput{OrderID: input.OrderID, Actor: input.Actor})
	}

	var (
		order     *models.Order
		event     StatusMovedEvent
		delivered bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		sellerIDs, err := repo.ListSellerIDs(ctx, current.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sellers")
		}
		if input.Actor.Role == enums.UserRoleSeller && !sellerInOrder(sellerIDs, input.Actor.UserID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "seller is not part of this order")
		}

		if err := CheckOrderTransition(current.Status, input.Target); err != nil {
			s.metrics.ObserveRejection(AxisCustomer)
			return err
		}

		updates := map[string]any{"status": input.Target}
		if input.Target == enums.OrderStatusDelivered {
			now := time.Now().UTC()
			updates["actual_delivery_time"] = now
			delivered = true
		}
		if err := repo.UpdateOrder(ctx, current.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		entry := TrackingFor(input.Target.String())
		tracking := &models.OrderTracking{
			OrderID:     current.ID,
			Status:      input.Target.String(),
			Description: entry.Description,
			Location:    entry.Location,
		}
		if err := repo.CreateTracking(ctx, tracking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking row")
		}

		event = StatusMovedEvent{
			OrderID:     current.ID,
			OrderNumber: current.OrderNumber,
			CustomerID:  current.CustomerID,
			SellerIDs:   sellerIDs,
			AgentID:     current.DeliveryAgentID,
			Axis:        AxisCustomer,
			From:        current.Status.String(),
			To:          input.Target.String(),
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusMoved,
			AggregateType: enums.AggregateOrder,
			AggregateID:   current.ID,
			Actor:         actorRef(input.Actor),
			Data:          event,
			Version:       1,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit status event")
		}

		order = current
		order.Status = input.Target
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(AxisCustomer, input.Target.String())
	if delivered {
		s.metrics.ObserveDeliveryTime(time.Since(order.CreatedAt))
	}
	s.notifyParties(ctx, event)
	return order, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var (
		order *models.Order
		event StatusMovedEvent
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if err := CheckOrderTransition(current.Status, enums.OrderStatusCancelled); err != nil {
			s.metrics.ObserveRejection(AxisCustomer)
			return err
		}

		updates := map[string]any{"status": enums.OrderStatusCancelled}
		if !current.DeliveryStatus.IsTerminal() {
			updates["delivery_status"] = enums.DeliveryStatusCancelled
		}
		if err := repo.UpdateOrder(ctx, current.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}

		entry := TrackingFor(enums.OrderStatusCancelled.String())
		tracking := &models.OrderTracking{
			OrderID:     current.ID,
			Status:      enums.OrderStatusCancelled.String(),
			Description: entry.Description,
			Location:    entry.Location,
		}
		if err := repo.CreateTracking(ctx, tracking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking row")
		}

		sellerIDs, err := repo.ListSellerIDs(ctx, current.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sellers")
		}

		event = StatusMovedEvent{
			OrderID:     current.ID,
			OrderNumber: current.OrderNumber,
			CustomerID:  current.CustomerID,
			SellerIDs:   sellerIDs,
			AgentID:     current.DeliveryAgentID,
			Axis:        AxisCustomer,
			From:        current.Status.String(),
			To:          enums.OrderStatusCancelled.String(),
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   current.ID,
			Actor:         actorRef(input.Actor),
			Data:          event,
			Version:       1,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit cancel event")
		}

		order = current
		order.Status = enums.OrderStatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(AxisCustomer, enums.OrderStatusCancelled.String())
	if err := s.locations.DropAgentLocation(ctx, order.ID.String()); err != nil {
		s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "failed to clear agent location")
	}
	s.notifyParties(ctx, event)
	return order, nil
}

// notifyParties fans the transition out to the customer, involved sellers and
// the assigned agent. Failures are logged and swallowed so the committed
// transition never fails on push delivery.
func (s *service) notifyParties(ctx context.Context, event StatusMovedEvent) {
	entry := TrackingFor(event.To)
	notification := notifications.Notification{
		Type:    enums.NotificationTypeOrderStatus,
		Title:   "Order update",
		Message: fmt.Sprintf("Order %s: %s", event.OrderNumber, entry.Description),
		Data: map[string]any{
			"order_id":     event.OrderID.String(),
			"order_number": event.OrderNumber,
			"status":       event.To,
			"axis":         event.Axis,
		},
		Timestamp: time.Now().UTC(),
	}

	targets := append([]uuid.UUID{event.CustomerID}, event.SellerIDs...)
	if event.AgentID != nil && *event.AgentID != uuid.Nil {
		targets = append(targets, *event.AgentID)
	}
	for _, userID := range targets {
		if err := s.sink.Send(ctx, userID, notification); err != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"order_id": event.OrderID.String(),
				"user_id":  userID.String(),
			})
			s.logg.Warn(logCtx, "notification push failed")
		}
	}
}

func sellerInOrder(sellerIDs []uuid.UUID, sellerID uuid.UUID) bool {
	for _, id := range sellerIDs {
		if id == sellerID {
			return true
		}
	}
	return false
}

func actorRef(actor Actor) *outbox.ActorRef {
	if actor.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()}
}
