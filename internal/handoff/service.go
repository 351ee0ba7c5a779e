package handoff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/localkart/localkart-backend/internal/fulfillment"
	"github.com/localkart/localkart-backend/internal/notifications"
	"github.com/localkart/localkart-backend/pkg/config"
	"github.com/localkart/localkart-backend/pkg/db/models"
	"github.com/localkart/localkart-backend/pkg/enums"
	pkgerrors "github.com/localkart/localkart-backend/pkg/errors"
	"github.com/localkart/localkart-backend/pkg/logger"
	"github.com/localkart/localkart-backend/pkg/metrics"
	"github.com/localkart/localkart-backend/pkg/outbox"
	"github.com/localkart/localkart-backend/pkg/pagination"
	"github.com/localkart/localkart-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type locationStore interface {
	StoreAgentLocation(ctx context.Context, orderID string, loc types.AgentLocation, ttl time.Duration) error
	GetAgentLocation(ctx context.Context, orderID string) (*types.AgentLocation, error)
	DropAgentLocation(ctx context.Context, orderID string) error
}

// ProgressEvent is emitted on every accepted delivery-axis transition.
type ProgressEvent struct {
	OrderID     uuid.UUID   `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	CustomerID  uuid.UUID   `json:"customer_id"`
	SellerIDs   []uuid.UUID `json:"seller_ids"`
	AgentID     *uuid.UUID  `json:"agent_id,omitempty"`
	Axis        string      `json:"axis"`
	From        string      `json:"from"`
	To          string      `json:"to"`
}

// Service drives the parcel handoff protocol between seller and agent.
type Service interface {
	Queue(ctx context.Context, params pagination.Params) (*QueueList, error)
	Accept(ctx context.Context, orderID, agentID uuid.UUID) (*models.Order, error)
	GenerateOTP(ctx context.Context, orderID, agentID uuid.UUID) (string, error)
	VerifyOTP(ctx context.Context, orderID, sellerID uuid.UUID, code string) error
	Pickup(ctx context.Context, orderID, agentID uuid.UUID) error
	StartDelivery(ctx context.Context, orderID, agentID uuid.UUID) error
	UpdateLocation(ctx context.Context, orderID, agentID uuid.UUID, loc types.AgentLocation) error
	GetLocation(ctx context.Context, orderID uuid.UUID) (*types.AgentLocation, error)
	Complete(ctx context.Context, orderID, agentID uuid.UUID) (*models.Order, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	sink      notifications.Sink
	locations locationStore
	metrics   *metrics.FulfillmentMetrics
	logg      *logger.Logger
	otpLength int
	locTTL    time.Duration
}

// NewService builds the handoff service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, sink notifications.Sink, locations locationStore, m *metrics.FulfillmentMetrics, logg *logger.Logger, ordersCfg config.OrdersConfig, deliveryCfg config.DeliveryConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("handoff repository required")
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
		otpLength: ordersCfg.OTPLength,
		locTTL:    deliveryCfg.LocationTTL,
	}, nil
}

func (s *service) Queue(ctx context.Context, params pagination.Params) (*QueueList, error) {
	params.Page = pagination.NormalizePage(params.Page)
	params.Limit = pagination.NormalizeLimit(params.Limit)
	list, err := s.repo.ListUnassigned(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list claimable orders")
	}
	return list, nil
}

func (s *service) Accept(ctx context.Context, orderID, agentID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil || agentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and agent id required")
	}

	var (
		order *models.Order
		event ProgressEvent
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}

		if err := fulfillment.CheckDeliveryTransition(current.DeliveryStatus, enums.DeliveryStatusAcceptedByAgent); err != nil {
			s.metrics.ObserveRejection(fulfillment.AxisDelivery)
			return err
		}

		claimed, err := repo.ClaimOrder(ctx, orderID, agentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim order")
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already claimed")
		}

		if err := s.appendTracking(ctx, repo, orderID, enums.DeliveryStatusAcceptedByAgent.String()); err != nil {
			return err
		}

		event, err = s.buildEvent(ctx, repo, current, enums.DeliveryStatusAcceptedByAgent.String())
		if err != nil {
			return err
		}
		event.AgentID = &agentID
		if err := s.emitProgress(ctx, tx, event, agentID); err != nil {
			return err
		}

		order = current
		order.DeliveryAgentID = &agentID
		order.DeliveryStatus = enums.DeliveryStatusAcceptedByAgent
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(fulfillment.AxisDelivery, enums.DeliveryStatusAcceptedByAgent.String())
	s.notifyParties(ctx, event)
	return order, nil
}

func (s *service) GenerateOTP(ctx context.Context, orderID, agentID uuid.UUID) (string, error) {
	if orderID == uuid.Nil || agentID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order id and agent id required")
	}

	var (
		code  string
		event ProgressEvent
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := s.requireAssignedAgent(current, agentID); err != nil {
			return err
		}

		if err := fulfillment.CheckDeliveryTransition(current.DeliveryStatus, enums.DeliveryStatusOTPGenerated); err != nil {
			s.metrics.ObserveRejection(fulfillment.AxisDelivery)
			return err
		}

		code, err = NewCode(s.otpLength)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate pickup code")
		}
		if err := repo.SetOTP(ctx, orderID, code); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store pickup code")
		}

		if err := s.appendTracking(ctx, repo, orderID, enums.DeliveryStatusOTPGenerated.String()); err != nil {
			return err
		}

		event, err = s.buildEvent(ctx, repo, current, enums.DeliveryStatusOTPGenerated.String())
		if err != nil {
			return err
		}
		return s.emitProgress(ctx, tx, event, agentID)
	})
	if err != nil {
		return "", err
	}

	s.metrics.ObserveTransition(fulfillment.AxisDelivery, enums.DeliveryStatusOTPGenerated.String())
	s.notifyParties(ctx, event)
	return code, nil
}

func (s *service) VerifyOTP(ctx context.Context, orderID, sellerID uuid.UUID, code string) error {
	if orderID == uuid.Nil || sellerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id and seller id required")
	}
	if code == "" {
		return pkgerrors.New(pkgerrors.CodeInvalidOTP, "pickup code rejected")
	}

	var event ProgressEvent
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		sellerIDs, err := repo.ListSellerIDs(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sellers")
		}
		if !containsID(sellerIDs, sellerID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "seller is not part of this order")
		}
		if current.ParcelOTP == nil {
			s.metrics.ObserveOTPFailure()
			return pkgerrors.New(pkgerrors.CodeInvalidOTP, "pickup code rejected")
		}

		// A consumed code falls through to the transition check so the
		// second attempt reports the no-op, not a bad code.
		if err := fulfillment.CheckDeliveryTransition(current.DeliveryStatus, enums.DeliveryStatusOTPVerified); err != nil {
			s.metrics.ObserveRejection(fulfillment.AxisDelivery)
			return err
		}

		verified, err := repo.VerifyOTP(ctx, orderID, code)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify pickup code")
		}
		if !verified {
			s.metrics.ObserveOTPFailure()
			return pkgerrors.New(pkgerrors.CodeInvalidOTP, "pickup code rejected")
		}

		if err := s.appendTracking(ctx, repo, orderID, enums.DeliveryStatusOTPVerified.String()); err != nil {
			return err
		}

		event, err = s.buildEvent(ctx, repo, current, enums.DeliveryStatusOTPVerified.String())
		if err != nil {
			return err
		}
		return s.emitProgress(ctx, tx, event, sellerID)
	})
	if err != nil {
		return err
	}

	s.metrics.ObserveTransition(fulfillment.AxisDelivery, enums.DeliveryStatusOTPVerified.String())
	s.notifyParties(ctx, event)
	return nil
}

func (s *service) Pickup(ctx context.Context, orderID, agentID uuid.UUID) error {
	return s.advance(ctx, orderID, agentID, enums.DeliveryStatusParcelPickedUp, enums.OrderStatusPickedUp)
}

func (s *service) StartDelivery(ctx context.Context, orderID, agentID uuid.UUID) error {
	return s.advance(ctx, orderID, agentID, enums.DeliveryStatusInTransit, enums.OrderStatusInTransit)
}

// advance applies one delivery-axis step and mirrors the matching
// customer-axis step when that transition is also legal.
func (s *service) advance(ctx context.Context, orderID, agentID uuid.UUID, target enums.DeliveryStatus, mirror enums.OrderStatus) error {
	if orderID == uuid.Nil || agentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id and agent id required")
	}

	var event ProgressEvent
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := s.requireAssignedAgent(current, agentID); err != nil {
			return err
		}

		if err := fulfillment.CheckDeliveryTransition(current.DeliveryStatus, target); err != nil {
			s.metrics.ObserveRejection(fulfillment.AxisDelivery)
			return err
		}

		updates := map[string]any{"delivery_status": target}
		if fulfillment.CheckOrderTransition(current.Status, mirror) == nil {
			updates["status"] = mirror
		}
		if err := repo.UpdateOrder(ctx, orderID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivery status")
		}

		if err := s.appendTracking(ctx, repo, orderID, target.String()); err != nil {
			return err
		}

		event, err = s.buildEvent(ctx, repo, current, target.String())
		if err != nil {
			return err
		}
		return s.emitProgress(ctx, tx, event, agentID)
	})
	if err != nil {
		return err
	}

	s.metrics.ObserveTransition(fulfillment.AxisDelivery, target.String())
	s.notifyParties(ctx, event)
	return nil
}

func (s *service) UpdateLocation(ctx context.Context, orderID, agentID uuid.UUID, loc types.AgentLocation) error {
	if orderID == uuid.Nil || agentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id and agent id required")
	}

	current, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return err
	}
	if err := s.requireAssignedAgent(current, agentID); err != nil {
		return err
	}
	if current.DeliveryStatus != enums.DeliveryStatusInTransit {
		return pkgerrors.New(pkgerrors.CodeConflict, "order is not in transit")
	}

	if loc.RecordedAt.IsZero() {
		loc.RecordedAt = time.Now().UTC()
	}
	if err := s.locations.StoreAgentLocation(ctx, orderID.String(), loc, s.locTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store agent location")
	}
	return nil
}

func (s *service) GetLocation(ctx context.Context, orderID uuid.UUID) (*types.AgentLocation, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	loc, err := s.locations.GetAgentLocation(ctx, orderID.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent location")
	}
	if loc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no live location for order")
	}
	return loc, nil
}

func (s *service) Complete(ctx context.Context, orderID, agentID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil || agentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and agent id required")
	}

	var (
		order *models.Order
		event ProgressEvent
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := s.requireAssignedAgent(current, agentID); err != nil {
			return err
		}

		if err := fulfillment.CheckDeliveryTransition(current.DeliveryStatus, enums.DeliveryStatusDelivered); err != nil {
			s.metrics.ObserveRejection(fulfillment.AxisDelivery)
			return err
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"delivery_status":      enums.DeliveryStatusDelivered,
			"actual_delivery_time": now,
		}
		// The customer axis walks its remaining steps one at a time so each
		// leg stays an immediate-successor transition with its own audit row.
		customerSteps := customerStepsToDelivered(current.Status)
		if len(customerSteps) > 0 {
			updates["status"] = enums.OrderStatusDelivered
		}
		if err := repo.UpdateOrder(ctx, orderID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete delivery")
		}

		for _, step := range customerSteps {
			if err := s.appendTracking(ctx, repo, orderID, step.String()); err != nil {
				return err
			}
		}
		if err := s.appendTracking(ctx, repo, orderID, enums.DeliveryStatusDelivered.String()); err != nil {
			return err
		}

		event, err = s.buildEvent(ctx, repo, current, enums.DeliveryStatusDelivered.String())
		if err != nil {
			return err
		}
		if err := s.emitProgress(ctx, tx, event, agentID); err != nil {
			return err
		}

		order = current
		order.DeliveryStatus = enums.DeliveryStatusDelivered
		order.Status = enums.OrderStatusDelivered
		order.ActualDeliveryTime = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(fulfillment.AxisDelivery, enums.DeliveryStatusDelivered.String())
	s.metrics.ObserveDeliveryTime(time.Since(order.CreatedAt))
	if err := s.locations.DropAgentLocation(ctx, orderID.String()); err != nil {
		s.logg.Warn(s.logg.WithOrderID(ctx, orderID.String()), "failed to clear agent location")
	}
	s.notifyParties(ctx, event)
	return order, nil
}

// customerStepsToDelivered lists the remaining customer-axis statuses between
// the current one and delivered, in order. Empty when delivered is not
// reachable by walking forward.
func customerStepsToDelivered(current enums.OrderStatus) []enums.OrderStatus {
	steps := []enums.OrderStatus{}
	cursor := current
	for i := 0; i < 8; i++ {
		next, ok := fulfillment.NextOrderStatus(cursor)
		if !ok {
			return nil
		}
		steps = append(steps, next)
		if next == enums.OrderStatusDelivered {
			return steps
		}
		cursor = next
	}
	return nil
}

func (s *service) loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func (s *service) requireAssignedAgent(order *models.Order, agentID uuid.UUID) error {
	if order.DeliveryAgentID == nil || *order.DeliveryAgentID != agentID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this agent")
	}
	return nil
}

func (s *service) appendTracking(ctx context.Context, repo Repository, orderID uuid.UUID, status string) error {
	entry := fulfillment.TrackingFor(status)
	row := &models.OrderTracking{
		OrderID:     orderID,
		Status:      status,
		Description: entry.Description,
		Location:    entry.Location,
	}
	if err := repo.CreateTracking(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking row")
	}
	return nil
}

func (s *service) buildEvent(ctx context.Context, repo Repository, order *models.Order, to string) (ProgressEvent, error) {
	sellerIDs, err := repo.ListSellerIDs(ctx, order.ID)
	if err != nil {
		return ProgressEvent{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sellers")
	}
	return ProgressEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		SellerIDs:   sellerIDs,
		AgentID:     order.DeliveryAgentID,
		Axis:        fulfillment.AxisDelivery,
		From:        order.DeliveryStatus.String(),
		To:          to,
	}, nil
}

func (s *service) emitProgress(ctx context.Context, tx *gorm.DB, event ProgressEvent, actorID uuid.UUID) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventDeliveryProgress,
		AggregateType: enums.AggregateOrder,
		AggregateID:   event.OrderID,
		Actor:         &outbox.ActorRef{UserID: actorID},
		Data:          event,
		Version:       1,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit delivery event")
	}
	return nil
}

// notifyParties fans the transition out to everyone involved. Failures are
// logged and swallowed.
func (s *service) notifyParties(ctx context.Context, event ProgressEvent) {
	entry := fulfillment.TrackingFor(event.To)
	notification := notifications.Notification{
		Type:    enums.NotificationTypeOrderStatus,
		Title:   "Delivery update",
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
