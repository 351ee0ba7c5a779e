package orders

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/localkart/localkart-backend/internal/catalog"
	"github.com/localkart/localkart-backend/internal/fulfillment"
	"github.com/localkart/localkart-backend/internal/notifications"
	"github.com/localkart/localkart-backend/pkg/config"
	"github.com/localkart/localkart-backend/pkg/db/models"
	"github.com/localkart/localkart-backend/pkg/enums"
	pkgerrors "github.com/localkart/localkart-backend/pkg/errors"
	"github.com/localkart/localkart-backend/pkg/logger"
	"github.com/localkart/localkart-backend/pkg/outbox"
	"github.com/localkart/localkart-backend/pkg/pagination"
)

// intake step tags carried in dependency error details.
const (
	StepProductLookup     = "product_lookup"
	StepOrderCreate       = "order_create"
	StepSellerOrderCreate = "seller_order_create"
	StepPaymentCreate     = "payment_create"
	StepTrackingCreate    = "tracking_create"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// statusMover delegates customer-axis status patches to the fulfillment
// service so legality checking lives in one place.
type statusMover interface {
	AdvanceOrderStatus(ctx context.Context, input fulfillment.AdvanceInput) (*models.Order, error)
}

// PlacedEvent is emitted when intake commits.
type PlacedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	SellerIDs   []uuid.UUID     `json:"seller_ids"`
	Total       decimal.Decimal `json:"total"`
}

// PaymentEvent is emitted when a payment row is recorded.
type PaymentEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method"`
	Status      string          `json:"status"`
}

// Service orchestrates order intake and the customer-facing read/patch paths.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID, viewerRole enums.UserRole) (*models.Order, error)
	GetTracking(ctx context.Context, orderID uuid.UUID) ([]models.OrderTracking, error)
	ListOrders(ctx context.Context, input ListOrdersInput) (*OrderList, error)
	UpdateOrder(ctx context.Context, input UpdateOrderInput, actor fulfillment.Actor) (*models.Order, error)
}

type service struct {
	repo    Repository
	catalog catalog.Repository
	tx      txRunner
	outbox  outboxPublisher
	mover   statusMover
	sink    notifications.Sink
	cfg     config.OrdersConfig
	rate    decimal.Decimal
	logg    *logger.Logger
}

// NewService builds the order intake service.
func NewService(repo Repository, catalogRepo catalog.Repository, tx txRunner, outboxSvc outboxPublisher, mover statusMover, sink notifications.Sink, cfg config.OrdersConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if mover == nil {
		return nil, fmt.Errorf("status mover required")
	}
	if sink == nil {
		return nil, fmt.Errorf("notification sink required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	rate, err := cfg.Rate()
	if err != nil {
		return nil, fmt.Errorf("invalid commission rate: %w", err)
	}
	return &service{
		repo:    repo,
		catalog: catalogRepo,
		tx:      tx,
		outbox:  outboxSvc,
		mover:   mover,
		sink:    sink,
		cfg:     cfg,
		rate:    rate,
		logg:    logg,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	if err := validatePlaceOrder(input); err != nil {
		return nil, err
	}

	var (
		order  *models.Order
		placed PlacedEvent
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)

		lines, err := s.resolveLines(ctx, catalogRepo, input.Items)
		if err != nil {
			return err
		}

		split, err := Split(lines, s.rate)
		if err != nil {
			return err
		}

		subtotal := split.Subtotal
		total := subtotal.Add(input.DeliveryFee).Add(input.Tax)

		created, err := repo.CreateOrder(ctx, &models.Order{
			OrderNumber:          s.newOrderNumber(),
			CustomerID:           input.CustomerID,
			DeliveryAddress:      input.CustomerDetails,
			DeliveryInstructions: input.DeliveryInstructions,
			Subtotal:             subtotal,
			DeliveryFee:          input.DeliveryFee,
			Tax:                  input.Tax,
			Total:                total,
			Status:               enums.OrderStatusPlaced,
			DeliveryStatus:       enums.DeliveryStatusPending,
			PaymentStatus:        enums.PaymentStatusPending,
			PaymentMethod:        input.PaymentMethod,
		})
		if err != nil {
			return pkgerrors.WrapStep(err, StepOrderCreate, "create order")
		}

		sellerIDs := make([]uuid.UUID, 0, len(split.Slices))
		for _, slice := range split.Slices {
			sellerOrder, err := repo.CreateSellerOrder(ctx, &models.SellerOrder{
				OrderID:    created.ID,
				SellerID:   slice.SellerID,
				Subtotal:   slice.Subtotal,
				Commission: slice.Commission,
				NetAmount:  slice.NetAmount,
				Status:     enums.SellerOrderStatusPending,
			})
			if err != nil {
				return pkgerrors.WrapStep(err, StepSellerOrderCreate, "create seller order")
			}

			items := make([]models.OrderItem, 0, len(slice.Lines))
			for _, line := range slice.Lines {
				items = append(items, models.OrderItem{
					OrderID:         created.ID,
					SellerOrderID:   &sellerOrder.ID,
					ProductID:       line.ProductID,
					SellerID:        line.SellerID,
					ProductName:     line.ProductName,
					ProductImage:    line.ProductImage,
					ProductCategory: line.ProductCategory,
					Quantity:        line.Quantity,
					UnitPrice:       line.UnitPrice,
					LineTotal:       line.LineTotal(),
				})
			}
			if err := repo.CreateOrderItems(ctx, items); err != nil {
				return pkgerrors.WrapStep(err, StepOrderCreate, "create order items")
			}
			sellerIDs = append(sellerIDs, slice.SellerID)
		}

		if input.PaymentMethod != enums.PaymentMethodUndecided {
			status := enums.PaymentStatusCompleted
			if input.PaymentMethod.SettlesOnDelivery() {
				status = enums.PaymentStatusPending
			}
			payment := &models.Payment{
				OrderID:       created.ID,
				CustomerID:    input.CustomerID,
				Amount:        total,
				Method:        input.PaymentMethod,
				Status:        status,
				TransactionID: input.PaymentReference,
			}
			if _, err := repo.CreatePayment(ctx, payment); err != nil {
				return pkgerrors.WrapStep(err, StepPaymentCreate, "create payment")
			}
			if err := repo.UpdateOrder(ctx, created.ID, map[string]any{"payment_status": status}); err != nil {
				return pkgerrors.WrapStep(err, StepPaymentCreate, "update payment status")
			}
			created.PaymentStatus = status
		}

		entry := fulfillment.TrackingFor(enums.OrderStatusPlaced.String())
		tracking := &models.OrderTracking{
			OrderID:     created.ID,
			Status:      enums.OrderStatusPlaced.String(),
			Description: entry.Description,
			Location:    entry.Location,
		}
		if err := repo.CreateTracking(ctx, tracking); err != nil {
			return pkgerrors.WrapStep(err, StepTrackingCreate, "create tracking row")
		}

		placed = PlacedEvent{
			OrderID:     created.ID,
			OrderNumber: created.OrderNumber,
			CustomerID:  created.CustomerID,
			SellerIDs:   sellerIDs,
			Total:       total,
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   created.ID,
			Actor:         &outbox.ActorRef{UserID: input.CustomerID, Role: enums.UserRoleCustomer.String()},
			Data:          placed,
			Version:       1,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order placed event")
		}

		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyPlaced(ctx, placed)
	return s.GetOrder(ctx, order.ID, enums.UserRoleAdmin)
}

func (s *service) resolveLines(ctx context.Context, catalogRepo catalog.Repository, items []CartLine) ([]ResolvedLine, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	products, err := catalogRepo.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.WrapStep(err, StepProductLookup, "resolve products")
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	lines := make([]ResolvedLine, 0, len(items))
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": item.ProductID.String()})
		}
		lines = append(lines, ResolvedLine{
			ProductID:       product.ID,
			SellerID:        product.SellerID,
			ProductName:     product.Name,
			ProductImage:    product.Image,
			ProductCategory: product.Category,
			Quantity:        item.Quantity,
			UnitPrice:       product.UnitPrice,
		})
	}
	return lines, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID, viewerRole enums.UserRole) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if viewerRole == enums.UserRoleCustomer {
		MaskSentinelPayment(order)
	}
	return order, nil
}

func (s *service) GetTracking(ctx context.Context, orderID uuid.UUID) ([]models.OrderTracking, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	rows, err := s.repo.ListTracking(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tracking")
	}
	return rows, nil
}

func (s *service) ListOrders(ctx context.Context, input ListOrdersInput) (*OrderList, error) {
	input.Params.Page = pagination.NormalizePage(input.Params.Page)
	input.Params.Limit = pagination.NormalizeLimit(input.Params.Limit)

	list, err := s.repo.ListOrders(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	if input.CustomerID != nil {
		for i := range list.Orders {
			MaskSentinelPayment(&list.Orders[i])
		}
	}
	return list, nil
}

func (s *service) UpdateOrder(ctx context.Context, input UpdateOrderInput, actor fulfillment.Actor) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrderByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		updates := map[string]any{}
		if input.PaymentStatus != nil {
			updates["payment_status"] = *input.PaymentStatus
		}
		if input.DeliveryAgentID != nil {
			updates["delivery_agent_id"] = *input.DeliveryAgentID
		}
		if input.EstimatedDeliveryTime != nil {
			updates["estimated_delivery_time"] = *input.EstimatedDeliveryTime
		}
		if input.ActualDeliveryTime != nil {
			updates["actual_delivery_time"] = *input.ActualDeliveryTime
		}

		// A method plus a reference records a new payment attempt.
		if input.PaymentMethod != nil && *input.PaymentMethod != enums.PaymentMethodUndecided {
			updates["payment_method"] = *input.PaymentMethod
			if input.PaymentReference != nil {
				status := enums.PaymentStatusCompleted
				if input.PaymentMethod.SettlesOnDelivery() {
					status = enums.PaymentStatusPending
				}
				payment := &models.Payment{
					OrderID:       order.ID,
					CustomerID:    order.CustomerID,
					Amount:        order.Total,
					Method:        *input.PaymentMethod,
					Status:        status,
					TransactionID: input.PaymentReference,
				}
				if _, err := repo.CreatePayment(ctx, payment); err != nil {
					return pkgerrors.WrapStep(err, StepPaymentCreate, "create payment")
				}
				updates["payment_status"] = status

				if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
					EventType:     enums.EventPaymentRecorded,
					AggregateType: enums.AggregateOrder,
					AggregateID:   order.ID,
					Actor:         actorRefFrom(actor),
					Data: PaymentEvent{
						OrderID:     order.ID,
						OrderNumber: order.OrderNumber,
						CustomerID:  order.CustomerID,
						Amount:      order.Total,
						Method:      input.PaymentMethod.String(),
						Status:      status.String(),
					},
					Version: 1,
				}); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment event")
				}
			}
		}

		if len(updates) == 0 {
			return nil
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Status changes go through the state machine so legality, tracking and
	// fan-out stay in one place. The transition runs only after the field
	// patch has committed; a failed patch must not strand a committed move.
	if input.Status != nil {
		if _, err := s.mover.AdvanceOrderStatus(ctx, fulfillment.AdvanceInput{
			OrderID: input.OrderID,
			Target:  *input.Status,
			Actor:   actor,
		}); err != nil {
			return nil, err
		}
	}

	return s.GetOrder(ctx, input.OrderID, enums.UserRoleAdmin)
}

// notifyPlaced pushes the placement event to the customer and each seller.
// Failures are logged and swallowed; placing the order already committed.
func (s *service) notifyPlaced(ctx context.Context, event PlacedEvent) {
	now := time.Now().UTC()
	data := map[string]any{
		"order_id":     event.OrderID.String(),
		"order_number": event.OrderNumber,
	}

	send := func(userID uuid.UUID, title, message string) {
		err := s.sink.Send(ctx, userID, notifications.Notification{
			Type:      enums.NotificationTypeOrderPlaced,
			Title:     title,
			Message:   message,
			Data:      data,
			Timestamp: now,
		})
		if err != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"order_id": event.OrderID.String(),
				"user_id":  userID.String(),
			})
			s.logg.Warn(logCtx, "notification push failed")
		}
	}

	send(event.CustomerID, "Order placed", fmt.Sprintf("Your order %s has been placed successfully.", event.OrderNumber))
	for _, sellerID := range event.SellerIDs {
		send(sellerID, "New order received", fmt.Sprintf("You have a new order %s.", event.OrderNumber))
	}
}

func (s *service) newOrderNumber() string {
	prefix := s.cfg.OrderNumberPrefix
	if prefix == "" {
		prefix = "LK"
	}
	return fmt.Sprintf("%s-%s-%s", prefix, time.Now().UTC().Format("20060102"), randomDigits(6))
}

func randomDigits(n int) string {
	const digits = "0123456789"
	out := make([]byte, n)
	for i := range out {
		v, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken.
			v = big.NewInt(int64(time.Now().UnixNano() % 10))
		}
		out[i] = digits[v.Int64()]
	}
	return string(out)
}

func validatePlaceOrder(input PlaceOrderInput) error {
	missing := []string{}
	if input.CustomerID == uuid.Nil {
		missing = append(missing, "customerId")
	}
	if len(input.Items) == 0 {
		missing = append(missing, "items")
	}
	if !input.CustomerDetails.Complete() {
		missing = append(missing, "customerDetails")
	}
	if input.PaymentMethod == "" {
		missing = append(missing, "paymentMethod")
	}
	if input.TotalAmount.IsZero() {
		missing = append(missing, "totalAmount")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "required fields missing").
			WithDetails(map[string]any{"reason": "missing_field", "fields": missing})
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method").
			WithDetails(map[string]any{"paymentMethod": input.PaymentMethod.String()})
	}
	return nil
}

func actorRefFrom(actor fulfillment.Actor) *outbox.ActorRef {
	if actor.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()}
}
