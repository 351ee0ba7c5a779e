package orders

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
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
	"github.com/localkart/localkart-backend/pkg/types"
)

type fakeOrdersRepo struct {
	orders       map[uuid.UUID]*models.Order
	sellerOrders []models.SellerOrder
	items        []models.OrderItem
	payments     []models.Payment
	tracking     []models.OrderTracking
	updates      []map[string]any

	createOrderErr error
	createItemsErr error
	updateOrderErr error
}

func newFakeOrdersRepo() *fakeOrdersRepo {
	return &fakeOrdersRepo{orders: make(map[uuid.UUID]*models.Order)}
}

func (f *fakeOrdersRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeOrdersRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if f.createOrderErr != nil {
		return nil, f.createOrderErr
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	f.orders[order.ID] = order
	return order, nil
}

func (f *fakeOrdersRepo) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if f.createItemsErr != nil {
		return f.createItemsErr
	}
	f.items = append(f.items, items...)
	return nil
}

func (f *fakeOrdersRepo) CreateSellerOrder(ctx context.Context, sellerOrder *models.SellerOrder) (*models.SellerOrder, error) {
	if sellerOrder.ID == uuid.Nil {
		sellerOrder.ID = uuid.New()
	}
	f.sellerOrders = append(f.sellerOrders, *sellerOrder)
	return sellerOrder, nil
}

func (f *fakeOrdersRepo) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	f.payments = append(f.payments, *payment)
	return payment, nil
}

func (f *fakeOrdersRepo) CreateTracking(ctx context.Context, row *models.OrderTracking) error {
	f.tracking = append(f.tracking, *row)
	return nil
}

func (f *fakeOrdersRepo) FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	for _, item := range f.items {
		if item.OrderID == id {
			copied.Items = append(copied.Items, item)
		}
	}
	for _, so := range f.sellerOrders {
		if so.OrderID == id {
			copied.SellerOrders = append(copied.SellerOrders, so)
		}
	}
	for _, payment := range f.payments {
		if payment.OrderID == id {
			copied.Payments = append(copied.Payments, payment)
		}
	}
	return &copied, nil
}

func (f *fakeOrdersRepo) FindOrderByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrdersRepo) ListOrders(ctx context.Context, input ListOrdersInput) (*OrderList, error) {
	rows := make([]models.Order, 0, len(f.orders))
	for _, order := range f.orders {
		rows = append(rows, *order)
	}
	return &OrderList{Orders: rows, Meta: pagination.BuildMeta(input.Params, int64(len(rows)))}, nil
}

func (f *fakeOrdersRepo) ListSellerIDs(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	for _, so := range f.sellerOrders {
		if so.OrderID == orderID {
			ids = append(ids, so.SellerID)
		}
	}
	return ids, nil
}

func (f *fakeOrdersRepo) ListTracking(ctx context.Context, orderID uuid.UUID) ([]models.OrderTracking, error) {
	rows := []models.OrderTracking{}
	for _, row := range f.tracking {
		if row.OrderID == orderID {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (f *fakeOrdersRepo) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	if f.updateOrderErr != nil {
		return f.updateOrderErr
	}
	f.updates = append(f.updates, updates)
	order, ok := f.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if status, ok := updates["payment_status"].(enums.PaymentStatus); ok {
		order.PaymentStatus = status
	}
	if method, ok := updates["payment_method"].(enums.PaymentMethod); ok {
		order.PaymentMethod = method
	}
	return nil
}

type fakeCatalogRepo struct {
	products map[uuid.UUID]models.Product
}

func (f *fakeCatalogRepo) WithTx(tx *gorm.DB) catalog.Repository { return f }

func (f *fakeCatalogRepo) FindActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	out := []models.Product{}
	for _, id := range ids {
		if product, ok := f.products[id]; ok {
			out = append(out, product)
		}
	}
	return out, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeMover struct {
	inputs []fulfillment.AdvanceInput
	err    error
}

func (f *fakeMover) AdvanceOrderStatus(ctx context.Context, input fulfillment.AdvanceInput) (*models.Order, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Order{ID: input.OrderID, Status: input.Target}, nil
}

type captureSink struct {
	sent []sentNotification
}

type sentNotification struct {
	userID       uuid.UUID
	notification notifications.Notification
}

func (c *captureSink) Send(ctx context.Context, userID uuid.UUID, notification notifications.Notification) error {
	c.sent = append(c.sent, sentNotification{userID: userID, notification: notification})
	return nil
}

type serviceFixture struct {
	svc     Service
	repo    *fakeOrdersRepo
	catalog *fakeCatalogRepo
	outbox  *fakeOutbox
	mover   *fakeMover
	sink    *captureSink
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	fixture := &serviceFixture{
		repo:    newFakeOrdersRepo(),
		catalog: &fakeCatalogRepo{products: make(map[uuid.UUID]models.Product)},
		outbox:  &fakeOutbox{},
		mover:   &fakeMover{},
		sink:    &captureSink{},
	}
	logg := logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})

	svc, err := NewService(fixture.repo, fixture.catalog, fakeTxRunner{}, fixture.outbox, fixture.mover, fixture.sink, config.OrdersConfig{CommissionRate: "0.05", OrderNumberPrefix: "LK"}, logg)
	require.NoError(t, err)
	fixture.svc = svc
	return fixture
}

func (f *serviceFixture) addProduct(t *testing.T, sellerID uuid.UUID, name string, price string) uuid.UUID {
	t.Helper()
	product := models.Product{
		ID:        uuid.New(),
		SellerID:  sellerID,
		Name:      name,
		Category:  "grocery",
		UnitPrice: decimal.RequireFromString(price),
		Active:    true,
	}
	f.catalog.products[product.ID] = product
	return product.ID
}

func validAddress() types.DeliveryAddress {
	return types.DeliveryAddress{
		Name:    "Asha Rao",
		Phone:   "+919812345678",
		Address: "12 MG Road",
		City:    "Bengaluru",
	}
}

func TestNewServiceRequiresRepo(t *testing.T) {
	logg := logger.New(logger.Options{Output: io.Discard})
	_, err := NewService(nil, &fakeCatalogRepo{}, fakeTxRunner{}, &fakeOutbox{}, &fakeMover{}, &captureSink{}, config.OrdersConfig{CommissionRate: "0.05"}, logg)
	require.Error(t, err)
}

func TestPlaceOrderSplitsBySeller(t *testing.T) {
	fixture := newServiceFixture(t)
	sellerA := uuid.New()
	sellerB := uuid.New()
	productA := fixture.addProduct(t, sellerA, "Atta 5kg", "100")
	productB := fixture.addProduct(t, sellerB, "Ghee 1L", "250")
	customerID := uuid.New()

	order, err := fixture.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID: customerID,
		Items: []CartLine{
			{ProductID: productA, Quantity: 2},
			{ProductID: productB, Quantity: 1},
		},
		CustomerDetails: validAddress(),
		PaymentMethod:   enums.PaymentMethodUndecided,
		DeliveryFee:     decimal.NewFromInt(39),
		Tax:             decimal.NewFromInt(10),
		TotalAmount:     decimal.NewFromInt(499),
	})
	require.NoError(t, err)

	require.True(t, order.Subtotal.Equal(decimal.NewFromInt(450)), "subtotal %s", order.Subtotal)
	require.True(t, order.Total.Equal(decimal.NewFromInt(499)), "total %s", order.Total)
	require.Equal(t, enums.OrderStatusPlaced, order.Status)
	require.Equal(t, enums.DeliveryStatusPending, order.DeliveryStatus)
	require.Equal(t, customerID, order.CustomerID)
	require.NotEmpty(t, order.OrderNumber)

	require.Len(t, fixture.repo.sellerOrders, 2)
	bySeller := map[uuid.UUID]models.SellerOrder{}
	for _, so := range fixture.repo.sellerOrders {
		bySeller[so.SellerID] = so
	}
	require.True(t, bySeller[sellerA].Commission.Equal(decimal.NewFromInt(10)))
	require.True(t, bySeller[sellerA].NetAmount.Equal(decimal.NewFromInt(190)))
	require.True(t, bySeller[sellerB].Commission.Equal(decimal.RequireFromString("12.5")))
	require.True(t, bySeller[sellerB].NetAmount.Equal(decimal.RequireFromString("237.5")))

	require.Len(t, fixture.repo.items, 2)
	for _, item := range fixture.repo.items {
		require.NotNil(t, item.SellerOrderID)
		require.Equal(t, order.ID, item.OrderID)
	}

	require.Len(t, fixture.repo.tracking, 1)
	require.Equal(t, enums.OrderStatusPlaced.String(), fixture.repo.tracking[0].Status)

	require.Len(t, fixture.outbox.events, 1)
	event := fixture.outbox.events[0]
	require.Equal(t, enums.EventOrderPlaced, event.EventType)
	require.Equal(t, enums.AggregateOrder, event.AggregateType)
	require.Equal(t, order.ID, event.AggregateID)

	require.Len(t, fixture.sink.sent, 3)
	require.Equal(t, customerID, fixture.sink.sent[0].userID)
}

func TestPlaceOrderCashOnDeliveryStaysPending(t *testing.T) {
	fixture := newServiceFixture(t)
	sellerID := uuid.New()
	productID := fixture.addProduct(t, sellerID, "Atta 5kg", "100")

	order, err := fixture.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID:      uuid.New(),
		Items:           []CartLine{{ProductID: productID, Quantity: 1}},
		CustomerDetails: validAddress(),
		PaymentMethod:   enums.PaymentMethodCashOnDelivery,
		TotalAmount:     decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	require.Len(t, fixture.repo.payments, 1)
	require.Equal(t, enums.PaymentStatusPending, fixture.repo.payments[0].Status)
	require.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
}

func TestPlaceOrderPrepaidCompletesPayment(t *testing.T) {
	fixture := newServiceFixture(t)
	productID := fixture.addProduct(t, uuid.New(), "Ghee 1L", "250")
	reference := "upi-txn-123"

	order, err := fixture.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID:       uuid.New(),
		Items:            []CartLine{{ProductID: productID, Quantity: 1}},
		CustomerDetails:  validAddress(),
		PaymentMethod:    enums.PaymentMethodUPI,
		PaymentReference: &reference,
		TotalAmount:      decimal.NewFromInt(250),
	})
	require.NoError(t, err)

	require.Len(t, fixture.repo.payments, 1)
	payment := fixture.repo.payments[0]
	require.Equal(t, enums.PaymentStatusCompleted, payment.Status)
	require.Equal(t, &reference, payment.TransactionID)
	require.Equal(t, enums.PaymentStatusCompleted, order.PaymentStatus)
}

func TestPlaceOrderUndecidedRecordsNoPayment(t *testing.T) {
	fixture := newServiceFixture(t)
	productID := fixture.addProduct(t, uuid.New(), "Atta 5kg", "100")

	_, err := fixture.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID:      uuid.New(),
		Items:           []CartLine{{ProductID: productID, Quantity: 1}},
		CustomerDetails: validAddress(),
		PaymentMethod:   enums.PaymentMethodUndecided,
		TotalAmount:     decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	require.Empty(t, fixture.repo.payments)
}

func TestPlaceOrderMissingFields(t *testing.T) {
	fixture := newServiceFixture(t)

	_, err := fixture.svc.PlaceOrder(context.Background(), PlaceOrderInput{})
	require.Error(t, err)

	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestPlaceOrderUnknownProduct(t *testing.T) {
	fixture := newServiceFixture(t)

	_, err := fixture.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID:      uuid.New(),
		Items:           []CartLine{{ProductID: uuid.New(), Quantity: 1}},
		CustomerDetails: validAddress(),
		PaymentMethod:   enums.PaymentMethodUndecided,
		TotalAmount:     decimal.NewFromInt(100),
	})
	require.Error(t, err)

	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestPlaceOrderTagsFailedStep(t *testing.T) {
	fixture := newServiceFixture(t)
	productID := fixture.addProduct(t, uuid.New(), "Atta 5kg", "100")
	fixture.repo.createOrderErr = errors.New("connection reset")

	_, err := fixture.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID:      uuid.New(),
		Items:           []CartLine{{ProductID: productID, Quantity: 1}},
		CustomerDetails: validAddress(),
		PaymentMethod:   enums.PaymentMethodUndecided,
		TotalAmount:     decimal.NewFromInt(100),
	})
	require.Error(t, err)

	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	require.Equal(t, pkgerrors.CodeDependency, typed.Code())

	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	require.Equal(t, StepOrderCreate, details["step"])
}

func TestGetOrderMasksUndecidedForCustomer(t *testing.T) {
	fixture := newServiceFixture(t)
	orderID := uuid.New()
	fixture.repo.orders[orderID] = &models.Order{
		ID:            orderID,
		PaymentMethod: enums.PaymentMethodUndecided,
	}

	asCustomer, err := fixture.svc.GetOrder(context.Background(), orderID, enums.UserRoleCustomer)
	require.NoError(t, err)
	require.Empty(t, asCustomer.PaymentMethod)

	asAdmin, err := fixture.svc.GetOrder(context.Background(), orderID, enums.UserRoleAdmin)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentMethodUndecided, asAdmin.PaymentMethod)
}

func TestUpdateOrderStatusUsesStateMachine(t *testing.T) {
	fixture := newServiceFixture(t)
	orderID := uuid.New()
	fixture.repo.orders[orderID] = &models.Order{ID: orderID, Status: enums.OrderStatusPlaced}

	target := enums.OrderStatusConfirmed
	actor := fulfillment.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}

	_, err := fixture.svc.UpdateOrder(context.Background(), UpdateOrderInput{
		OrderID: orderID,
		Status:  &target,
	}, actor)
	require.NoError(t, err)

	require.Len(t, fixture.mover.inputs, 1)
	require.Equal(t, orderID, fixture.mover.inputs[0].OrderID)
	require.Equal(t, target, fixture.mover.inputs[0].Target)
	require.Equal(t, actor, fixture.mover.inputs[0].Actor)
}

func TestUpdateOrderRejectedTransitionShortCircuits(t *testing.T) {
	fixture := newServiceFixture(t)
	orderID := uuid.New()
	fixture.repo.orders[orderID] = &models.Order{ID: orderID, Status: enums.OrderStatusPlaced}
	fixture.mover.err = pkgerrors.New(pkgerrors.CodeIllegalTransition, "order_placed cannot move to picked_up")

	target := enums.OrderStatusPickedUp
	_, err := fixture.svc.UpdateOrder(context.Background(), UpdateOrderInput{
		OrderID: orderID,
		Status:  &target,
	}, fulfillment.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin})
	require.Error(t, err)

	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	require.Equal(t, pkgerrors.CodeIllegalTransition, typed.Code())
	require.Empty(t, fixture.repo.updates)
}

func TestUpdateOrderFailedPatchSkipsStatusMove(t *testing.T) {
	fixture := newServiceFixture(t)
	orderID := uuid.New()
	fixture.repo.orders[orderID] = &models.Order{ID: orderID, Status: enums.OrderStatusPlaced}
	fixture.repo.updateOrderErr = errors.New("connection reset")

	target := enums.OrderStatusConfirmed
	paymentStatus := enums.PaymentStatusCompleted
	_, err := fixture.svc.UpdateOrder(context.Background(), UpdateOrderInput{
		OrderID:       orderID,
		Status:        &target,
		PaymentStatus: &paymentStatus,
	}, fulfillment.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin})
	require.Error(t, err)

	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	require.Equal(t, pkgerrors.CodeDependency, typed.Code())

	require.Empty(t, fixture.mover.inputs)
	require.Equal(t, enums.OrderStatusPlaced, fixture.repo.orders[orderID].Status)
}

func TestUpdateOrderRecordsPaymentAttempt(t *testing.T) {
	fixture := newServiceFixture(t)
	orderID := uuid.New()
	customerID := uuid.New()
	fixture.repo.orders[orderID] = &models.Order{
		ID:            orderID,
		OrderNumber:   "LK-20260828-000001",
		CustomerID:    customerID,
		Total:         decimal.NewFromInt(499),
		Status:        enums.OrderStatusDelivered,
		PaymentMethod: enums.PaymentMethodCashOnDelivery,
	}

	method := enums.PaymentMethodUPI
	reference := "upi-txn-789"
	order, err := fixture.svc.UpdateOrder(context.Background(), UpdateOrderInput{
		OrderID:          orderID,
		PaymentMethod:    &method,
		PaymentReference: &reference,
	}, fulfillment.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin})
	require.NoError(t, err)

	require.Len(t, fixture.repo.payments, 1)
	payment := fixture.repo.payments[0]
	require.Equal(t, customerID, payment.CustomerID)
	require.Equal(t, enums.PaymentStatusCompleted, payment.Status)
	require.True(t, payment.Amount.Equal(decimal.NewFromInt(499)))

	require.Len(t, fixture.outbox.events, 1)
	require.Equal(t, enums.EventPaymentRecorded, fixture.outbox.events[0].EventType)
	require.Equal(t, enums.PaymentStatusCompleted, order.PaymentStatus)
}
