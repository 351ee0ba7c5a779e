package handoff

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

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

type fakeHandoffRepo struct {
	orders    map[uuid.UUID]*models.Order
	sellerIDs map[uuid.UUID][]uuid.UUID
	tracking  []models.OrderTracking
}

func newFakeHandoffRepo() *fakeHandoffRepo {
	return &fakeHandoffRepo{
		orders:    make(map[uuid.UUID]*models.Order),
		sellerIDs: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (f *fakeHandoffRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeHandoffRepo) FindOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeHandoffRepo) ClaimOrder(ctx context.Context, orderID, agentID uuid.UUID) (bool, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if order.DeliveryAgentID != nil || order.DeliveryStatus != enums.DeliveryStatusPending {
		return false, nil
	}
	order.DeliveryAgentID = &agentID
	order.DeliveryStatus = enums.DeliveryStatusAcceptedByAgent
	return true, nil
}

func (f *fakeHandoffRepo) SetOTP(ctx context.Context, orderID uuid.UUID, code string) error {
	order, ok := f.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	order.ParcelOTP = &code
	order.OTPVerified = false
	order.DeliveryStatus = enums.DeliveryStatusOTPGenerated
	return nil
}

func (f *fakeHandoffRepo) VerifyOTP(ctx context.Context, orderID uuid.UUID, code string) (bool, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if order.ParcelOTP == nil || *order.ParcelOTP != code || order.OTPVerified {
		return false, nil
	}
	order.OTPVerified = true
	order.DeliveryStatus = enums.DeliveryStatusOTPVerified
	return true, nil
}

func (f *fakeHandoffRepo) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	order, ok := f.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if status, ok := updates["status"].(enums.OrderStatus); ok {
		order.Status = status
	}
	if status, ok := updates["delivery_status"].(enums.DeliveryStatus); ok {
		order.DeliveryStatus = status
	}
	return nil
}

func (f *fakeHandoffRepo) CreateTracking(ctx context.Context, row *models.OrderTracking) error {
	f.tracking = append(f.tracking, *row)
	return nil
}

func (f *fakeHandoffRepo) ListSellerIDs(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error) {
	return f.sellerIDs[orderID], nil
}

func (f *fakeHandoffRepo) ListUnassigned(ctx context.Context, params pagination.Params) (*QueueList, error) {
	rows := []models.Order{}
	for _, order := range f.orders {
		if order.DeliveryAgentID == nil && order.DeliveryStatus == enums.DeliveryStatusPending {
			rows = append(rows, *order)
		}
	}
	return &QueueList{Orders: rows, Meta: pagination.BuildMeta(params, int64(len(rows)))}, nil
}

type handoffTx struct{}

func (handoffTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type handoffEmitter struct {
	events []outbox.DomainEvent
}

func (f *handoffEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type handoffSink struct {
	userIDs []uuid.UUID
}

func (s *handoffSink) Send(ctx context.Context, userID uuid.UUID, notification notifications.Notification) error {
	s.userIDs = append(s.userIDs, userID)
	return nil
}

type memoryLocationStore struct {
	stored  map[string]types.AgentLocation
	ttls    map[string]time.Duration
	dropped []string
}

func newMemoryLocationStore() *memoryLocationStore {
	return &memoryLocationStore{
		stored: make(map[string]types.AgentLocation),
		ttls:   make(map[string]time.Duration),
	}
}

func (m *memoryLocationStore) StoreAgentLocation(ctx context.Context, orderID string, loc types.AgentLocation, ttl time.Duration) error {
	m.stored[orderID] = loc
	m.ttls[orderID] = ttl
	return nil
}

func (m *memoryLocationStore) GetAgentLocation(ctx context.Context, orderID string) (*types.AgentLocation, error) {
	loc, ok := m.stored[orderID]
	if !ok {
		return nil, nil
	}
	return &loc, nil
}

func (m *memoryLocationStore) DropAgentLocation(ctx context.Context, orderID string) error {
	delete(m.stored, orderID)
	m.dropped = append(m.dropped, orderID)
	return nil
}

type handoffFixture struct {
	svc       Service
	repo      *fakeHandoffRepo
	emitter   *handoffEmitter
	sink      *handoffSink
	locations *memoryLocationStore
}

func newHandoffFixture(t *testing.T) *handoffFixture {
	t.Helper()

	fixture := &handoffFixture{
		repo:      newFakeHandoffRepo(),
		emitter:   &handoffEmitter{},
		sink:      &handoffSink{},
		locations: newMemoryLocationStore(),
	}
	logg := logger.New(logger.Options{ServiceName: "handoff-test", Output: io.Discard})

	svc, err := NewService(
		fixture.repo, handoffTx{}, fixture.emitter, fixture.sink, fixture.locations,
		metrics.NewFulfillmentMetrics(nil), logg,
		config.OrdersConfig{CommissionRate: "0.05", OTPLength: 6},
		config.DeliveryConfig{LocationTTL: time.Minute},
	)
	require.NoError(t, err)
	fixture.svc = svc
	return fixture
}

func (f *handoffFixture) seedOrder(status enums.OrderStatus, deliveryStatus enums.DeliveryStatus, sellerIDs ...uuid.UUID) *models.Order {
	order := &models.Order{
		ID:             uuid.New(),
		OrderNumber:    "LK-20260828-000007",
		CustomerID:     uuid.New(),
		Status:         status,
		DeliveryStatus: deliveryStatus,
	}
	f.repo.orders[order.ID] = order
	f.repo.sellerIDs[order.ID] = sellerIDs
	return order
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	require.Equal(t, code, typed.Code())
}

func TestAcceptClaimsPendingOrder(t *testing.T) {
	fixture := newHandoffFixture(t)
	order := fixture.seedOrder(enums.OrderStatusReadyForPickup, enums.DeliveryStatusPending, uuid.New())
	agentID := uuid.New()

	claimed, err := fixture.svc.Accept(context.Background(), order.ID, agentID)
	require.NoError(t, err)
	require.Equal(t, enums.DeliveryStatusAcceptedByAgent, claimed.DeliveryStatus)
	require.NotNil(t, claimed.DeliveryAgentID)
	require.Equal(t, agentID, *claimed.DeliveryAgentID)

	require.Len(t, fixture.emitter.events, 1)
	require.Equal(t, enums.EventDeliveryProgress, fixture.emitter.events[0].EventType)
}

func TestAcceptLosesClaimRace(t *testing.T) {
	fixture := newHandoffFixture(t)
	order := fixture.seedOrder(enums.OrderStatusReadyForPickup, enums.DeliveryStatusPending)

	_, err := fixture.svc.Accept(context.Background(), order.ID, uuid.New())
	require.NoError(t, err)

	_, err = fixture.svc.Accept(context.Background(), order.ID, uuid.New())
	requireCode(t, err, pkgerrors.CodeIllegalTransition)
}

func TestAcceptConflictWhenClaimRaces(t *testing.T) {
	fixture := newHandoffFixture(t)
	order := fixture.seedOrder(enums.OrderStatusReadyForPickup, enums.DeliveryStatusPending)
	rival := uuid.New()
	order.DeliveryAgentID = &rival

	_, err := fixture.svc.Accept(context.Background(), order.ID, uuid.New())
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestGenerateOTPStoresCode(t *testing.T) {
	fixture := newHandoffFixture(t)
	agentID := uuid.New()
	order := fixture.seedOrder(enums.OrderStatusReadyForPickup, enums.DeliveryStatusAcceptedByAgent)
	order.DeliveryAgentID = &agentID

	code, err := fixture.svc.GenerateOTP(context.Background(), order.ID, agentID)
	require.NoError(t, err)
	require.Len(t, code, 6)

	stored := fixture.repo.orders[order.ID]
	require.NotNil(t, stored.ParcelOTP)
	require.Equal(t, code, *stored.ParcelOTP)
	require.False(t, stored.OTPVerified)
	require.Equal(t, enums.DeliveryStatusOTPGenerated, stored.DeliveryStatus)
}

func TestGenerateOTPRequiresAssignedAgent(t *testing.T) {
	fixture := newHandoffFixture(t)
	agentID := uuid.New()
	order := fixture.seedOrder(enums.OrderStatusReadyForPickup, enums.DeliveryStatusAcceptedByAgent)
	order.DeliveryAgentID = &agentID

	_, err := fixture.svc.GenerateOTP(context.Background(), order.ID, uuid.New())
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestVerifyOTPHappyPath(t *testing.T) {
	fixture := newHandoffFixture(t)
	sellerID := uuid.New()
	agentID := uuid.New()
	code := "482915"
	order := fixture.seedOrder(enums.OrderStatusReadyForPickup, enums.DeliveryStatusOTPGenerated, sellerID)
	order.DeliveryAgentID = &agentID
	order.ParcelOTP = &code

	err := fixture.svc.VerifyOTP(context.Background(), order.ID, sellerID, code)
	require.NoError(t, err)

	stored := fixture.repo.orders[order.ID]
	require.True(t, stored.OTPVerified)
	require.Equal(t, enums.DeliveryStatusOTPVerified, stored.DeliveryStatus)
}

func TestVerifyOTPNeverGenerated(t *testing.T) {
	fixture := newHandoffFixture(t)
	sellerID := uuid.New()
	order := fixture.seedOrder(enums.OrderStatusReadyForPickup, enums.DeliveryStatusAcceptedByAgent, sellerID)

	err := fixture.svc.VerifyOTP(context.Background(), order.ID, sellerID, "123456")
	requireCode(t, err, pkgerrors.CodeInvalidOTP)
}

func TestVerifyOTPMismatch(t *testing.T) {
	fixture := newHandoffFixture(t)
	sellerID := uuid.New()
	code := "482915"
	order := fixture.seedOrder(enums.OrderStatusReadyForPickup, enums.DeliveryStatusOTPGenerated, sellerID)
	order.ParcelOTP = &code

	err := fixture.svc.VerifyOTP(context.Background(), order.ID, sellerID, "000000")
	requireCode(t, err, pkgerrors.CodeInvalidOTP)
	require.False(t, fixture.repo.orders[order.ID].OTPVerified)
}

func TestVerifyOTPConsumedCodeReportsNoOp(t *testing.T) {
	fixture := newHandoffFixture(t)
	sellerID := uuid.New()
	code := "482915"
	order := fixture.seedOrder(enums.OrderStatusReadyForPickup, enums.DeliveryStatusOTPVerified, sellerID)
	order.ParcelOTP = &code
	order.OTPVerified = true

	err := fixture.svc.VerifyOTP(context.Background(), order.ID, sellerID, code)
	requireCode(t, err, pkgerrors.CodeIllegalTransition)
}

func TestVerifyOTPRejectsForeignSeller(t *testing.T) {
	fixture := newHandoffFixture(t)
	code := "482915"
	order := fixture.seedOrder(enums.OrderStatusReadyForPickup, enums.DeliveryStatusOTPGenerated, uuid.New())
	order.ParcelOTP = &code

	err := fixture.svc.VerifyOTP(context.Background(), order.ID, uuid.New(), code)
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestPickupMirrorsCustomerAxis(t *testing.T) {
	fixture := newHandoffFixture(t)
	agentID := uuid.New()
	order := fixture.seedOrder(enums.OrderStatusReadyForPickup, enums.DeliveryStatusOTPVerified)
	order.DeliveryAgentID = &agentID

	err := fixture.svc.Pickup(context.Background(), order.ID, agentID)
	require.NoError(t, err)

	stored := fixture.repo.orders[order.ID]
	require.Equal(t, enums.DeliveryStatusParcelPickedUp, stored.DeliveryStatus)
	require.Equal(t, enums.OrderStatusPickedUp, stored.Status)
}

func TestStartDeliveryRequiresPickedUpParcel(t *testing.T) {
	fixture := newHandoffFixture(t)
	agentID := uuid.New()
	order := fixture.seedOrder(enums.OrderStatusReadyForPickup, enums.DeliveryStatusOTPGenerated)
	order.DeliveryAgentID = &agentID

	err := fixture.svc.StartDelivery(context.Background(), order.ID, agentID)
	requireCode(t, err, pkgerrors.CodeIllegalTransition)
}

func TestUpdateLocationOnlyInTransit(t *testing.T) {
	fixture := newHandoffFixture(t)
	agentID := uuid.New()
	order := fixture.seedOrder(enums.OrderStatusPickedUp, enums.DeliveryStatusParcelPickedUp)
	order.DeliveryAgentID = &agentID

	err := fixture.svc.UpdateLocation(context.Background(), order.ID, agentID, types.AgentLocation{Latitude: 12.97, Longitude: 77.59})
	requireCode(t, err, pkgerrors.CodeConflict)

	order.DeliveryStatus = enums.DeliveryStatusInTransit
	err = fixture.svc.UpdateLocation(context.Background(), order.ID, agentID, types.AgentLocation{Latitude: 12.97, Longitude: 77.59})
	require.NoError(t, err)

	stored, ok := fixture.locations.stored[order.ID.String()]
	require.True(t, ok)
	require.InDelta(t, 12.97, stored.Latitude, 0.0001)
	require.False(t, stored.RecordedAt.IsZero())
	require.Equal(t, time.Minute, fixture.locations.ttls[order.ID.String()])
}

func TestGetLocation(t *testing.T) {
	fixture := newHandoffFixture(t)
	orderID := uuid.New()

	_, err := fixture.svc.GetLocation(context.Background(), orderID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	fixture.locations.stored[orderID.String()] = types.AgentLocation{Latitude: 12.97, Longitude: 77.59, RecordedAt: time.Now().UTC()}
	loc, err := fixture.svc.GetLocation(context.Background(), orderID)
	require.NoError(t, err)
	require.InDelta(t, 77.59, loc.Longitude, 0.0001)
}

func TestCompleteWalksRemainingCustomerSteps(t *testing.T) {
	fixture := newHandoffFixture(t)
	agentID := uuid.New()
	order := fixture.seedOrder(enums.OrderStatusPickedUp, enums.DeliveryStatusInTransit, uuid.New())
	order.DeliveryAgentID = &agentID
	fixture.locations.stored[order.ID.String()] = types.AgentLocation{Latitude: 12.97, Longitude: 77.59}

	completed, err := fixture.svc.Complete(context.Background(), order.ID, agentID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusDelivered, completed.Status)
	require.Equal(t, enums.DeliveryStatusDelivered, completed.DeliveryStatus)
	require.NotNil(t, completed.ActualDeliveryTime)

	statuses := make([]string, 0, len(fixture.repo.tracking))
	for _, row := range fixture.repo.tracking {
		statuses = append(statuses, row.Status)
	}
	require.Equal(t, []string{
		enums.OrderStatusInTransit.String(),
		enums.OrderStatusOutForDelivery.String(),
		enums.OrderStatusDelivered.String(),
		enums.DeliveryStatusDelivered.String(),
	}, statuses)

	require.Empty(t, fixture.locations.stored)
	require.Equal(t, []string{order.ID.String()}, fixture.locations.dropped)
}

func TestCompleteRequiresAssignedAgent(t *testing.T) {
	fixture := newHandoffFixture(t)
	agentID := uuid.New()
	order := fixture.seedOrder(enums.OrderStatusPickedUp, enums.DeliveryStatusInTransit)
	order.DeliveryAgentID = &agentID

	_, err := fixture.svc.Complete(context.Background(), order.ID, uuid.New())
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestQueueListsUnclaimedOrders(t *testing.T) {
	fixture := newHandoffFixture(t)
	fixture.seedOrder(enums.OrderStatusReadyForPickup, enums.DeliveryStatusPending)
	claimed := fixture.seedOrder(enums.OrderStatusReadyForPickup, enums.DeliveryStatusAcceptedByAgent)
	agentID := uuid.New()
	claimed.DeliveryAgentID = &agentID

	list, err := fixture.svc.Queue(context.Background(), pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	require.EqualValues(t, 1, list.Meta.TotalRows)
}
