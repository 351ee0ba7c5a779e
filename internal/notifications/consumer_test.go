package notifications

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/localkart/localkart-backend/pkg/db/models"
	"github.com/localkart/localkart-backend/pkg/enums"
	"github.com/localkart/localkart-backend/pkg/logger"
)

type captureRepo struct {
	rows []*models.Notification
	err  error
}

func (c *captureRepo) Create(ctx context.Context, notification *models.Notification) error {
	if c.err != nil {
		return c.err
	}
	c.rows = append(c.rows, notification)
	return nil
}

func newTestConsumer(repo *captureRepo) *Consumer {
	return &Consumer{
		repo: repo,
		logg: logger.New(logger.Options{ServiceName: "consumer-test", Output: io.Discard}),
	}
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestHandleOrderPlacedWritesCustomerAndSellers(t *testing.T) {
	repo := &captureRepo{}
	consumer := newTestConsumer(repo)

	customerID := uuid.New()
	sellerA := uuid.New()
	sellerB := uuid.New()
	payload := orderPlacedPayload{
		OrderID:     uuid.New(),
		OrderNumber: "LK-20260828-000001",
		CustomerID:  customerID,
		SellerIDs:   []uuid.UUID{sellerA, sellerB},
		Total:       decimal.NewFromInt(499),
	}

	err := consumer.handle(context.Background(), enums.EventOrderPlaced, mustJSON(t, payload), context.Background())
	require.NoError(t, err)

	require.Len(t, repo.rows, 3)
	require.Equal(t, customerID, repo.rows[0].UserID)
	require.Equal(t, enums.NotificationTypeOrderPlaced, repo.rows[0].Type)
	require.Equal(t, sellerA, repo.rows[1].UserID)
	require.Equal(t, sellerB, repo.rows[2].UserID)
	require.Equal(t, "LK-20260828-000001", repo.rows[0].Data["order_number"])
}

func TestHandleStatusMovedIncludesAgent(t *testing.T) {
	repo := &captureRepo{}
	consumer := newTestConsumer(repo)

	agentID := uuid.New()
	payload := statusMovedPayload{
		OrderID:     uuid.New(),
		OrderNumber: "LK-20260828-000002",
		CustomerID:  uuid.New(),
		SellerIDs:   []uuid.UUID{uuid.New()},
		AgentID:     &agentID,
		Axis:        "delivery",
		From:        "parcel_picked_up",
		To:          "in_transit",
	}

	err := consumer.handle(context.Background(), enums.EventDeliveryProgress, mustJSON(t, payload), context.Background())
	require.NoError(t, err)

	require.Len(t, repo.rows, 3)
	require.Equal(t, agentID, repo.rows[2].UserID)
	require.Equal(t, "in_transit", repo.rows[0].Data["status"])
}

func TestHandleCancelledUsesCancelWording(t *testing.T) {
	repo := &captureRepo{}
	consumer := newTestConsumer(repo)

	payload := statusMovedPayload{
		OrderID:     uuid.New(),
		OrderNumber: "LK-20260828-000003",
		CustomerID:  uuid.New(),
		Axis:        "customer",
		From:        "order_confirmed",
		To:          "cancelled",
	}

	err := consumer.handle(context.Background(), enums.EventOrderCancelled, mustJSON(t, payload), context.Background())
	require.NoError(t, err)

	require.Len(t, repo.rows, 1)
	require.Equal(t, "Order cancelled", repo.rows[0].Title)
}

func TestHandlePaymentRecorded(t *testing.T) {
	repo := &captureRepo{}
	consumer := newTestConsumer(repo)

	customerID := uuid.New()
	payload := paymentRecordedPayload{
		OrderID:     uuid.New(),
		OrderNumber: "LK-20260828-000004",
		CustomerID:  customerID,
		Amount:      decimal.RequireFromString("499.00"),
		Method:      "upi",
		Status:      "completed",
	}

	err := consumer.handle(context.Background(), enums.EventPaymentRecorded, mustJSON(t, payload), context.Background())
	require.NoError(t, err)

	require.Len(t, repo.rows, 1)
	require.Equal(t, customerID, repo.rows[0].UserID)
	require.Equal(t, enums.NotificationTypePayment, repo.rows[0].Type)
	require.Contains(t, repo.rows[0].Message, "499.00")
}

func TestHandleMissingCustomerFails(t *testing.T) {
	repo := &captureRepo{}
	consumer := newTestConsumer(repo)

	payload := statusMovedPayload{OrderID: uuid.New(), OrderNumber: "LK-1"}
	err := consumer.handle(context.Background(), enums.EventOrderStatusMoved, mustJSON(t, payload), context.Background())
	require.Error(t, err)
	require.Empty(t, repo.rows)
}
