package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/localkart/localkart-backend/pkg/db/models"
	"github.com/localkart/localkart-backend/pkg/enums"
	pkgerrors "github.com/localkart/localkart-backend/pkg/errors"
	"github.com/localkart/localkart-backend/pkg/pagination"
)

type fakeNotificationsRepo struct {
	rows map[uuid.UUID]*models.Notification
}

func newFakeNotificationsRepo() *fakeNotificationsRepo {
	return &fakeNotificationsRepo{rows: make(map[uuid.UUID]*models.Notification)}
}

func (f *fakeNotificationsRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeNotificationsRepo) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	f.rows[notification.ID] = notification
	return nil
}

func (f *fakeNotificationsRepo) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, int64, error) {
	out := []models.Notification{}
	for _, row := range f.rows {
		if row.UserID != params.UserID {
			continue
		}
		if params.UnreadOnly && row.ReadAt != nil {
			continue
		}
		out = append(out, *row)
	}
	return out, int64(len(out)), nil
}

func (f *fakeNotificationsRepo) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (bool, error) {
	row, ok := f.rows[notificationID]
	if !ok || row.UserID != userID {
		return false, nil
	}
	if row.ReadAt == nil {
		row.ReadAt = &now
	}
	return true, nil
}

func (f *fakeNotificationsRepo) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	var updated int64
	for _, row := range f.rows {
		if row.UserID == userID && row.ReadAt == nil {
			row.ReadAt = &now
			updated++
		}
	}
	return updated, nil
}

func (f *fakeNotificationsRepo) seed(userID uuid.UUID, read bool) uuid.UUID {
	row := &models.Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Type:    enums.NotificationTypeOrderStatus,
		Title:   "Order update",
		Message: "Order LK-1 is now order_confirmed.",
	}
	if read {
		now := time.Now().UTC()
		row.ReadAt = &now
	}
	f.rows[row.ID] = row
	return row.ID
}

func TestListRequiresUser(t *testing.T) {
	repo := newFakeNotificationsRepo()
	svc, err := NewService(repo)
	require.NoError(t, err)

	_, err = svc.List(context.Background(), ListParams{})
	require.Error(t, err)

	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestListUnreadOnly(t *testing.T) {
	repo := newFakeNotificationsRepo()
	svc, err := NewService(repo)
	require.NoError(t, err)

	userID := uuid.New()
	repo.seed(userID, false)
	repo.seed(userID, true)
	repo.seed(uuid.New(), false)

	all, err := svc.List(context.Background(), ListParams{UserID: userID, Params: pagination.Params{Page: 1, Limit: 10}})
	require.NoError(t, err)
	require.Len(t, all.Items, 2)
	require.EqualValues(t, 2, all.Meta.TotalRows)

	unread, err := svc.List(context.Background(), ListParams{UserID: userID, UnreadOnly: true, Params: pagination.Params{Page: 1, Limit: 10}})
	require.NoError(t, err)
	require.Len(t, unread.Items, 1)
	require.Nil(t, unread.Items[0].ReadAt)
}

func TestMarkRead(t *testing.T) {
	repo := newFakeNotificationsRepo()
	svc, err := NewService(repo)
	require.NoError(t, err)

	userID := uuid.New()
	id := repo.seed(userID, false)

	require.NoError(t, svc.MarkRead(context.Background(), userID, id))
	require.NotNil(t, repo.rows[id].ReadAt)

	// Marking an already-read row stays idempotent.
	require.NoError(t, svc.MarkRead(context.Background(), userID, id))
}

func TestMarkReadUnknownNotification(t *testing.T) {
	repo := newFakeNotificationsRepo()
	svc, err := NewService(repo)
	require.NoError(t, err)

	err = svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)

	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestMarkReadForeignUser(t *testing.T) {
	repo := newFakeNotificationsRepo()
	svc, err := NewService(repo)
	require.NoError(t, err)

	id := repo.seed(uuid.New(), false)

	err = svc.MarkRead(context.Background(), uuid.New(), id)
	require.Error(t, err)

	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestMarkAllRead(t *testing.T) {
	repo := newFakeNotificationsRepo()
	svc, err := NewService(repo)
	require.NoError(t, err)

	userID := uuid.New()
	repo.seed(userID, false)
	repo.seed(userID, false)
	repo.seed(userID, true)

	updated, err := svc.MarkAllRead(context.Background(), userID)
	require.NoError(t, err)
	require.EqualValues(t, 2, updated)

	again, err := svc.MarkAllRead(context.Background(), userID)
	require.NoError(t, err)
	require.Zero(t, again)
}
