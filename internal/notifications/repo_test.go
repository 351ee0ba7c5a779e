package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/localkart/localkart-backend/pkg/db/models"
	"github.com/localkart/localkart-backend/pkg/enums"
	"github.com/localkart/localkart-backend/pkg/pagination"
	"github.com/localkart/localkart-backend/pkg/types"
)

func setupNotificationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  data TEXT,
  read_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedNotification(t *testing.T, repo Repository, userID uuid.UUID, createdAt time.Time) uuid.UUID {
	t.Helper()

	row := &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      enums.NotificationTypeOrderStatus,
		Title:     "Order update",
		Message:   "Order LK-1 is now order_confirmed.",
		Data:      types.JSONMap{"order_number": "LK-1"},
		CreatedAt: createdAt,
	}
	require.NoError(t, repo.Create(context.Background(), row))
	return row.ID
}

func TestRepoListNewestFirst(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	older := seedNotification(t, repo, userID, base)
	newer := seedNotification(t, repo, userID, base.Add(30*time.Minute))
	seedNotification(t, repo, uuid.New(), base)

	rows, total, err := repo.List(ctx, listNotificationsParams{
		UserID: userID,
		Params: pagination.Params{Page: 1, Limit: 10},
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, rows, 2)
	require.Equal(t, newer, rows[0].ID)
	require.Equal(t, older, rows[1].ID)
	require.Equal(t, "LK-1", rows[0].Data["order_number"])
}

func TestRepoListUnreadOnly(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	unreadID := seedNotification(t, repo, userID, time.Now().UTC())
	readID := seedNotification(t, repo, userID, time.Now().UTC())

	found, err := repo.MarkRead(ctx, userID, readID, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, found)

	rows, total, err := repo.List(ctx, listNotificationsParams{
		UserID:     userID,
		UnreadOnly: true,
		Params:     pagination.Params{Page: 1, Limit: 10},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	require.Equal(t, unreadID, rows[0].ID)
}

func TestRepoMarkReadIsScopedToOwner(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	ownerID := uuid.New()
	id := seedNotification(t, repo, ownerID, time.Now().UTC())

	found, err := repo.MarkRead(ctx, uuid.New(), id, time.Now().UTC())
	require.NoError(t, err)
	require.False(t, found)

	found, err = repo.MarkRead(ctx, ownerID, id, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, found)

	// Second call finds the row already read and still reports it.
	found, err = repo.MarkRead(ctx, ownerID, id, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, found)
}

func TestRepoMarkAllRead(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	seedNotification(t, repo, userID, time.Now().UTC())
	seedNotification(t, repo, userID, time.Now().UTC())

	updated, err := repo.MarkAllRead(ctx, userID, time.Now().UTC())
	require.NoError(t, err)
	require.EqualValues(t, 2, updated)

	again, err := repo.MarkAllRead(ctx, userID, time.Now().UTC())
	require.NoError(t, err)
	require.Zero(t, again)
}
