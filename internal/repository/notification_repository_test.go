package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/food-share/internal/kvstore"
	"github.com/d60-Lab/food-share/internal/model"
)

func notificationBackends(tb testing.TB) map[string]NotificationRepository {
	return map[string]NotificationRepository{
		"gorm":     NewGormNotificationRepository(setupTestDB(tb)),
		"kv-mem":   NewKVNotificationRepository(kvstore.NewMemory()),
		"kv-redis": NewKVNotificationRepository(setupRedisKV(tb)),
	}
}

func newEvent(recipient string, kind model.NotificationKind, ts time.Time) *model.Notification {
	return &model.Notification{
		ID:              uuid.Must(uuid.NewV7()).String(),
		Kind:            kind,
		SubjectRecordID: "d1",
		RecipientID:     recipient,
		ActorID:         "r1",
		Timestamp:       ts,
	}
}

func TestNotificationRepository_AppendAndList(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	for name, repo := range notificationBackends(t) {
		t.Run(name, func(t *testing.T) {
			first := newEvent("donor-1", model.NotificationKindClaim, ts)
			second := newEvent("donor-1", model.NotificationKindCancel, ts)
			other := newEvent("donor-2", model.NotificationKindClaim, ts)
			for _, n := range []*model.Notification{first, other, second} {
				require.NoError(t, repo.Append(ctx, n))
			}

			list, err := repo.ListByRecipient(ctx, "donor-1")
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, first.ID, list[0].ID)
			assert.Equal(t, second.ID, list[1].ID)

			got, err := repo.Get(ctx, other.ID)
			require.NoError(t, err)
			assert.Equal(t, "donor-2", got.RecipientID)
			assert.False(t, got.Read)
		})
	}
}

func TestNotificationRepository_MarkReadIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, repo := range notificationBackends(t) {
		t.Run(name, func(t *testing.T) {
			n := newEvent("donor-1", model.NotificationKindClaim, time.Now().UTC())
			require.NoError(t, repo.Append(ctx, n))

			require.NoError(t, repo.MarkRead(ctx, n.ID))
			once, err := repo.Get(ctx, n.ID)
			require.NoError(t, err)

			require.NoError(t, repo.MarkRead(ctx, n.ID))
			twice, err := repo.Get(ctx, n.ID)
			require.NoError(t, err)

			assert.True(t, once.Read)
			assert.Equal(t, once.Read, twice.Read)
			assert.ErrorIs(t, repo.MarkRead(ctx, "missing"), ErrNotFound)
		})
	}
}

func TestNotificationRepository_MarkAllRead(t *testing.T) {
	ctx := context.Background()
	for name, repo := range notificationBackends(t) {
		t.Run(name, func(t *testing.T) {
			now := time.Now().UTC()
			for i := 0; i < 3; i++ {
				require.NoError(t, repo.Append(ctx, newEvent("donor-1", model.NotificationKindClaim, now)))
			}
			require.NoError(t, repo.Append(ctx, newEvent("donor-2", model.NotificationKindClaim, now)))

			changed, err := repo.MarkAllRead(ctx, "donor-1")
			require.NoError(t, err)
			assert.Equal(t, int64(3), changed)

			changed, err = repo.MarkAllRead(ctx, "donor-1")
			require.NoError(t, err)
			assert.Zero(t, changed)

			others, err := repo.ListByRecipient(ctx, "donor-2")
			require.NoError(t, err)
			require.Len(t, others, 1)
			assert.False(t, others[0].Read)
		})
	}
}

func TestKVNotificationRepository_MalformedReadIsEmpty(t *testing.T) {
	store := kvstore.NewMemory()
	store.Set(KeyNotifications, []byte(`[{"id":`))
	repo := NewKVNotificationRepository(store)

	list, err := repo.ListByRecipient(context.Background(), "donor-1")
	require.NoError(t, err)
	assert.Empty(t, list)

	var se *StorageError
	assert.ErrorAs(t, repo.Append(context.Background(), newEvent("donor-1", model.NotificationKindClaim, time.Now())), &se)
}
