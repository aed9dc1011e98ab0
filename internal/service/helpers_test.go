package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/food-share/internal/fanout"
	"github.com/d60-Lab/food-share/internal/kvstore"
	"github.com/d60-Lab/food-share/internal/model"
	"github.com/d60-Lab/food-share/internal/repository"
)

type testEnv struct {
	donations     repository.DonationRepository
	notifications repository.NotificationRepository
	users         repository.UserRepository
	messages      repository.MessageRepository
	bus           *fanout.LocalBus

	notifier NotificationService
	claims   ClaimService
	views    ViewService
	posts    DonationService
	msgs     MessageService
	accounts UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	kv := kvstore.NewMemory()
	log := repository.NewKVNotificationRepository(kv)
	env := &testEnv{
		donations:     repository.NewShardedDonationRepository().WithEventLog(log),
		notifications: log,
		users:         repository.NewKVUserRepository(kv),
		messages:      repository.NewKVMessageRepository(kv),
		bus:           fanout.NewLocalBus(),
	}
	t.Cleanup(func() { _ = env.bus.Close() })
	env.notifier = NewNotificationService(env.notifications, env.bus)
	env.claims = NewClaimService(env.donations, env.users, env.notifier)
	env.views = NewViewService(env.donations, env.users)
	env.posts = NewDonationService(env.donations)
	env.msgs = NewMessageService(env.messages, env.users, env.donations, env.notifier)
	env.accounts = NewUserService(env.users)
	return env
}

// seed 写入一条 available 记录
func (e *testEnv) seed(t *testing.T, id, name, description, donorName string) *model.Donation {
	t.Helper()
	now := time.Now()
	d := &model.Donation{
		ID:          id,
		Status:      model.DonationStatusAvailable,
		DonorID:     "donor-" + id,
		DonorName:   donorName,
		Name:        name,
		Description: description,
		Quantity:    "1 box",
		Expiry:      "2026-12-01",
		Location:    "Main St",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, e.donations.Upsert(context.Background(), d))
	return d
}

// assertInvariant claimant 非空 当且仅当 status == claimed
func (e *testEnv) assertInvariant(t *testing.T) {
	t.Helper()
	all, err := e.donations.List(context.Background())
	require.NoError(t, err)
	for _, d := range all {
		require.NoError(t, d.Validate(), fmt.Sprintf("record %s", d.ID))
	}
}

func (e *testEnv) notificationsFor(t *testing.T, userID string) []*model.Notification {
	t.Helper()
	items, err := e.notifications.ListByRecipient(context.Background(), userID)
	require.NoError(t, err)
	return items
}
