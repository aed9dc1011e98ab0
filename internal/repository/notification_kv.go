package repository

import (
	"context"

	"github.com/d60-Lab/food-share/internal/kvstore"
	"github.com/d60-Lab/food-share/internal/model"
)

type kvNotificationRepository struct {
	list jsonList[*model.Notification]
}

// NewKVNotificationRepository notifications 键下的 JSON 数组，数组顺序即发布顺序
func NewKVNotificationRepository(store kvstore.Store) NotificationRepository {
	return &kvNotificationRepository{list: jsonList[*model.Notification]{store: store, key: KeyNotifications}}
}

func (r *kvNotificationRepository) Append(ctx context.Context, n *model.Notification) error {
	return r.list.update(ctx, "append", func(items []*model.Notification) ([]*model.Notification, error) {
		return append(items, n.Clone()), nil
	})
}

func (r *kvNotificationRepository) Get(ctx context.Context, id string) (*model.Notification, error) {
	for _, n := range r.list.read(ctx, "get") {
		if n != nil && n.ID == id {
			return n, nil
		}
	}
	return nil, ErrNotFound
}

func (r *kvNotificationRepository) ListByRecipient(ctx context.Context, recipientID string) ([]*model.Notification, error) {
	var res []*model.Notification
	for _, n := range r.list.read(ctx, "list") {
		if n != nil && n.RecipientID == recipientID {
			res = append(res, n)
		}
	}
	return res, nil
}

func (r *kvNotificationRepository) MarkRead(ctx context.Context, id string) error {
	return r.list.update(ctx, "mark_read", func(items []*model.Notification) ([]*model.Notification, error) {
		for _, n := range items {
			if n != nil && n.ID == id {
				n.Read = true
				return items, nil
			}
		}
		return nil, ErrNotFound
	})
}

func (r *kvNotificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	var changed int64
	err := r.list.update(ctx, "mark_all_read", func(items []*model.Notification) ([]*model.Notification, error) {
		changed = 0
		for _, n := range items {
			if n != nil && n.RecipientID == recipientID && !n.Read {
				n.Read = true
				changed++
			}
		}
		return items, nil
	})
	return changed, err
}
