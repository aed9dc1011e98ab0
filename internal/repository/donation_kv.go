package repository

import (
	"context"
	"encoding/json"

	"github.com/d60-Lab/food-share/internal/kvstore"
	"github.com/d60-Lab/food-share/internal/model"
)

// KVDonationRepository 把全部捐赠记录存成 donations 键下的一个 JSON 数组
// 状态迁移事件与记录用 UpdateMany 一起写入 notifications 键
type KVDonationRepository struct {
	list   jsonList[*model.Donation]
	events jsonList[*model.Notification]
	store  kvstore.Store
}

func NewKVDonationRepository(store kvstore.Store) *KVDonationRepository {
	return &KVDonationRepository{
		list:   jsonList[*model.Donation]{store: store, key: KeyDonations},
		events: jsonList[*model.Notification]{store: store, key: KeyNotifications},
		store:  store,
	}
}

func (r *KVDonationRepository) Get(ctx context.Context, id string) (*model.Donation, error) {
	for _, d := range r.list.read(ctx, "get") {
		if d != nil && d.ID == id {
			return d, nil
		}
	}
	return nil, ErrNotFound
}

func (r *KVDonationRepository) Upsert(ctx context.Context, d *model.Donation) error {
	if err := d.Validate(); err != nil {
		return err
	}
	var stored *model.Donation
	err := r.list.update(ctx, "upsert", func(items []*model.Donation) ([]*model.Donation, error) {
		stored = d.Clone()
		for i, cur := range items {
			if cur != nil && cur.ID == d.ID {
				stored.Version = cur.Version + 1
				stored.CreatedAt = cur.CreatedAt
				items[i] = stored
				return items, nil
			}
		}
		stored.Version = 1
		return append(items, stored), nil
	})
	if err != nil {
		return err
	}
	d.Version = stored.Version
	d.CreatedAt = stored.CreatedAt
	return nil
}

func (r *KVDonationRepository) List(ctx context.Context) ([]*model.Donation, error) {
	items := r.list.read(ctx, "list")
	res := make([]*model.Donation, 0, len(items))
	for _, d := range items {
		if d != nil {
			res = append(res, d)
		}
	}
	sortDonations(res)
	return res, nil
}

func (r *KVDonationRepository) CompareAndSwap(ctx context.Context, next *model.Donation, expectedVersion int64) error {
	if err := next.Validate(); err != nil {
		return err
	}
	err := r.list.update(ctx, "cas", func(items []*model.Donation) ([]*model.Donation, error) {
		return swapDonation(items, next, expectedVersion)
	})
	if err != nil {
		return err
	}
	next.Version = expectedVersion + 1
	return nil
}

// CommitTransition donations 与 notifications 两个键在一次 UpdateMany 内写回
func (r *KVDonationRepository) CommitTransition(ctx context.Context, next *model.Donation, expectedVersion int64, ev *model.Notification) error {
	if ev == nil {
		return r.CompareAndSwap(ctx, next, expectedVersion)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	keys := []string{r.list.key, r.events.key}
	err := r.store.UpdateMany(ctx, keys, func(cur [][]byte) ([][]byte, error) {
		items, err := r.list.decode("commit", cur[0])
		if err != nil {
			return nil, err
		}
		if items, err = swapDonation(items, next, expectedVersion); err != nil {
			return nil, err
		}
		events, err := r.events.decode("commit", cur[1])
		if err != nil {
			return nil, err
		}
		events = append(events, ev.Clone())

		rawItems, err := json.Marshal(items)
		if err != nil {
			return nil, err
		}
		rawEvents, err := json.Marshal(events)
		if err != nil {
			return nil, err
		}
		return [][]byte{rawItems, rawEvents}, nil
	})
	if err != nil {
		return wrapStorage("commit", KeyDonations, err)
	}
	next.Version = expectedVersion + 1
	return nil
}

func swapDonation(items []*model.Donation, next *model.Donation, expectedVersion int64) ([]*model.Donation, error) {
	for i, cur := range items {
		if cur == nil || cur.ID != next.ID {
			continue
		}
		if cur.Version != expectedVersion {
			return nil, ErrVersionConflict
		}
		row := next.Clone()
		row.CreatedAt = cur.CreatedAt
		row.DonorID = cur.DonorID
		row.Version = expectedVersion + 1
		items[i] = row
		return items, nil
	}
	return nil, ErrNotFound
}

func (r *KVDonationRepository) Close() error { return r.store.Close() }
