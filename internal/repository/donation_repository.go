package repository

import (
	"context"
	"sort"

	"github.com/d60-Lab/food-share/internal/model"
)

// DonationRepository 捐赠记录存储，唯一数据源
type DonationRepository interface {
	// Get 按 ID 查询，不存在返回 ErrNotFound
	Get(ctx context.Context, id string) (*model.Donation, error)

	// Upsert 插入或覆盖，版本号递增
	Upsert(ctx context.Context, d *model.Donation) error

	// List 全量快照，按 created_at 倒序
	List(ctx context.Context) ([]*model.Donation, error)

	// CompareAndSwap 仅当存储版本等于 expectedVersion 时写入 next，
	// 成功后 next.Version = expectedVersion+1
	CompareAndSwap(ctx context.Context, next *model.Donation, expectedVersion int64) error

	// CommitTransition 与 CompareAndSwap 相同的条件写入，ev 非空时与通知事件在同一次提交内落库，
	// 任一步失败两者都不生效
	CommitTransition(ctx context.Context, next *model.Donation, expectedVersion int64, ev *model.Notification) error

	// Close 释放底层连接
	Close() error
}

// sortDonations 展示顺序：新的在前，同一时刻按 ID
func sortDonations(ds []*model.Donation) {
	sort.SliceStable(ds, func(i, j int) bool {
		if !ds[i].CreatedAt.Equal(ds[j].CreatedAt) {
			return ds[i].CreatedAt.After(ds[j].CreatedAt)
		}
		return ds[i].ID < ds[j].ID
	})
}
