package repository

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/d60-Lab/food-share/internal/model"
)

// ShardCount 内存仓储的分段锁数量
const ShardCount = 8

type donationShard struct {
	mu    sync.RWMutex
	items map[string]*model.Donation
}

// ShardedDonationRepository 内存捐赠仓储，按 ID 哈希分段加锁，
// 同一记录的 CAS 串行，不同分段互不阻塞
type ShardedDonationRepository struct {
	shards [ShardCount]*donationShard
	events NotificationRepository
}

// NewShardedDonationRepository 创建内存捐赠仓储
func NewShardedDonationRepository() *ShardedDonationRepository {
	r := &ShardedDonationRepository{}
	for i := range r.shards {
		r.shards[i] = &donationShard{items: make(map[string]*model.Donation)}
	}
	return r
}

// WithEventLog 设置状态迁移事件写入的日志，追加在分段写锁内完成
func (r *ShardedDonationRepository) WithEventLog(log NotificationRepository) *ShardedDonationRepository {
	r.events = log
	return r
}

// RouteByID 根据记录ID路由到分段
func RouteByID(id string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32() % ShardCount)
}

func (r *ShardedDonationRepository) shard(id string) *donationShard {
	return r.shards[RouteByID(id)]
}

// Get 精确路由到分段
func (r *ShardedDonationRepository) Get(_ context.Context, id string) (*model.Donation, error) {
	s := r.shard(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d.Clone(), nil
}

// Upsert 覆盖写，版本递增，已有记录保留 created_at
func (r *ShardedDonationRepository) Upsert(_ context.Context, d *model.Donation) error {
	if err := d.Validate(); err != nil {
		return err
	}
	s := r.shard(d.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	row := d.Clone()
	row.Version = 1
	if old, ok := s.items[d.ID]; ok {
		row.Version = old.Version + 1
		row.CreatedAt = old.CreatedAt
		d.CreatedAt = old.CreatedAt
	}
	s.items[d.ID] = row
	d.Version = row.Version
	return nil
}

// List 逐个分段拷贝后合并排序
func (r *ShardedDonationRepository) List(_ context.Context) ([]*model.Donation, error) {
	var all []*model.Donation
	for _, s := range r.shards {
		s.mu.RLock()
		for _, d := range s.items {
			all = append(all, d.Clone())
		}
		s.mu.RUnlock()
	}
	sortDonations(all)
	return all, nil
}

// CompareAndSwap 分段写锁内比较版本
func (r *ShardedDonationRepository) CompareAndSwap(ctx context.Context, next *model.Donation, expectedVersion int64) error {
	return r.CommitTransition(ctx, next, expectedVersion, nil)
}

// CommitTransition 版本校验通过后先追加事件，追加失败不写入记录
func (r *ShardedDonationRepository) CommitTransition(ctx context.Context, next *model.Donation, expectedVersion int64, ev *model.Notification) error {
	if err := next.Validate(); err != nil {
		return err
	}
	s := r.shard(next.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[next.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != expectedVersion {
		return ErrVersionConflict
	}
	if ev != nil {
		if r.events == nil {
			return &StorageError{Op: "commit", Key: KeyNotifications, Err: errNoEventLog}
		}
		if err := r.events.Append(ctx, ev); err != nil {
			return wrapStorage("commit", KeyNotifications, err)
		}
	}
	row := next.Clone()
	row.CreatedAt = cur.CreatedAt
	row.DonorID = cur.DonorID
	row.Version = expectedVersion + 1
	s.items[next.ID] = row
	next.Version = row.Version
	return nil
}

func (r *ShardedDonationRepository) Close() error { return nil }
