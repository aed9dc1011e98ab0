package repository

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"github.com/d60-Lab/food-share/internal/kvstore"
	"github.com/d60-Lab/food-share/internal/model"
)

const messageTable = "messages"

type MessageRepository interface {
	Create(ctx context.Context, m *model.Message) error
	// Conversation 两个用户之间双向的消息，按时间正序
	Conversation(ctx context.Context, userA, userB string) ([]*model.Message, error)
}

type gormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) MessageRepository { return &gormMessageRepository{db: db} }

func (r *gormMessageRepository) Create(ctx context.Context, m *model.Message) error {
	return wrapStorage("create", messageTable, r.db.WithContext(ctx).Create(m).Error)
}

func (r *gormMessageRepository) Conversation(ctx context.Context, userA, userB string) ([]*model.Message, error) {
	var res []*model.Message
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", userA, userB, userB, userA).
		Order("created_at ASC, id ASC").
		Find(&res).Error
	if err != nil {
		return nil, wrapStorage("conversation", messageTable, err)
	}
	return res, nil
}

type kvMessageRepository struct {
	list jsonList[*model.Message]
}

// NewKVMessageRepository messages 键下的 JSON 数组
func NewKVMessageRepository(store kvstore.Store) MessageRepository {
	return &kvMessageRepository{list: jsonList[*model.Message]{store: store, key: KeyMessages}}
}

func (r *kvMessageRepository) Create(ctx context.Context, m *model.Message) error {
	return r.list.update(ctx, "create", func(items []*model.Message) ([]*model.Message, error) {
		cp := *m
		return append(items, &cp), nil
	})
}

func (r *kvMessageRepository) Conversation(ctx context.Context, userA, userB string) ([]*model.Message, error) {
	var res []*model.Message
	for _, m := range r.list.read(ctx, "conversation") {
		if m == nil {
			continue
		}
		if (m.SenderID == userA && m.ReceiverID == userB) || (m.SenderID == userB && m.ReceiverID == userA) {
			res = append(res, m)
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}
