package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/d60-Lab/food-share/internal/model"
)

const notificationTable = "notifications"

// NotificationRepository 通知事件日志，只追加，不删除
type NotificationRepository interface {
	Append(ctx context.Context, n *model.Notification) error
	Get(ctx context.Context, id string) (*model.Notification, error)
	// ListByRecipient 按发布顺序（旧的在前）
	ListByRecipient(ctx context.Context, recipientID string) ([]*model.Notification, error)
	// MarkRead 幂等，不存在返回 ErrNotFound
	MarkRead(ctx context.Context, id string) error
	// MarkAllRead 返回本次被置为已读的条数
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
}

type gormNotificationRepository struct{ db *gorm.DB }

func NewGormNotificationRepository(db *gorm.DB) NotificationRepository {
	return &gormNotificationRepository{db: db}
}

func (r *gormNotificationRepository) Append(ctx context.Context, n *model.Notification) error {
	return wrapStorage("append", notificationTable, r.db.WithContext(ctx).Create(n).Error)
}

func (r *gormNotificationRepository) Get(ctx context.Context, id string) (*model.Notification, error) {
	var n model.Notification
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapStorage("get", notificationTable, err)
	}
	return &n, nil
}

func (r *gormNotificationRepository) ListByRecipient(ctx context.Context, recipientID string) ([]*model.Notification, error) {
	var res []*model.Notification
	// ID 为 UUIDv7，同一时间戳内仍按生成顺序
	err := r.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("timestamp ASC, id ASC").
		Find(&res).Error
	if err != nil {
		return nil, wrapStorage("list", notificationTable, err)
	}
	return res, nil
}

func (r *gormNotificationRepository) MarkRead(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&model.Notification{}).Where("id = ?", id).Update("is_read", true)
	if res.Error != nil {
		return wrapStorage("mark_read", notificationTable, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// 部分驱动对值未变化的行返回 0，需再确认是否存在
	var cnt int64
	if err := r.db.WithContext(ctx).Model(&model.Notification{}).Where("id = ?", id).Count(&cnt).Error; err != nil {
		return wrapStorage("mark_read", notificationTable, err)
	}
	if cnt == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormNotificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true)
	return res.RowsAffected, wrapStorage("mark_all_read", notificationTable, res.Error)
}
