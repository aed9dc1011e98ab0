package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/d60-Lab/food-share/internal/fanout"
	"github.com/d60-Lab/food-share/internal/model"
	"github.com/d60-Lab/food-share/internal/repository"
	"github.com/d60-Lab/food-share/pkg/logger"
)

// NotificationService 通知事件日志 + 订阅投递
type NotificationService interface {
	// Publish 先写日志，再交给总线异步投递
	Publish(ctx context.Context, ev *model.Notification) error
	// Deliver 只投递不写日志，用于已随状态迁移落库的事件
	Deliver(ctx context.Context, ev *model.Notification) error
	Subscribe(ctx context.Context, userID string, h fanout.Handler) (cancel func(), err error)
	MarkRead(ctx context.Context, eventID string) error
	// MarkReadAs 只有事件接收人可以标记已读
	MarkReadAs(ctx context.Context, userID, eventID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	// ListFor 最新的在前
	ListFor(ctx context.Context, userID string) ([]*model.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
}

type notificationService struct {
	log repository.NotificationRepository
	bus fanout.Bus
}

func NewNotificationService(log repository.NotificationRepository, bus fanout.Bus) NotificationService {
	return &notificationService{log: log, bus: bus}
}

func (s *notificationService) Publish(ctx context.Context, ev *model.Notification) error {
	if ev == nil || ev.ID == "" || ev.RecipientID == "" {
		return ErrInvalidArgument
	}
	if err := s.log.Append(ctx, ev); err != nil {
		return err
	}
	// 日志是权威数据，投递失败订阅方可通过 ListFor 补齐
	if err := s.Deliver(ctx, ev); err != nil {
		logger.Warn("notification delivery failed",
			zap.String("id", ev.ID), zap.String("recipient", ev.RecipientID), zap.Error(err))
	}
	return nil
}

func (s *notificationService) Deliver(ctx context.Context, ev *model.Notification) error {
	if ev == nil || ev.ID == "" || ev.RecipientID == "" {
		return ErrInvalidArgument
	}
	return s.bus.Publish(ctx, ev)
}

func (s *notificationService) Subscribe(ctx context.Context, userID string, h fanout.Handler) (func(), error) {
	if userID == "" || h == nil {
		return nil, ErrInvalidArgument
	}
	return s.bus.Subscribe(ctx, userID, h)
}

func (s *notificationService) MarkRead(ctx context.Context, eventID string) error {
	if eventID == "" {
		return ErrInvalidArgument
	}
	return s.log.MarkRead(ctx, eventID)
}

func (s *notificationService) MarkReadAs(ctx context.Context, userID, eventID string) error {
	if userID == "" || eventID == "" {
		return ErrInvalidArgument
	}
	ev, err := s.log.Get(ctx, eventID)
	if err != nil {
		return err
	}
	if ev.RecipientID != userID {
		return ErrForbidden
	}
	return s.log.MarkRead(ctx, eventID)
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, ErrInvalidArgument
	}
	return s.log.MarkAllRead(ctx, userID)
}

func (s *notificationService) ListFor(ctx context.Context, userID string) ([]*model.Notification, error) {
	items, err := s.log.ListByRecipient(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	return items, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	items, err := s.log.ListByRecipient(ctx, userID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, it := range items {
		if !it.Read {
			n++
		}
	}
	return n, nil
}
