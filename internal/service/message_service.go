package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/food-share/internal/model"
	"github.com/d60-Lab/food-share/internal/repository"
	"github.com/d60-Lab/food-share/pkg/logger"
)

// SendMessageInput 私信内容
type SendMessageInput struct {
	ReceiverID string `json:"receiverId" validate:"required"`
	Content    string `json:"content" validate:"required,max=4000"`
	DonationID string `json:"donationId"`
}

// MessageService 用户间私信，发送后给接收方推一条 message 通知
type MessageService interface {
	Send(ctx context.Context, senderID string, in SendMessageInput) (*model.Message, error)
	Conversation(ctx context.Context, userA, userB string) ([]*model.Message, error)
}

type messageService struct {
	messages  repository.MessageRepository
	users     repository.UserRepository
	donations repository.DonationRepository
	notifier  NotificationService
	now       func() time.Time
}

func NewMessageService(messages repository.MessageRepository, users repository.UserRepository, donations repository.DonationRepository, notifier NotificationService) MessageService {
	return &messageService{messages: messages, users: users, donations: donations, notifier: notifier, now: time.Now}
}

func (s *messageService) Send(ctx context.Context, senderID string, in SendMessageInput) (*model.Message, error) {
	if senderID == "" {
		return nil, ErrInvalidArgument
	}
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if in.ReceiverID == senderID {
		return nil, fmt.Errorf("%w: cannot message yourself", ErrInvalidArgument)
	}
	msg := &model.Message{
		ID:         uuid.Must(uuid.NewV7()).String(),
		SenderID:   senderID,
		ReceiverID: in.ReceiverID,
		Content:    in.Content,
		DonationID: in.DonationID,
		CreatedAt:  s.now(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	ev := &model.Notification{
		ID:              uuid.Must(uuid.NewV7()).String(),
		Kind:            model.NotificationKindMessage,
		SubjectRecordID: msg.ID,
		RecipientID:     msg.ReceiverID,
		ActorID:         senderID,
		Message:         s.describe(ctx, senderID, in.DonationID),
		Timestamp:       msg.CreatedAt,
	}
	if err := s.notifier.Publish(ctx, ev); err != nil {
		logger.Error("publish message notification failed", zap.String("message", msg.ID), zap.Error(err))
	}
	return msg, nil
}

// describe 例如: Alice sent you a message about "Fresh Vegetables"
func (s *messageService) describe(ctx context.Context, senderID, donationID string) string {
	sender := senderID
	if s.users != nil {
		if u, err := s.users.Get(ctx, senderID); err == nil && u.Name != "" {
			sender = u.Name
		}
	}
	if donationID != "" && s.donations != nil {
		if d, err := s.donations.Get(ctx, donationID); err == nil {
			return fmt.Sprintf("%s sent you a message about %q", sender, d.Name)
		}
	}
	return fmt.Sprintf("%s sent you a message", sender)
}

// Conversation 双方往来消息，按时间正序
func (s *messageService) Conversation(ctx context.Context, userA, userB string) ([]*model.Message, error) {
	if userA == "" || userB == "" {
		return nil, ErrInvalidArgument
	}
	return s.messages.Conversation(ctx, userA, userB)
}
