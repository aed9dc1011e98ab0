package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/d60-Lab/food-share/internal/model"
	"github.com/d60-Lab/food-share/internal/repository"
	"github.com/d60-Lab/food-share/pkg/logger"
)

var tracer = otel.Tracer("github.com/d60-Lab/food-share/internal/service")

// ClaimService 认领/取消认领工作流
type ClaimService interface {
	Claim(ctx context.Context, donationID, claimantID string) (*model.Donation, error)
	Cancel(ctx context.Context, donationID, actorID string) (*model.Donation, error)
}

type claimService struct {
	donations repository.DonationRepository
	users     repository.UserRepository
	notifier  NotificationService
	now       func() time.Time
}

// NewClaimService users 可为 nil，此时不回填认领人名称
func NewClaimService(donations repository.DonationRepository, users repository.UserRepository, notifier NotificationService) ClaimService {
	return &claimService{donations: donations, users: users, notifier: notifier, now: time.Now}
}

// Claim available -> claimed。并发认领只有一个 CAS 成功，失败方得到 ErrConflict，不重试
func (s *claimService) Claim(ctx context.Context, donationID, claimantID string) (*model.Donation, error) {
	ctx, span := tracer.Start(ctx, "ClaimService.Claim", trace.WithAttributes(
		attribute.String("donation.id", donationID),
		attribute.String("claimant.id", claimantID),
	))
	defer span.End()

	d, err := s.claim(ctx, donationID, claimantID)
	if err != nil {
		recordErr(span, err)
		return nil, err
	}
	return d, nil
}

func (s *claimService) claim(ctx context.Context, donationID, claimantID string) (*model.Donation, error) {
	if donationID == "" || claimantID == "" {
		return nil, ErrInvalidArgument
	}
	cur, err := s.donations.Get(ctx, donationID)
	if err != nil {
		return nil, err
	}
	if cur.Status != model.DonationStatusAvailable {
		return nil, fmt.Errorf("%w: donation %s is %s", ErrConflict, donationID, cur.Status)
	}

	next := cur.Clone()
	next.Status = model.DonationStatusClaimed
	next.ClaimantID = &claimantID
	next.ClaimantName = s.lookupName(ctx, claimantID)
	next.UpdatedAt = s.now()
	ev := s.event(next, model.NotificationKindClaim, claimantID,
		fmt.Sprintf("%s has claimed %s", displayName(next.ClaimantName, claimantID), next.Name))
	if err := s.commit(ctx, next, cur.Version, ev); err != nil {
		return nil, err
	}
	s.deliver(ctx, ev)
	return next, nil
}

// Cancel claimed -> available，只有当前认领人可以取消
func (s *claimService) Cancel(ctx context.Context, donationID, actorID string) (*model.Donation, error) {
	ctx, span := tracer.Start(ctx, "ClaimService.Cancel", trace.WithAttributes(
		attribute.String("donation.id", donationID),
		attribute.String("actor.id", actorID),
	))
	defer span.End()

	if donationID == "" || actorID == "" {
		recordErr(span, ErrInvalidArgument)
		return nil, ErrInvalidArgument
	}
	cur, err := s.donations.Get(ctx, donationID)
	if err != nil {
		recordErr(span, err)
		return nil, err
	}
	if cur.Status != model.DonationStatusClaimed || cur.ClaimedBy() != actorID {
		recordErr(span, ErrForbidden)
		return nil, ErrForbidden
	}

	next := cur.Clone()
	next.Status = model.DonationStatusAvailable
	next.ClaimantID = nil
	next.ClaimantName = nil
	next.UpdatedAt = s.now()
	ev := s.event(next, model.NotificationKindCancel, actorID,
		fmt.Sprintf("%s cancelled the claim on %s", displayName(cur.ClaimantName, actorID), next.Name))
	if err := s.commit(ctx, next, cur.Version, ev); err != nil {
		recordErr(span, err)
		return nil, err
	}
	s.deliver(ctx, ev)
	return next, nil
}

// commit 状态迁移与通知事件一起提交，事件写入失败则迁移不生效
func (s *claimService) commit(ctx context.Context, next *model.Donation, expected int64, ev *model.Notification) error {
	err := s.donations.CommitTransition(ctx, next, expected, ev)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrVersionConflict):
		return fmt.Errorf("%w: donation %s changed concurrently", ErrConflict, next.ID)
	default:
		return err
	}
}

func (s *claimService) event(d *model.Donation, kind model.NotificationKind, actorID, text string) *model.Notification {
	return &model.Notification{
		ID:              uuid.Must(uuid.NewV7()).String(),
		Kind:            kind,
		SubjectRecordID: d.ID,
		RecipientID:     d.DonorID,
		ActorID:         actorID,
		Message:         text,
		Timestamp:       s.now(),
	}
}

// deliver 提交后的在线投递，失败只记录
func (s *claimService) deliver(ctx context.Context, ev *model.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Deliver(ctx, ev); err != nil {
		logger.Error("deliver notification failed",
			zap.String("donation", ev.SubjectRecordID), zap.String("kind", string(ev.Kind)), zap.Error(err))
	}
}

func (s *claimService) lookupName(ctx context.Context, userID string) *string {
	if s.users == nil {
		return nil
	}
	u, err := s.users.Get(ctx, userID)
	if err != nil || u.Name == "" {
		return nil
	}
	name := u.Name
	return &name
}

func displayName(name *string, fallback string) string {
	if name != nil && *name != "" {
		return *name
	}
	return fallback
}

func recordErr(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
