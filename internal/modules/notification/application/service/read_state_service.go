package service

import (
	"context"
	"errors"
	"time"

	"Herald/internal/modules/notification/application/dto/respond"
	"Herald/internal/modules/notification/domain/repository"
	"Herald/pkg/bus"
	"Herald/pkg/xerr"
	"Herald/pkg/zlog"

	"go.uber.org/zap"
)

// ReadStateService flips notifications to read on behalf of their owner and
// tells the owner's other sessions about the new unread count.
type ReadStateService interface {
	MarkOneRead(ctx context.Context, notificationID, userID string) (*respond.NotificationItem, error)
	MarkAllRead(ctx context.Context, userID string) (*respond.MarkAllReadRespond, error)
}

type readStateServiceImpl struct {
	repo repository.NotificationRepository
	pub  EventPublisher
	now  func() time.Time
}

func NewReadStateService(repo repository.NotificationRepository, pub EventPublisher) ReadStateService {
	return &readStateServiceImpl{
		repo: repo,
		pub:  pub,
		now:  time.Now,
	}
}

func (s *readStateServiceImpl) MarkOneRead(ctx context.Context, notificationID, userID string) (*respond.NotificationItem, error) {
	if userID == "" {
		return nil, xerr.ErrUnauthenticated
	}
	if notificationID == "" {
		return nil, xerr.New(xerr.BadRequest, "notification id is required")
	}

	n, err := s.repo.MarkRead(ctx, notificationID, userID, s.now().UTC().Truncate(time.Microsecond))
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotificationNotFound):
		return nil, xerr.ErrNotFound
	case errors.Is(err, repository.ErrNotOwner):
		// 不暴露通知的归属
		zlog.Warn("mark read denied", zap.String("notification_id", notificationID), zap.String("user_id", userID))
		return nil, xerr.ErrForbidden
	default:
		zlog.Error("mark read failed", zap.String("notification_id", notificationID), zap.Error(err))
		return nil, xerr.Wrap(xerr.ServiceUnavailable, xerr.ErrTransientStore.Message, err)
	}

	item := toNotificationItem(n)
	s.broadcast(ctx, userID, item.Id)
	return &item, nil
}

func (s *readStateServiceImpl) MarkAllRead(ctx context.Context, userID string) (*respond.MarkAllReadRespond, error) {
	if userID == "" {
		return nil, xerr.ErrUnauthenticated
	}

	updated, err := s.repo.MarkAllRead(ctx, userID, s.now().UTC().Truncate(time.Microsecond))
	if err != nil {
		zlog.Error("mark all read failed", zap.String("user_id", userID), zap.Error(err))
		return nil, xerr.Wrap(xerr.ServiceUnavailable, xerr.ErrTransientStore.Message, err)
	}

	unread := s.broadcast(ctx, userID, "")
	return &respond.MarkAllReadRespond{Updated: updated, UnreadCount: unread}, nil
}

// broadcast pushes the fresh unread count to userID's sessions. The write has
// already succeeded, so a failed count only skips the frame.
func (s *readStateServiceImpl) broadcast(ctx context.Context, userID, notificationID string) int64 {
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		zlog.Warn("count unread after read failed", zap.String("user_id", userID), zap.Error(err))
		return 0
	}
	s.pub.Publish(userID, bus.Event{
		Type: respond.FrameReadState,
		Payload: respond.ReadStateFrame{
			Type:           respond.FrameReadState,
			NotificationId: notificationID,
			UnreadCount:    unread,
		},
	})
	return unread
}
