package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"Herald/internal/modules/notification/application/dto/request"
	"Herald/internal/modules/notification/application/dto/respond"
	"Herald/internal/modules/notification/domain/entity"
	"Herald/internal/modules/notification/domain/repository"
	"Herald/pkg/bus"
	"Herald/pkg/util"
	"Herald/pkg/xerr"
	"Herald/pkg/zlog"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	maxTitleLen   = 200
	maxMessageLen = 4000
)

// NotificationService is the producer entry point: it stores a notification
// and pushes it to the recipient's live sessions.
type NotificationService interface {
	Create(ctx context.Context, req request.CreateNotificationRequest) (*respond.NotificationItem, error)
	// NotifyComment tells recipientID that actorID commented on their article.
	NotifyComment(ctx context.Context, articleID, commentID, actorID, recipientID string) (*respond.NotificationItem, error)
	// NotifyMilestone tells recipientID that an article reached count of milestone.
	NotifyMilestone(ctx context.Context, recipientID, articleID, milestone string, count int64) (*respond.NotificationItem, error)
}

type notificationServiceImpl struct {
	repo  repository.NotificationRepository
	users repository.UserDirectory
	pub   EventPublisher
	now   func() time.Time
}

func NewNotificationService(repo repository.NotificationRepository, users repository.UserDirectory, pub EventPublisher) NotificationService {
	return &notificationServiceImpl{
		repo:  repo,
		users: users,
		pub:   pub,
		now:   time.Now,
	}
}

func (s *notificationServiceImpl) Create(ctx context.Context, req request.CreateNotificationRequest) (*respond.NotificationItem, error) {
	req.RecipientId = strings.TrimSpace(req.RecipientId)
	req.Type = strings.TrimSpace(req.Type)
	req.Title = strings.TrimSpace(req.Title)
	req.Priority = strings.TrimSpace(req.Priority)

	if req.RecipientId == "" {
		return nil, xerr.New(xerr.BadRequest, "recipient_id is required")
	}
	if req.Title == "" {
		return nil, xerr.New(xerr.BadRequest, "title is required")
	}
	if len(req.Title) > maxTitleLen || len(req.Message) > maxMessageLen {
		return nil, xerr.New(xerr.BadRequest, "title or message too long")
	}
	if !entity.IsKnownType(req.Type) {
		return nil, xerr.New(xerr.BadRequest, "unknown notification type")
	}
	if req.Priority == "" {
		req.Priority = entity.PriorityMedium
	}
	if !entity.IsKnownPriority(req.Priority) {
		return nil, xerr.New(xerr.BadRequest, "unknown priority")
	}

	payload, err := entity.DecodePayload(req.Type, req.Data)
	if err != nil {
		return nil, xerr.Wrap(xerr.BadRequest, "data does not match notification type", err)
	}
	payload = s.enrich(ctx, payload)

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, xerr.Wrap(xerr.BadRequest, "data is not serialisable", err)
	}

	n := &entity.Notification{
		NotificationId:  util.GenerateNotificationID(),
		RecipientUserId: req.RecipientId,
		Type:            req.Type,
		Title:           req.Title,
		Message:         req.Message,
		Priority:        req.Priority,
		Data:            datatypes.JSON(raw),
		DeliveryStatus:  entity.DeliveryPending,
		CreatedAt:       s.now().UTC().Truncate(time.Microsecond),
	}
	if actor := payload.Actor(); actor != "" {
		n.ActorId = &actor
	}

	if err := s.repo.Create(ctx, n); err != nil {
		zlog.Error("create notification failed", zap.String("recipient_id", n.RecipientUserId), zap.Error(err))
		return nil, xerr.Wrap(xerr.ServiceUnavailable, xerr.ErrTransientStore.Message, err)
	}

	item := toNotificationItem(n)
	reached := s.pub.Publish(n.RecipientUserId, bus.Event{
		Type:    respond.FrameNotify,
		Payload: respond.NotifyFrame{Type: respond.FrameNotify, Notification: item},
	})
	if reached > 0 {
		if err := s.repo.MarkDelivered(ctx, n.NotificationId); err != nil {
			zlog.Warn("mark delivered failed", zap.String("notification_id", n.NotificationId), zap.Error(err))
		} else {
			item.DeliveryStatus = entity.DeliveryDelivered
		}
	}

	zlog.Debug("notification created",
		zap.String("notification_id", n.NotificationId),
		zap.String("recipient_id", n.RecipientUserId),
		zap.Int("live_sessions", reached),
	)
	return &item, nil
}

// enrich fills the actor display name from the user directory. Lookup
// failures leave the payload as given.
func (s *notificationServiceImpl) enrich(ctx context.Context, p entity.Payload) entity.Payload {
	actor := p.Actor()
	if actor == "" || s.users == nil {
		return p
	}
	u, err := s.users.FindUserByID(ctx, actor)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			zlog.Warn("actor lookup failed", zap.String("actor_id", actor), zap.Error(err))
		}
		return p
	}
	if u.Name == "" {
		return p
	}
	return entity.WithActorName(p, u.Name)
}

func (s *notificationServiceImpl) NotifyComment(ctx context.Context, articleID, commentID, actorID, recipientID string) (*respond.NotificationItem, error) {
	if actorID == recipientID {
		return nil, xerr.New(xerr.BadRequest, "cannot notify a user about their own comment")
	}
	data, _ := json.Marshal(entity.EngagementPayload{
		ArticleID: articleID,
		CommentID: commentID,
		ActorID:   actorID,
	})
	return s.Create(ctx, request.CreateNotificationRequest{
		RecipientId: recipientID,
		Type:        entity.TypeEngagement,
		Title:       "New comment on your article",
		Message:     "Someone commented on your article.",
		Priority:    entity.PriorityMedium,
		Data:        data,
	})
}

func (s *notificationServiceImpl) NotifyMilestone(ctx context.Context, recipientID, articleID, milestone string, count int64) (*respond.NotificationItem, error) {
	data, _ := json.Marshal(entity.ContentMilestonePayload{
		ArticleID: articleID,
		Milestone: milestone,
		Count:     count,
	})
	return s.Create(ctx, request.CreateNotificationRequest{
		RecipientId: recipientID,
		Type:        entity.TypeContentMilestone,
		Title:       "Your article reached " + strconv.FormatInt(count, 10) + " " + milestone,
		Message:     "Keep it up!",
		Priority:    entity.PriorityLow,
		Data:        data,
	})
}
