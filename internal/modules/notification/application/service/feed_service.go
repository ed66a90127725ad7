package service

import (
	"context"
	"time"

	"Herald/internal/modules/notification/application/dto/request"
	"Herald/internal/modules/notification/application/dto/respond"
	"Herald/internal/modules/notification/domain/eligibility"
	"Herald/internal/modules/notification/domain/entity"
	"Herald/internal/modules/notification/domain/pagination"
	"Herald/internal/modules/notification/domain/repository"
	"Herald/pkg/xerr"
	"Herald/pkg/zlog"

	"go.uber.org/zap"
)

// timelineBatch is how many candidates one timeline round trip reads.
const timelineBatch = 200

// FeedOptions tunes the read paths.
type FeedOptions struct {
	DefaultLimit     int
	MaxLimit         int
	TimelinePageSize int
	TimelineWindow   eligibility.TimelineWindow
}

func (o FeedOptions) withDefaults() FeedOptions {
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = pagination.DefaultLimit
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = pagination.MaxLimit
	}
	if o.TimelinePageSize <= 0 {
		o.TimelinePageSize = 10
	}
	if o.TimelineWindow.LookAhead <= 0 {
		o.TimelineWindow.LookAhead = eligibility.DefaultTimelineWindow.LookAhead
	}
	if o.TimelineWindow.Recent <= 0 {
		o.TimelineWindow.Recent = eligibility.DefaultTimelineWindow.Recent
	}
	return o
}

// FeedService serves the notification feeds and the announcement timeline.
// A store outage yields an empty page marked retryable instead of an error.
type FeedService interface {
	GetFeed(ctx context.Context, recipientID string, req request.FeedRequest) (*respond.FeedPage, error)
	GetPersonFollowFeed(ctx context.Context, viewer eligibility.Viewer, req request.FeedRequest) (*respond.FeedPage, error)
	// GetTimeline evaluates schedules and audiences at now.
	GetTimeline(ctx context.Context, viewer eligibility.Viewer, now time.Time) (*respond.TimelineRespond, error)
	UnreadCount(ctx context.Context, recipientID string) (int64, error)
}

type feedServiceImpl struct {
	notifications repository.NotificationRepository
	announcements repository.AnnouncementRepository
	follows       repository.FollowStore
	opts          FeedOptions
}

func NewFeedService(notifications repository.NotificationRepository, announcements repository.AnnouncementRepository, follows repository.FollowStore, opts FeedOptions) FeedService {
	return &feedServiceImpl{
		notifications: notifications,
		announcements: announcements,
		follows:       follows,
		opts:          opts.withDefaults(),
	}
}

func retryablePage() *respond.FeedPage {
	return &respond.FeedPage{Items: []respond.NotificationItem{}, Retryable: true}
}

func (s *feedServiceImpl) listQuery(req request.FeedRequest) (repository.ListQuery, error) {
	cursor, err := pagination.Decode(req.Cursor)
	if err != nil {
		return repository.ListQuery{}, xerr.New(xerr.BadRequest, "invalid cursor")
	}
	return repository.ListQuery{
		Cursor:     cursor,
		Limit:      pagination.ClampLimit(req.Limit, s.opts.DefaultLimit, s.opts.MaxLimit),
		UnreadOnly: req.UnreadOnly,
	}, nil
}

func (s *feedServiceImpl) page(ctx context.Context, recipientID string, q repository.ListQuery) *respond.FeedPage {
	rows, next, err := s.notifications.ListByRecipient(ctx, recipientID, q)
	if err != nil {
		zlog.Warn("list notifications failed", zap.String("recipient_id", recipientID), zap.Error(err))
		return retryablePage()
	}
	unread, err := s.notifications.CountUnread(ctx, recipientID)
	if err != nil {
		zlog.Warn("count unread failed", zap.String("recipient_id", recipientID), zap.Error(err))
		return retryablePage()
	}

	out := &respond.FeedPage{
		Items:       toNotificationItems(rows),
		UnreadCount: unread,
	}
	if next != nil {
		c := next.Encode()
		out.NextCursor = &c
	}
	return out
}

func (s *feedServiceImpl) GetFeed(ctx context.Context, recipientID string, req request.FeedRequest) (*respond.FeedPage, error) {
	if recipientID == "" {
		return nil, xerr.ErrUnauthenticated
	}
	q, err := s.listQuery(req)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, recipientID, q), nil
}

func (s *feedServiceImpl) GetPersonFollowFeed(ctx context.Context, viewer eligibility.Viewer, req request.FeedRequest) (*respond.FeedPage, error) {
	if viewer.ID == "" {
		return nil, xerr.ErrUnauthenticated
	}
	q, err := s.listQuery(req)
	if err != nil {
		return nil, err
	}

	followed, err := s.follows.ListFollowedPersonIDs(ctx, viewer.ID)
	if err != nil {
		zlog.Warn("list follows failed", zap.String("user_id", viewer.ID), zap.Error(err))
		return retryablePage(), nil
	}
	if len(followed) == 0 {
		return &respond.FeedPage{Items: []respond.NotificationItem{}}, nil
	}
	q.ActorIDs = followed
	return s.page(ctx, viewer.ID, q), nil
}

func (s *feedServiceImpl) GetTimeline(ctx context.Context, viewer eligibility.Viewer, now time.Time) (*respond.TimelineRespond, error) {
	now = now.UTC()
	size := s.opts.TimelinePageSize
	q := repository.TimelineQuery{
		Now:       now,
		LookAhead: s.opts.TimelineWindow.LookAhead,
		Recent:    s.opts.TimelineWindow.Recent,
		Limit:     timelineBatch,
	}

	// 按时间线顺序分批读取，受众过滤后凑满一页为止
	picked := make([]*entity.Announcement, 0, size)
	for len(picked) < size {
		batch, err := s.announcements.ListTimelineCandidates(ctx, q)
		if err != nil {
			zlog.Warn("list timeline candidates failed", zap.String("user_id", viewer.ID), zap.Error(err))
			return &respond.TimelineRespond{Items: []respond.AnnouncementItem{}, Retryable: true}, nil
		}
		picked = append(picked, eligibility.Timeline(viewer, batch, now, s.opts.TimelineWindow, 0)...)
		if len(batch) < q.Limit {
			break
		}
		q.After = repository.TimelineKeyOf(batch[len(batch)-1])
	}
	if len(picked) > size {
		picked = picked[:size]
	}

	items := make([]respond.AnnouncementItem, 0, len(picked))
	for _, a := range picked {
		items = append(items, toAnnouncementItem(a, now))
	}
	return &respond.TimelineRespond{Items: items}, nil
}

func (s *feedServiceImpl) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	if recipientID == "" {
		return 0, xerr.ErrUnauthenticated
	}
	n, err := s.notifications.CountUnread(ctx, recipientID)
	if err != nil {
		zlog.Warn("count unread failed", zap.String("recipient_id", recipientID), zap.Error(err))
		return 0, xerr.Wrap(xerr.ServiceUnavailable, xerr.ErrTransientStore.Message, err)
	}
	return n, nil
}
