package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"Herald/internal/modules/notification/application/dto/request"
	"Herald/internal/modules/notification/application/dto/respond"
	"Herald/internal/modules/notification/domain/eligibility"
	"Herald/internal/modules/notification/domain/entity"
	"Herald/internal/modules/notification/domain/repository"
	"Herald/pkg/util"
	"Herald/pkg/xerr"
	"Herald/pkg/zlog"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	defaultAnnouncementPageSize = 20
	maxAnnouncementPageSize     = 100
	sweepBatch                  = 200
)

// AnnouncementService authors announcements and keeps their stored status in
// step with their schedule.
type AnnouncementService interface {
	Create(ctx context.Context, authorID string, req request.CreateAnnouncementRequest) (*respond.AnnouncementItem, error)
	Archive(ctx context.Context, announcementID string) (*respond.AnnouncementItem, error)
	List(ctx context.Context, req request.ListAnnouncementsRequest) (*respond.AnnouncementPage, error)
	// SweepStatuses persists SCHEDULED->ACTIVE and ->ENDED transitions due at
	// now and returns how many rows moved.
	SweepStatuses(ctx context.Context, now time.Time) (int, error)
}

type announcementServiceImpl struct {
	repo repository.AnnouncementRepository
	now  func() time.Time
}

func NewAnnouncementService(repo repository.AnnouncementRepository) AnnouncementService {
	return &announcementServiceImpl{
		repo: repo,
		now:  time.Now,
	}
}

func (s *announcementServiceImpl) Create(ctx context.Context, authorID string, req request.CreateAnnouncementRequest) (*respond.AnnouncementItem, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if authorID == "" {
		return nil, xerr.ErrUnauthenticated
	}
	if req.Title == "" {
		return nil, xerr.New(xerr.BadRequest, "title is required")
	}
	if len(req.Title) > maxTitleLen {
		return nil, xerr.New(xerr.BadRequest, "title too long")
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	start := now
	if req.StartAt != nil {
		start = req.StartAt.UTC().Truncate(time.Microsecond)
	}
	var end *time.Time
	if req.EndAt != nil {
		e := req.EndAt.UTC().Truncate(time.Microsecond)
		if !e.After(start) {
			return nil, xerr.New(xerr.BadRequest, "end_at must be after start_at")
		}
		end = &e
	}

	status := req.Status
	switch status {
	case "":
		status = entity.AnnouncementActive
		if start.After(now) {
			status = entity.AnnouncementScheduled
		}
	case entity.AnnouncementDraft, entity.AnnouncementScheduled, entity.AnnouncementActive:
	default:
		return nil, xerr.New(xerr.BadRequest, "status must be DRAFT, SCHEDULED or ACTIVE")
	}

	a := &entity.Announcement{
		AnnouncementId: util.GenerateAnnouncementID(),
		AuthorId:       authorID,
		Title:          req.Title,
		Body:           req.Body,
		Status:         status,
		IsPinned:       req.IsPinned,
		Priority:       req.Priority,
		StartAt:        start,
		EndAt:          end,
		AudienceRoles:  datatypes.JSONSlice[string](normalizeSet(req.AudienceRoles)),
		AudienceUsers:  datatypes.JSONSlice[string](normalizeSet(req.AudienceUsers)),
		CreatedAt:      now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		zlog.Error("create announcement failed", zap.String("author_id", authorID), zap.Error(err))
		return nil, xerr.Wrap(xerr.ServiceUnavailable, xerr.ErrTransientStore.Message, err)
	}

	zlog.Info("announcement created",
		zap.String("announcement_id", a.AnnouncementId),
		zap.String("status", a.Status),
	)
	item := toAnnouncementItem(a, now)
	return &item, nil
}

func (s *announcementServiceImpl) Archive(ctx context.Context, announcementID string) (*respond.AnnouncementItem, error) {
	a, err := s.repo.GetByID(ctx, announcementID)
	if err != nil {
		if errors.Is(err, repository.ErrAnnouncementNotFound) {
			return nil, xerr.ErrNotFound
		}
		return nil, xerr.Wrap(xerr.ServiceUnavailable, xerr.ErrTransientStore.Message, err)
	}
	if a.Status != entity.AnnouncementArchived {
		moved, err := s.repo.UpdateStatus(ctx, a.AnnouncementId, a.Status, entity.AnnouncementArchived)
		if err != nil {
			return nil, xerr.Wrap(xerr.ServiceUnavailable, xerr.ErrTransientStore.Message, err)
		}
		if !moved {
			// 状态被并发修改，重读后再试一次
			return s.Archive(ctx, announcementID)
		}
		a.Status = entity.AnnouncementArchived
	}
	item := toAnnouncementItem(a, s.now().UTC())
	return &item, nil
}

func (s *announcementServiceImpl) List(ctx context.Context, req request.ListAnnouncementsRequest) (*respond.AnnouncementPage, error) {
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if status != "" && !entity.IsKnownAnnouncementStatus(status) {
		return nil, xerr.New(xerr.BadRequest, "unknown status")
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = defaultAnnouncementPageSize
	}
	if size > maxAnnouncementPageSize {
		size = maxAnnouncementPageSize
	}

	rows, total, err := s.repo.List(ctx, status, (page-1)*size, size)
	if err != nil {
		zlog.Warn("list announcements failed", zap.Error(err))
		return nil, xerr.Wrap(xerr.ServiceUnavailable, xerr.ErrTransientStore.Message, err)
	}
	now := s.now().UTC()
	items := make([]respond.AnnouncementItem, 0, len(rows))
	for _, a := range rows {
		items = append(items, toAnnouncementItem(a, now))
	}
	return &respond.AnnouncementPage{Items: items, Total: total}, nil
}

func (s *announcementServiceImpl) SweepStatuses(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	moved := 0
	for {
		due, err := s.repo.ListDueTransitions(ctx, now, sweepBatch)
		if err != nil {
			return moved, err
		}
		progressed := 0
		for _, a := range due {
			next := eligibility.EffectiveStatus(a, now)
			if next == a.Status {
				continue
			}
			ok, err := s.repo.UpdateStatus(ctx, a.AnnouncementId, a.Status, next)
			if err != nil {
				return moved, err
			}
			if ok {
				progressed++
				zlog.Debug("announcement status moved",
					zap.String("announcement_id", a.AnnouncementId),
					zap.String("from", a.Status),
					zap.String("to", next),
				)
			}
		}
		moved += progressed
		if len(due) < sweepBatch || progressed == 0 {
			return moved, nil
		}
	}
}

// normalizeSet trims entries and drops blanks and duplicates, keeping order.
func normalizeSet(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
