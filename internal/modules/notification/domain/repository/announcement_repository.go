package repository

import (
	"context"
	"errors"
	"time"

	"Herald/internal/modules/notification/domain/entity"
)

var ErrAnnouncementNotFound = errors.New("announcement not found")

// TimelineQuery selects a batch of timeline candidates at Now.
type TimelineQuery struct {
	Now       time.Time
	LookAhead time.Duration
	Recent    time.Duration
	// After resumes from the last row of the previous batch.
	After *TimelineKey
	Limit int
}

// TimelineKey is the position of a row in timeline order: pinned, priority,
// startAt, createdAt and announcement id, all descending.
type TimelineKey struct {
	IsPinned       bool
	Priority       int
	StartAt        time.Time
	CreatedAt      time.Time
	AnnouncementID string
}

func TimelineKeyOf(a *entity.Announcement) *TimelineKey {
	return &TimelineKey{
		IsPinned:       a.IsPinned,
		Priority:       a.Priority,
		StartAt:        a.StartAt,
		CreatedAt:      a.CreatedAt,
		AnnouncementID: a.AnnouncementId,
	}
}

type AnnouncementRepository interface {
	Create(ctx context.Context, a *entity.Announcement) error
	GetByID(ctx context.Context, announcementID string) (*entity.Announcement, error)
	// ListTimelineCandidates returns one batch of SCHEDULED and ACTIVE
	// announcements that may fall inside the timeline window, in timeline
	// order and after q.After. Audience checks happen in memory.
	ListTimelineCandidates(ctx context.Context, q TimelineQuery) ([]*entity.Announcement, error)
	// List returns announcements newest first, optionally by status.
	List(ctx context.Context, status string, offset, limit int) ([]*entity.Announcement, int64, error)
	// UpdateStatus moves id from one status to another and reports whether it did.
	UpdateStatus(ctx context.Context, announcementID, from, to string) (bool, error)
	// ListDueTransitions returns SCHEDULED/ACTIVE rows whose schedule says they
	// should have moved by now.
	ListDueTransitions(ctx context.Context, now time.Time, limit int) ([]*entity.Announcement, error)
}
