package persistence

import (
	"context"
	"errors"
	"time"

	"Herald/internal/modules/notification/domain/entity"
	"Herald/internal/modules/notification/domain/repository"

	"gorm.io/gorm"
)

const defaultTimelineBatch = 200

type announcementRepositoryImpl struct {
	db *gorm.DB
}

func NewAnnouncementRepository(db *gorm.DB) repository.AnnouncementRepository {
	return &announcementRepositoryImpl{db: db}
}

func (r *announcementRepositoryImpl) Create(ctx context.Context, a *entity.Announcement) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *announcementRepositoryImpl) GetByID(ctx context.Context, announcementID string) (*entity.Announcement, error) {
	var a entity.Announcement
	if err := r.db.WithContext(ctx).Where("announcement_id = ?", announcementID).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrAnnouncementNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *announcementRepositoryImpl) ListTimelineCandidates(ctx context.Context, q repository.TimelineQuery) ([]*entity.Announcement, error) {
	now := q.Now.UTC()
	limit := q.Limit
	if limit <= 0 {
		limit = defaultTimelineBatch
	}

	// 与 eligibility.InTimeline 对应：置顶、近期激活、即将开始或仍在有效期内
	tx := r.db.WithContext(ctx).
		Where("status IN ?", []string{entity.AnnouncementScheduled, entity.AnnouncementActive}).
		Where("(is_pinned = ?"+
			" OR (status = ? AND start_at >= ?)"+
			" OR (status = ? AND start_at <= ? AND (end_at IS NULL OR end_at >= ?))"+
			" OR (status = ? AND start_at <= ? AND (end_at IS NULL OR end_at >= ?)))",
			true,
			entity.AnnouncementActive, now.Add(-q.Recent),
			entity.AnnouncementScheduled, now.Add(q.LookAhead), now,
			entity.AnnouncementActive, now, now)

	if k := q.After; k != nil {
		start, created := k.StartAt.UTC(), k.CreatedAt.UTC()
		keyset := "(priority < ?" +
			" OR (priority = ? AND start_at < ?)" +
			" OR (priority = ? AND start_at = ? AND created_at < ?)" +
			" OR (priority = ? AND start_at = ? AND created_at = ? AND announcement_id < ?))"
		args := []interface{}{
			k.Priority,
			k.Priority, start,
			k.Priority, start, created,
			k.Priority, start, created, k.AnnouncementID,
		}
		if k.IsPinned {
			tx = tx.Where("(is_pinned = ? OR (is_pinned = ? AND "+keyset+"))", append([]interface{}{false, true}, args...)...)
		} else {
			tx = tx.Where("(is_pinned = ? AND "+keyset+")", append([]interface{}{false}, args...)...)
		}
	}

	var rows []*entity.Announcement
	err := tx.
		Order("is_pinned DESC").
		Order("priority DESC").
		Order("start_at DESC").
		Order("created_at DESC").
		Order("announcement_id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *announcementRepositoryImpl) List(ctx context.Context, status string, offset, limit int) ([]*entity.Announcement, int64, error) {
	scoped := func() *gorm.DB {
		tx := r.db.WithContext(ctx).Model(&entity.Announcement{})
		if status != "" {
			tx = tx.Where("status = ?", status)
		}
		return tx
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*entity.Announcement
	err := scoped().Order("created_at DESC").Order("id DESC").Offset(offset).Limit(limit).Find(&rows).Error
	return rows, total, err
}

func (r *announcementRepositoryImpl) UpdateStatus(ctx context.Context, announcementID, from, to string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Announcement{}).
		Where("announcement_id = ? AND status = ?", announcementID, from).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

func (r *announcementRepositoryImpl) ListDueTransitions(ctx context.Context, now time.Time, limit int) ([]*entity.Announcement, error) {
	at := now.UTC()
	var rows []*entity.Announcement
	err := r.db.WithContext(ctx).
		Where("(status = ? AND start_at <= ?) OR (status IN ? AND end_at IS NOT NULL AND end_at < ?)",
			entity.AnnouncementScheduled, at,
			[]string{entity.AnnouncementScheduled, entity.AnnouncementActive}, at).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
