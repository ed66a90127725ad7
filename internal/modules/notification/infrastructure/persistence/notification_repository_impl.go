package persistence

import (
	"context"
	"errors"
	"time"

	"Herald/internal/modules/notification/domain/entity"
	"Herald/internal/modules/notification/domain/pagination"
	"Herald/internal/modules/notification/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type notificationRepositoryImpl struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) repository.NotificationRepository {
	return &notificationRepositoryImpl{db: db}
}

func (r *notificationRepositoryImpl) Create(ctx context.Context, n *entity.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepositoryImpl) GetByID(ctx context.Context, notificationID string) (*entity.Notification, error) {
	var n entity.Notification
	err := r.db.WithContext(ctx).Where("notification_id = ?", notificationID).First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepositoryImpl) ListByRecipient(ctx context.Context, recipientID string, q repository.ListQuery) ([]*entity.Notification, *pagination.Cursor, error) {
	if q.ActorIDs != nil && len(q.ActorIDs) == 0 {
		return []*entity.Notification{}, nil, nil
	}
	limit := pagination.ClampLimit(q.Limit, pagination.DefaultLimit, pagination.MaxLimit)

	tx := r.db.WithContext(ctx).Where("recipient_user_id = ?", recipientID)
	if q.UnreadOnly {
		tx = tx.Where("read_at IS NULL")
	}
	if len(q.ActorIDs) > 0 {
		tx = tx.Where("actor_id IN ?", q.ActorIDs)
	}
	if c := q.Cursor; c != nil {
		at := c.CreatedAt.UTC()
		tx = tx.Where("(created_at < ? OR (created_at = ? AND id < ?))", at, at, c.ID)
	}

	var rows []*entity.Notification
	if err := tx.Order("created_at DESC").Order("id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.Id}
	}
	return rows, next, nil
}

func (r *notificationRepositoryImpl) MarkRead(ctx context.Context, notificationID, recipientID string, now time.Time) (*entity.Notification, error) {
	var out *entity.Notification
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		load := tx
		if tx.Dialector.Name() == "mysql" {
			load = load.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var n entity.Notification
		if err := load.Where("notification_id = ?", notificationID).First(&n).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrNotificationNotFound
			}
			return err
		}
		if n.RecipientUserId != recipientID {
			return repository.ErrNotOwner
		}
		if n.ReadAt != nil {
			out = &n
			return nil
		}

		// 条件更新：并发标记时只有一个请求真正写入 read_at
		err := tx.Model(&entity.Notification{}).
			Where("id = ? AND read_at IS NULL", n.Id).
			Updates(map[string]interface{}{
				"read_at":         now.UTC(),
				"delivery_status": entity.DeliveryRead,
			}).Error
		if err != nil {
			return err
		}

		var fresh entity.Notification
		if err := tx.Where("id = ?", n.Id).Take(&fresh).Error; err != nil {
			return err
		}
		out = &fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *notificationRepositoryImpl) MarkAllRead(ctx context.Context, recipientID string, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("recipient_user_id = ? AND read_at IS NULL", recipientID).
		Updates(map[string]interface{}{
			"read_at":         now.UTC(),
			"delivery_status": entity.DeliveryRead,
		})
	return res.RowsAffected, res.Error
}

func (r *notificationRepositoryImpl) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("recipient_user_id = ? AND read_at IS NULL", recipientID).
		Count(&n).Error
	return n, err
}

func (r *notificationRepositoryImpl) MarkDelivered(ctx context.Context, notificationID string) error {
	return r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("notification_id = ? AND delivery_status = ?", notificationID, entity.DeliveryPending).
		Update("delivery_status", entity.DeliveryDelivered).Error
}
