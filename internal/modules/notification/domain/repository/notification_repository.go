package repository

import (
	"context"
	"errors"
	"time"

	"Herald/internal/modules/notification/domain/entity"
	"Herald/internal/modules/notification/domain/pagination"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotOwner             = errors.New("notification belongs to another user")
)

// ListQuery selects one page of a recipient's notifications, newest first.
type ListQuery struct {
	Cursor     *pagination.Cursor
	Limit      int
	UnreadOnly bool
	// ActorIDs restricts to notifications caused by these people. A non-nil
	// empty slice matches nothing.
	ActorIDs []string
}

// NotificationRepository 通知存储
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	GetByID(ctx context.Context, notificationID string) (*entity.Notification, error)
	// ListByRecipient returns the page and the cursor of the next one, nil at the end.
	ListByRecipient(ctx context.Context, recipientID string, q ListQuery) ([]*entity.Notification, *pagination.Cursor, error)
	// MarkRead sets readAt once. It returns ErrNotificationNotFound or
	// ErrNotOwner without touching the row, and the current row if it was
	// already read.
	MarkRead(ctx context.Context, notificationID, recipientID string, now time.Time) (*entity.Notification, error)
	MarkAllRead(ctx context.Context, recipientID string, now time.Time) (int64, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
	// MarkDelivered moves a pending notification to delivered; other states are left alone.
	MarkDelivered(ctx context.Context, notificationID string) error
}
