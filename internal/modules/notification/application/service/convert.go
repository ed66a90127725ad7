package service

import (
	"encoding/json"
	"time"

	"Herald/internal/modules/notification/application/dto/respond"
	"Herald/internal/modules/notification/domain/eligibility"
	"Herald/internal/modules/notification/domain/entity"
	"Herald/pkg/bus"
)

// EventPublisher is the part of the delivery bus the services publish on.
type EventPublisher interface {
	Publish(recipientID string, ev bus.Event) int
}

func toNotificationItem(n *entity.Notification) respond.NotificationItem {
	item := respond.NotificationItem{
		Id:             n.NotificationId,
		RecipientId:    n.RecipientUserId,
		Type:           n.Type,
		Title:          n.Title,
		Message:        n.Message,
		Priority:       n.Priority,
		DeliveryStatus: n.DeliveryStatus,
		CreatedAt:      n.CreatedAt.UTC(),
	}
	if len(n.Data) > 0 {
		item.Data = json.RawMessage(n.Data)
	}
	if n.ReadAt != nil {
		at := n.ReadAt.UTC()
		item.ReadAt = &at
	}
	return item
}

func toNotificationItems(rows []*entity.Notification) []respond.NotificationItem {
	out := make([]respond.NotificationItem, 0, len(rows))
	for _, n := range rows {
		out = append(out, toNotificationItem(n))
	}
	return out
}

// toAnnouncementItem reports the schedule-resolved status, not the stored one.
func toAnnouncementItem(a *entity.Announcement, now time.Time) respond.AnnouncementItem {
	item := respond.AnnouncementItem{
		Id:            a.AnnouncementId,
		AuthorId:      a.AuthorId,
		Title:         a.Title,
		Body:          a.Body,
		Status:        eligibility.EffectiveStatus(a, now),
		IsPinned:      a.IsPinned,
		Priority:      a.Priority,
		StartAt:       a.StartAt.UTC(),
		AudienceRoles: append([]string{}, a.AudienceRoles...),
		AudienceUsers: append([]string{}, a.AudienceUsers...),
		CreatedAt:     a.CreatedAt.UTC(),
	}
	if a.EndAt != nil {
		end := a.EndAt.UTC()
		item.EndAt = &end
	}
	return item
}
