package entity

import (
	"time"

	"gorm.io/datatypes"
)

const (
	// 通知类型
	TypeEngagement       = "engagement"
	TypeSystem           = "system"
	TypeContentMilestone = "content_milestone"
	TypePersonActivity   = "person_activity"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"

	// 投递状态
	DeliveryPending   = "pending"
	DeliveryDelivered = "delivered"
	DeliveryRead      = "read"
)

// Notification is one user-targeted notification. ReadAt is set exactly when
// DeliveryStatus is read, and once set it never changes.
type Notification struct {
	Id              int64          `gorm:"column:id;primaryKey;autoIncrement"`
	NotificationId  string         `gorm:"column:notification_id;type:char(36);uniqueIndex;not null"`
	RecipientUserId string         `gorm:"column:recipient_user_id;type:varchar(64);not null;index:idx_notification_recipient_created,priority:1"`
	Type            string         `gorm:"column:type;type:varchar(30);not null"`
	Title           string         `gorm:"column:title;type:varchar(200);not null"`
	Message         string         `gorm:"column:message;type:text"`
	Priority        string         `gorm:"column:priority;type:varchar(10);not null"`
	Data            datatypes.JSON `gorm:"column:data;type:json"`
	ActorId         *string        `gorm:"column:actor_id;type:varchar(64);index"`
	DeliveryStatus  string         `gorm:"column:delivery_status;type:varchar(16);not null"`
	ReadAt          *time.Time     `gorm:"column:read_at"`
	CreatedAt       time.Time      `gorm:"column:created_at;not null;index:idx_notification_recipient_created,priority:2"`
}

func (Notification) TableName() string {
	return "notification"
}

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

func IsKnownType(t string) bool {
	switch t {
	case TypeEngagement, TypeSystem, TypeContentMilestone, TypePersonActivity:
		return true
	}
	return false
}

func IsKnownPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
