package entity

import (
	"time"

	"gorm.io/datatypes"
)

const (
	AnnouncementDraft     = "DRAFT"
	AnnouncementScheduled = "SCHEDULED"
	AnnouncementActive    = "ACTIVE"
	AnnouncementEnded     = "ENDED"
	AnnouncementArchived  = "ARCHIVED"

	RoleAdmin   = "admin"
	RoleService = "service"
)

// Announcement is an editorial broadcast. Who may see it is computed per
// viewer from the audience sets; an empty AudienceRoles means every role.
type Announcement struct {
	Id             int64                       `gorm:"column:id;primaryKey;autoIncrement"`
	AnnouncementId string                      `gorm:"column:announcement_id;type:char(33);uniqueIndex;not null"`
	AuthorId       string                      `gorm:"column:author_id;type:varchar(64);not null"`
	Title          string                      `gorm:"column:title;type:varchar(200);not null"`
	Body           string                      `gorm:"column:body;type:text"`
	Status         string                      `gorm:"column:status;type:varchar(16);not null;index"`
	IsPinned       bool                        `gorm:"column:is_pinned;not null"`
	Priority       int                         `gorm:"column:priority;not null"`
	StartAt        time.Time                   `gorm:"column:start_at;not null;index"`
	EndAt          *time.Time                  `gorm:"column:end_at"`
	AudienceRoles  datatypes.JSONSlice[string] `gorm:"column:audience_roles;type:json"`
	AudienceUsers  datatypes.JSONSlice[string] `gorm:"column:audience_users;type:json"`
	CreatedAt      time.Time                   `gorm:"column:created_at;not null"`
}

func (Announcement) TableName() string {
	return "announcement"
}

func IsKnownAnnouncementStatus(s string) bool {
	switch s {
	case AnnouncementDraft, AnnouncementScheduled, AnnouncementActive, AnnouncementEnded, AnnouncementArchived:
		return true
	}
	return false
}
