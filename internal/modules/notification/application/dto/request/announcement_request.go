package request

import "time"

// CreateAnnouncementRequest creates an announcement. Status may be DRAFT,
// SCHEDULED or ACTIVE; empty picks SCHEDULED for a future start and ACTIVE
// otherwise.
type CreateAnnouncementRequest struct {
	Title         string     `json:"title"`
	Body          string     `json:"body"`
	Status        string     `json:"status"`
	IsPinned      bool       `json:"is_pinned"`
	Priority      int        `json:"priority"`
	StartAt       *time.Time `json:"start_at"`
	EndAt         *time.Time `json:"end_at"`
	AudienceRoles []string   `json:"audience_roles"`
	AudienceUsers []string   `json:"audience_users"`
}

type ListAnnouncementsRequest struct {
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}
