package respond

import "time"

type AnnouncementItem struct {
	Id            string     `json:"id"`
	AuthorId      string     `json:"author_id"`
	Title         string     `json:"title"`
	Body          string     `json:"body"`
	Status        string     `json:"status"`
	IsPinned      bool       `json:"is_pinned"`
	Priority      int        `json:"priority"`
	StartAt       time.Time  `json:"start_at"`
	EndAt         *time.Time `json:"end_at"`
	AudienceRoles []string   `json:"audience_roles"`
	AudienceUsers []string   `json:"audience_users"`
	CreatedAt     time.Time  `json:"created_at"`
}

type TimelineRespond struct {
	Items     []AnnouncementItem `json:"items"`
	Retryable bool               `json:"retryable"`
}

type AnnouncementPage struct {
	Items []AnnouncementItem `json:"items"`
	Total int64              `json:"total"`
}
