package respond

import (
	"encoding/json"
	"time"
)

const (
	FrameNotify    = "notify"
	FrameReadState = "read_state"
)

type NotificationItem struct {
	Id             string          `json:"id"`
	RecipientId    string          `json:"recipient_id"`
	Type           string          `json:"type"`
	Title          string          `json:"title"`
	Message        string          `json:"message"`
	Priority       string          `json:"priority"`
	Data           json.RawMessage `json:"data"`
	DeliveryStatus string          `json:"delivery_status"`
	ReadAt         *time.Time      `json:"read_at"`
	CreatedAt      time.Time       `json:"created_at"`
}

// FeedPage is one page of a notification feed. NextCursor is null on the
// last page. Retryable marks an empty page caused by a store outage.
type FeedPage struct {
	Items       []NotificationItem `json:"items"`
	NextCursor  *string            `json:"next_cursor"`
	UnreadCount int64              `json:"unread_count"`
	Retryable   bool               `json:"retryable"`
}

type UnreadCountRespond struct {
	UnreadCount int64 `json:"unread_count"`
}

type MarkAllReadRespond struct {
	Updated     int64 `json:"updated"`
	UnreadCount int64 `json:"unread_count"`
}

// NotifyFrame carries a newly created notification to live sessions.
type NotifyFrame struct {
	Type         string           `json:"type"`
	Notification NotificationItem `json:"notification"`
}

// ReadStateFrame tells other sessions of the same user that read state
// changed. NotificationId is empty after mark-all.
type ReadStateFrame struct {
	Type           string `json:"type"`
	NotificationId string `json:"notification_id,omitempty"`
	UnreadCount    int64  `json:"unread_count"`
}
