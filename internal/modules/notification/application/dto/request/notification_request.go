package request

import "encoding/json"

// CreateNotificationRequest is also the message body of the kafka ingest topic.
type CreateNotificationRequest struct {
	RecipientId string          `json:"recipient_id"`
	Type        string          `json:"type"`
	Title       string          `json:"title"`
	Message     string          `json:"message"`
	Priority    string          `json:"priority"`
	Data        json.RawMessage `json:"data,omitempty"`
}

type FeedRequest struct {
	Cursor     string `form:"cursor" json:"cursor"`
	Limit      int    `form:"limit" json:"limit"`
	UnreadOnly bool   `form:"unread_only" json:"unread_only"`
}
