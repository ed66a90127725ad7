package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrPayloadMismatch = errors.New("payload does not match notification type")

// Payload is the typed body of a notification. The set of implementations is
// closed; each notification type has exactly one.
type Payload interface {
	Kind() string
	// Actor is the person who caused the notification, or "".
	Actor() string
}

type EngagementPayload struct {
	ArticleID string `json:"articleId,omitempty"`
	CommentID string `json:"commentId,omitempty"`
	ActorID   string `json:"actorId,omitempty"`
	ActorName string `json:"actorName,omitempty"`
}

type ContentMilestonePayload struct {
	ArticleID string `json:"articleId,omitempty"`
	Milestone string `json:"milestone,omitempty"`
	Count     int64  `json:"count,omitempty"`
}

type PersonActivityPayload struct {
	ActorID   string `json:"actorId,omitempty"`
	ActorName string `json:"actorName,omitempty"`
	ArticleID string `json:"articleId,omitempty"`
}

type SystemPayload struct {
	Link string `json:"link,omitempty"`
}

func (EngagementPayload) Kind() string        { return TypeEngagement }
func (p EngagementPayload) Actor() string     { return p.ActorID }
func (ContentMilestonePayload) Kind() string  { return TypeContentMilestone }
func (ContentMilestonePayload) Actor() string { return "" }
func (PersonActivityPayload) Kind() string    { return TypePersonActivity }
func (p PersonActivityPayload) Actor() string { return p.ActorID }
func (SystemPayload) Kind() string            { return TypeSystem }
func (SystemPayload) Actor() string           { return "" }

// EmptyPayload returns the zero payload for kind.
func EmptyPayload(kind string) (Payload, error) {
	switch kind {
	case TypeEngagement:
		return EngagementPayload{}, nil
	case TypeContentMilestone:
		return ContentMilestonePayload{}, nil
	case TypePersonActivity:
		return PersonActivityPayload{}, nil
	case TypeSystem:
		return SystemPayload{}, nil
	default:
		return nil, fmt.Errorf("unknown notification type %q", kind)
	}
}

// DecodePayload parses raw as the payload of kind. Empty or null input gives
// the zero payload; fields foreign to kind are rejected.
func DecodePayload(kind string, raw []byte) (Payload, error) {
	empty, err := EmptyPayload(kind)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return empty, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	switch kind {
	case TypeEngagement:
		var p EngagementPayload
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPayloadMismatch, err)
		}
		return p, nil
	case TypeContentMilestone:
		var p ContentMilestonePayload
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPayloadMismatch, err)
		}
		return p, nil
	case TypePersonActivity:
		var p PersonActivityPayload
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPayloadMismatch, err)
		}
		return p, nil
	default:
		var p SystemPayload
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPayloadMismatch, err)
		}
		return p, nil
	}
}

// WithActorName returns p with its actor display name set, for the payloads
// that carry one.
func WithActorName(p Payload, name string) Payload {
	switch v := p.(type) {
	case EngagementPayload:
		v.ActorName = name
		return v
	case PersonActivityPayload:
		v.ActorName = name
		return v
	default:
		return p
	}
}

// Payload decodes the stored data of n.
func (n *Notification) Payload() (Payload, error) {
	return DecodePayload(n.Type, n.Data)
}
