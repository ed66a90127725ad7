// Package eligibility decides who may see an announcement and when it counts
// as live. Every function is pure; callers pass the clock in.
package eligibility

import (
	"sort"
	"time"

	"Herald/internal/modules/notification/domain/entity"
)

// Viewer is the identity an announcement is evaluated against.
type Viewer struct {
	ID   string
	Role string
}

func (v Viewer) IsAdmin() bool {
	return v.Role == entity.RoleAdmin
}

// Visible reports whether viewer is in the audience of a. Admins see
// everything; an announcement with no audience restriction is public.
func Visible(viewer Viewer, a *entity.Announcement) bool {
	if a == nil {
		return false
	}
	if viewer.IsAdmin() {
		return true
	}
	if len(a.AudienceRoles) == 0 && len(a.AudienceUsers) == 0 {
		return true
	}
	for _, r := range a.AudienceRoles {
		if r == viewer.Role {
			return true
		}
	}
	for _, u := range a.AudienceUsers {
		if u == viewer.ID {
			return true
		}
	}
	return false
}

// IsLive reports whether a is inside its schedule at now. SCHEDULED counts
// as live before its start; ACTIVE only from startAt on.
func IsLive(a *entity.Announcement, now time.Time) bool {
	if a == nil {
		return false
	}
	if a.Status != entity.AnnouncementActive && a.Status != entity.AnnouncementScheduled {
		return false
	}
	if a.Status == entity.AnnouncementActive && a.StartAt.After(now) {
		return false
	}
	if a.EndAt != nil && now.After(*a.EndAt) {
		return false
	}
	return true
}

// EffectiveStatus is the status a would have if its schedule were applied at
// now. DRAFT and ARCHIVED never move.
func EffectiveStatus(a *entity.Announcement, now time.Time) string {
	switch a.Status {
	case entity.AnnouncementScheduled, entity.AnnouncementActive:
		if a.EndAt != nil && a.EndAt.Before(now) {
			return entity.AnnouncementEnded
		}
		if a.Status == entity.AnnouncementScheduled && !a.StartAt.After(now) {
			return entity.AnnouncementActive
		}
	}
	return a.Status
}

// TimelineWindow bounds the timeline candidate set.
type TimelineWindow struct {
	// LookAhead limits how far ahead a SCHEDULED item may start and still show.
	LookAhead time.Duration
	// Recent keeps ACTIVE items that started within this window.
	Recent time.Duration
}

var DefaultTimelineWindow = TimelineWindow{
	LookAhead: 24 * time.Hour,
	Recent:    7 * 24 * time.Hour,
}

// InTimeline reports whether a is a timeline candidate at now: live (soon to
// start, if scheduled), pinned and not finished, or recently activated.
func InTimeline(a *entity.Announcement, now time.Time, w TimelineWindow) bool {
	if a == nil {
		return false
	}
	if IsLive(a, now) {
		if a.Status != entity.AnnouncementScheduled || !a.StartAt.After(now.Add(w.LookAhead)) {
			return true
		}
	}
	if a.IsPinned && (a.Status == entity.AnnouncementActive || a.Status == entity.AnnouncementScheduled) {
		return true
	}
	if a.Status == entity.AnnouncementActive && !a.StartAt.Before(now.Add(-w.Recent)) {
		return true
	}
	return false
}

// SortTimeline orders by pinned, priority, startAt, createdAt, all
// descending, with the id as the final tie-break.
func SortTimeline(items []*entity.Announcement) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.StartAt.Equal(b.StartAt) {
			return a.StartAt.After(b.StartAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.AnnouncementId > b.AnnouncementId
	})
}

// Timeline filters candidates for viewer and returns at most size of them in
// timeline order.
func Timeline(viewer Viewer, candidates []*entity.Announcement, now time.Time, w TimelineWindow, size int) []*entity.Announcement {
	out := make([]*entity.Announcement, 0, len(candidates))
	for _, a := range candidates {
		if InTimeline(a, now, w) && Visible(viewer, a) {
			out = append(out, a)
		}
	}
	SortTimeline(out)
	if size > 0 && len(out) > size {
		out = out[:size]
	}
	return out
}
