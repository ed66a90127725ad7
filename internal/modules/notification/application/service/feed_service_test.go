package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"Herald/internal/modules/notification/application/dto/request"
	"Herald/internal/modules/notification/domain/eligibility"
	"Herald/internal/modules/notification/domain/entity"
	"Herald/pkg/xerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestFeedService_PagesWalkEveryNotificationOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		_, err := f.producer.Create(ctx, request.CreateNotificationRequest{
			RecipientId: "u1",
			Type:        entity.TypeSystem,
			Title:       fmt.Sprintf("n%d", i),
		})
		require.NoError(t, err)
	}

	var titles []string
	req := request.FeedRequest{Limit: 3}
	for pages := 0; ; pages++ {
		require.Less(t, pages, 5)
		page, err := f.feed.GetFeed(ctx, "u1", req)
		require.NoError(t, err)
		assert.Equal(t, int64(7), page.UnreadCount)
		for _, it := range page.Items {
			titles = append(titles, it.Title)
		}
		if page.NextCursor == nil {
			break
		}
		req.Cursor = *page.NextCursor
	}
	assert.Equal(t, []string{"n6", "n5", "n4", "n3", "n2", "n1", "n0"}, titles)
}

func TestFeedService_InvalidCursorIsBadRequest(t *testing.T) {
	f := newFixture(t)
	_, err := f.feed.GetFeed(context.Background(), "u1", request.FeedRequest{Cursor: "%%%"})
	assert.Equal(t, xerr.BadRequest, xerr.CodeOf(err))
}

func TestFeedService_RequiresIdentity(t *testing.T) {
	f := newFixture(t)
	_, err := f.feed.GetFeed(context.Background(), "", request.FeedRequest{})
	assert.Equal(t, xerr.Unauthorized, xerr.CodeOf(err))
	_, err = f.feed.UnreadCount(context.Background(), "")
	assert.Equal(t, xerr.Unauthorized, xerr.CodeOf(err))
}

func TestFeedService_StoreOutageDegradesToRetryablePage(t *testing.T) {
	repo := new(mockNotificationRepository)
	repo.On("ListByRecipient", mock.Anything, "u1", mock.Anything).Return(nil, nil, errStoreDown)
	repo.On("CountUnread", mock.Anything, "u1").Return(int64(0), errStoreDown)

	svc := NewFeedService(repo, nil, nil, FeedOptions{})
	page, err := svc.GetFeed(context.Background(), "u1", request.FeedRequest{})
	require.NoError(t, err)
	assert.True(t, page.Retryable)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.Nil(t, page.NextCursor)

	_, err = svc.UnreadCount(context.Background(), "u1")
	assert.True(t, xerr.IsTransient(err))
}

func TestFeedService_PersonFollowFeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.feed.GetPersonFollowFeed(ctx, eligibility.Viewer{ID: "u1"}, request.FeedRequest{})
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.Nil(t, empty.NextCursor)
	assert.False(t, empty.Retryable)

	for _, actor := range []string{"p1", "p2", "p3"} {
		data, _ := json.Marshal(entity.PersonActivityPayload{ActorID: actor, ArticleID: "a-" + actor})
		_, err := f.producer.Create(ctx, request.CreateNotificationRequest{
			RecipientId: "u1",
			Type:        entity.TypePersonActivity,
			Title:       actor + " published",
			Data:        data,
		})
		require.NoError(t, err)
	}
	_, err = f.producer.Create(ctx, request.CreateNotificationRequest{RecipientId: "u1", Type: entity.TypeSystem, Title: "sys"})
	require.NoError(t, err)

	require.NoError(t, f.follows.Follow(ctx, "u1", "p1"))
	require.NoError(t, f.follows.Follow(ctx, "u1", "p3"))

	page, err := f.feed.GetPersonFollowFeed(ctx, eligibility.Viewer{ID: "u1"}, request.FeedRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "p3 published", page.Items[0].Title)
	assert.Equal(t, "p1 published", page.Items[1].Title)
	assert.Equal(t, int64(4), page.UnreadCount)
}

func TestFeedService_PersonFollowFeedFollowStoreDown(t *testing.T) {
	follows := new(mockFollowStore)
	follows.On("ListFollowedPersonIDs", mock.Anything, "u1").Return(nil, errStoreDown)

	svc := NewFeedService(new(mockNotificationRepository), nil, follows, FeedOptions{})
	page, err := svc.GetPersonFollowFeed(context.Background(), eligibility.Viewer{ID: "u1"}, request.FeedRequest{})
	require.NoError(t, err)
	assert.True(t, page.Retryable)
	follows.AssertExpectations(t)
}

func TestFeedService_Timeline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := fixedNow
	seed := func(id, status string, pinned bool, priority int, start time.Time, roles ...string) {
		require.NoError(t, f.announcements.Create(ctx, &entity.Announcement{
			AnnouncementId: id,
			AuthorId:       "admin",
			Title:          id,
			Status:         status,
			IsPinned:       pinned,
			Priority:       priority,
			StartAt:        start,
			AudienceRoles:  datatypes.JSONSlice[string](roles),
			AudienceUsers:  datatypes.JSONSlice[string]{},
			CreatedAt:      start,
		}))
	}
	seed("pinned", entity.AnnouncementActive, true, 0, now.Add(-30*24*time.Hour))
	seed("urgent", entity.AnnouncementActive, false, 9, now.Add(-time.Hour))
	seed("normal", entity.AnnouncementActive, false, 1, now.Add(-2*time.Hour))
	seed("soon", entity.AnnouncementScheduled, false, 1, now.Add(2*time.Hour))
	seed("far", entity.AnnouncementScheduled, false, 1, now.Add(72*time.Hour))
	seed("editors", entity.AnnouncementActive, false, 5, now.Add(-time.Hour), "editor")
	seed("draft", entity.AnnouncementDraft, true, 9, now.Add(-time.Hour))

	got, err := f.feed.GetTimeline(ctx, eligibility.Viewer{ID: "u1", Role: "reader"}, now)
	require.NoError(t, err)
	var ids []string
	for _, it := range got.Items {
		ids = append(ids, it.Id)
	}
	assert.Equal(t, []string{"pinned", "urgent", "soon", "normal"}, ids)
	assert.Equal(t, entity.AnnouncementScheduled, got.Items[2].Status)

	got, err = f.feed.GetTimeline(ctx, eligibility.Viewer{ID: "u2", Role: "editor"}, now)
	require.NoError(t, err)
	ids = ids[:0]
	for _, it := range got.Items {
		ids = append(ids, it.Id)
	}
	assert.Equal(t, []string{"pinned", "urgent", "editors", "soon", "normal"}, ids)

	// once the start passes the scheduled item reports ACTIVE before any sweep runs
	got, err = f.feed.GetTimeline(ctx, eligibility.Viewer{ID: "u1"}, now.Add(3*time.Hour))
	require.NoError(t, err)
	for _, it := range got.Items {
		if it.Id == "soon" {
			assert.Equal(t, entity.AnnouncementActive, it.Status)
		}
	}
}

func TestFeedService_TimelineSkipsPastRowsOutsideTheAudience(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := fixedNow

	rows := make([]*entity.Announcement, 0, 650)
	for i := 0; i < 650; i++ {
		rows = append(rows, &entity.Announcement{
			AnnouncementId: fmt.Sprintf("editors-%03d", i),
			AuthorId:       "admin",
			Title:          "editors only",
			Status:         entity.AnnouncementActive,
			Priority:       100,
			StartAt:        now.Add(-time.Hour),
			AudienceRoles:  datatypes.JSONSlice[string]{"editor"},
			AudienceUsers:  datatypes.JSONSlice[string]{},
			CreatedAt:      now.Add(-time.Hour),
		})
	}
	require.NoError(t, f.db.CreateInBatches(rows, 100).Error)
	require.NoError(t, f.announcements.Create(ctx, &entity.Announcement{
		AnnouncementId: "public",
		AuthorId:       "admin",
		Title:          "everyone",
		Status:         entity.AnnouncementActive,
		Priority:       1,
		StartAt:        now.Add(-2 * time.Hour),
		AudienceRoles:  datatypes.JSONSlice[string]{},
		AudienceUsers:  datatypes.JSONSlice[string]{},
		CreatedAt:      now.Add(-2 * time.Hour),
	}))

	got, err := f.feed.GetTimeline(ctx, eligibility.Viewer{ID: "m1", Role: "member"}, now)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "public", got.Items[0].Id)
	assert.False(t, got.Retryable)

	editor, err := f.feed.GetTimeline(ctx, eligibility.Viewer{ID: "e1", Role: "editor"}, now)
	require.NoError(t, err)
	assert.Len(t, editor.Items, 10)
	assert.Equal(t, "editors-649", editor.Items[0].Id)
}
