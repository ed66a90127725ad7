package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"Herald/internal/initial"
	"Herald/internal/modules/notification/domain/entity"
	"Herald/internal/modules/notification/domain/pagination"
	"Herald/internal/modules/notification/domain/repository"
	"Herald/internal/modules/notification/infrastructure/persistence"
	"Herald/pkg/bus"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db            *gorm.DB
	notifications repository.NotificationRepository
	announcements repository.AnnouncementRepository
	follows       repository.FollowStore
	bus           *bus.Bus

	producer NotificationService
	feed     FeedService
	reads    ReadStateService
	ann      AnnouncementService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := initial.NewTestDB("svc_" + name)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	f := &fixture{
		db:            db,
		notifications: persistence.NewNotificationRepository(db),
		announcements: persistence.NewAnnouncementRepository(db),
		follows:       persistence.NewFollowStore(db),
		bus:           bus.New(16),
	}
	f.producer = NewNotificationService(f.notifications, persistence.NewUserDirectory(db), f.bus)
	f.feed = NewFeedService(f.notifications, f.announcements, f.follows, FeedOptions{})
	f.reads = NewReadStateService(f.notifications, f.bus)
	f.ann = NewAnnouncementService(f.announcements)

	// 每次调用推进一微秒，保证创建顺序与时间顺序一致
	tick := fixedNow
	clock := func() time.Time {
		tick = tick.Add(time.Microsecond)
		return tick
	}
	f.producer.(*notificationServiceImpl).now = clock
	f.reads.(*readStateServiceImpl).now = clock
	f.ann.(*announcementServiceImpl).now = func() time.Time { return fixedNow }
	return f
}

func recv(t *testing.T, sub *bus.Subscription) bus.Event {
	t.Helper()
	select {
	case ev := <-sub.C():
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return bus.Event{}
	}
}

// mockNotificationRepository fails on demand.
type mockNotificationRepository struct {
	mock.Mock
}

func (m *mockNotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *mockNotificationRepository) GetByID(ctx context.Context, id string) (*entity.Notification, error) {
	args := m.Called(ctx, id)
	n, _ := args.Get(0).(*entity.Notification)
	return n, args.Error(1)
}

func (m *mockNotificationRepository) ListByRecipient(ctx context.Context, recipientID string, q repository.ListQuery) ([]*entity.Notification, *pagination.Cursor, error) {
	args := m.Called(ctx, recipientID, q)
	rows, _ := args.Get(0).([]*entity.Notification)
	next, _ := args.Get(1).(*pagination.Cursor)
	return rows, next, args.Error(2)
}

func (m *mockNotificationRepository) MarkRead(ctx context.Context, id, recipientID string, now time.Time) (*entity.Notification, error) {
	args := m.Called(ctx, id, recipientID, now)
	n, _ := args.Get(0).(*entity.Notification)
	return n, args.Error(1)
}

func (m *mockNotificationRepository) MarkAllRead(ctx context.Context, recipientID string, now time.Time) (int64, error) {
	args := m.Called(ctx, recipientID, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotificationRepository) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotificationRepository) MarkDelivered(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockFollowStore struct {
	mock.Mock
}

func (m *mockFollowStore) ListFollowedPersonIDs(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *mockFollowStore) Follow(ctx context.Context, userID, personID string) error {
	return m.Called(ctx, userID, personID).Error(0)
}

func (m *mockFollowStore) Unfollow(ctx context.Context, userID, personID string) error {
	return m.Called(ctx, userID, personID).Error(0)
}

var errStoreDown = errors.New("connection refused")
