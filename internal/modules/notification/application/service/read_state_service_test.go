package service

import (
	"context"
	"testing"

	"Herald/internal/modules/notification/application/dto/request"
	"Herald/internal/modules/notification/application/dto/respond"
	"Herald/internal/modules/notification/domain/entity"
	"Herald/pkg/bus"
	"Herald/pkg/xerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func createFor(t *testing.T, f *fixture, recipient, title string) *respond.NotificationItem {
	t.Helper()
	item, err := f.producer.Create(context.Background(), request.CreateNotificationRequest{
		RecipientId: recipient,
		Type:        entity.TypeSystem,
		Title:       title,
	})
	require.NoError(t, err)
	return item
}

func TestReadStateService_MarkOneRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n := createFor(t, f, "u1", "hello")
	createFor(t, f, "u1", "again")

	_, err := f.reads.MarkOneRead(ctx, "missing", "u1")
	assert.Equal(t, xerr.NotFound, xerr.CodeOf(err))

	_, err = f.reads.MarkOneRead(ctx, n.Id, "u2")
	assert.Equal(t, xerr.Forbidden, xerr.CodeOf(err))
	stored, err := f.notifications.GetByID(ctx, n.Id)
	require.NoError(t, err)
	assert.Nil(t, stored.ReadAt)

	sub, unsub := f.bus.Subscribe("u1")
	defer unsub()

	first, err := f.reads.MarkOneRead(ctx, n.Id, "u1")
	require.NoError(t, err)
	require.NotNil(t, first.ReadAt)

	ev := recv(t, sub)
	frame, ok := ev.Payload.(respond.ReadStateFrame)
	require.True(t, ok)
	assert.Equal(t, respond.FrameReadState, frame.Type)
	assert.Equal(t, n.Id, frame.NotificationId)
	assert.Equal(t, int64(1), frame.UnreadCount)

	second, err := f.reads.MarkOneRead(ctx, n.Id, "u1")
	require.NoError(t, err)
	assert.True(t, first.ReadAt.Equal(*second.ReadAt))
}

func TestReadStateService_MarkAllRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, title := range []string{"a", "b", "c"} {
		createFor(t, f, "u1", title)
	}
	createFor(t, f, "u2", "other")

	sub, unsub := f.bus.Subscribe("u1")
	defer unsub()

	res, err := f.reads.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Updated)
	assert.Equal(t, int64(0), res.UnreadCount)

	frame := recv(t, sub).Payload.(respond.ReadStateFrame)
	assert.Empty(t, frame.NotificationId)
	assert.Equal(t, int64(0), frame.UnreadCount)

	res, err = f.reads.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Updated)

	count, err := f.feed.UnreadCount(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestReadStateService_StoreFailure(t *testing.T) {
	repo := new(mockNotificationRepository)
	repo.On("MarkRead", mock.Anything, "n1", "u1", mock.Anything).Return(nil, errStoreDown)
	repo.On("MarkAllRead", mock.Anything, "u1", mock.Anything).Return(int64(0), errStoreDown)

	svc := NewReadStateService(repo, bus.New(1))
	_, err := svc.MarkOneRead(context.Background(), "n1", "u1")
	assert.True(t, xerr.IsTransient(err))
	_, err = svc.MarkAllRead(context.Background(), "u1")
	assert.True(t, xerr.IsTransient(err))

	_, err = svc.MarkOneRead(context.Background(), "n1", "")
	assert.Equal(t, xerr.Unauthorized, xerr.CodeOf(err))
	repo.AssertExpectations(t)
}
