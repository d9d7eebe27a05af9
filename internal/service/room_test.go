package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/paragishere/Cyvance-chat/internal/domain"
	"github.com/paragishere/Cyvance-chat/internal/repository"
	"github.com/paragishere/Cyvance-chat/internal/service"
)

func TestRoomService_CreateRoom_Success(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	now := baseTime.Add(123456789 * time.Nanosecond)

	f.rooms.On("IsCodeExists", ctx, mock.AnythingOfType("string")).Return(false, nil).Once()
	f.rooms.On("Create", ctx, mock.MatchedBy(func(room *domain.Room) bool {
		assert.Len(t, room.Code, service.CodeLength)
		assert.Equal(t, room.CreatedAt, room.LastActivity, "创建时 createdAt 与 lastActivity 相同")
		return true
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Room).ID = 7
	}).Return(nil).Once()

	room, err := f.roomService(now).CreateRoom(ctx)

	require.NoError(t, err)
	assert.Equal(t, uint(7), room.ID)
	assert.True(t, room.CreatedAt.Equal(now.Truncate(time.Microsecond)))
	assert.Equal(t, time.UTC, room.CreatedAt.Location())
	f.rooms.AssertExpectations(t)
}

func TestRoomService_CreateRoom_SaveFails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.rooms.On("IsCodeExists", ctx, mock.AnythingOfType("string")).Return(false, nil).Once()
	f.rooms.On("Create", ctx, mock.AnythingOfType("*domain.Room")).Return(repository.ErrDuplicateEntry).Once()

	_, err := f.roomService(baseTime).CreateRoom(ctx)

	assert.ErrorIs(t, err, service.ErrInternalServer)
	f.rooms.AssertExpectations(t)
}

func TestRoomService_FindRoom_NotFound(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.rooms.On("FindByCode", ctx, "nope1234").Return(nil, repository.ErrRoomNotFound).Once()

	_, err := f.roomService(baseTime).FindRoom(ctx, "nope1234")

	assert.ErrorIs(t, err, service.ErrRoomNotFound)
}

func TestRoomService_FindRoom_RepositoryError(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.rooms.On("FindByCode", ctx, "abcd1234").Return(nil, errors.New("connection reset")).Once()

	_, err := f.roomService(baseTime).FindRoom(ctx, "abcd1234")

	assert.ErrorIs(t, err, service.ErrInternalServer)
}

func TestRoomService_TouchRoom(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	now := baseTime.Add(30 * time.Minute)
	stored := &domain.Room{ID: 1, Code: "abcd1234", CreatedAt: baseTime, LastActivity: baseTime}

	f.rooms.On("FindByCode", ctx, "abcd1234").Return(stored, nil).Once()
	f.rooms.On("Touch", ctx, "abcd1234", now).Return(nil).Once()

	room, err := f.roomService(now).TouchRoom(ctx, "abcd1234")

	require.NoError(t, err)
	assert.True(t, room.LastActivity.Equal(now))
	assert.False(t, room.LastActivity.Before(room.CreatedAt))
	f.rooms.AssertExpectations(t)
	assert.Equal(t, 0, f.locker.Len(), "房间锁应被释放")
}

func TestRoomService_TouchRoom_Busy(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	unlock, err := f.locker.Lock(ctx, "abcd1234")
	require.NoError(t, err)
	defer unlock()

	_, err = f.roomService(baseTime).TouchRoom(ctx, "abcd1234")

	assert.ErrorIs(t, err, service.ErrRoomBusy)
	f.rooms.AssertNotCalled(t, "Touch", mock.Anything, mock.Anything, mock.Anything)
}

func TestRoomService_ListMessages_All(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	now := baseTime.Add(10 * time.Minute)
	room := &domain.Room{ID: 3, Code: "abcd1234", CreatedAt: baseTime, LastActivity: baseTime.Add(5 * time.Minute)}
	stored := []domain.Message{
		{ID: 1, RoomID: 3, Type: domain.MessageText, Content: "hi", Nickname: "bob", CreatedAt: baseTime.Add(time.Minute)},
		{ID: 2, RoomID: 3, Type: domain.MessageImage, AttachmentPath: "room_images/x.png", Nickname: "anon", CreatedAt: baseTime.Add(2 * time.Minute)},
	}

	f.rooms.On("FindByCode", ctx, "abcd1234").Return(room, nil)
	f.messages.On("ListSince", ctx, uint(3), (*time.Time)(nil)).Return(stored, nil)
	f.attachments.On("URL", "room_images/x.png").Return("/media/room_images/x.png")

	svc := f.roomService(now)
	page, err := svc.ListMessages(ctx, "abcd1234", "")

	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "hi", page.Messages[0].Content)
	assert.Nil(t, page.Messages[0].ImageURL)
	require.NotNil(t, page.Messages[1].ImageURL)
	assert.Equal(t, "/media/room_images/x.png", *page.Messages[1].ImageURL)
	assert.True(t, page.ServerTime.Equal(now))
	assert.True(t, page.ExpiresAt.Equal(room.LastActivity.Add(120*time.Minute)))

	// 没有新消息时重复轮询结果相同
	again, err := svc.ListMessages(ctx, "abcd1234", "")
	require.NoError(t, err)
	assert.Equal(t, page.Messages, again.Messages)
}

func TestRoomService_ListMessages_WithCursor(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	room := &domain.Room{ID: 3, Code: "abcd1234", LastActivity: baseTime}
	cursor := baseTime.Add(time.Minute)

	f.rooms.On("FindByCode", ctx, "abcd1234").Return(room, nil)
	f.messages.On("ListSince", ctx, uint(3), mock.MatchedBy(func(since *time.Time) bool {
		return since != nil && since.Equal(cursor)
	})).Return([]domain.Message{}, nil).Once()

	page, err := f.roomService(baseTime).ListMessages(ctx, "abcd1234", service.FormatTimestamp(cursor))

	require.NoError(t, err)
	assert.Empty(t, page.Messages)
	f.messages.AssertExpectations(t)
}

func TestRoomService_ListMessages_InvalidCursor(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.rooms.On("FindByCode", ctx, "abcd1234").Return(&domain.Room{ID: 3, Code: "abcd1234"}, nil)

	_, err := f.roomService(baseTime).ListMessages(ctx, "abcd1234", "not-a-time")

	assert.ErrorIs(t, err, service.ErrInvalidCursor)
	f.messages.AssertNotCalled(t, "ListSince", mock.Anything, mock.Anything, mock.Anything)
}

func TestRoomService_ListMessages_RoomNotFound(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.rooms.On("FindByCode", ctx, "gone0000").Return(nil, repository.ErrRoomNotFound)

	// 房间不存在优先于游标错误
	_, err := f.roomService(baseTime).ListMessages(ctx, "gone0000", "garbage")

	assert.ErrorIs(t, err, service.ErrRoomNotFound)
}
