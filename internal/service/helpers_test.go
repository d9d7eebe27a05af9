package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/paragishere/Cyvance-chat/internal/infra/lock"
	"github.com/paragishere/Cyvance-chat/internal/repository/mocks"
	"github.com/paragishere/Cyvance-chat/internal/service"
)

var baseTime = time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) service.Clock {
	return func() time.Time { return t }
}

func testSettings() service.Settings {
	s := service.DefaultSettings()
	s.LockTimeout = 200 * time.Millisecond
	return s
}

type fixture struct {
	rooms       *mocks.RoomRepository
	messages    *mocks.MessageRepository
	attachments *mocks.AttachmentStore
	locker      *lock.KeyedLocker
}

func newFixture() *fixture {
	return &fixture{
		rooms:       new(mocks.RoomRepository),
		messages:    new(mocks.MessageRepository),
		attachments: new(mocks.AttachmentStore),
		locker:      lock.NewKeyedLocker(),
	}
}

func (f *fixture) roomService(now time.Time) *service.RoomService {
	return service.NewRoomService(f.rooms, f.messages, f.attachments, f.locker, testSettings()).
		WithClock(fixedClock(now))
}

func (f *fixture) messageService(now time.Time) *service.MessageService {
	return service.NewMessageService(f.rooms, f.messages, f.attachments, f.locker, testSettings()).
		WithClock(fixedClock(now))
}

// recordingReaper 记录被要求清理的附件
type recordingReaper struct {
	mu    sync.Mutex
	paths map[string][]string
}

func newRecordingReaper() *recordingReaper {
	return &recordingReaper{paths: make(map[string][]string)}
}

func (r *recordingReaper) Reap(_ context.Context, roomCode string, paths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths[roomCode] = append(r.paths[roomCode], paths...)
}
