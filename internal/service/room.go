package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/paragishere/Cyvance-chat/internal/domain"
	"github.com/paragishere/Cyvance-chat/internal/repository"
)

// RoomService 负责房间的创建、查找、刷新以及消息的增量读取。
type RoomService struct {
	roomRepo    repository.RoomRepository
	messageRepo repository.MessageRepository
	attachments repository.AttachmentStore
	locker      repository.RoomLocker
	codes       *CodeGenerator
	settings    Settings
	now         Clock
}

// NewRoomService 创建 RoomService 实例。
func NewRoomService(
	roomRepo repository.RoomRepository,
	messageRepo repository.MessageRepository,
	attachments repository.AttachmentStore,
	locker repository.RoomLocker,
	settings Settings,
) *RoomService {
	if roomRepo == nil || messageRepo == nil {
		panic("repositories cannot be nil for RoomService")
	}
	if attachments == nil || locker == nil {
		panic("AttachmentStore and RoomLocker cannot be nil for RoomService")
	}
	return &RoomService{
		roomRepo:    roomRepo,
		messageRepo: messageRepo,
		attachments: attachments,
		locker:      locker,
		codes:       NewCodeGenerator(roomRepo),
		settings:    settings,
		now:         systemClock,
	}
}

// WithClock 替换时间源，返回自身便于链式调用
func (s *RoomService) WithClock(clock Clock) *RoomService {
	s.now = clock
	return s
}

// Settings 返回服务使用的配置
func (s *RoomService) Settings() Settings {
	return s.settings
}

// MessageView 是返回给轮询客户端的消息表示
type MessageView struct {
	ID        uint
	Type      domain.MessageType
	Content   string
	ImageURL  *string
	CreatedAt time.Time
	Nickname  string
}

// MessagePage 是一次轮询的结果
type MessagePage struct {
	Messages   []MessageView
	ServerTime time.Time
	ExpiresAt  time.Time
}

// CreateRoom 生成唯一房间码并创建房间
func (s *RoomService) CreateRoom(ctx context.Context) (*domain.Room, error) {
	code, err := s.codes.CreateUnique(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to generate unique room code")
		return nil, ErrInternalServer
	}
	logCtx := logrus.WithField("room_code", code)

	now := nowUTC(s.now)
	room := &domain.Room{
		Code:         code,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := s.roomRepo.Create(ctx, room); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.WithError(err).Error("Failed to save new room due to duplicate room code")
		} else {
			logCtx.WithError(err).Error("Failed to save new room to database")
		}
		return nil, ErrInternalServer
	}

	logCtx.Info("Room created successfully")
	return room, nil
}

// FindRoom 按房间码精确查找
func (s *RoomService) FindRoom(ctx context.Context, code string) (*domain.Room, error) {
	room, err := s.roomRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithError(err).WithField("room_code", code).Error("FindRoom: Repository error")
		return nil, ErrInternalServer
	}
	return room, nil
}

// TouchRoom 刷新房间的活跃时间。与同一房间的写入和清理互斥。
func (s *RoomService) TouchRoom(ctx context.Context, code string) (*domain.Room, error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.settings.LockTimeout)
	defer cancel()
	unlock, err := s.locker.Lock(lockCtx, code)
	if err != nil {
		logrus.WithError(err).WithField("room_code", code).Warn("TouchRoom: Failed to acquire room lock")
		return nil, ErrRoomBusy
	}
	defer unlock()

	room, err := s.FindRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	now := nowUTC(s.now)
	if err := s.roomRepo.Touch(ctx, code, now); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithError(err).WithField("room_code", code).Error("TouchRoom: Failed to update last activity")
		return nil, ErrInternalServer
	}
	room.LastActivity = now
	return room, nil
}

// ListMessages 返回 since 之后的消息，以及服务器时间和房间的过期时间
func (s *RoomService) ListMessages(ctx context.Context, code, since string) (*MessagePage, error) {
	room, err := s.FindRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	cursor, err := ParseCursor(since)
	if err != nil {
		logrus.WithFields(logrus.Fields{"room_code": code, "since": since}).Debug("ListMessages: Invalid cursor")
		return nil, err
	}

	messages, err := s.messageRepo.ListSince(ctx, room.ID, cursor)
	if err != nil {
		logrus.WithError(err).WithField("room_code", code).Error("ListMessages: Repository error")
		return nil, ErrInternalServer
	}

	views := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		view := MessageView{
			ID:        m.ID,
			Type:      m.Type,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
			Nickname:  m.Nickname,
		}
		if m.HasAttachment() {
			url := s.attachments.URL(m.AttachmentPath)
			view.ImageURL = &url
		}
		views = append(views, view)
	}

	return &MessagePage{
		Messages:   views,
		ServerTime: nowUTC(s.now),
		ExpiresAt:  room.ExpiresAt(s.settings.IdleThreshold).UTC(),
	}, nil
}
