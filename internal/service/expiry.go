package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/paragishere/Cyvance-chat/internal/repository"
)

const (
	defaultPurgeBatchSize = 100
	maxPurgeBatches       = 10
)

// AttachmentReaper 负责在房间删除后清理附件文件，失败不影响清理流程
type AttachmentReaper interface {
	Reap(ctx context.Context, roomCode string, paths []string)
}

// InlineReaper 直接在当前请求中删除附件，错误只记录日志
type InlineReaper struct {
	store repository.AttachmentStore
}

// NewInlineReaper 创建 InlineReaper
func NewInlineReaper(store repository.AttachmentStore) *InlineReaper {
	return &InlineReaper{store: store}
}

// Reap 逐个删除附件
func (r *InlineReaper) Reap(ctx context.Context, roomCode string, paths []string) {
	for _, path := range paths {
		if err := r.store.Delete(ctx, path); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"room_code":  roomCode,
				"attachment": path,
			}).Warn("Failed to delete attachment of purged room")
		}
	}
}

// PurgeResult 统计一次清理的结果
type PurgeResult struct {
	Purged  int // 被删除的房间数
	Skipped int // 正被写入而跳过的房间数
	Failed  int
}

// ExpiryService 负责找出并删除超过空闲阈值的房间。
type ExpiryService struct {
	roomRepo  repository.RoomRepository
	locker    repository.RoomLocker
	reaper    AttachmentReaper
	settings  Settings
	now       Clock
	batchSize int
}

// NewExpiryService 创建 ExpiryService 实例。
func NewExpiryService(roomRepo repository.RoomRepository, locker repository.RoomLocker, reaper AttachmentReaper, settings Settings) *ExpiryService {
	if roomRepo == nil || locker == nil || reaper == nil {
		panic("RoomRepository, RoomLocker and AttachmentReaper cannot be nil for ExpiryService")
	}
	return &ExpiryService{
		roomRepo:  roomRepo,
		locker:    locker,
		reaper:    reaper,
		settings:  settings,
		now:       systemClock,
		batchSize: defaultPurgeBatchSize,
	}
}

// WithClock 替换时间源
func (s *ExpiryService) WithClock(clock Clock) *ExpiryService {
	s.now = clock
	return s
}

// Purge 以当前时间执行一次清理
func (s *ExpiryService) Purge(ctx context.Context) (PurgeResult, error) {
	return s.PurgeExpired(ctx, s.now())
}

// PurgeExpired 删除 LastActivity <= now - IdleThreshold 的房间。
// 每个房间单独加锁、单独事务；锁被占用的房间跳过，留给下一次清理。
func (s *ExpiryService) PurgeExpired(ctx context.Context, now time.Time) (PurgeResult, error) {
	var result PurgeResult
	cutoff := now.UTC().Add(-s.settings.IdleThreshold)
	logCtx := logrus.WithField("cutoff", cutoff.Format(time.RFC3339Nano))

	for batch := 0; batch < maxPurgeBatches; batch++ {
		rooms, err := s.roomRepo.FindIdle(ctx, cutoff, s.batchSize)
		if err != nil {
			logCtx.WithError(err).Error("Purge: Failed to query idle rooms")
			return result, ErrInternalServer
		}

		purgedInBatch := 0
		for _, room := range rooms {
			if s.purgeRoom(ctx, room.Code, cutoff, &result) {
				purgedInBatch++
			}
		}

		// 本批没有进展或已取完，结束本次清理
		if len(rooms) < s.batchSize || purgedInBatch == 0 {
			break
		}
	}

	if result.Purged > 0 || result.Failed > 0 {
		logCtx.WithFields(logrus.Fields{
			"purged":  result.Purged,
			"skipped": result.Skipped,
			"failed":  result.Failed,
		}).Info("Purge sweep finished")
	}
	return result, nil
}

func (s *ExpiryService) purgeRoom(ctx context.Context, code string, cutoff time.Time, result *PurgeResult) bool {
	roomLog := logrus.WithField("room_code", code)

	unlock, ok, err := s.locker.TryLock(ctx, code)
	if err != nil {
		roomLog.WithError(err).Warn("Purge: Failed to lock room")
		result.Failed++
		return false
	}
	if !ok {
		result.Skipped++
		return false
	}
	attachments, deleted, err := s.roomRepo.DeleteIfIdle(ctx, code, cutoff)
	unlock()

	if err != nil {
		roomLog.WithError(err).Error("Purge: Failed to delete idle room")
		result.Failed++
		return false
	}
	if !deleted {
		return false
	}
	result.Purged++
	roomLog.WithField("attachments", len(attachments)).Info("Idle room purged")
	if len(attachments) > 0 {
		s.reaper.Reap(ctx, code, attachments)
	}
	return true
}
