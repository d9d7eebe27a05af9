package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/paragishere/Cyvance-chat/internal/repository"
	"github.com/paragishere/Cyvance-chat/internal/service"
	"github.com/paragishere/Cyvance-chat/internal/tasks"
)

// taskLogger 生成带任务上下文的日志 entry
func taskLogger(ctx context.Context, t *asynq.Task) *logrus.Entry {
	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}
	queue, _ := asynq.GetQueueName(ctx)
	currentRetry, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	return logrus.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": t.Type(),
		"queue":     queue,
		"retry":     currentRetry,
		"max_retry": maxRetry,
	})
}

// AttachmentCleanupHandler 删除已清理房间遗留的附件文件
type AttachmentCleanupHandler struct {
	store repository.AttachmentStore
}

// NewAttachmentCleanupHandler 创建 Handler 实例
func NewAttachmentCleanupHandler(store repository.AttachmentStore) *AttachmentCleanupHandler {
	if store == nil {
		panic("AttachmentStore cannot be nil for AttachmentCleanupHandler")
	}
	return &AttachmentCleanupHandler{store: store}
}

// ProcessTask 实现 asynq.Handler 接口。
// 单个文件删除失败时返回错误交由 asynq 重试，已删除的文件再次删除不会报错。
func (h *AttachmentCleanupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := taskLogger(ctx, t)

	var payload tasks.AttachmentCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	logCtx = logCtx.WithField("room_code", payload.RoomCode)

	var failed []error
	for _, path := range payload.Paths {
		if err := h.store.Delete(ctx, path); err != nil {
			logCtx.WithError(err).WithField("attachment", path).Warn("Failed to delete attachment")
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to delete %d of %d attachments: %w", len(failed), len(payload.Paths), errors.Join(failed...))
	}

	logCtx.WithField("attachments", len(payload.Paths)).Info("Attachment cleanup task processed successfully")
	return nil
}

// Purger 执行一次空闲房间清理，由 service.ExpiryService 实现
type Purger interface {
	Purge(ctx context.Context) (service.PurgeResult, error)
}

// RoomPurgeHandler 处理周期性的空闲房间清理任务
type RoomPurgeHandler struct {
	purger Purger
}

// NewRoomPurgeHandler 创建 Handler 实例
func NewRoomPurgeHandler(purger Purger) *RoomPurgeHandler {
	if purger == nil {
		panic("Purger cannot be nil for RoomPurgeHandler")
	}
	return &RoomPurgeHandler{purger: purger}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *RoomPurgeHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := taskLogger(ctx, t)

	var payload tasks.RoomPurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	result, err := h.purger.Purge(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Room purge task failed")
		return err
	}
	logCtx.WithFields(logrus.Fields{
		"requested_at": payload.RequestedAt,
		"purged":       result.Purged,
		"skipped":      result.Skipped,
		"failed":       result.Failed,
	}).Debug("Room purge task completed")
	return nil
}
