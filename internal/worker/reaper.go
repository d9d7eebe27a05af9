package worker

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/paragishere/Cyvance-chat/internal/service"
	"github.com/paragishere/Cyvance-chat/internal/tasks"
)

// TaskEnqueuer 由 *asynq.Client 实现
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqReaper 把附件删除交给后台 worker。
// 入队失败时退回到 fallback 直接删除。
type AsynqReaper struct {
	client   TaskEnqueuer
	fallback service.AttachmentReaper
}

// NewAsynqReaper 创建 AsynqReaper
func NewAsynqReaper(client TaskEnqueuer, fallback service.AttachmentReaper) *AsynqReaper {
	if client == nil || fallback == nil {
		panic("TaskEnqueuer and fallback reaper cannot be nil for AsynqReaper")
	}
	return &AsynqReaper{client: client, fallback: fallback}
}

// Reap 实现 service.AttachmentReaper
func (r *AsynqReaper) Reap(ctx context.Context, roomCode string, paths []string) {
	logCtx := logrus.WithFields(logrus.Fields{"room_code": roomCode, "attachments": len(paths)})

	task, err := tasks.NewAttachmentCleanupTask(roomCode, paths)
	if err == nil {
		var info *asynq.TaskInfo
		info, err = r.client.EnqueueContext(ctx, task)
		if err == nil {
			logCtx.WithField("task_id", info.ID).Debug("Attachment cleanup task enqueued")
			return
		}
	}
	logCtx.WithError(err).Warn("Failed to enqueue attachment cleanup, deleting inline")
	r.fallback.Reap(ctx, roomCode, paths)
}
