package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// 任务类型常量
const (
	TypeAttachmentCleanup = "attachment:cleanup" // 删除已清理房间留下的附件文件
	TypeRoomPurge         = "rooms:purge"        // 周期性清理空闲房间
)

// 队列名称，与 WorkerServer 中的权重配置对应
const (
	QueueDefault = "default"
	QueueLow     = "low"
)

// AttachmentCleanupPayload 描述一个待删除附件的房间
type AttachmentCleanupPayload struct {
	RoomCode string   `json:"room_code"`
	Paths    []string `json:"paths"`
}

// RoomPurgePayload 周期清理任务，RequestedAt 仅用于日志排查
type RoomPurgePayload struct {
	RequestedAt time.Time `json:"requested_at"`
}

// NewAttachmentCleanupTask 创建附件清理任务。
// 文件删除是幂等的，失败后允许多次重试。
func NewAttachmentCleanupTask(roomCode string, paths []string) (*asynq.Task, error) {
	payload, err := json.Marshal(AttachmentCleanupPayload{RoomCode: roomCode, Paths: paths})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAttachmentCleanup, payload, asynq.Queue(QueueLow), asynq.MaxRetry(5)), nil
}

// NewRoomPurgeTask 创建一次空闲房间清理任务
func NewRoomPurgeTask(requestedAt time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(RoomPurgePayload{RequestedAt: requestedAt.UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRoomPurge, payload, asynq.Queue(QueueDefault), asynq.MaxRetry(0)), nil
}
