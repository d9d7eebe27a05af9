package repository

import (
	"context"
	"time"

	"github.com/paragishere/Cyvance-chat/internal/domain"
)

// MessageRepository 定义了消息的写入与增量读取。
type MessageRepository interface {
	// AppendAndTouch 在同一事务中写入消息并把所属房间的 LastActivity 刷新为 msg.CreatedAt。
	// 房间已不存在时返回 ErrRoomNotFound，且不写入任何数据。
	AppendAndTouch(ctx context.Context, roomCode string, msg *domain.Message) error

	// ListSince 返回房间内 CreatedAt 严格大于 since 的消息，按 (CreatedAt, ID) 升序。
	// since 为 nil 时返回全部消息。
	ListSince(ctx context.Context, roomID uint, since *time.Time) ([]domain.Message, error)
}
