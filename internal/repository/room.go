package repository

import (
	"context"
	"time"

	"github.com/paragishere/Cyvance-chat/internal/domain"
)

// RoomRepository 定义了房间数据的存储和检索操作。
type RoomRepository interface {
	// Create 保存新房间。房间码冲突时返回 ErrDuplicateEntry。
	Create(ctx context.Context, room *domain.Room) error

	// FindByCode 根据房间码精确查找，不存在时返回 ErrRoomNotFound。
	FindByCode(ctx context.Context, code string) (*domain.Room, error)

	// IsCodeExists 检查房间码是否已被占用。
	IsCodeExists(ctx context.Context, code string) (bool, error)

	// Touch 把房间的 LastActivity 更新为 at，房间不存在时返回 ErrRoomNotFound。
	Touch(ctx context.Context, code string, at time.Time) error

	// FindIdle 返回 LastActivity <= cutoff 的房间，最多 limit 条，按 LastActivity 升序。
	FindIdle(ctx context.Context, cutoff time.Time, limit int) ([]domain.Room, error)

	// DeleteIfIdle 在单个事务内重新检查房间是否仍然空闲，是则删除房间及其全部消息，
	// 返回被删除消息引用的附件路径。房间已被刷新或已不存在时 deleted 为 false。
	DeleteIfIdle(ctx context.Context, code string, cutoff time.Time) (attachments []string, deleted bool, err error)
}
