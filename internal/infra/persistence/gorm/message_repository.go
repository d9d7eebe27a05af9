package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/paragishere/Cyvance-chat/internal/domain"
	"github.com/paragishere/Cyvance-chat/internal/repository"
)

// GormMessageRepository 是 MessageRepository 接口的 GORM 实现
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository 创建 GormMessageRepository 实例
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMessageRepository")
	}
	return &GormMessageRepository{db: db}
}

// AppendAndTouch 实现消息写入与房间刷新的原子操作
func (r *GormMessageRepository) AppendAndTouch(ctx context.Context, roomCode string, msg *domain.Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room domain.Room
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", roomCode).
			First(&room).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrRoomNotFound
			}
			return err
		}

		msg.RoomID = room.ID
		msg.CreatedAt = msg.CreatedAt.UTC()
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&room).Update("last_activity", msg.CreatedAt).Error
	})
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return err
		}
		return fmt.Errorf("gorm: append %s message to room '%s': %w", msg.Type, roomCode, err)
	}
	return nil
}

// ListSince 实现按游标读取消息
func (r *GormMessageRepository) ListSince(ctx context.Context, roomID uint, since *time.Time) ([]domain.Message, error) {
	messages := make([]domain.Message, 0)
	query := r.db.WithContext(ctx).Where("room_id = ?", roomID)
	if since != nil {
		query = query.Where("created_at > ?", since.UTC())
	}
	err := query.Order("created_at asc").Order("id asc").Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list messages for room %d: %w", roomID, err)
	}
	return messages, nil
}
