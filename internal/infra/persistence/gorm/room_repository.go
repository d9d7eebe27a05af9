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

// GormRoomRepository 是 RoomRepository 接口的 GORM 实现
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository 创建 GormRoomRepository 实例
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

// Create 实现保存新房间
func (r *GormRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	if err := r.db.WithContext(ctx).Create(room).Error; err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: create room (code: %s): %w", room.Code, err)
	}
	return nil
}

// FindByCode 实现根据房间码查找房间
func (r *GormRoomRepository) FindByCode(ctx context.Context, code string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by code '%s': %w", code, err)
	}
	return &room, nil
}

// IsCodeExists 实现检查房间码是否存在
func (r *GormRoomRepository) IsCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Room{}).Where("code = ?", code).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: count rooms by code '%s': %w", code, err)
	}
	return count > 0, nil
}

// Touch 实现刷新房间活跃时间
func (r *GormRoomRepository) Touch(ctx context.Context, code string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&domain.Room{}).
		Where("code = ?", code).
		Update("last_activity", at.UTC())
	if result.Error != nil {
		return fmt.Errorf("gorm: touch room '%s': %w", code, result.Error)
	}
	if result.RowsAffected == 0 {
		// MySQL 在值未变化时也返回 0，需要再确认一次房间是否存在
		exists, err := r.IsCodeExists(ctx, code)
		if err != nil {
			return err
		}
		if !exists {
			return repository.ErrRoomNotFound
		}
	}
	return nil
}

// FindIdle 实现查询空闲房间
func (r *GormRoomRepository) FindIdle(ctx context.Context, cutoff time.Time, limit int) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.WithContext(ctx).
		Where("last_activity <= ?", cutoff.UTC()).
		Order("last_activity asc").
		Limit(limit).
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find idle rooms (cutoff %s): %w", cutoff.Format(time.RFC3339), err)
	}
	return rooms, nil
}

// DeleteIfIdle 实现单房间的条件删除。
// 房间行在事务内加锁，与 AppendAndTouch 互斥。
func (r *GormRoomRepository) DeleteIfIdle(ctx context.Context, code string, cutoff time.Time) ([]string, bool, error) {
	var attachments []string
	deleted := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room domain.Room
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ? AND last_activity <= ?", code, cutoff.UTC()).
			First(&room).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil // 已被刷新或已被其他请求删除
			}
			return err
		}

		if err := tx.Model(&domain.Message{}).
			Where("room_id = ? AND attachment_path <> ''", room.ID).
			Pluck("attachment_path", &attachments).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", room.ID).Delete(&domain.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&room).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("gorm: delete idle room '%s': %w", code, err)
	}
	return attachments, deleted, nil
}
