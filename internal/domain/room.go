package domain

import "time"

// Room 表示一个临时聊天房间，通过短码访问。
type Room struct {
	ID           uint      `gorm:"primaryKey"`
	Code         string    `gorm:"uniqueIndex;size:12;not null"` // 房间码，创建后不可变
	CreatedAt    time.Time `gorm:"precision:6;not null"`
	LastActivity time.Time `gorm:"precision:6;not null;index"` // 查看或收到消息时刷新，用于过期清理
}

// ExpiresAt 返回房间在没有新活动时的过期时间。
func (r *Room) ExpiresAt(idle time.Duration) time.Time {
	return r.LastActivity.Add(idle)
}

// IsIdle 判断房间在 now 时刻是否已超过空闲阈值。
func (r *Room) IsIdle(now time.Time, idle time.Duration) bool {
	return !now.Before(r.ExpiresAt(idle))
}
