package service

import (
	"strings"
	"time"
)

// Settings 是各服务在构造时接收的业务配置
type Settings struct {
	IdleThreshold     time.Duration // 房间空闲多久后被清理
	MaxImageBytes     int64
	AllowedImageTypes []string
	LockTimeout       time.Duration // 等待房间锁的最长时间
}

// DefaultSettings 返回默认配置：空闲 120 分钟、图片 5 MB
func DefaultSettings() Settings {
	return Settings{
		IdleThreshold:     120 * time.Minute,
		MaxImageBytes:     5 * 1024 * 1024,
		AllowedImageTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
		LockTimeout:       5 * time.Second,
	}
}

// IdleMinutes 空闲阈值（分钟）
func (s Settings) IdleMinutes() int {
	return int(s.IdleThreshold / time.Minute)
}

func (s Settings) imageTypeAllowed(contentType string) bool {
	for _, allowed := range s.AllowedImageTypes {
		if strings.EqualFold(allowed, contentType) {
			return true
		}
	}
	return false
}

// Clock 返回当前时间，测试中可替换
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now()
}

// nowUTC 统一为 UTC 并截断到微秒，与数据库 datetime(6) 精度一致
func nowUTC(clock Clock) time.Time {
	return clock().UTC().Truncate(time.Microsecond)
}
