package service

import (
	"strings"
	"time"
)

// 无时区信息的格式按 UTC 解释
var cursorLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseCursor 解析轮询游标。空字符串表示没有游标，返回 nil。
func ParseCursor(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	raw = restorePlusSign(raw)
	for _, layout := range cursorLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			utc := t.UTC()
			return &utc, nil
		}
	}
	return nil, ErrInvalidCursor
}

// restorePlusSign 还原查询串中被解码成空格的 "+" 时区偏移，
// 例如 "2026-01-02T10:00:00.5 00:00"。
func restorePlusSign(raw string) string {
	t := strings.IndexAny(raw, "Tt ")
	if t < 0 {
		return raw
	}
	sp := strings.LastIndex(raw, " ")
	if sp <= t {
		return raw
	}
	offset := raw[sp+1:]
	if len(offset) != 5 && len(offset) != 4 {
		return raw
	}
	return raw[:sp] + "+" + offset
}

// FormatTimestamp 输出 ISO-8601 时间，带 "+00:00" 偏移；微秒为零时省略小数部分
func FormatTimestamp(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond()/int(time.Microsecond) == 0 {
		return t.Format("2006-01-02T15:04:05-07:00")
	}
	return t.Format("2006-01-02T15:04:05.000000-07:00")
}
