package domain

import (
	"strings"
	"time"
)

// MessageType 消息类型
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageCode  MessageType = "code"
	MessageImage MessageType = "image"
)

// DefaultNickname 未填写昵称时使用的显示名
const DefaultNickname = "anon"

// Valid 判断是否为支持的消息类型。
func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageCode, MessageImage:
		return true
	}
	return false
}

// Message 表示房间内的一条消息。
type Message struct {
	ID             uint        `gorm:"primaryKey"`
	RoomID         uint        `gorm:"not null;index:idx_messages_room_created,priority:1"`
	Type           MessageType `gorm:"size:10;not null"`
	Content        string      `gorm:"type:text"`          // text / code 的正文
	AttachmentPath string      `gorm:"size:255;default:''"` // 仅 image 类型使用，相对于 MEDIA_ROOT
	CreatedAt      time.Time   `gorm:"precision:6;not null;index:idx_messages_room_created,priority:2"`
	Nickname       string      `gorm:"size:24;not null;default:anon"`
}

// HasAttachment 消息是否引用了附件文件
func (m *Message) HasAttachment() bool {
	return m.AttachmentPath != ""
}

// WithLanguageTag 把语言标签作为 "[lang]\n" 前缀写入代码内容。
// 标签为空时原样返回。
func WithLanguageTag(language, content string) string {
	if language == "" {
		return content
	}
	return "[" + language + "]\n" + content
}

// SplitLanguageTag 从代码内容中解析出 "[lang]\n" 前缀。
// 没有前缀时 language 为空，body 为原内容。
func SplitLanguageTag(content string) (language, body string) {
	if !strings.HasPrefix(content, "[") {
		return "", content
	}
	end := strings.Index(content, "]\n")
	if end <= 1 || strings.ContainsAny(content[1:end], "\n") {
		return "", content
	}
	return content[1:end], content[end+2:]
}
