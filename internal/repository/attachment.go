package repository

import (
	"context"
	"io"
)

// AttachmentStore 管理消息附件（图片）的二进制存储。
type AttachmentStore interface {
	// Save 写入附件并返回相对路径，例如 "room_images/<uuid>.png"。
	Save(ctx context.Context, ext string, r io.Reader) (string, error)

	// Delete 删除附件。文件已不存在时不视为错误。
	Delete(ctx context.Context, path string) error

	// URL 返回附件对外访问的地址。
	URL(path string) string
}
