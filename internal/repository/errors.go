package repository

import "errors"

// 通用的存储库错误
var (
	// ErrNotFound 表示请求的记录未找到
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry 表示尝试插入的数据违反了唯一约束
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
	// ErrLockTimeout 表示在超时前未能获得房间锁
	ErrLockTimeout = errors.New("repository: room lock timeout")
)

var (
	ErrRoomNotFound = ErrNotFound
)
