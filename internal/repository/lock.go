package repository

import "context"

// RoomLocker 提供按房间码划分的互斥锁，用于串行化同一房间的写入与过期清理。
type RoomLocker interface {
	// Lock 阻塞直到获得锁或 ctx 结束。超时返回 ErrLockTimeout。
	// 返回的 unlock 必须被调用且只调用一次。
	Lock(ctx context.Context, code string) (unlock func(), err error)

	// TryLock 立即尝试获得锁，锁被占用时 ok 为 false。
	TryLock(ctx context.Context, code string) (unlock func(), ok bool, err error)
}
