// Package lock 提供单进程内按房间码划分的互斥锁。
package lock

import (
	"context"
	"sync"

	"github.com/paragishere/Cyvance-chat/internal/repository"
)

type entry struct {
	sem  chan struct{}
	refs int
}

// KeyedLocker 是 RoomLocker 的进程内实现，不同房间码之间互不阻塞。
type KeyedLocker struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewKeyedLocker 创建 KeyedLocker 实例
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{entries: make(map[string]*entry)}
}

// acquire 取得 code 对应的 entry 并增加引用计数
func (l *KeyedLocker) acquire(code string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[code]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.entries[code] = e
	}
	e.refs++
	return e
}

// release 减少引用计数，没有持有者或等待者时回收 entry
func (l *KeyedLocker) release(code string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, code)
	}
}

func (l *KeyedLocker) unlocker(code string, e *entry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.release(code, e)
		})
	}
}

// Lock 实现 RoomLocker.Lock
func (l *KeyedLocker) Lock(ctx context.Context, code string) (func(), error) {
	e := l.acquire(code)
	select {
	case e.sem <- struct{}{}:
		return l.unlocker(code, e), nil
	case <-ctx.Done():
		l.release(code, e)
		return nil, repository.ErrLockTimeout
	}
}

// TryLock 实现 RoomLocker.TryLock
func (l *KeyedLocker) TryLock(_ context.Context, code string) (func(), bool, error) {
	e := l.acquire(code)
	select {
	case e.sem <- struct{}{}:
		return l.unlocker(code, e), true, nil
	default:
		l.release(code, e)
		return nil, false, nil
	}
}

// Len 返回当前被跟踪的房间码数量
func (l *KeyedLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
