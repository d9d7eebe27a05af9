package redisstate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/paragishere/Cyvance-chat/internal/repository"
)

// 只删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

const (
	defaultLockTTL       = 15 * time.Second
	defaultRetryInterval = 25 * time.Millisecond
)

// RedisRoomLocker 是 RoomLocker 的 Redis 实现，多个实例共享同一把房间锁。
type RedisRoomLocker struct {
	client        *redis.Client
	keyPrefix     string
	ttl           time.Duration // 持有者崩溃时锁的自动过期时间
	retryInterval time.Duration
}

// NewRedisRoomLocker 创建 RedisRoomLocker 实例
func NewRedisRoomLocker(client *redis.Client, keyPrefix string) *RedisRoomLocker {
	if client == nil {
		panic("redis client cannot be nil for RedisRoomLocker")
	}
	if keyPrefix == "" {
		keyPrefix = "chat:"
	}
	return &RedisRoomLocker{
		client:        client,
		keyPrefix:     keyPrefix,
		ttl:           defaultLockTTL,
		retryInterval: defaultRetryInterval,
	}
}

func (r *RedisRoomLocker) roomLockKey(code string) string {
	return fmt.Sprintf("%sroom:%s:lock", r.keyPrefix, code)
}

// Lock 轮询 SET NX 直到获得锁或 ctx 结束
func (r *RedisRoomLocker) Lock(ctx context.Context, code string) (func(), error) {
	key := r.roomLockKey(code)
	token := uuid.NewString()
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, repository.ErrLockTimeout
			}
			return nil, fmt.Errorf("redis: failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return r.unlocker(key, token), nil
		}
		select {
		case <-ctx.Done():
			return nil, repository.ErrLockTimeout
		case <-time.After(r.retryInterval):
		}
	}
}

// TryLock 只尝试一次 SET NX
func (r *RedisRoomLocker) TryLock(ctx context.Context, code string) (func(), bool, error) {
	key := r.roomLockKey(code)
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis: failed to try lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return r.unlocker(key, token), true, nil
}

func (r *RedisRoomLocker) unlocker(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// 请求 ctx 可能已取消，释放锁使用独立的 context
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				logrus.WithError(err).WithField("lock_key", key).Warn("redis: failed to release room lock, it will expire by TTL")
			}
		})
	}
}
