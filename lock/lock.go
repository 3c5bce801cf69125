// Package lock 提供基于缓存的分布式锁.
//
// 调度器在多实例部署时以 "<任务名>:<到期时间戳>" 为键抢锁，
// 抢到的实例执行本次到期，其余实例记为跳过.
package lock

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrLockNotAcquired 锁已被其他实例持有.
	ErrLockNotAcquired = errors.New("lock: 锁已被其他实例持有")

	// ErrLockNotHeld 当前实例未持有该锁，无法释放或续期.
	ErrLockNotHeld = errors.New("lock: 当前实例未持有该锁")

	// ErrLockExpired 锁已过期被回收.
	ErrLockExpired = errors.New("lock: 锁已过期")
)

// Locker 分布式锁接口.
type Locker interface {
	// TryLock 尝试获取锁，不阻塞.
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Lock 获取锁，阻塞直到成功、重试耗尽或 ctx 取消.
	Lock(ctx context.Context, key string, ttl time.Duration) error

	// Unlock 释放锁.
	Unlock(ctx context.Context, key string) error

	// Extend 延长锁的过期时间.
	Extend(ctx context.Context, key string, ttl time.Duration) error
}

// WithLock 阻塞获取锁后执行 fn，执行完毕释放锁.
func WithLock(ctx context.Context, l Locker, key string, ttl time.Duration, fn func() error) error {
	if err := l.Lock(ctx, key, ttl); err != nil {
		return err
	}
	defer l.Unlock(context.WithoutCancel(ctx), key)

	return fn()
}

// TryWithLock 尝试获取锁，获取失败返回 ErrLockNotAcquired，不执行 fn.
func TryWithLock(ctx context.Context, l Locker, key string, ttl time.Duration, fn func() error) error {
	acquired, err := l.TryLock(ctx, key, ttl)
	if err != nil {
		return err
	}
	if !acquired {
		return ErrLockNotAcquired
	}
	defer l.Unlock(context.WithoutCancel(ctx), key)

	return fn()
}

// IsNotAcquired 判断错误是否为未获取到锁.
func IsNotAcquired(err error) bool {
	return errors.Is(err, ErrLockNotAcquired)
}
