package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sanurielf/scheduler/cache"
)

// 默认值.
const (
	DefaultKeyPrefix = "scheduler:lock:"
	DefaultRetryWait = 100 * time.Millisecond
)

// Redis 基于缓存的分布式锁.
//
// 生产环境使用 Redis 缓存，测试与单实例部署可使用内存缓存.
// 锁值为实例的 owner ID，只有持有者能释放或延长锁.
type Redis struct {
	cache      cache.Cache
	keyPrefix  string
	ownerID    string
	retryWait  time.Duration
	maxRetries int

	// held 记录本实例持有的锁及其本地过期时刻，零值表示不过期.
	mu   sync.Mutex
	held map[string]time.Time
}

var _ Locker = (*Redis)(nil)

// RedisOption Redis 锁配置选项.
type RedisOption func(*Redis)

// WithKeyPrefix 设置锁键前缀，默认 "scheduler:lock:".
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.keyPrefix = prefix
	}
}

// WithOwnerID 设置锁持有者 ID，默认自动生成 UUID.
func WithOwnerID(id string) RedisOption {
	return func(r *Redis) {
		if id != "" {
			r.ownerID = id
		}
	}
}

// WithRetryWait 设置 Lock 的重试间隔，默认 100ms.
func WithRetryWait(wait time.Duration) RedisOption {
	return func(r *Redis) {
		if wait > 0 {
			r.retryWait = wait
		}
	}
}

// WithMaxRetries 设置 Lock 的最大重试次数，0 表示直到 ctx 取消.
func WithMaxRetries(n int) RedisOption {
	return func(r *Redis) {
		r.maxRetries = n
	}
}

// NewRedis 创建分布式锁.
func NewRedis(c cache.Cache, opts ...RedisOption) *Redis {
	if c == nil {
		panic("lock: 缓存实例不能为空")
	}

	r := &Redis{
		cache:     c,
		keyPrefix: DefaultKeyPrefix,
		ownerID:   uuid.NewString(),
		retryWait: DefaultRetryWait,
		held:      make(map[string]time.Time),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// TryLock 尝试获取锁.
func (r *Redis) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	acquired, err := r.cache.TryLock(ctx, r.keyPrefix+key, r.ownerID, ttl)
	if err != nil {
		return false, err
	}

	now := time.Now()
	r.mu.Lock()
	// 调度器从不主动释放锁，按 TTL 清理已过期的记录
	for k, exp := range r.held {
		if !exp.IsZero() && now.After(exp) {
			delete(r.held, k)
		}
	}
	if acquired {
		r.held[key] = expiryOf(now, ttl)
	}
	r.mu.Unlock()

	return acquired, nil
}

func expiryOf(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

// Lock 获取锁（阻塞）.
func (r *Redis) Lock(ctx context.Context, key string, ttl time.Duration) error {
	retries := 0
	timer := time.NewTimer(r.retryWait)
	defer timer.Stop()

	for {
		acquired, err := r.TryLock(ctx, key, ttl)
		if err != nil {
			return err
		}
		if acquired {
			return nil
		}

		retries++
		if r.maxRetries > 0 && retries >= r.maxRetries {
			return ErrLockNotAcquired
		}

		timer.Reset(r.retryWait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Unlock 释放锁.
func (r *Redis) Unlock(ctx context.Context, key string) error {
	if !r.IsHeld(key) {
		return ErrLockNotHeld
	}

	err := r.cache.Unlock(ctx, r.keyPrefix+key, r.ownerID)
	if err != nil && !errors.Is(err, cache.ErrLockNotHeld) {
		return err
	}

	r.release(key)
	if err != nil {
		// 锁已过期或被其他实例接管
		return ErrLockNotHeld
	}
	return nil
}

// Extend 延长锁的过期时间.
func (r *Redis) Extend(ctx context.Context, key string, ttl time.Duration) error {
	if !r.IsHeld(key) {
		return ErrLockNotHeld
	}

	err := r.cache.Refresh(ctx, r.keyPrefix+key, r.ownerID, ttl)
	switch {
	case errors.Is(err, cache.ErrNotFound):
		r.release(key)
		return ErrLockExpired
	case errors.Is(err, cache.ErrLockNotHeld):
		r.release(key)
		return ErrLockNotHeld
	case err != nil:
		return err
	}

	r.mu.Lock()
	if _, ok := r.held[key]; ok {
		r.held[key] = expiryOf(time.Now(), ttl)
	}
	r.mu.Unlock()
	return nil
}

// OwnerID 返回当前锁持有者 ID.
func (r *Redis) OwnerID() string {
	return r.ownerID
}

// IsHeld 检查本实例是否持有指定的锁.
func (r *Redis) IsHeld(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.held[key]
	return ok
}

func (r *Redis) release(key string) {
	r.mu.Lock()
	delete(r.held, key)
	r.mu.Unlock()
}
