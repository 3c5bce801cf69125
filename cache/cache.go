// Package cache 提供键值缓存接口，供分布式锁等组件使用.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/sanurielf/scheduler/logger"
)

// 缓存类型常量.
const (
	TypeRedis  = "redis"
	TypeMemory = "memory"
)

// 默认配置值.
const (
	DefaultPoolSize        = 10
	DefaultTimeout         = 5 * time.Second
	DefaultReadTimeout     = 3 * time.Second
	DefaultWriteTimeout    = 3 * time.Second
	DefaultMaxRetries      = 3
	DefaultCleanupInterval = time.Minute
)

var (
	// ErrNotFound 键不存在或已过期.
	ErrNotFound = errors.New("cache: key not found")
	// ErrLockNotHeld 解锁时锁已被他人持有或已过期.
	ErrLockNotHeld = errors.New("cache: lock not held")
	ErrNilConfig   = errors.New("cache: nil config")
	ErrEmptyAddr   = errors.New("cache: redis addr is empty")
	ErrUnsupported = errors.New("cache: unsupported type")
	ErrNilLogger   = errors.New("cache: logger is required")
	ErrClosed      = errors.New("cache: closed")
)

// Cache 缓存接口.
type Cache interface {
	// 基础操作
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	// 原子操作
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)

	// 过期时间
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)

	// 分布式锁
	TryLock(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string, value string) error
	// Refresh 仅当 key 的值仍为 value 时重设过期时间
	Refresh(ctx context.Context, key string, value string, ttl time.Duration) error

	// 资源管理
	Ping(ctx context.Context) error
	Close() error
}

// NewCache 创建缓存实例.
// logger 是必需参数，不能为 nil.
func NewCache(config *Config, log logger.Logger) (Cache, error) {
	if log == nil {
		return nil, ErrNilLogger
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	config.ApplyDefaults()

	switch config.Type {
	case TypeRedis:
		return NewRedisCache(config, log)
	case TypeMemory:
		return NewMemoryCache(config, log)
	default:
		return nil, ErrUnsupported
	}
}

// MustNewCache 创建缓存实例，失败时 panic.
func MustNewCache(config *Config, log logger.Logger) Cache {
	c, err := NewCache(config, log)
	if err != nil {
		panic(err)
	}
	return c
}
