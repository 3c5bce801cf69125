package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sanurielf/scheduler/logger"
)

// memoryCache 内存缓存实现，适用于单实例部署和测试.
type memoryCache struct {
	data      map[string]*cacheItem
	mu        sync.Mutex
	config    *Config
	logger    logger.Logger
	closeCh   chan struct{}
	closeOnce sync.Once
}

// cacheItem 缓存项.
type cacheItem struct {
	value    string
	expireAt time.Time // 零值表示永不过期
}

func (i *cacheItem) isExpired(now time.Time) bool {
	return !i.expireAt.IsZero() && !now.Before(i.expireAt)
}

func newItem(value string, ttl time.Duration) *cacheItem {
	item := &cacheItem{value: value}
	if ttl > 0 {
		item.expireAt = time.Now().Add(ttl)
	}
	return item
}

// NewMemoryCache 创建内存缓存.
func NewMemoryCache(config *Config, log logger.Logger) (Cache, error) {
	if log == nil {
		return nil, ErrNilLogger
	}
	if config == nil {
		config = NewMemoryConfig()
	}
	config.ApplyDefaults()

	c := &memoryCache{
		data:    make(map[string]*cacheItem),
		config:  config,
		logger:  log,
		closeCh: make(chan struct{}),
	}

	go c.cleanupLoop()

	log.Debug("[cache] memory cache initialized")
	return c, nil
}

// cleanupLoop 定期清理过期项.
func (m *memoryCache) cleanupLoop() {
	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.closeCh:
			return
		}
	}
}

func (m *memoryCache) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, item := range m.data {
		if item.isExpired(now) {
			delete(m.data, key)
		}
	}
}

// lookup 返回未过期的缓存项，调用方须持有 m.mu.
func (m *memoryCache) lookup(key string) (*cacheItem, bool) {
	item, ok := m.data[key]
	if !ok {
		return nil, false
	}
	if item.isExpired(time.Now()) {
		delete(m.data, key)
		return nil, false
	}
	return item, true
}

// Set 设置键值对.
func (m *memoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = newItem(value, ttl)
	return nil
}

// Get 获取值.
func (m *memoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.lookup(key)
	if !ok {
		return "", ErrNotFound
	}
	return item.value, nil
}

// Del 删除键.
func (m *memoryCache) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

// Exists 检查键是否存在.
func (m *memoryCache) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.lookup(key)
	return ok, nil
}

// SetNX 仅当键不存在时设置.
func (m *memoryCache) SetNX(_ context.Context, key string, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.lookup(key); ok {
		return false, nil
	}
	m.data[key] = newItem(value, ttl)
	return true, nil
}

// Expire 设置过期时间，ttl <= 0 表示永不过期.
func (m *memoryCache) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.lookup(key)
	if !ok {
		return ErrNotFound
	}
	if ttl > 0 {
		item.expireAt = time.Now().Add(ttl)
	} else {
		item.expireAt = time.Time{}
	}
	return nil
}

// TTL 获取剩余过期时间.
func (m *memoryCache) TTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.lookup(key)
	if !ok {
		return -2, nil // Redis 约定：-2 表示键不存在
	}
	if item.expireAt.IsZero() {
		return -1, nil // Redis 约定：-1 表示永不过期
	}
	return time.Until(item.expireAt), nil
}

// TryLock 尝试获取锁.
func (m *memoryCache) TryLock(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	return m.SetNX(ctx, key, value, ttl)
}

// Unlock 释放锁，仅持有者可释放.
func (m *memoryCache) Unlock(_ context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.lookup(key)
	if !ok || item.value != value {
		return ErrLockNotHeld
	}
	delete(m.data, key)
	return nil
}

// Refresh 持有者续期.
func (m *memoryCache) Refresh(_ context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.lookup(key)
	if !ok {
		return ErrNotFound
	}
	if item.value != value {
		return ErrLockNotHeld
	}
	item.expireAt = time.Time{}
	if ttl > 0 {
		item.expireAt = time.Now().Add(ttl)
	}
	return nil
}

// Ping 测试连接（内存缓存始终可用）.
func (m *memoryCache) Ping(_ context.Context) error {
	select {
	case <-m.closeCh:
		return ErrClosed
	default:
		return nil
	}
}

// Close 关闭缓存.
func (m *memoryCache) Close() error {
	m.closeOnce.Do(func() {
		close(m.closeCh)
		m.logger.Debug("[cache] memory cache closed")
	})
	return nil
}

// Size 返回缓存项数量（含尚未清理的过期项）.
func (m *memoryCache) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
