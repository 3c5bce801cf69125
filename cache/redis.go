package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sanurielf/scheduler/logger"
)

// compareAndDelete 仅当值匹配时删除锁键.
var compareAndDelete = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// compareAndExpire 仅当值匹配时续期：-1 键不存在，0 值不匹配，1 成功.
var compareAndExpire = redis.NewScript(`
local v = redis.call("get", KEYS[1])
if not v then
	return -1
end
if v ~= ARGV[1] then
	return 0
end
redis.call("pexpire", KEYS[1], ARGV[2])
return 1
`)

// redisCache 基于 go-redis 的缓存，多个调度实例共享同一个 Redis 实现跨进程互斥.
type redisCache struct {
	client redis.UniversalClient
	config *Config
	logger logger.Logger
}

// NewRedisCache 创建 Redis 缓存并检查连通性.
func NewRedisCache(config *Config, log logger.Logger) (Cache, error) {
	if log == nil {
		return nil, ErrNilLogger
	}
	if config == nil {
		return nil, ErrNilConfig
	}
	if config.Addr == "" {
		return nil, ErrEmptyAddr
	}
	config.ApplyDefaults()

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{config.Addr},
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		DialTimeout:  config.Timeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		MaxRetries:   config.MaxRetries,
	})

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		log.With(logger.String("addr", config.Addr), logger.Err(err)).Error("[cache] redis 连接失败")
		return nil, fmt.Errorf("cache: connect redis %s: %w", config.Addr, err)
	}

	log.With(logger.String("addr", config.Addr), logger.Int("db", config.DB)).Debug("[cache] redis connected")
	return &redisCache{client: client, config: config, logger: log}, nil
}

// fail 记录失败的命令并原样返回错误.
func (r *redisCache) fail(cmd, key string, err error) error {
	r.logger.With(
		logger.String("cmd", cmd),
		logger.String("key", key),
		logger.Err(err),
	).Error("[cache] redis command failed")
	return err
}

func (r *redisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return r.fail("SET", key, err)
	}
	return nil
}

func (r *redisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", ErrNotFound
	case err != nil:
		return "", r.fail("GET", key, err)
	}
	return v, nil
}

func (r *redisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return r.fail("DEL", fmt.Sprint(keys), err)
	}
	return nil
}

func (r *redisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, r.fail("EXISTS", key, err)
	}
	return n > 0, nil
}

func (r *redisCache) SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, r.fail("SETNX", key, err)
	}
	return ok, nil
}

// Expire 设置过期时间，ttl <= 0 表示永不过期.
func (r *redisCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	var cmd *redis.BoolCmd
	if ttl > 0 {
		cmd = r.client.PExpire(ctx, key, ttl)
	} else {
		cmd = r.client.Persist(ctx, key)
	}
	ok, err := cmd.Result()
	if err != nil {
		return r.fail("EXPIRE", key, err)
	}
	if !ok {
		// PERSIST 对没有过期时间的键也返回 0
		exists, err := r.Exists(ctx, key)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

func (r *redisCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := r.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, r.fail("PTTL", key, err)
	}
	return d, nil
}

func (r *redisCache) TryLock(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	return r.SetNX(ctx, key, value, ttl)
}

func (r *redisCache) Unlock(ctx context.Context, key string, value string) error {
	n, err := compareAndDelete.Run(ctx, r.client, []string{key}, value).Int64()
	if err != nil {
		return r.fail("UNLOCK", key, err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

func (r *redisCache) Refresh(ctx context.Context, key string, value string, ttl time.Duration) error {
	n, err := compareAndExpire.Run(ctx, r.client, []string{key}, value, ttl.Milliseconds()).Int64()
	if err != nil {
		return r.fail("REFRESH", key, err)
	}
	switch n {
	case -1:
		return ErrNotFound
	case 0:
		return ErrLockNotHeld
	}
	return nil
}

func (r *redisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisCache) Close() error {
	if err := r.client.Close(); err != nil {
		return r.fail("CLOSE", "", err)
	}
	r.logger.Debug("[cache] redis connection closed")
	return nil
}
