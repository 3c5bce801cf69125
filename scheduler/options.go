package scheduler

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/sanurielf/scheduler/lock"
	"github.com/sanurielf/scheduler/logger"
)

// MetricsRecorder 调度指标记录器.
//
// metrics.PrometheusCollector 实现了该接口.
type MetricsRecorder interface {
	RecordTick()
	RecordFire(job string, err error, duration time.Duration)
	RecordSkip(job, reason string)
	SetJobs(n int)
}

// Locker 分布式锁，lock.Locker 的子集.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

var _ Locker = (lock.Locker)(nil)

// Option 调度器配置选项.
type Option func(*options)

// options 调度器内部配置.
type options struct {
	logger         logger.Logger
	locker         Locker
	hooks          *Hooks
	metrics        MetricsRecorder
	tracerProvider trace.TracerProvider
	clock          TimeSource
	location       *time.Location
	policy         AttemptPolicy
	defaultTimeout time.Duration
	lockTTL        time.Duration
}

// defaultOptions 返回默认配置.
func defaultOptions() *options {
	return &options{
		clock:          SystemClock(),
		location:       time.Local,
		policy:         CountAllAttempts,
		defaultTimeout: 5 * time.Minute,
		lockTTL:        10 * time.Minute,
	}
}

// WithLogger 设置日志记录器.
func WithLogger(log logger.Logger) Option {
	return func(o *options) {
		o.logger = log
	}
}

// WithLocker 设置分布式锁.
//
// 用于多实例部署，确保同一任务的同一到期时刻只执行一次.
// 需要配合 Distributed 任务选项使用.
//
// 示例:
//
//	c, _ := cache.NewCache(&cache.Config{Type: cache.TypeRedis, Addr: "127.0.0.1:6379"}, log)
//	locker := lock.NewRedis(c, lock.WithKeyPrefix("scheduler:"))
//	s := scheduler.MustNew(scheduler.WithLocker(locker))
func WithLocker(l Locker) Option {
	return func(o *options) {
		o.locker = l
	}
}

// WithHooks 设置全局钩子.
func WithHooks(hooks *Hooks) Option {
	return func(o *options) {
		o.hooks = hooks
	}
}

// WithMetrics 设置指标记录器.
func WithMetrics(m MetricsRecorder) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTracerProvider 设置链路追踪提供者.
//
// 默认: otel.GetTracerProvider()
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithClock 设置时钟.
//
// 默认: 系统时钟.
func WithClock(c TimeSource) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLocation 设置参考时区.
//
// naive 触发点按该时区的墙上时间解释.
// 默认: time.Local
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		o.location = loc
	}
}

// WithAttemptPolicy 设置 Attempts 计数策略.
//
// 默认: CountAllAttempts.
func WithAttemptPolicy(p AttemptPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithDefaultTimeout 设置默认任务超时时间.
//
// 如果任务未指定超时时间，将使用此值.
// 默认: 5 分钟.
func WithDefaultTimeout(d time.Duration) Option {
	return func(o *options) {
		o.defaultTimeout = d
	}
}

// WithLockTTL 设置分布式锁过期时间.
//
// 应大于各实例之间的时钟偏差与 tick 间隔之和.
// 默认: 10 分钟.
func WithLockTTL(d time.Duration) Option {
	return func(o *options) {
		o.lockTTL = d
	}
}
