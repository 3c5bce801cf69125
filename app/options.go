package app

import (
	"context"
	"os"
	"slices"
	"syscall"
	"time"

	"github.com/sanurielf/scheduler/logger"
)

// DefaultGracefulTimeout 默认的停止超时，需覆盖正在执行的周任务.
const DefaultGracefulTimeout = 15 * time.Second

// CleanupFunc 清理函数.
type CleanupFunc func(ctx context.Context) error

// Cleanup 在所有服务停止后执行的清理任务，Priority 小的先执行.
type Cleanup struct {
	Name     string
	Fn       CleanupFunc
	Priority int
}

type cleanupList []Cleanup

// ordered 按优先级稳定排序后的副本，同优先级保持注册顺序.
func (l cleanupList) ordered() []Cleanup {
	out := slices.Clone(l)
	slices.SortStableFunc(out, func(a, b Cleanup) int {
		return a.Priority - b.Priority
	})
	return out
}

type options struct {
	name            string
	version         string
	logger          logger.Logger
	hooks           *Hooks
	gracefulTimeout time.Duration
	signals         []os.Signal
	cleanups        cleanupList
}

func defaultOptions() *options {
	return &options{
		name:            "weeklyd",
		version:         "dev",
		gracefulTimeout: DefaultGracefulTimeout,
		signals:         []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// Option 应用选项.
type Option func(*options)

// Name 设置应用名称，默认 "weeklyd".
func Name(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// Version 设置版本号.
func Version(version string) Option {
	return func(o *options) {
		if version != "" {
			o.version = version
		}
	}
}

// Logger 设置日志记录器（必需）.
func Logger(log logger.Logger) Option {
	return func(o *options) { o.logger = log }
}

// SetHooks 设置生命周期钩子.
func SetHooks(hooks *Hooks) Option {
	return func(o *options) { o.hooks = hooks }
}

// GracefulTimeout 设置停止服务与清理的总超时，非正值保留默认.
func GracefulTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.gracefulTimeout = d
		}
	}
}

// Signals 覆盖触发停止的信号，默认 SIGINT 和 SIGTERM.
func Signals(signals ...os.Signal) Option {
	return func(o *options) {
		if len(signals) > 0 {
			o.signals = signals
		}
	}
}

// RegisterCleanup 注册清理任务.
func RegisterCleanup(name string, fn CleanupFunc, priority int) Option {
	return func(o *options) {
		o.cleanups = append(o.cleanups, Cleanup{Name: name, Fn: fn, Priority: priority})
	}
}

// RegisterCloser 把 Close() error 注册为清理任务，例如 Redis 缓存.
func RegisterCloser(name string, closer interface{ Close() error }, priority int) Option {
	return RegisterCleanup(name, func(context.Context) error {
		return closer.Close()
	}, priority)
}

// RegisterShutdowner 把 Shutdown(ctx) 注册为清理任务，例如 TracerProvider.
func RegisterShutdowner(name string, s interface{ Shutdown(context.Context) error }, priority int) Option {
	return RegisterCleanup(name, s.Shutdown, priority)
}
