// Package recovery 提供 panic 恢复功能.
//
// 调度器用它包裹任务处理函数，使 panic 与返回错误一样被隔离在单个任务内.
package recovery

import (
	"fmt"
	"runtime"

	"github.com/sanurielf/scheduler/logger"
)

// Handler 是 panic 处理函数，返回值替代默认的 *PanicError.
type Handler func(p any, stack []byte) error

// Options 配置选项.
type Options struct {
	// Logger 日志记录器，为空时不记录.
	Logger logger.Logger

	// Handler 自定义 panic 处理函数.
	Handler Handler

	// StackSize 堆栈大小，默认 64KB.
	StackSize int

	// StackAll 是否捕获所有 goroutine 的堆栈，默认 false.
	StackAll bool
}

// Option 是配置函数.
type Option func(*Options)

// WithLogger 设置日志记录器.
func WithLogger(l logger.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithHandler 设置自定义 panic 处理函数.
func WithHandler(h Handler) Option {
	return func(o *Options) {
		o.Handler = h
	}
}

// WithStackSize 设置堆栈大小.
func WithStackSize(size int) Option {
	return func(o *Options) {
		o.StackSize = size
	}
}

// WithStackAll 设置是否捕获所有 goroutine 的堆栈.
func WithStackAll(all bool) Option {
	return func(o *Options) {
		o.StackAll = all
	}
}

func defaultOptions() *Options {
	return &Options{
		StackSize: 64 * 1024,
	}
}

func applyOptions(opts []Option) *Options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.StackSize <= 0 {
		o.StackSize = 64 * 1024
	}
	return o
}

// Do 执行 fn，并将 panic 转换为错误返回.
func Do(fn func() error, opts ...Option) (err error) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		o := applyOptions(opts)
		stack := captureStack(o.StackSize, o.StackAll)
		if o.Logger != nil {
			o.Logger.Errorf("[Recovery] panic recovered: %v\n%s", p, stack)
		}
		if o.Handler != nil {
			err = o.Handler(p, stack)
			return
		}
		err = &PanicError{Value: p, Stack: stack}
	}()
	return fn()
}

// captureStack 捕获堆栈信息.
func captureStack(size int, all bool) []byte {
	stack := make([]byte, size)
	n := runtime.Stack(stack, all)
	return stack[:n]
}

// PanicError 表示 panic 错误.
type PanicError struct {
	// Value 是 panic 的值.
	Value any
	// Stack 是堆栈信息.
	Stack []byte
}

// Error 实现 error 接口.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap 返回原始错误（如果 panic 值是 error）.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
