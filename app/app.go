// Package app 提供 weeklyd 的生命周期管理.
//
// Application 依次启动注册的服务（调度驱动、状态 HTTP 服务等），
// 收到信号或调用 Stop 后按相反顺序停止，并执行清理任务.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"sync"

	"github.com/sanurielf/scheduler/logger"
)

// ErrRunning 应用正在运行.
var ErrRunning = errors.New("app: 应用正在运行")

// Server 服务接口.
//
// Start 必须在服务就绪后返回，不阻塞.
type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Name() string
	Addr() string
}

// Application 应用程序，管理多个服务的生命周期.
type Application struct {
	opts    *options
	servers []Server
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	running bool
}

// New 创建应用程序.
func New(opts ...Option) *Application {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		panic("app: logger is required")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Application{
		opts:   o,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Use 注册服务，按注册顺序启动.
func (a *Application) Use(servers ...Server) *Application {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.servers = append(a.servers, servers...)
	return a
}

// Run 启动所有服务并阻塞，直到收到信号或调用 Stop.
func (a *Application) Run() error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrRunning
	}
	a.running = true
	servers := slices.Clone(a.servers)
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	if err := a.opts.hooks.run(a.ctx, BeforeStart); err != nil {
		return err
	}

	a.opts.logger.With(
		logger.String("name", a.opts.name),
		logger.String("version", a.opts.version),
	).Info("[App] starting")

	started, err := a.start(servers)
	if err != nil {
		a.stopServers(started)
		a.runCleanups(context.Background())
		return err
	}

	if err := a.opts.hooks.run(a.ctx, AfterStart); err != nil {
		a.opts.logger.With(logger.Err(err)).Error("[App] after start hook failed")
	}

	a.waitForSignal()
	return a.shutdown(started)
}

// Stop 主动停止应用程序.
func (a *Application) Stop() {
	a.cancel()
}

// Context 获取应用上下文.
func (a *Application) Context() context.Context {
	return a.ctx
}

// Name 获取应用名称.
func (a *Application) Name() string {
	return a.opts.name
}

// Version 获取应用版本.
func (a *Application) Version() string {
	return a.opts.version
}

// start 按顺序启动服务，返回已成功启动的服务.
func (a *Application) start(servers []Server) ([]Server, error) {
	if len(servers) == 0 {
		a.opts.logger.Warn("[App] no servers registered")
		return nil, nil
	}

	started := make([]Server, 0, len(servers))
	for _, s := range servers {
		if err := s.Start(a.ctx); err != nil {
			a.opts.logger.With(
				logger.String("server", s.Name()),
				logger.Err(err),
			).Error("[App] server start failed")
			return started, fmt.Errorf("app: start %s: %w", s.Name(), err)
		}
		a.opts.logger.With(
			logger.String("server", s.Name()),
			logger.String("addr", s.Addr()),
		).Info("[App] server started")
		started = append(started, s)
	}
	return started, nil
}

func (a *Application) waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, a.opts.signals...)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.opts.logger.With(logger.String("signal", sig.String())).Info("[App] received signal")
	case <-a.ctx.Done():
		a.opts.logger.Info("[App] context cancelled")
	}
}

func (a *Application) shutdown(servers []Server) error {
	a.opts.logger.With(
		logger.Duration("timeout", a.opts.gracefulTimeout),
	).Info("[App] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.opts.gracefulTimeout)
	defer cancel()

	if err := a.opts.hooks.run(shutdownCtx, BeforeStop); err != nil {
		a.opts.logger.With(logger.Err(err)).Error("[App] before stop hook failed")
	}

	err := a.stopServersCtx(shutdownCtx, servers)

	a.runCleanups(shutdownCtx)

	if hookErr := a.opts.hooks.run(context.Background(), AfterStop); hookErr != nil {
		a.opts.logger.With(logger.Err(hookErr)).Error("[App] after stop hook failed")
	}

	a.opts.logger.Info("[App] stopped")
	return err
}

func (a *Application) stopServers(servers []Server) {
	ctx, cancel := context.WithTimeout(context.Background(), a.opts.gracefulTimeout)
	defer cancel()
	_ = a.stopServersCtx(ctx, servers)
}

// stopServersCtx 按启动的相反顺序停止服务.
func (a *Application) stopServersCtx(ctx context.Context, servers []Server) error {
	var errs []error
	for i := len(servers) - 1; i >= 0; i-- {
		s := servers[i]
		a.opts.logger.With(logger.String("server", s.Name())).Info("[App] stopping server")
		if err := s.Stop(ctx); err != nil {
			a.opts.logger.With(
				logger.String("server", s.Name()),
				logger.Err(err),
			).Error("[App] server stop failed")
			errs = append(errs, fmt.Errorf("app: stop %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (a *Application) runCleanups(ctx context.Context) {
	if len(a.opts.cleanups) == 0 {
		return
	}

	for _, c := range a.opts.cleanups.ordered() {
		if err := c.Fn(ctx); err != nil {
			a.opts.logger.With(
				logger.String("cleanup", c.Name),
				logger.Err(err),
			).Error("[App] cleanup failed")
		} else {
			a.opts.logger.With(logger.String("cleanup", c.Name)).Debug("[App] cleanup done")
		}
	}
}
