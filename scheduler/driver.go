package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DriverOption 驱动器配置选项.
type DriverOption func(*Driver)

// WithInterval 设置 tick 间隔，不足 1 秒按 1 秒处理.
//
// 默认: 1 秒.
func WithInterval(d time.Duration) DriverOption {
	return func(dr *Driver) {
		dr.interval = d
	}
}

// WithDriverName 设置驱动器名称.
func WithDriverName(name string) DriverOption {
	return func(dr *Driver) {
		dr.name = name
	}
}

// Driver 基于 cron 的外部 tick 驱动器，周期性调用 Scheduler.ExecJobs.
//
// Scheduler 本身不休眠；Driver 负责进程内的定时，可直接注册到 app.Application.
type Driver struct {
	scheduler *Scheduler
	cron      *cron.Cron
	interval  time.Duration
	name      string

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

// NewDriver 创建驱动器.
func NewDriver(s *Scheduler, opts ...DriverOption) (*Driver, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: scheduler is required", ErrInvalidConfig)
	}

	d := &Driver{
		scheduler: s,
		interval:  time.Second,
		name:      "weekly-scheduler",
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.interval < time.Second {
		d.interval = time.Second
	}

	// 上一次 tick 未结束时跳过本次，避免 tick 堆积
	d.cron = cron.New(
		cron.WithLocation(s.Location()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	d.cron.Schedule(cron.Every(d.interval), cron.FuncJob(d.tick))

	return d, nil
}

// Name 返回驱动器名称.
func (d *Driver) Name() string {
	return d.name
}

// Addr 返回 tick 间隔描述.
func (d *Driver) Addr() string {
	return "@every " + d.interval.String()
}

// Running 检查是否运行中.
func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Start 启动驱动器，立即返回.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return nil
	}
	d.ctx, d.cancel = context.WithCancel(context.WithoutCancel(ctx))
	d.cron.Start()
	d.running = true

	d.scheduler.logDebugf("驱动器已启动 [interval:%s]", d.interval)
	return nil
}

// Stop 停止驱动器并等待正在执行的 tick 完成.
func (d *Driver) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	cancel := d.cancel
	d.mu.Unlock()

	cronCtx := d.cron.Stop()
	defer cancel()

	select {
	case <-cronCtx.Done():
		d.scheduler.logDebug("驱动器已停止")
		return nil
	case <-ctx.Done():
		d.scheduler.logErrorf("驱动器停止超时 [error:%v]", ctx.Err())
		return ctx.Err()
	}
}

// RunOnce 立即执行一次 tick.
func (d *Driver) RunOnce(ctx context.Context) error {
	return d.scheduler.ExecJobs(ctx)
}

func (d *Driver) tick() {
	d.mu.Lock()
	ctx := d.ctx
	d.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := d.scheduler.ExecJobs(ctx); err != nil {
		d.scheduler.logErrorf("tick 执行失败 [error:%v]", err)
	}
}
