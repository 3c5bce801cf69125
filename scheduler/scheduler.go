// Package scheduler 提供按周调度的任务功能.
//
// 特性：
//   - 以 (星期, 时刻) 描述周任务，支持固定 UTC 偏移
//   - 注册时归一化到参考时区并检测重复时刻（含跨时区等价的时刻）
//   - 由外部周期性调用 ExecJobs/Tick 驱动，自身不休眠
//   - 同一到期时刻最多执行一次；分布式锁支持多实例
//   - Hook 机制：BeforeJob/AfterJob/OnError/OnSkip
//   - Prometheus 指标与 OpenTelemetry 链路追踪
//
// 示例：
//
//	s := scheduler.MustNew(
//	    scheduler.WithLogger(log),
//	    scheduler.WithLocation(time.UTC),
//	)
//
//	job, err := s.Weekly(
//	    scheduler.OnAt(scheduler.Friday, scheduler.Clock(4, 0, 0).UTC()),
//	    reportHandler,
//	    scheduler.WithName("weekly-report"),
//	)
//
//	// 由外部驱动，例如 Driver 或自己的循环
//	_ = s.ExecJobs(ctx)
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sanurielf/scheduler/logger"
)

const tracerName = "github.com/sanurielf/scheduler/scheduler"

// 跳过原因.
const (
	SkipReasonHook       = "before hook rejected"
	SkipReasonLockHeld   = "distributed lock held by another instance"
	SkipReasonLockFailed = "failed to acquire distributed lock"
)

// Scheduler 周任务调度器.
type Scheduler struct {
	opts   *options
	tracer trace.Tracer

	mu     sync.RWMutex
	jobs   []*Job
	byID   map[string]*Job
	closed bool
}

// New 创建调度器.
func New(opts ...Option) (*Scheduler, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if o.location == nil {
		return nil, fmt.Errorf("%w: location is required", ErrInvalidConfig)
	}
	if o.clock == nil {
		return nil, fmt.Errorf("%w: clock is required", ErrInvalidConfig)
	}
	if o.policy != CountAllAttempts && o.policy != CountSuccessOnly {
		return nil, fmt.Errorf("%w: unknown attempt policy %d", ErrInvalidConfig, o.policy)
	}

	tp := o.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Scheduler{
		opts:   o,
		tracer: tp.Tracer(tracerName),
		byID:   make(map[string]*Job),
	}, nil
}

// MustNew 创建调度器，失败时 panic.
func MustNew(opts ...Option) *Scheduler {
	s, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Location 返回参考时区.
func (s *Scheduler) Location() *time.Location {
	return s.opts.location
}

// Now 返回注入时钟的当前时间.
func (s *Scheduler) Now() time.Time {
	return s.opts.clock.Now()
}

// Weekly 注册周任务.
//
// 依次执行归一化、校验和任务构建；任何一步失败都不会留下任务.
func (s *Scheduler) Weekly(timing TimingSpec, fn JobFunc, opts ...JobOption) (*Job, error) {
	if fn == nil {
		return nil, ErrHandlerNil
	}

	items, err := Normalize(timing)
	if err != nil {
		return nil, fmt.Errorf("scheduler: register weekly job: %w", err)
	}
	set, err := Validate(items)
	if err != nil {
		return nil, fmt.Errorf("scheduler: register weekly job [%s]: %w", timing.Triggers(), err)
	}

	src := make(Timing, len(items))
	for i, it := range items {
		src[i] = it.Source
	}

	job := newJob(uuid.NewString(), src, set, fn, s.opts.location, s.opts.clock.Now())
	job.policy = s.opts.policy
	for _, opt := range opts {
		opt(job)
	}
	if job.timeout <= 0 {
		job.timeout = s.opts.defaultTimeout
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSchedulerClosed
	}
	for _, existing := range s.jobs {
		if existing.name == job.name {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrJobExists, job.name)
		}
	}
	s.jobs = append(s.jobs, job)
	s.byID[job.id] = job
	n := len(s.jobs)
	s.mu.Unlock()

	if m := s.opts.metrics; m != nil {
		m.SetJobs(n)
	}
	s.logDebugf("任务已添加: %s [timing:%s, next:%s, distributed:%v]",
		job.name, job.timing, job.NextDue().Format(time.RFC3339), job.distributed)

	return job, nil
}

// Remove 移除任务.
func (s *Scheduler) Remove(id string) error {
	s.mu.Lock()
	job, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return ErrJobNotFound
	}
	delete(s.byID, id)
	for i, j := range s.jobs {
		if j == job {
			s.jobs = append(s.jobs[:i:i], s.jobs[i+1:]...)
			break
		}
	}
	n := len(s.jobs)
	s.mu.Unlock()

	if m := s.opts.metrics; m != nil {
		m.SetJobs(n)
	}
	s.logDebugf("任务已移除: %s", job.name)
	return nil
}

// Get 获取任务.
func (s *Scheduler) Get(id string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.byID[id]
	return job, ok
}

// Jobs 按注册顺序列出所有任务.
func (s *Scheduler) Jobs() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]*Job, len(s.jobs))
	copy(jobs, s.jobs)
	return jobs
}

// Close 关闭调度器，之后的注册与 tick 返回 ErrSchedulerClosed.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.logDebug("调度器已关闭")
}

// ExecJobs 以注入时钟的当前时间执行一次 tick.
func (s *Scheduler) ExecJobs(ctx context.Context) error {
	return s.Tick(ctx, s.opts.clock.Now())
}

// Tick 按注册顺序执行所有在 now 时到期的任务.
//
// 某个任务失败不会影响其他任务；返回值汇总了本次所有处理函数的错误.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrSchedulerClosed
	}
	jobs := make([]*Job, len(s.jobs))
	copy(jobs, s.jobs)
	s.mu.RUnlock()

	if m := s.opts.metrics; m != nil {
		m.RecordTick()
	}

	var errs []error
	for _, job := range jobs {
		if err := s.runJob(ctx, job, now, false); err != nil {
			errs = append(errs, fmt.Errorf("job %s: %w", job.name, err))
		}
	}
	return errors.Join(errs...)
}

// Trigger 立即执行任务一次，不改变既有的下一次到期时刻.
func (s *Scheduler) Trigger(ctx context.Context, id string) error {
	s.mu.RLock()
	job, ok := s.byID[id]
	closed := s.closed
	s.mu.RUnlock()

	if closed {
		return ErrSchedulerClosed
	}
	if !ok {
		return ErrJobNotFound
	}
	return s.runJob(ctx, job, s.opts.clock.Now(), true)
}

// runJob 在任务锁内完成到期检查与执行.
func (s *Scheduler) runJob(ctx context.Context, job *Job, now time.Time, force bool) error {
	job.mu.Lock()
	defer job.mu.Unlock()

	if !force && !job.IsDue(now) {
		return nil
	}

	due := job.NextDue()
	if force {
		due = now
	}
	jc := &JobContext{
		Job:     job,
		Due:     due,
		Now:     now,
		Attempt: job.Attempts() + 1,
	}

	if job.distributed && s.opts.locker != nil {
		key := fmt.Sprintf("%s:%d", job.name, due.Unix())
		acquired, err := s.opts.locker.TryLock(ctx, key, s.opts.lockTTL)
		if err != nil {
			s.logErrorf("获取分布式锁失败 [job:%s] [error:%v]", job.name, err)
			jc.Error = err
			s.skip(ctx, job, jc, SkipReasonLockFailed, now, force)
			return nil
		}
		if !acquired {
			s.skip(ctx, job, jc, SkipReasonLockHeld, now, force)
			return nil
		}
	}

	if err := s.opts.hooks.runBeforeHooks(ctx, jc); err != nil {
		s.logDebugf("前置钩子阻止任务执行 [job:%s] [error:%v]", job.name, err)
		jc.Error = err
		s.skip(ctx, job, jc, SkipReasonHook, now, force)
		return nil
	}

	spanCtx, span := s.tracer.Start(ctx, "scheduler.fire", trace.WithAttributes(
		attribute.String("job.id", job.id),
		attribute.String("job.name", job.name),
		attribute.Int64("job.attempt", jc.Attempt),
		attribute.String("job.due", due.Format(time.RFC3339Nano)),
	))

	s.logDebugf("开始执行任务: %s [due:%s]", job.name, due.Format(time.RFC3339))

	start := time.Now()
	var err error
	if force {
		next := job.NextDue()
		err = job.fire(spanCtx, now)
		job.nextDue.Store(&next)
	} else {
		err = job.fire(spanCtx, now)
	}
	jc.Duration = time.Since(start)
	jc.Error = err

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	if m := s.opts.metrics; m != nil {
		m.RecordFire(job.name, err, jc.Duration)
	}

	if err != nil {
		s.logErrorf("任务执行失败: %s [error:%v]", job.name, err)
		s.opts.hooks.runErrorHooks(ctx, jc)
	} else {
		s.logDebugf("任务执行成功: %s [duration:%v, next:%s]",
			job.name, jc.Duration, job.NextDue().Format(time.RFC3339))
	}
	s.opts.hooks.runAfterHooks(ctx, jc)

	return err
}

// skip 记录跳过并推进 nextDue，调用方须持有 job.mu.
func (s *Scheduler) skip(ctx context.Context, job *Job, jc *JobContext, reason string, now time.Time, force bool) {
	jc.Skipped = true
	jc.SkipReason = reason
	job.stats.recordSkip()
	if !force {
		job.advance(now)
	}
	if m := s.opts.metrics; m != nil {
		m.RecordSkip(job.name, reason)
	}
	s.opts.hooks.runSkipHooks(ctx, jc)
	s.logDebugf("任务跳过: %s [reason:%s]", job.name, reason)
}

// 日志辅助方法.

func (s *Scheduler) logger() logger.Logger {
	return s.opts.logger
}

func (s *Scheduler) logDebug(msg string) {
	if log := s.logger(); log != nil {
		log.Debug("[Scheduler] " + msg)
	}
}

func (s *Scheduler) logDebugf(format string, args ...any) {
	if log := s.logger(); log != nil {
		log.Debugf("[Scheduler] "+format, args...)
	}
}

func (s *Scheduler) logErrorf(format string, args ...any) {
	if log := s.logger(); log != nil {
		log.Errorf("[Scheduler] "+format, args...)
	}
}
