package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sanurielf/scheduler/recovery"
)

// JobFunc 任务执行函数.
type JobFunc func(ctx context.Context) error

// AttemptPolicy 决定哪些执行计入 Attempts.
type AttemptPolicy int

const (
	// CountAllAttempts 每次调用处理函数都计数，失败或 panic 也算（默认）.
	CountAllAttempts AttemptPolicy = iota
	// CountSuccessOnly 仅计入成功的执行.
	CountSuccessOnly
)

// String 返回策略名称.
func (p AttemptPolicy) String() string {
	switch p {
	case CountAllAttempts:
		return "all"
	case CountSuccessOnly:
		return "success"
	default:
		return "unknown"
	}
}

// Job 周期任务.
//
// 触发点在创建后固定；attempts 与 nextDue 只由调度器修改，可被并发读取.
type Job struct {
	id          string
	name        string
	timing      Timing
	triggers    TriggerSet
	handler     JobFunc
	timeout     time.Duration
	distributed bool
	policy      AttemptPolicy
	loc         *time.Location

	// mu 覆盖单个任务的"到期检查 + 执行"全过程.
	mu       sync.Mutex
	attempts atomic.Int64
	nextDue  atomic.Pointer[time.Time]
	stats    JobStats
}

// JobStats 任务执行统计.
type JobStats struct {
	mu            sync.RWMutex
	RunCount      int64         // 执行次数
	SuccessCount  int64         // 成功次数
	FailCount     int64         // 失败次数
	SkipCount     int64         // 跳过次数（钩子拦截或分布式锁）
	LastRunAt     time.Time     // 上次执行时间
	LastSuccessAt time.Time     // 上次成功时间
	LastFailAt    time.Time     // 上次失败时间
	LastError     error         // 上次错误
	LastDuration  time.Duration // 上次执行耗时
}

// Clone 返回统计信息副本.
func (s *JobStats) Clone() JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return JobStats{
		RunCount:      s.RunCount,
		SuccessCount:  s.SuccessCount,
		FailCount:     s.FailCount,
		SkipCount:     s.SkipCount,
		LastRunAt:     s.LastRunAt,
		LastSuccessAt: s.LastSuccessAt,
		LastFailAt:    s.LastFailAt,
		LastError:     s.LastError,
		LastDuration:  s.LastDuration,
	}
}

func (s *JobStats) recordRun(at time.Time, d time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RunCount++
	s.LastRunAt = at
	s.LastDuration = d
	s.LastError = err
	if err != nil {
		s.FailCount++
		s.LastFailAt = at
		return
	}
	s.SuccessCount++
	s.LastSuccessAt = at
}

func (s *JobStats) recordSkip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SkipCount++
}

// JobSnapshot 任务状态的只读快照.
type JobSnapshot struct {
	ID       string
	Name     string
	Timing   Timing
	Offsets  []WeeklyOffset
	Aware    bool
	Attempts int64
	NextDue  time.Time
	Stats    JobStats
}

// newJob 创建任务，初始 nextDue 为 created 当时或之后的首个触发点.
func newJob(id string, timing Timing, set TriggerSet, fn JobFunc, loc *time.Location, created time.Time) *Job {
	j := &Job{
		id:       id,
		name:     id,
		timing:   timing,
		triggers: set,
		handler:  fn,
		loc:      loc,
	}
	first := set.next(created, loc, true)
	j.nextDue.Store(&first)
	return j
}

// ID 返回任务唯一标识.
func (j *Job) ID() string {
	return j.id
}

// Name 返回任务名称.
func (j *Job) Name() string {
	return j.name
}

// Timing 返回注册时的时间规格副本.
func (j *Job) Timing() Timing {
	out := make(Timing, len(j.timing))
	copy(out, j.timing)
	return out
}

// Offsets 返回升序的周偏移.
func (j *Job) Offsets() []WeeklyOffset {
	return j.triggers.Offsets()
}

// Distributed 是否启用分布式锁.
func (j *Job) Distributed() bool {
	return j.distributed
}

// Attempts 返回已执行次数.
func (j *Job) Attempts() int64 {
	return j.attempts.Load()
}

// NextDue 返回下一次到期时刻.
func (j *Job) NextDue() time.Time {
	return *j.nextDue.Load()
}

// IsDue 判断 now 是否已到期（now >= nextDue）.
func (j *Job) IsDue(now time.Time) bool {
	return !now.Before(j.NextDue())
}

// Stats 获取任务统计信息.
func (j *Job) Stats() JobStats {
	return j.stats.Clone()
}

// Snapshot 返回任务状态快照.
func (j *Job) Snapshot() JobSnapshot {
	return JobSnapshot{
		ID:       j.id,
		Name:     j.name,
		Timing:   j.Timing(),
		Offsets:  j.Offsets(),
		Aware:    j.triggers.Aware(),
		Attempts: j.Attempts(),
		NextDue:  j.NextDue(),
		Stats:    j.Stats(),
	}
}

// Fire 立即执行一次处理函数并推进 nextDue，返回处理函数的错误.
//
// 无论错过多少个触发点，一次 Fire 只执行一次，nextDue 取严格晚于 now 的首个触发点.
func (j *Job) Fire(ctx context.Context, now time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fire(ctx, now)
}

// fire 调用方须持有 j.mu.
func (j *Job) fire(ctx context.Context, now time.Time) error {
	start := time.Now()
	err := recovery.Do(func() error {
		return j.invoke(ctx)
	})
	j.stats.recordRun(now, time.Since(start), err)

	if err == nil || j.policy == CountAllAttempts {
		j.attempts.Add(1)
	}
	j.advance(now)
	return err
}

func (j *Job) invoke(ctx context.Context) error {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}
	return j.handler(ctx)
}

// advance 将 nextDue 推进到严格晚于 now 的首个触发点，调用方须持有 j.mu.
func (j *Job) advance(now time.Time) {
	next := j.triggers.next(now, j.loc, false)
	j.nextDue.Store(&next)
}

// JobOption 任务选项.
type JobOption func(*Job)

// WithName 设置任务名称，默认与 ID 相同.
func WithName(name string) JobOption {
	return func(j *Job) {
		if name != "" {
			j.name = name
		}
	}
}

// WithTimeout 设置单次执行超时时间（0 表示使用调度器默认值）.
func WithTimeout(d time.Duration) JobOption {
	return func(j *Job) {
		j.timeout = d
	}
}

// Distributed 启用分布式模式，多实例部署时同一到期时刻只有一个实例执行.
// 需要配合 WithLocker 使用.
func Distributed() JobOption {
	return func(j *Job) {
		j.distributed = true
	}
}
