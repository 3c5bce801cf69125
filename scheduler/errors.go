package scheduler

import (
	"errors"
	"fmt"
)

// 预定义错误.
var (
	// ErrInvalidTimingType 时间规格不是 Weekday、(Weekday, TimeOfDay) 或其序列.
	ErrInvalidTimingType = errors.New("scheduler: weekly timing must identify a weekday")

	// ErrInconsistentTimezone 同一任务混用了带时区与不带时区的时间.
	ErrInconsistentTimezone = errors.New("scheduler: weekly timing mixes timezone-aware and naive times")

	// ErrDuplicateEffectiveTime 多个触发点归一化后落在同一时刻.
	ErrDuplicateEffectiveTime = errors.New("scheduler: duplicate effective weekly time")

	// ErrHandlerNil 任务处理函数为空.
	ErrHandlerNil = errors.New("scheduler: job handler is required")

	// ErrJobNotFound 任务未找到.
	ErrJobNotFound = errors.New("scheduler: job not found")

	// ErrJobExists 任务已存在.
	ErrJobExists = errors.New("scheduler: job already exists")

	// ErrSchedulerClosed 调度器已关闭.
	ErrSchedulerClosed = errors.New("scheduler: scheduler is closed")

	// ErrInvalidConfig 调度配置无效.
	ErrInvalidConfig = errors.New("scheduler: invalid config")
)

// DuplicateTimeError 描述归一化后冲突的两个触发点.
type DuplicateTimeError struct {
	Offset WeeklyOffset
	First  Trigger
	Second Trigger
}

// Error 实现 error 接口.
func (e *DuplicateTimeError) Error() string {
	return fmt.Sprintf("%v: %s and %s both resolve to %s",
		ErrDuplicateEffectiveTime, e.First, e.Second, e.Offset)
}

// Unwrap 返回 ErrDuplicateEffectiveTime.
func (e *DuplicateTimeError) Unwrap() error {
	return ErrDuplicateEffectiveTime
}
