package scheduler

import "time"

// TimeSource 当前时间来源，便于测试时注入固定时间.
type TimeSource interface {
	Now() time.Time
}

// ClockFunc 函数形式的 TimeSource.
type ClockFunc func() time.Time

// Now 实现 TimeSource.
func (f ClockFunc) Now() time.Time {
	return f()
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// SystemClock 返回系统时钟.
func SystemClock() TimeSource {
	return systemClock{}
}
