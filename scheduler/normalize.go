package scheduler

import (
	"fmt"
	"time"
)

// WeekLength 一周的时长.
const WeekLength = 7 * day

// WeeklyOffset 距周一 00:00 的时长，取值范围 [0, WeekLength).
//
// 带时区的触发点以 UTC 周为基准，naive 触发点以参考时区的墙上时间为基准.
type WeeklyOffset time.Duration

// Weekday 返回偏移所在的星期.
func (o WeeklyOffset) Weekday() Weekday {
	return Weekday(time.Duration(o) / day)
}

// TimeOfDay 返回偏移在当天内的时长.
func (o WeeklyOffset) TimeOfDay() time.Duration {
	return time.Duration(o) % day
}

// String 返回 "Monday 23:00:00" 形式.
func (o WeeklyOffset) String() string {
	c := o.TimeOfDay()
	return fmt.Sprintf("%s %02d:%02d:%02d",
		o.Weekday(), int(c/time.Hour), int(c%time.Hour/time.Minute), int(c%time.Minute/time.Second))
}

// Normalized 归一化后的单个触发点.
type Normalized struct {
	Source Trigger
	Offset WeeklyOffset
	Aware  bool
}

// Normalize 将时间规格归一化为周偏移，保持输入顺序.
//
// 带时区的触发点换算到 UTC：day*24h + clock - utcOffset，再对 WeekLength 取模，
// 因此周二 01:00(+02:00) 与周日 23:30(-23:30) 都落在周一 23:00 UTC.
// 仅指定星期的触发点视为当天零点（naive），naive 时刻不做换算.
func Normalize(spec TimingSpec) ([]Normalized, error) {
	if spec == nil {
		return nil, fmt.Errorf("%w: nil timing", ErrInvalidTimingType)
	}
	triggers := spec.Triggers()
	if len(triggers) == 0 {
		return nil, fmt.Errorf("%w: empty timing", ErrInvalidTimingType)
	}

	out := make([]Normalized, 0, len(triggers))
	for _, tr := range triggers {
		if !tr.Day.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidTimingType, tr.Day)
		}
		if tr.Timed() && !tr.Time.Valid() {
			return nil, fmt.Errorf("%w: time of day %s out of range", ErrInvalidTimingType, tr.Time)
		}
		out = append(out, normalizeTrigger(tr))
	}
	return out, nil
}

func normalizeTrigger(tr Trigger) Normalized {
	d := time.Duration(tr.Day) * day
	aware := false
	if tr.Timed() {
		d += tr.Time.SinceMidnight()
		if off, ok := tr.Time.Offset(); ok {
			d -= off
			aware = true
		}
	}

	d %= WeekLength
	if d < 0 {
		d += WeekLength
	}
	return Normalized{Source: tr, Offset: WeeklyOffset(d), Aware: aware}
}
