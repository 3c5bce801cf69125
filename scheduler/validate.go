package scheduler

import (
	"fmt"
	"slices"
	"time"
)

// TriggerSet 校验通过的触发点集合：去重、升序、同一时间线.
type TriggerSet struct {
	offsets []WeeklyOffset
	aware   bool
}

// Offsets 返回升序的周偏移副本.
func (s TriggerSet) Offsets() []WeeklyOffset {
	return slices.Clone(s.offsets)
}

// Aware 触发点是否以 UTC 时间线比较.
func (s TriggerSet) Aware() bool {
	return s.aware
}

// Len 返回触发点数量.
func (s TriggerSet) Len() int {
	return len(s.offsets)
}

// Validate 校验归一化结果.
//
// 先检查时区一致性，再在归一化之后检查唯一性，
// 因此以不同星期或偏移表达的同一时刻也会被识别为重复.
func Validate(items []Normalized) (TriggerSet, error) {
	if len(items) == 0 {
		return TriggerSet{}, fmt.Errorf("%w: empty timing", ErrInvalidTimingType)
	}

	aware := items[0].Aware
	for _, it := range items[1:] {
		if it.Aware != aware {
			return TriggerSet{}, fmt.Errorf("%w: %s and %s",
				ErrInconsistentTimezone, items[0].Source, it.Source)
		}
	}

	seen := make(map[WeeklyOffset]Trigger, len(items))
	offsets := make([]WeeklyOffset, 0, len(items))
	for _, it := range items {
		if prev, ok := seen[it.Offset]; ok {
			return TriggerSet{}, &DuplicateTimeError{Offset: it.Offset, First: prev, Second: it.Source}
		}
		seen[it.Offset] = it.Source
		offsets = append(offsets, it.Offset)
	}
	slices.Sort(offsets)

	return TriggerSet{offsets: offsets, aware: aware}, nil
}

// next 返回 after 之后的首个触发时刻；inclusive 为 true 时 after 本身也算.
//
// naive 触发点按 loc 的墙上时间展开，带时区的按 UTC 展开.
func (s TriggerSet) next(after time.Time, loc *time.Location, inclusive bool) time.Time {
	if len(s.offsets) == 0 {
		return time.Time{}
	}
	if s.aware || loc == nil {
		loc = time.UTC
	}
	t := after.In(loc)
	y, m, d := t.Date()
	d -= int(WeekdayOf(t.Weekday()))

	for week := 0; ; week++ {
		for _, off := range s.offsets {
			c := off.at(y, m, d+7*week, loc)
			if c.After(after) || (inclusive && c.Equal(after)) {
				return c
			}
		}
	}
}

// at 返回以 (y, m, d) 为周一时该偏移对应的时刻.
func (o WeeklyOffset) at(y int, m time.Month, d int, loc *time.Location) time.Time {
	c := o.TimeOfDay()
	return time.Date(y, m, d+int(o.Weekday()),
		int(c/time.Hour), int(c%time.Hour/time.Minute), int(c%time.Minute/time.Second),
		int(c%time.Second), loc)
}
