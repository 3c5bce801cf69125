package scheduler

import (
	"fmt"
	"strings"
	"time"
)

const day = 24 * time.Hour

// TimeOfDay 一天中的时刻，可选固定 UTC 偏移.
//
// 未设置偏移时为 naive 时间，按调度器参考时区的墙上时间解释.
type TimeOfDay struct {
	Hour       int
	Minute     int
	Second     int
	Nanosecond int

	offset time.Duration
	aware  bool
}

// Clock 创建不带时区的时刻.
func Clock(hour, minute, second int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute, Second: second}
}

// Midnight 返回不带时区的零点.
func Midnight() TimeOfDay {
	return TimeOfDay{}
}

// UTC 返回 UTC 时区下的同一时刻.
func (t TimeOfDay) UTC() TimeOfDay {
	return t.WithOffset(0)
}

// WithOffset 返回带固定 UTC 偏移的同一时刻，偏移须在 (-24h, 24h) 内.
func (t TimeOfDay) WithOffset(offset time.Duration) TimeOfDay {
	t.offset = offset
	t.aware = true
	return t
}

// Aware 是否带时区.
func (t TimeOfDay) Aware() bool {
	return t.aware
}

// Offset 返回 UTC 偏移，naive 时间返回 false.
func (t TimeOfDay) Offset() (time.Duration, bool) {
	return t.offset, t.aware
}

// SinceMidnight 返回距当天零点（同一时区）的时长.
func (t TimeOfDay) SinceMidnight() time.Duration {
	return time.Duration(t.Hour)*time.Hour +
		time.Duration(t.Minute)*time.Minute +
		time.Duration(t.Second)*time.Second +
		time.Duration(t.Nanosecond)
}

// Valid 检查各字段是否在合法范围内.
func (t TimeOfDay) Valid() bool {
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 ||
		t.Second < 0 || t.Second > 59 || t.Nanosecond < 0 || t.Nanosecond >= int(time.Second) {
		return false
	}
	return !t.aware || (t.offset > -day && t.offset < day)
}

// String 返回 HH:MM:SS 形式，带时区时追加偏移.
func (t TimeOfDay) String() string {
	s := fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	if t.Nanosecond > 0 {
		s += strings.TrimRight(fmt.Sprintf(".%09d", t.Nanosecond), "0")
	}
	if t.aware {
		s += formatOffset(t.offset)
	}
	return s
}

func formatOffset(d time.Duration) string {
	if d == 0 {
		return "Z"
	}
	sign := '+'
	if d < 0 {
		sign = '-'
		d = -d
	}
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	return fmt.Sprintf("%c%02d:%02d", sign, h, m)
}

// TimingSpec 可用于注册周任务的时间规格.
//
// Weekday、Trigger 和 Timing 均实现该接口.
type TimingSpec interface {
	Triggers() Timing
}

// Trigger 单个周触发点：仅星期（当天零点）或星期加时刻.
//
// Time 为 nil 时只指定了星期.
type Trigger struct {
	Day  Weekday
	Time *TimeOfDay
}

// On 创建仅指定星期的触发点.
func On(d Weekday) Trigger {
	return Trigger{Day: d}
}

// OnAt 创建指定星期和时刻的触发点.
func OnAt(d Weekday, t TimeOfDay) Trigger {
	return Trigger{Day: d, Time: &t}
}

// Timed 是否显式指定了时刻.
func (t Trigger) Timed() bool {
	return t.Time != nil
}

// At 返回触发时刻，未指定时为 naive 零点.
func (t Trigger) At() TimeOfDay {
	if t.Time == nil {
		return Midnight()
	}
	return *t.Time
}

// Triggers 实现 TimingSpec.
func (t Trigger) Triggers() Timing {
	return Timing{t}
}

// String 返回触发点描述.
func (t Trigger) String() string {
	if t.Time == nil {
		return t.Day.String()
	}
	return t.Day.String() + " " + t.Time.String()
}

// Timing 有序的触发点序列.
type Timing []Trigger

// Triggers 实现 TimingSpec.
func (t Timing) Triggers() Timing {
	return t
}

// String 返回逗号分隔的触发点描述.
func (t Timing) String() string {
	parts := make([]string, len(t))
	for i, tr := range t {
		parts[i] = tr.String()
	}
	return strings.Join(parts, ", ")
}

// TimingOf 将宽松输入转换为 Timing.
//
// 支持 Weekday、Trigger、Timing、[]Weekday、[]Trigger、[]TimingSpec、
// 文本触发点（string / []string）以及由 Weekday、Trigger、Timing 和文本组成的 []any.
// 其他类型（如单独的 TimeOfDay、time.Duration）返回 ErrInvalidTimingType.
func TimingOf(v any) (Timing, error) {
	switch x := v.(type) {
	case TimingSpec:
		src := x.Triggers()
		out := make(Timing, len(src))
		copy(out, src)
		return out, nil
	case []Weekday:
		out := make(Timing, len(x))
		for i, d := range x {
			out[i] = On(d)
		}
		return out, nil
	case []Trigger:
		out := make(Timing, len(x))
		copy(out, x)
		return out, nil
	case []TimingSpec:
		var out Timing
		for _, spec := range x {
			if spec == nil {
				return nil, fmt.Errorf("%w: nil element", ErrInvalidTimingType)
			}
			out = append(out, spec.Triggers()...)
		}
		return out, nil
	case string:
		tr, err := ParseTrigger(x)
		if err != nil {
			return nil, err
		}
		return Timing{tr}, nil
	case []string:
		return ParseTiming(x)
	case []any:
		var out Timing
		for _, elem := range x {
			switch e := elem.(type) {
			case Weekday:
				out = append(out, On(e))
			case string:
				tr, err := ParseTrigger(e)
				if err != nil {
					return nil, err
				}
				out = append(out, tr)
			case TimingSpec:
				out = append(out, e.Triggers()...)
			default:
				return nil, fmt.Errorf("%w: unsupported element %T", ErrInvalidTimingType, elem)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: got %T", ErrInvalidTimingType, v)
}
