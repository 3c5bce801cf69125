package scheduler

import (
	"fmt"
	"strings"
	"time"
)

// Weekday 星期，从周一开始编号.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// String 返回星期名称.
func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// Valid 检查是否为合法星期.
func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

// Triggers 实现 TimingSpec，单个星期即当天零点（无时区）.
func (d Weekday) Triggers() Timing {
	return Timing{On(d)}
}

// WeekdayOf 将 time.Weekday 转换为 Weekday.
func WeekdayOf(d time.Weekday) Weekday {
	return Weekday((int(d) + 6) % 7)
}

// ParseWeekday 解析星期名称，支持全称和三字母缩写，不区分大小写.
func ParseWeekday(s string) (Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if len(name) >= 3 {
		for i, full := range weekdayNames {
			lower := strings.ToLower(full)
			if name == lower || name == lower[:3] {
				return Weekday(i), nil
			}
		}
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidTimingType, s)
}
