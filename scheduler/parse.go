package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var reClock = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2})(?:\.(\d{1,9}))?)?([zZ]|[+-]\d{2}:\d{2})?$`)

// ParseTrigger 解析文本形式的触发点.
//
// 支持的形式:
//   - "friday" / "fri"：当天零点（无时区）
//   - "friday 04:00"、"fri 04:00:30"：无时区时刻
//   - "friday 04:00Z"、"sunday 23:30-23:30"、"tue@01:00+02:00"：带固定偏移
//
// 缺少星期的输入（如 "04:00"、"1h"）返回 ErrInvalidTimingType.
func ParseTrigger(raw string) (Trigger, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Trigger{}, fmt.Errorf("%w: empty trigger", ErrInvalidTimingType)
	}

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '@'
	})
	if len(fields) > 2 {
		return Trigger{}, fmt.Errorf("%w: malformed trigger %q", ErrInvalidTimingType, raw)
	}

	d, err := ParseWeekday(fields[0])
	if err != nil {
		if reClock.MatchString(fields[0]) {
			return Trigger{}, fmt.Errorf("%w: %q has no weekday", ErrInvalidTimingType, raw)
		}
		if _, derr := time.ParseDuration(fields[0]); derr == nil {
			return Trigger{}, fmt.Errorf("%w: %q is an interval, not a weekly time", ErrInvalidTimingType, raw)
		}
		return Trigger{}, err
	}
	if len(fields) == 1 {
		return On(d), nil
	}

	t, err := ParseTimeOfDay(fields[1])
	if err != nil {
		return Trigger{}, err
	}
	return OnAt(d, t), nil
}

// ParseTiming 解析多个文本触发点.
func ParseTiming(raw []string) (Timing, error) {
	out := make(Timing, 0, len(raw))
	for _, s := range raw {
		tr, err := ParseTrigger(s)
		if err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, nil
}

// ParseTimeOfDay 解析 HH:MM[:SS[.fraction]][Z|±HH:MM].
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	m := reClock.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return TimeOfDay{}, fmt.Errorf("%w: invalid time of day %q", ErrInvalidTimingType, raw)
	}

	var t TimeOfDay
	t.Hour, _ = strconv.Atoi(m[1])
	t.Minute, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		t.Second, _ = strconv.Atoi(m[3])
	}
	if m[4] != "" {
		frac := m[4] + strings.Repeat("0", 9-len(m[4]))
		t.Nanosecond, _ = strconv.Atoi(frac)
	}

	switch zone := m[5]; {
	case zone == "":
	case zone == "Z" || zone == "z":
		t = t.UTC()
	default:
		hh, _ := strconv.Atoi(zone[1:3])
		mm, _ := strconv.Atoi(zone[4:6])
		off := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
		if zone[0] == '-' {
			off = -off
		}
		t = t.WithOffset(off)
	}

	if !t.Valid() {
		return TimeOfDay{}, fmt.Errorf("%w: time of day %q out of range", ErrInvalidTimingType, raw)
	}
	return t, nil
}
