package model

import (
	"fmt"
	"strings"
	"time"
)

// DayKind 日期类型
type DayKind int

const (
	DayWeekday  DayKind = iota // 工作日
	DayWeekend                 // 周末
	DayHoliday                 // 法定节假日
	DayShutdown                // 停工日（零人手）
)

// String 返回日期类型名称
func (k DayKind) String() string {
	switch k {
	case DayWeekday:
		return "weekday"
	case DayWeekend:
		return "weekend"
	case DayHoliday:
		return "holiday"
	case DayShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("daykind(%d)", int(k))
	}
}

// IsWeekendLike 周末或节假日
func (k DayKind) IsWeekendLike() bool {
	return k == DayWeekend || k == DayHoliday
}

// MarshalText 实现 encoding.TextMarshaler
func (k DayKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (k *DayKind) UnmarshalText(text []byte) error {
	parsed, err := ParseDayKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseDayKind 解析日期类型
func ParseDayKind(s string) (DayKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weekday", "workday":
		return DayWeekday, nil
	case "weekend":
		return DayWeekend, nil
	case "holiday":
		return DayHoliday, nil
	case "shutdown", "closed":
		return DayShutdown, nil
	default:
		return 0, fmt.Errorf("未知的日期类型 %q", s)
	}
}

// CalendarDay 日历源提供的单日分类
type CalendarDay struct {
	Date        time.Time `json:"date" yaml:"date"`
	Kind        DayKind   `json:"kind" yaml:"kind"`
	HolidayName string    `json:"holiday_name,omitempty" yaml:"holiday_name,omitempty"`
}

// DayProfile 单日排班需求
type DayProfile struct {
	Index          int          `json:"index"`
	Date           time.Time    `json:"date"`
	Weekday        time.Weekday `json:"weekday"`
	Kind           DayKind      `json:"kind"`
	HolidayName    string       `json:"holiday_name,omitempty"`
	Week           int          `json:"week"`
	MinStaff       int          `json:"min_staff"`
	MaxStaff       int          `json:"max_staff"`
	OptimalStaff   int          `json:"optimal_staff"`
	OnCallRequired bool         `json:"on_call_required"`
}

// DateString 返回 YYYY-MM-DD
func (d DayProfile) DateString() string {
	return FormatDate(d.Date)
}

// Week 月内周划分（ISO 周一至周日，按月截断）
type Week struct {
	Index int `json:"index"`
	Start int `json:"start"` // 起始日索引（含）
	End   int `json:"end"`   // 结束日索引（含）
}

// Len 周内天数
func (w Week) Len() int {
	return w.End - w.Start + 1
}

// Contains 日索引是否在该周
func (w Week) Contains(day int) bool {
	return day >= w.Start && day <= w.End
}

// PartitionWeeks 按周一切分月内日期
func PartitionWeeks(dates []time.Time) ([]Week, []int) {
	weeks := make([]Week, 0, 6)
	weekOf := make([]int, len(dates))
	for i, d := range dates {
		if i == 0 || d.Weekday() == time.Monday {
			weeks = append(weeks, Week{Index: len(weeks), Start: i, End: i})
		}
		w := &weeks[len(weeks)-1]
		w.End = i
		weekOf[i] = w.Index
	}
	return weeks, weekOf
}
