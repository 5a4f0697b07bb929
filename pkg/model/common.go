package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout 日期格式
const DateLayout = "2006-01-02"

// YearMonth 排班月份
type YearMonth struct {
	Year  int        `json:"year" yaml:"year"`
	Month time.Month `json:"month" yaml:"month"`
}

// NewYearMonth 创建月份
func NewYearMonth(year int, month time.Month) YearMonth {
	return YearMonth{Year: year, Month: month}
}

// ParseYearMonth 解析 YYYY-MM
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return YearMonth{}, fmt.Errorf("无效的月份 %q: %w", s, err)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

// String 返回 YYYY-MM
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// First 月份第一天
func (ym YearMonth) First() time.Time {
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Days 月份天数
func (ym YearMonth) Days() int {
	return ym.First().AddDate(0, 1, -1).Day()
}

// Dates 返回月内每一天
func (ym YearMonth) Dates() []time.Time {
	n := ym.Days()
	first := ym.First()
	out := make([]time.Time, n)
	for i := 0; i < n; i++ {
		out[i] = first.AddDate(0, 0, i)
	}
	return out
}

// Contains 日期是否在该月
func (ym YearMonth) Contains(d time.Time) bool {
	return d.Year() == ym.Year && d.Month() == ym.Month
}

// Date 构造 UTC 零点日期
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("无效的日期 %q: %w", s, err)
	}
	return t, nil
}

// FormatDate 格式化日期
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// TruncateDay 去掉时分秒，统一为 UTC
func TruncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday, "周日": time.Sunday, "星期日": time.Sunday,
	"monday": time.Monday, "mon": time.Monday, "周一": time.Monday, "星期一": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "周二": time.Tuesday, "星期二": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday, "周三": time.Wednesday, "星期三": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "周四": time.Thursday, "星期四": time.Thursday,
	"friday": time.Friday, "fri": time.Friday, "周五": time.Friday, "星期五": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday, "周六": time.Saturday, "星期六": time.Saturday,
}

// ParseWeekday 解析星期名称（英文全称/缩写或中文）
func ParseWeekday(s string) (time.Weekday, error) {
	if wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return wd, nil
	}
	return 0, fmt.Errorf("无效的星期 %q", s)
}

// ParseWeekdayList 解析逗号分隔的星期列表，空串返回 nil
func ParseWeekdayList(s string) ([]time.Weekday, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []time.Weekday
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		wd, err := ParseWeekday(part)
		if err != nil {
			return nil, err
		}
		out = append(out, wd)
	}
	return out, nil
}
