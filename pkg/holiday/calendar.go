package holiday

import (
	"context"
	"time"

	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/rules"
)

// Calendar 按月分类日期的日历源：周六周日为周末，Provider 中的日期为节假日，
// 规则中的停工日（固定日期或 RRULE）优先于其他分类
type Calendar struct {
	Provider Provider
	Country  string
	Rules    *rules.RuleSet // 可为空
	// Extra 额外的公司假日，与 Provider 结果合并
	Extra []Holiday
}

// Month 实现 source.CalendarSource，返回该月每一天的分类
func (c *Calendar) Month(ctx context.Context, ym model.YearMonth) ([]model.CalendarDay, error) {
	names := make(map[string]string)
	if c.Provider != nil && c.Country != "" {
		hs, err := c.Provider.Holidays(ctx, c.Country, ym.Year)
		if err != nil {
			return nil, err
		}
		for _, h := range hs {
			if ym.Contains(h.Date) {
				names[h.DateString()] = h.DisplayName()
			}
		}
	}
	for _, h := range c.Extra {
		if ym.Contains(h.Date) {
			if _, ok := names[h.DateString()]; !ok {
				names[h.DateString()] = h.DisplayName()
			}
		}
	}

	shutdown := map[string]bool{}
	if c.Rules != nil {
		var err error
		if shutdown, err = c.Rules.ShutdownDays(ym); err != nil {
			return nil, err
		}
	}

	dates := ym.Dates()
	out := make([]model.CalendarDay, len(dates))
	for i, d := range dates {
		key := model.FormatDate(d)
		day := model.CalendarDay{Date: d, Kind: model.DayWeekday}
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			day.Kind = model.DayWeekend
		}
		if name, ok := names[key]; ok {
			day.Kind = model.DayHoliday
			day.HolidayName = name
		}
		if shutdown[key] {
			day.Kind = model.DayShutdown
		}
		out[i] = day
	}
	return out, nil
}

// Count 统计各类日期天数
func Count(days []model.CalendarDay) map[model.DayKind]int {
	out := make(map[model.DayKind]int)
	for _, d := range days {
		out[d.Kind]++
	}
	return out
}
