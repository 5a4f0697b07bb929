// Package fixture 为调度器各阶段的测试构建输入和状态
package fixture

import (
	"fmt"
	"testing"
	"time"

	"github.com/paiban/monthroster/pkg/logger"
	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/rules"
	"github.com/paiban/monthroster/pkg/scheduler/builder"
	"github.com/paiban/monthroster/pkg/scheduler/state"
)

// September2025 2025年9月：周一开始，30天
var September2025 = model.NewYearMonth(2025, time.September)

// Logger 返回静默的排班日志器
func Logger() *logger.SchedulerLogger {
	logger.Init(logger.Config{Level: "error", Format: "json", Output: "discard"})
	return logger.NewSchedulerLogger("test", nil)
}

// Catalog 标准班次目录：8/6/4 小时常规班、周末班、值班、休息、请假
func Catalog(t testing.TB) *model.ShiftCatalog {
	t.Helper()
	c, err := model.NewShiftCatalog([]model.ShiftDefinition{
		{Code: "D8", Name: "白班", Category: model.CategoryRegular, DurationHours: 8},
		{Code: "D6", Name: "短班", Category: model.CategoryRegular, DurationHours: 6},
		{Code: "D4", Name: "半班", Category: model.CategoryRegular, DurationHours: 4},
		{Code: "WE", Name: "周末班", Category: model.CategoryWeekend, DurationHours: 8},
		{Code: "OC", Name: "值班", Category: model.CategoryOnCall, DurationHours: 10},
		{Code: "OFF", Name: "休息", Category: model.CategoryRest},
		{Code: "LV", Name: "请假", Category: model.CategoryLeave, DurationHours: 8},
	})
	if err != nil {
		t.Fatalf("创建班次目录失败: %v", err)
	}
	return c
}

// Staff 生成 n 名员工 S1..Sn
func Staff(n int) []model.Staff {
	out := make([]model.Staff, n)
	for i := range out {
		out[i] = model.Staff{ID: fmt.Sprintf("S%d", i+1), Name: fmt.Sprintf("员工%d", i+1)}
	}
	return out
}

// Rules 默认规则的副本
func Rules() *rules.RuleSet {
	return rules.Default()
}

// Input 构建输入
func Input(t testing.TB, month model.YearMonth, rs *rules.RuleSet, staff int, leave ...model.LeaveRecord) builder.Input {
	t.Helper()
	return builder.Input{
		Month:   month,
		Rules:   rs,
		Catalog: Catalog(t),
		Staff:   Staff(staff),
		Leave:   leave,
	}
}

// Schedule 通过构建器创建排班状态
func Schedule(t testing.TB, month model.YearMonth, rs *rules.RuleSet, staff int, leave ...model.LeaveRecord) *state.Schedule {
	t.Helper()
	s, err := builder.New(Logger()).Build(Input(t, month, rs, staff, leave...))
	if err != nil {
		t.Fatalf("构建排班状态失败: %v", err)
	}
	return s
}

// Fill 将员工在 [from, to] 日索引范围内的非锁定单元格写为 code
func Fill(t testing.TB, s *state.Schedule, staff, from, to int, code string) {
	t.Helper()
	for d := from; d <= to; d++ {
		if s.IsLocked(staff, d) {
			continue
		}
		if err := s.Set(staff, d, code); err != nil {
			t.Fatalf("写入单元格失败: %v", err)
		}
	}
}

// Leave 生成请假记录
func Leave(staffID string, from, to time.Time) model.LeaveRecord {
	return model.LeaveRecord{StaffID: staffID, Start: from, End: to, Reason: "年假"}
}

// Regular 写入请假和停工后，把其余单元格填为工作日 D8、其他日子休息
func Regular(t testing.TB, s *state.Schedule) *state.Schedule {
	t.Helper()
	for i := range s.Staff {
		for d, day := range s.Days {
			switch {
			case s.LeaveAt(i, d) != "":
				s.Stamp(i, d, s.LeaveAt(i, d))
			case day.Kind == model.DayShutdown:
				s.Stamp(i, d, s.Codes.Rest)
			}
		}
	}
	for i := range s.Staff {
		for d, day := range s.Days {
			if s.IsLocked(i, d) {
				continue
			}
			code := s.Codes.Rest
			if day.Kind == model.DayWeekday {
				code = "D8"
			}
			if err := s.Set(i, d, code); err != nil {
				t.Fatalf("写入单元格失败: %v", err)
			}
		}
	}
	return s
}
