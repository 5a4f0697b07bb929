package builtin

import (
	"fmt"

	"github.com/paiban/monthroster/pkg/scheduler/constraint"
	"github.com/paiban/monthroster/pkg/scheduler/state"
)

// MaxHoursPerWeekConstraint 每周最大工时约束
type MaxHoursPerWeekConstraint struct {
	*BaseConstraint
	maxHours float64
}

// NewMaxHoursPerWeekConstraint 创建每周最大工时约束
func NewMaxHoursPerWeekConstraint(maxHours float64) *MaxHoursPerWeekConstraint {
	return &MaxHoursPerWeekConstraint{
		BaseConstraint: NewBaseConstraint(
			"每周最大工时",
			constraint.TypeMaxHoursPerWeek,
			constraint.CategoryHard,
			100,
		),
		maxHours: maxHours,
	}
}

// Evaluate 评估整个网格，按月内周划分计算
func (c *MaxHoursPerWeekConstraint) Evaluate(s *state.Schedule) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for i, st := range s.Staff {
		for _, w := range s.Weeks {
			hours := s.WeekHours(i, w.Index)
			if hours <= c.maxHours {
				continue
			}
			penalty := c.Weight() * int(hours-c.maxHours+0.5)
			totalPenalty += penalty
			violations = append(violations, c.CreateViolation(st.ID, s.Days[w.Start].DateString(), w.Index,
				fmt.Sprintf("员工 %s 第 %d 周工作 %.1f 小时，超过限制 %.1f 小时", st.Label(), w.Index+1, hours, c.maxHours),
				penalty))
		}
	}

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateCell 计算写入后所在周的工时
func (c *MaxHoursPerWeekConstraint) EvaluateCell(s *state.Schedule, staff, day int, code string) (bool, int) {
	week := s.WeekOf(day)
	total := s.WeekHours(staff, week) - s.Hours(staff, day) + s.Catalog.Hours(code)
	if total > c.maxHours {
		return false, c.Weight() * int(total-c.maxHours+0.5)
	}
	return true, 0
}
