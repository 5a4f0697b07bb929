package builtin

import (
	"fmt"

	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/scheduler/constraint"
	"github.com/paiban/monthroster/pkg/scheduler/state"
)

// MaxConsecutiveWorkConstraint 最大连续上班天数约束
type MaxConsecutiveWorkConstraint struct {
	*BaseConstraint
	maxDays int
}

// NewMaxConsecutiveWorkConstraint 创建最大连续上班约束
func NewMaxConsecutiveWorkConstraint(maxDays int) *MaxConsecutiveWorkConstraint {
	return &MaxConsecutiveWorkConstraint{
		BaseConstraint: NewBaseConstraint(
			"最大连续上班天数",
			constraint.TypeMaxConsecutiveWork,
			constraint.CategoryHard,
			100,
		),
		maxDays: maxDays,
	}
}

// Evaluate 评估整个网格
func (c *MaxConsecutiveWorkConstraint) Evaluate(s *state.Schedule) (bool, int, []constraint.ViolationDetail) {
	return evaluateRuns(c.BaseConstraint, s, s.IsWork, c.maxDays, "连续上班")
}

// EvaluateCell 写入上班时检查前后连续天数
func (c *MaxConsecutiveWorkConstraint) EvaluateCell(s *state.Schedule, staff, day int, code string) (bool, int) {
	if !s.Catalog.IsWork(code) {
		return true, 0
	}
	if run := s.WorkRunIfWorked(staff, day); run > c.maxDays {
		return false, c.Weight() * (run - c.maxDays)
	}
	return true, 0
}

// MaxConsecutiveRestConstraint 最大连续休息天数约束
type MaxConsecutiveRestConstraint struct {
	*BaseConstraint
	maxDays int
}

// NewMaxConsecutiveRestConstraint 创建最大连续休息约束
func NewMaxConsecutiveRestConstraint(maxDays int) *MaxConsecutiveRestConstraint {
	return &MaxConsecutiveRestConstraint{
		BaseConstraint: NewBaseConstraint(
			"最大连续休息天数",
			constraint.TypeMaxConsecutiveRest,
			constraint.CategoryHard,
			90,
		),
		maxDays: maxDays,
	}
}

// Evaluate 评估整个网格，请假和停工日截断连续休息
func (c *MaxConsecutiveRestConstraint) Evaluate(s *state.Schedule) (bool, int, []constraint.ViolationDetail) {
	return evaluateRuns(c.BaseConstraint, s, s.IsRunRest, c.maxDays, "连续休息")
}

// EvaluateCell 写入休息时检查前后连续天数
func (c *MaxConsecutiveRestConstraint) EvaluateCell(s *state.Schedule, staff, day int, code string) (bool, int) {
	cat, ok := s.Catalog.Category(code)
	if !ok || cat != model.CategoryRest || s.Days[day].Kind == model.DayShutdown {
		return true, 0
	}
	if run := s.RestRunIfRested(staff, day); run > c.maxDays {
		return false, c.Weight() * (run - c.maxDays)
	}
	return true, 0
}

// evaluateRuns 找出每个员工超过上限的连续段，以段的起始日期标识
func evaluateRuns(base *BaseConstraint, s *state.Schedule, pred func(int, int) bool, maxDays int, label string) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for i, st := range s.Staff {
		start := -1
		flush := func(end int) {
			if start < 0 {
				return
			}
			if n := end - start; n > maxDays {
				penalty := base.Weight() * (n - maxDays)
				totalPenalty += penalty
				violations = append(violations, base.CreateViolation(st.ID, s.Days[start].DateString(), -1,
					fmt.Sprintf("员工 %s 自 %s 起%s %d 天，超过上限 %d 天", st.Label(), s.Days[start].DateString(), label, n, maxDays),
					penalty))
			}
			start = -1
		}
		for d := range s.Days {
			if pred(i, d) {
				if start < 0 {
					start = d
				}
			} else {
				flush(d)
			}
		}
		flush(len(s.Days))
	}

	return len(violations) == 0, totalPenalty, violations
}
