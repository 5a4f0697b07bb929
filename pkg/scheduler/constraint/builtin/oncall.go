package builtin

import (
	"fmt"

	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/scheduler/constraint"
	"github.com/paiban/monthroster/pkg/scheduler/state"
)

// NoBackToBackOnCallConstraint 不允许连续两天值班
type NoBackToBackOnCallConstraint struct {
	*BaseConstraint
}

// NewNoBackToBackOnCallConstraint 创建值班间隔约束
func NewNoBackToBackOnCallConstraint() *NoBackToBackOnCallConstraint {
	return &NoBackToBackOnCallConstraint{
		BaseConstraint: NewBaseConstraint(
			"禁止连续值班",
			constraint.TypeNoBackToBackOnCall,
			constraint.CategoryHard,
			90,
		),
	}
}

// Evaluate 评估整个网格
func (c *NoBackToBackOnCallConstraint) Evaluate(s *state.Schedule) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for i, st := range s.Staff {
		for d := 1; d < len(s.Days); d++ {
			if s.IsCategory(i, d, model.CategoryOnCall) && s.IsCategory(i, d-1, model.CategoryOnCall) {
				totalPenalty += c.Weight()
				violations = append(violations, c.CreateViolation(st.ID, s.Days[d].DateString(), -1,
					fmt.Sprintf("员工 %s 在 %s 和前一天连续值班", st.Label(), s.Days[d].DateString()), c.Weight()))
			}
		}
	}

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateCell 写入值班时检查前后两天
func (c *NoBackToBackOnCallConstraint) EvaluateCell(s *state.Schedule, staff, day int, code string) (bool, int) {
	cat, ok := s.Catalog.Category(code)
	if !ok || cat != model.CategoryOnCall {
		return true, 0
	}
	if day > 0 && s.IsCategory(staff, day-1, model.CategoryOnCall) {
		return false, c.Weight()
	}
	if day+1 < len(s.Days) && s.IsCategory(staff, day+1, model.CategoryOnCall) {
		return false, c.Weight()
	}
	return true, 0
}
