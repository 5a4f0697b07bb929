package builtin

import (
	"fmt"

	"github.com/paiban/monthroster/pkg/scheduler/constraint"
	"github.com/paiban/monthroster/pkg/scheduler/state"
)

// StaffingConstraint 每日人手在 [min, max] 之间
type StaffingConstraint struct {
	*BaseConstraint
}

// NewStaffingConstraint 创建每日人手约束
func NewStaffingConstraint() *StaffingConstraint {
	return &StaffingConstraint{
		BaseConstraint: NewBaseConstraint(
			"每日人手",
			constraint.TypeStaffing,
			constraint.CategoryHard,
			100,
		),
	}
}

// Evaluate 评估整个网格
func (c *StaffingConstraint) Evaluate(s *state.Schedule) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for d, day := range s.Days {
		n := s.WorkCount(d)
		switch {
		case n < day.MinStaff:
			penalty := c.Weight() * (day.MinStaff - n)
			totalPenalty += penalty
			violations = append(violations, c.CreateViolation("", day.DateString(), -1,
				fmt.Sprintf("%s 上班 %d 人，少于最少 %d 人", day.DateString(), n, day.MinStaff), penalty))
		case n > day.MaxStaff:
			penalty := c.Weight() * (n - day.MaxStaff)
			totalPenalty += penalty
			violations = append(violations, c.CreateViolation("", day.DateString(), -1,
				fmt.Sprintf("%s 上班 %d 人，超过最多 %d 人", day.DateString(), n, day.MaxStaff), penalty))
		}
	}

	return len(violations) == 0, totalPenalty, violations
}

// EvaluateCell 上班时检查上限，撤下上班或可用人员时检查可用人数
func (c *StaffingConstraint) EvaluateCell(s *state.Schedule, staff, day int, code string) (bool, int) {
	profile := s.Days[day]
	wasWork := s.IsWork(staff, day)
	if s.Catalog.IsWork(code) {
		if !wasWork && s.WorkCount(day)+1 > profile.MaxStaff {
			return false, c.Weight()
		}
		return true, 0
	}
	if wasWork || s.IsEmpty(staff, day) {
		if s.Pool(day)-1 < profile.MinStaff {
			return false, c.Weight()
		}
	}
	return true, 0
}
