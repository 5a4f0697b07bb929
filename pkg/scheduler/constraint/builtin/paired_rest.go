package builtin

import (
	"fmt"
	"time"

	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/scheduler/constraint"
	"github.com/paiban/monthroster/pkg/scheduler/state"
)

// PairedRestConstraint 每人每月至少一组成对休息（如周六+周日）
type PairedRestConstraint struct {
	*BaseConstraint
	first, second time.Weekday
}

// NewPairedRestConstraint 创建成对休息约束
func NewPairedRestConstraint(first, second time.Weekday) *PairedRestConstraint {
	return &PairedRestConstraint{
		BaseConstraint: NewBaseConstraint(
			"成对休息",
			constraint.TypePairedRest,
			constraint.CategoryHard,
			80,
		),
		first:  first,
		second: second,
	}
}

// AnchorDays 返回月内所有成对日期的首日索引
func AnchorDays(s *state.Schedule, first, second time.Weekday) []int {
	var anchors []int
	for d := 0; d+1 < len(s.Days); d++ {
		if s.Days[d].Weekday == first && s.Days[d+1].Weekday == second {
			anchors = append(anchors, d)
		}
	}
	return anchors
}

// Evaluate 每个员工检查是否存在两天都休息的成对日期
func (c *PairedRestConstraint) Evaluate(s *state.Schedule) (bool, int, []constraint.ViolationDetail) {
	anchors := AnchorDays(s, c.first, c.second)
	if len(anchors) == 0 {
		return true, 0, nil
	}

	var violations []constraint.ViolationDetail
	totalPenalty := 0
	for i, st := range s.Staff {
		satisfied, exempt := false, true
		for _, d := range anchors {
			if s.IsCategory(i, d, model.CategoryRest) && s.IsCategory(i, d+1, model.CategoryRest) {
				satisfied = true
				break
			}
			if !onLeave(s, i, d) && !onLeave(s, i, d+1) {
				exempt = false
			}
		}
		if satisfied || exempt {
			continue
		}
		totalPenalty += c.Weight()
		violations = append(violations, c.CreateViolation(st.ID, "", -1,
			fmt.Sprintf("员工 %s 本月没有 %s+%s 成对休息", st.Label(), c.first, c.second), c.Weight()))
	}

	return len(violations) == 0, totalPenalty, violations
}

func onLeave(s *state.Schedule, staff, day int) bool {
	return s.LeaveAt(staff, day) != "" || s.IsCategory(staff, day, model.CategoryLeave)
}
