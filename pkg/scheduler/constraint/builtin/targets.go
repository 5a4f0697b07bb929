package builtin

import (
	"fmt"
	"math"

	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/scheduler/constraint"
	"github.com/paiban/monthroster/pkg/scheduler/state"
)

// HourTargetConstraint 月度工时接近目标（软约束）
type HourTargetConstraint struct {
	*BaseConstraint
	tolerance float64
}

// NewHourTargetConstraint 创建工时目标约束
func NewHourTargetConstraint(weight int, tolerance float64) *HourTargetConstraint {
	return &HourTargetConstraint{
		BaseConstraint: NewBaseConstraint(
			"月度工时目标",
			constraint.TypeHourTarget,
			constraint.CategorySoft,
			weight,
		),
		tolerance: tolerance,
	}
}

// Evaluate 按偏差超出容差的小时数计惩罚
func (c *HourTargetConstraint) Evaluate(s *state.Schedule) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for i, p := range s.Profiles {
		var hours float64
		for d := range s.Days {
			hours += s.Hours(i, d)
		}
		dev := hours - p.MonthlyTargetHours
		if math.Abs(dev) <= c.tolerance {
			continue
		}
		penalty := c.Weight() * int(math.Abs(dev)-c.tolerance+0.5)
		totalPenalty += penalty
		violations = append(violations, c.CreateViolation(p.Staff.ID, "", -1,
			fmt.Sprintf("员工 %s 月工时 %.1f，目标 %.1f，偏差 %+.1f", p.Staff.Label(), hours, p.MonthlyTargetHours, dev),
			penalty))
	}

	return len(violations) == 0, totalPenalty, violations
}

// RestTargetConstraint 月度休息天数达到目标（软约束）
type RestTargetConstraint struct {
	*BaseConstraint
	tolerance int
}

// NewRestTargetConstraint 创建休息目标约束
func NewRestTargetConstraint(weight, tolerance int) *RestTargetConstraint {
	return &RestTargetConstraint{
		BaseConstraint: NewBaseConstraint(
			"月度休息天数",
			constraint.TypeRestTarget,
			constraint.CategorySoft,
			weight,
		),
		tolerance: tolerance,
	}
}

// Evaluate 休息天数少于目标减容差时计惩罚
func (c *RestTargetConstraint) Evaluate(s *state.Schedule) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for i, p := range s.Profiles {
		rest := 0
		for d := range s.Days {
			if s.IsCategory(i, d, model.CategoryRest) {
				rest++
			}
		}
		short := p.MonthlyTargetRestDays - c.tolerance - rest
		if short <= 0 {
			continue
		}
		penalty := c.Weight() * short
		totalPenalty += penalty
		violations = append(violations, c.CreateViolation(p.Staff.ID, "", -1,
			fmt.Sprintf("员工 %s 休息 %d 天，目标 %d 天", p.Staff.Label(), rest, p.MonthlyTargetRestDays), penalty))
	}

	return len(violations) == 0, totalPenalty, violations
}

// WeekendFairnessConstraint 周末/节假日班次均衡（软约束）
type WeekendFairnessConstraint struct {
	*BaseConstraint
}

// NewWeekendFairnessConstraint 创建周末均衡约束
func NewWeekendFairnessConstraint(weight int) *WeekendFairnessConstraint {
	return &WeekendFairnessConstraint{
		BaseConstraint: NewBaseConstraint(
			"周末班次均衡",
			constraint.TypeWeekendFairness,
			constraint.CategorySoft,
			weight,
		),
	}
}

// Evaluate 有可排周末的员工之间，周末班次数相差超过1时计惩罚
func (c *WeekendFairnessConstraint) Evaluate(s *state.Schedule) (bool, int, []constraint.ViolationDetail) {
	minCount, maxCount := math.MaxInt32, -1
	for i, p := range s.Profiles {
		if p.LeaveDays >= len(s.Days) {
			continue
		}
		n := 0
		for d, day := range s.Days {
			if day.Kind.IsWeekendLike() && s.IsWork(i, d) {
				n++
			}
		}
		if n < minCount {
			minCount = n
		}
		if n > maxCount {
			maxCount = n
		}
	}
	if maxCount < 0 || maxCount-minCount <= 1 {
		return true, 0, nil
	}
	penalty := c.Weight() * (maxCount - minCount - 1)
	return false, penalty, []constraint.ViolationDetail{c.CreateViolation("", "", -1,
		fmt.Sprintf("周末班次分布不均: 最多 %d 次，最少 %d 次", maxCount, minCount), penalty)}
}
