package builtin

import (
	"github.com/paiban/monthroster/pkg/rules"
	"github.com/paiban/monthroster/pkg/scheduler/constraint"
)

// RegisterSafetyConstraints 注册安全谓词使用的硬约束：人手、周工时、连续上班/休息
func RegisterSafetyConstraints(manager *constraint.Manager, rs *rules.RuleSet) {
	manager.Register(NewStaffingConstraint())
	manager.Register(NewMaxHoursPerWeekConstraint(rs.WeeklyHourCap))
	manager.Register(NewMaxConsecutiveWorkConstraint(rs.MaxConsecutiveWorkDays))
	manager.Register(NewMaxConsecutiveRestConstraint(rs.MaxConsecutiveRestDays))
}

// RegisterDefaultConstraints 注册全部约束到管理器
func RegisterDefaultConstraints(manager *constraint.Manager, rs *rules.RuleSet) {
	RegisterSafetyConstraints(manager, rs)

	if rs.PairedRestEnabled() {
		manager.Register(NewPairedRestConstraint(rs.PairedRestDays[0], rs.PairedRestDays[1]))
	}
	if rs.OnCallEnabled() {
		manager.Register(NewNoBackToBackOnCallConstraint())
	}

	manager.Register(NewHourTargetConstraint(70, rs.MonthlyHourTolerance))
	manager.Register(NewRestTargetConstraint(60, rs.RestDayTolerance))
	manager.Register(NewWeekendFairnessConstraint(50))
}

// NewSafetyManager 创建只含安全谓词约束的管理器
func NewSafetyManager(rs *rules.RuleSet) *constraint.Manager {
	m := constraint.NewManager()
	RegisterSafetyConstraints(m, rs)
	return m
}

// NewDefaultManager 创建含全部约束的管理器
func NewDefaultManager(rs *rules.RuleSet) *constraint.Manager {
	m := constraint.NewManager()
	RegisterDefaultConstraints(m, rs)
	return m
}
