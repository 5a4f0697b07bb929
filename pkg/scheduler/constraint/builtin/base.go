// Package builtin 提供内置约束实现
package builtin

import (
	"github.com/paiban/monthroster/pkg/scheduler/constraint"
	"github.com/paiban/monthroster/pkg/scheduler/state"
)

// BaseConstraint 约束基类
type BaseConstraint struct {
	name     string
	typ      constraint.Type
	category constraint.Category
	weight   int
}

// NewBaseConstraint 创建基础约束
func NewBaseConstraint(name string, typ constraint.Type, cat constraint.Category, weight int) *BaseConstraint {
	return &BaseConstraint{
		name:     name,
		typ:      typ,
		category: cat,
		weight:   weight,
	}
}

// Name 返回约束名称
func (c *BaseConstraint) Name() string { return c.name }

// Type 返回约束类型
func (c *BaseConstraint) Type() constraint.Type { return c.typ }

// Category 返回约束类别
func (c *BaseConstraint) Category() constraint.Category { return c.category }

// Weight 返回约束权重
func (c *BaseConstraint) Weight() int { return c.weight }

// CreateViolation 创建违反详情，week 为 -1 表示与周无关
func (c *BaseConstraint) CreateViolation(staffID, date string, week int, message string, penalty int) constraint.ViolationDetail {
	severity := "warning"
	if c.category == constraint.CategoryHard {
		severity = "error"
	}

	return constraint.ViolationDetail{
		ConstraintType: c.typ,
		ConstraintName: c.name,
		StaffID:        staffID,
		Date:           date,
		Week:           week,
		Message:        message,
		Severity:       severity,
		Penalty:        penalty,
	}
}

// Evaluate 默认评估实现（子类需覆盖）
func (c *BaseConstraint) Evaluate(s *state.Schedule) (bool, int, []constraint.ViolationDetail) {
	return true, 0, nil
}

// EvaluateCell 默认单元格评估实现（子类需覆盖）
func (c *BaseConstraint) EvaluateCell(s *state.Schedule, staff, day int, code string) (bool, int) {
	return true, 0
}
