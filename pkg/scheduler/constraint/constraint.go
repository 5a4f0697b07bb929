// Package constraint 定义约束接口和管理器
package constraint

import (
	"fmt"

	"github.com/paiban/monthroster/pkg/scheduler/state"
)

// Type 约束类型标识
type Type string

const (
	// 硬约束类型
	TypeStaffing           Type = "staffing"
	TypeMaxHoursPerWeek    Type = "max_hours_per_week"
	TypeMaxConsecutiveWork Type = "max_consecutive_work_days"
	TypeMaxConsecutiveRest Type = "max_consecutive_rest_days"
	TypePairedRest         Type = "paired_rest"
	TypeNoBackToBackOnCall Type = "no_back_to_back_on_call"

	// 软约束类型
	TypeHourTarget      Type = "hour_target"
	TypeRestTarget      Type = "rest_target"
	TypeWeekendFairness Type = "weekend_fairness"
)

// Category 约束类别
type Category string

const (
	CategoryHard Category = "hard" // 硬约束（必须满足）
	CategorySoft Category = "soft" // 软约束（尽量满足）
)

// Constraint 约束接口
type Constraint interface {
	// Name 返回约束名称
	Name() string

	// Type 返回约束类型
	Type() Type

	// Category 返回约束类别
	Category() Category

	// Weight 返回约束权重 (1-100)
	Weight() int

	// Evaluate 评估整个网格
	// 返回：是否满足、惩罚值、违反详情
	Evaluate(s *state.Schedule) (valid bool, penalty int, details []ViolationDetail)

	// EvaluateCell 评估把 code 写入 (staff, day) 后该约束在单元格附近是否仍满足
	EvaluateCell(s *state.Schedule, staff, day int, code string) (valid bool, penalty int)
}

// ViolationDetail 约束违反详情
type ViolationDetail struct {
	ConstraintType Type   `json:"constraint_type"`
	ConstraintName string `json:"constraint_name"`
	StaffID        string `json:"staff_id,omitempty"`
	Date           string `json:"date,omitempty"`
	Week           int    `json:"week"` // -1 表示与周无关
	Message        string `json:"message"`
	Severity       string `json:"severity"` // error/warning
	Penalty        int    `json:"penalty"`
}

// Key 违反的身份标识，用于比较两次评估
func (v ViolationDetail) Key() string {
	return fmt.Sprintf("%s|%s|%s|%d", v.ConstraintType, v.StaffID, v.Date, v.Week)
}

// Result 约束评估结果
type Result struct {
	IsValid        bool              `json:"is_valid"`
	TotalPenalty   int               `json:"total_penalty"`
	HardViolations []ViolationDetail `json:"hard_violations"`
	SoftViolations []ViolationDetail `json:"soft_violations"`
	Score          float64           `json:"score"` // 0-100
}

// CalculateScore 计算约束满足度得分
func (r *Result) CalculateScore(maxPenalty int) {
	if maxPenalty == 0 {
		r.Score = 100.0
		return
	}
	r.Score = 100.0 * float64(maxPenalty-r.TotalPenalty) / float64(maxPenalty)
	if r.Score < 0 {
		r.Score = 0
	}
}
