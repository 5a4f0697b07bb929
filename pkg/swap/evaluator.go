// Package swap 提供已生成排班上的换班评估与推荐
package swap

import (
	"fmt"

	apperrors "github.com/paiban/monthroster/pkg/errors"
	"github.com/paiban/monthroster/pkg/scheduler/constraint"
	"github.com/paiban/monthroster/pkg/scheduler/state"
)

// Evaluator 换班评估器
type Evaluator struct {
	manager *constraint.Manager
}

// NewEvaluator 创建换班评估器
func NewEvaluator(cm *constraint.Manager) *Evaluator {
	return &Evaluator{manager: cm}
}

// Request 换班请求：交换两个单元格的班次。
// DateB 为空时取 DateA，即同一天两人互换。
type Request struct {
	StaffA string `json:"staff_a" binding:"required"`
	DateA  string `json:"date_a" binding:"required"`
	StaffB string `json:"staff_b" binding:"required"`
	DateB  string `json:"date_b,omitempty"`
}

// Evaluation 换班评估结果
type Evaluation struct {
	Request        Request `json:"request"`
	Feasible       bool    `json:"feasible"`
	ScoreBefore    float64 `json:"score_before"`
	Score          float64 `json:"score"` // 0-100
	Issues         []Issue `json:"issues"`
	Impact         *Impact `json:"impact,omitempty"`
	Recommendation string  `json:"recommendation"`
}

// Issue 换班问题
type Issue struct {
	Type     string `json:"type"`
	Severity string `json:"severity"` // error/warning/info
	StaffID  string `json:"staff_id,omitempty"`
	Date     string `json:"date,omitempty"`
	Message  string `json:"message"`
}

// Impact 换班影响
type Impact struct {
	CodeA   string       `json:"code_a"` // 换班前 A 单元格的班次
	CodeB   string       `json:"code_b"`
	StaffA  *StaffImpact `json:"staff_a"`
	StaffB  *StaffImpact `json:"staff_b"`
	Delta   float64      `json:"score_delta"`
	SameDay bool         `json:"same_day"`
}

// StaffImpact 单个员工的月度变化
type StaffImpact struct {
	StaffID      string  `json:"staff_id"`
	HoursBefore  float64 `json:"hours_before"`
	HoursAfter   float64 `json:"hours_after"`
	HoursChange  float64 `json:"hours_change"`
	TargetHours  float64 `json:"target_hours"`
	RestBefore   int     `json:"rest_before"`
	RestAfter    int     `json:"rest_after"`
	NewConflicts int     `json:"new_conflicts"`
}

// cellRef 解析后的单元格
type cellRef struct {
	staff, day int
}

// resolve 把请求中的员工和日期转为索引
func resolve(s *state.Schedule, req *Request) (cellRef, cellRef, error) {
	if req.DateB == "" {
		req.DateB = req.DateA
	}
	a, err := lookup(s, req.StaffA, req.DateA)
	if err != nil {
		return cellRef{}, cellRef{}, err
	}
	b, err := lookup(s, req.StaffB, req.DateB)
	if err != nil {
		return cellRef{}, cellRef{}, err
	}
	if a == b {
		return cellRef{}, cellRef{}, apperrors.New(apperrors.CodeInvalidInput, "换班双方是同一个单元格")
	}
	return a, b, nil
}

func lookup(s *state.Schedule, staffID, date string) (cellRef, error) {
	i, ok := s.StaffIndex(staffID)
	if !ok {
		return cellRef{}, apperrors.New(apperrors.CodeInvalidInput, fmt.Sprintf("员工 %s 不在名单中", staffID))
	}
	d, ok := DayIndex(s, date)
	if !ok {
		return cellRef{}, apperrors.New(apperrors.CodeInvalidInput, fmt.Sprintf("日期 %s 不在 %s 内", date, s.Month))
	}
	return cellRef{staff: i, day: d}, nil
}

// DayIndex 日期字符串在月内的索引
func DayIndex(s *state.Schedule, date string) (int, bool) {
	for d, day := range s.Days {
		if day.DateString() == date {
			return d, true
		}
	}
	return 0, false
}

// Evaluate 评估换班可行性，不修改 s。
// 员工或日期无效时返回错误；约束问题写入 Issues。
func (e *Evaluator) Evaluate(s *state.Schedule, req Request) (*Evaluation, error) {
	a, b, err := resolve(s, &req)
	if err != nil {
		return nil, err
	}

	result := &Evaluation{
		Request:  req,
		Feasible: true,
		Issues:   make([]Issue, 0),
	}

	// 1. 锁定单元格（请假、停工、成对休息）不可调整
	for _, c := range []cellRef{a, b} {
		if s.IsLocked(c.staff, c.day) {
			result.Feasible = false
			result.Issues = append(result.Issues, Issue{
				Type:     "locked",
				Severity: "error",
				StaffID:  s.Staff[c.staff].ID,
				Date:     s.Days[c.day].DateString(),
				Message:  fmt.Sprintf("%s 在 %s 的单元格已锁定", s.Staff[c.staff].Label(), s.Days[c.day].DateString()),
			})
		}
	}
	codeA, codeB := s.Get(a.staff, a.day), s.Get(b.staff, b.day)
	if codeA == codeB {
		result.Feasible = false
		result.Issues = append(result.Issues, Issue{
			Type:     "no_change",
			Severity: "error",
			Message:  fmt.Sprintf("两个单元格都是 %q，换班没有变化", codeA),
		})
	}
	if !result.Feasible {
		result.Recommendation = recommendation(result)
		return result, nil
	}

	// 2. 模拟换班
	sim := s.Clone()
	if err := apply(sim, a, b); err != nil {
		return nil, err
	}

	before := e.manager.Evaluate(s)
	after := e.manager.Evaluate(sim)
	result.ScoreBefore = before.Score
	result.Score = after.Score

	// 3. 只有新增或加重的硬约束违反才阻止换班
	baseline := e.manager.HardPenalties(s)
	current := make(map[string]int)
	for _, v := range after.HardViolations {
		current[v.Key()] += v.Penalty
	}
	conflicts := make(map[string]int)
	reported := make(map[string]bool)
	for _, v := range after.HardViolations {
		key := v.Key()
		if current[key] <= baseline[key] || reported[key] {
			continue
		}
		reported[key] = true
		result.Feasible = false
		conflicts[v.StaffID]++
		result.Issues = append(result.Issues, Issue{
			Type:     string(v.ConstraintType),
			Severity: "error",
			StaffID:  v.StaffID,
			Date:     v.Date,
			Message:  v.Message,
		})
	}
	if after.Score < before.Score {
		result.Issues = append(result.Issues, Issue{
			Type:     "soft_regression",
			Severity: "warning",
			Message:  fmt.Sprintf("约束得分从 %.2f 降到 %.2f", before.Score, after.Score),
		})
	}

	// 4. 影响
	result.Impact = &Impact{
		CodeA:   codeA,
		CodeB:   codeB,
		StaffA:  staffImpact(s, sim, a.staff, conflicts),
		StaffB:  staffImpact(s, sim, b.staff, conflicts),
		Delta:   after.Score - before.Score,
		SameDay: a.day == b.day,
	}
	result.Recommendation = recommendation(result)
	return result, nil
}

// Apply 评估通过后在 s 上执行换班
func (e *Evaluator) Apply(s *state.Schedule, req Request) (*Evaluation, error) {
	ev, err := e.Evaluate(s, req)
	if err != nil {
		return nil, err
	}
	if !ev.Feasible {
		return ev, apperrors.New(apperrors.CodeConstraintViolation, firstError(ev))
	}
	a, b, err := resolve(s, &req)
	if err != nil {
		return nil, err
	}
	return ev, apply(s, a, b)
}

// CanSwap 快速检查是否可换班
func (e *Evaluator) CanSwap(s *state.Schedule, req Request) (bool, string) {
	ev, err := e.Evaluate(s, req)
	if err != nil {
		return false, err.Error()
	}
	if !ev.Feasible {
		return false, firstError(ev)
	}
	return true, ""
}

func apply(s *state.Schedule, a, b cellRef) error {
	codeA, codeB := s.Get(a.staff, a.day), s.Get(b.staff, b.day)
	if err := s.Set(a.staff, a.day, codeB); err != nil {
		return err
	}
	return s.Set(b.staff, b.day, codeA)
}

func staffImpact(before, after *state.Schedule, staff int, conflicts map[string]int) *StaffImpact {
	p0, p1 := before.Profiles[staff], after.Profiles[staff]
	return &StaffImpact{
		StaffID:      p0.Staff.ID,
		HoursBefore:  p0.RunningHours,
		HoursAfter:   p1.RunningHours,
		HoursChange:  p1.RunningHours - p0.RunningHours,
		TargetHours:  p0.MonthlyTargetHours,
		RestBefore:   p0.RunningRestDays,
		RestAfter:    p1.RunningRestDays,
		NewConflicts: conflicts[p0.Staff.ID],
	}
}

func firstError(ev *Evaluation) string {
	for _, is := range ev.Issues {
		if is.Severity == "error" {
			return is.Message
		}
	}
	return "无法进行换班"
}

// recommendation 生成换班建议
func recommendation(ev *Evaluation) string {
	if !ev.Feasible {
		return "不建议进行此换班，存在硬约束冲突"
	}
	delta := ev.Score - ev.ScoreBefore
	switch {
	case delta > 0:
		return "推荐，换班后约束得分提高"
	case delta == 0:
		return "可以进行，约束得分不变"
	case delta >= -1:
		return "谨慎进行，软约束略有变差"
	default:
		return "不推荐，虽然可行但会降低排班质量"
	}
}
