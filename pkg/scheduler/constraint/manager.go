package constraint

import (
	"fmt"
	"sort"
	"sync"

	"github.com/paiban/monthroster/pkg/scheduler/state"
)

// Manager 约束管理器
type Manager struct {
	constraints []Constraint
	mu          sync.RWMutex
}

// NewManager 创建约束管理器
func NewManager() *Manager {
	return &Manager{
		constraints: make([]Constraint, 0),
	}
}

// Register 注册约束
func (m *Manager) Register(c Constraint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 同类型约束替换
	for i, existing := range m.constraints {
		if existing.Type() == c.Type() {
			m.constraints[i] = c
			return
		}
	}

	m.constraints = append(m.constraints, c)

	// 硬约束在前，权重高的在前
	sort.SliceStable(m.constraints, func(i, j int) bool {
		ci, cj := m.constraints[i], m.constraints[j]
		if ci.Category() != cj.Category() {
			return ci.Category() == CategoryHard
		}
		return ci.Weight() > cj.Weight()
	})
}

// GetConstraint 获取约束
func (m *Manager) GetConstraint(t Type) Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.constraints {
		if c.Type() == t {
			return c
		}
	}
	return nil
}

// GetAll 获取所有约束
func (m *Manager) GetAll() []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Constraint, len(m.constraints))
	copy(result, m.constraints)
	return result
}

// GetByCategory 按类别获取约束
func (m *Manager) GetByCategory(cat Category) []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Constraint
	for _, c := range m.constraints {
		if c.Category() == cat {
			result = append(result, c)
		}
	}
	return result
}

// Evaluate 评估所有约束
func (m *Manager) Evaluate(s *state.Schedule) *Result {
	result := &Result{
		IsValid:        true,
		HardViolations: make([]ViolationDetail, 0),
		SoftViolations: make([]ViolationDetail, 0),
	}

	maxPenalty := 0
	for _, c := range m.GetAll() {
		valid, penalty, details := c.Evaluate(s)

		// 假设每个约束最多违反100次
		maxPenalty += c.Weight() * 100

		if valid {
			continue
		}
		result.TotalPenalty += penalty
		for _, d := range details {
			if c.Category() == CategoryHard {
				result.IsValid = false
				result.HardViolations = append(result.HardViolations, d)
			} else {
				result.SoftViolations = append(result.SoftViolations, d)
			}
		}
	}

	result.CalculateScore(maxPenalty)
	return result
}

// HardPenalties 仅评估硬约束，返回违反标识到惩罚值的映射
func (m *Manager) HardPenalties(s *state.Schedule) map[string]int {
	penalties := make(map[string]int)
	for _, c := range m.GetByCategory(CategoryHard) {
		valid, _, details := c.Evaluate(s)
		if valid {
			continue
		}
		for _, d := range details {
			penalties[d.Key()] += d.Penalty
		}
	}
	return penalties
}

// IntroducesViolation 当前网格是否出现了 baseline 中没有的硬约束违反，或已有违反变得更严重
func (m *Manager) IntroducesViolation(s *state.Schedule, baseline map[string]int) bool {
	for key, penalty := range m.HardPenalties(s) {
		if penalty > baseline[key] {
			return true
		}
	}
	return false
}

// EvaluateCell 评估单个单元格写入
func (m *Manager) EvaluateCell(s *state.Schedule, staff, day int, code string) (bool, int, []ViolationDetail) {
	var violations []ViolationDetail
	totalPenalty := 0
	isValid := true

	for _, c := range m.GetAll() {
		valid, penalty := c.EvaluateCell(s, staff, day, code)
		if valid {
			continue
		}
		totalPenalty += penalty
		violations = append(violations, ViolationDetail{
			ConstraintType: c.Type(),
			ConstraintName: c.Name(),
			StaffID:        s.Staff[staff].ID,
			Date:           s.Days[day].DateString(),
			Week:           s.WeekOf(day),
			Message:        fmt.Sprintf("违反约束: %s", c.Name()),
			Severity:       string(c.Category()),
			Penalty:        penalty,
		})
		if c.Category() == CategoryHard {
			isValid = false
		}
	}

	return isValid, totalPenalty, violations
}

// CanAssign 检查单元格写入是否满足全部硬约束
func (m *Manager) CanAssign(s *state.Schedule, staff, day int, code string) (bool, string) {
	for _, c := range m.GetByCategory(CategoryHard) {
		if valid, _ := c.EvaluateCell(s, staff, day, code); !valid {
			return false, fmt.Sprintf("违反硬约束: %s", c.Name())
		}
	}
	return true, ""
}

// Count 返回约束数量
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.constraints)
}
