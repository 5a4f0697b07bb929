package optimizer

import (
	"fmt"

	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/scheduler/state"
)

// MoveKind 平衡移动类型，按优先级排列
type MoveKind string

const (
	MoveGive      MoveKind = "give"      // 把超时员工某天的班转给欠时员工
	MoveSwap      MoveKind = "swap"      // 同一天两人交换不同时长的班次
	MoveDowngrade MoveKind = "downgrade" // 超时员工改为同类别更短的班次
)

// MoveOrder 移动尝试顺序
var MoveOrder = []MoveKind{MoveGive, MoveSwap, MoveDowngrade}

// cellChange 单元格变更，old 用于撤销
type cellChange struct {
	staff int
	day   int
	old   string
	new   string
}

// Move 一次候选移动
type Move struct {
	Kind    MoveKind `json:"kind"`
	Day     int      `json:"day"`
	Date    string   `json:"date"`
	Over    string   `json:"over"`
	Under   string   `json:"under"`
	Summary string   `json:"summary"`

	changes []cellChange
}

// apply 写入变更，失败时回滚已写入的部分
func (m *Move) apply(s *state.Schedule) error {
	for i, c := range m.changes {
		if err := s.Set(c.staff, c.day, c.new); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = s.Set(m.changes[j].staff, m.changes[j].day, m.changes[j].old)
			}
			return err
		}
	}
	return nil
}

// undo 按逆序恢复原值
func (m *Move) undo(s *state.Schedule) {
	for i := len(m.changes) - 1; i >= 0; i-- {
		c := m.changes[i]
		_ = s.Set(c.staff, c.day, c.old)
	}
}

// movable 单元格是否允许平衡器改写：未锁定的常规班
func movable(s *state.Schedule, staff, day int) bool {
	return !s.IsLocked(staff, day) && s.IsCategory(staff, day, model.CategoryRegular)
}

// receivable 单元格是否可以接收转来的班：未锁定且为休息或未分配
func receivable(s *state.Schedule, staff, day int) bool {
	if s.IsLocked(staff, day) {
		return false
	}
	return s.IsEmpty(staff, day) || s.IsCategory(staff, day, model.CategoryRest)
}

// generateMoves 按优先级和日期升序生成候选移动
func generateMoves(s *state.Schedule, kind MoveKind, week model.Week, over, under int) []*Move {
	switch kind {
	case MoveGive:
		return giveMoves(s, week, over, under)
	case MoveSwap:
		return swapMoves(s, week, over, under)
	case MoveDowngrade:
		return downgradeMoves(s, week, over)
	default:
		return nil
	}
}

// giveMoves 超时员工当天休息，欠时员工顶上同一班次
func giveMoves(s *state.Schedule, week model.Week, over, under int) []*Move {
	var moves []*Move
	for d := week.Start; d <= week.End; d++ {
		if !movable(s, over, d) || !receivable(s, under, d) {
			continue
		}
		code := s.Get(over, d)
		moves = append(moves, newMove(s, MoveGive, d, over, under,
			fmt.Sprintf("%s 的 %s 转给 %s", s.Staff[over].ID, code, s.Staff[under].ID),
			cellChange{staff: over, day: d, old: code, new: s.Codes.Rest},
			cellChange{staff: under, day: d, old: s.Get(under, d), new: code},
		))
	}
	return moves
}

// swapMoves 两人同一天都上常规班且超时员工的班更长时交换
func swapMoves(s *state.Schedule, week model.Week, over, under int) []*Move {
	var moves []*Move
	for d := week.Start; d <= week.End; d++ {
		if !movable(s, over, d) || !movable(s, under, d) {
			continue
		}
		long, short := s.Get(over, d), s.Get(under, d)
		if s.Catalog.Hours(long) <= s.Catalog.Hours(short) {
			continue
		}
		moves = append(moves, newMove(s, MoveSwap, d, over, under,
			fmt.Sprintf("%s(%s) 与 %s(%s) 交换", s.Staff[over].ID, long, s.Staff[under].ID, short),
			cellChange{staff: over, day: d, old: long, new: short},
			cellChange{staff: under, day: d, old: short, new: long},
		))
	}
	return moves
}

// downgradeMoves 超时员工换成更短的常规班，降幅小的优先
func downgradeMoves(s *state.Schedule, week model.Week, over int) []*Move {
	sorted := s.Catalog.SortedByDuration(model.CategoryRegular)
	var moves []*Move
	for d := week.Start; d <= week.End; d++ {
		if !movable(s, over, d) {
			continue
		}
		code := s.Get(over, d)
		hours := s.Catalog.Hours(code)
		for i := len(sorted) - 1; i >= 0; i-- {
			def := sorted[i]
			if def.DurationHours >= hours {
				continue
			}
			moves = append(moves, newMove(s, MoveDowngrade, d, over, -1,
				fmt.Sprintf("%s 的 %s 改为 %s", s.Staff[over].ID, code, def.Code),
				cellChange{staff: over, day: d, old: code, new: def.Code},
			))
		}
	}
	return moves
}

func newMove(s *state.Schedule, kind MoveKind, day, over, under int, summary string, changes ...cellChange) *Move {
	m := &Move{
		Kind:    kind,
		Day:     day,
		Date:    s.Days[day].DateString(),
		Over:    s.Staff[over].ID,
		Summary: summary,
		changes: changes,
	}
	if under >= 0 {
		m.Under = s.Staff[under].ID
	}
	return m
}
