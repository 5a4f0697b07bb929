// Package state 定义一次排班运行独占的可变状态：网格、日期画像、员工画像
package state

import (
	"fmt"

	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/rules"
)

// Codes 本次运行解析出的保留班次代码
type Codes struct {
	Rest   string
	Leave  string
	OnCall string // 未启用值班时为空
}

// Schedule 排班状态
type Schedule struct {
	Month   model.YearMonth
	Rules   *rules.RuleSet
	Catalog *model.ShiftCatalog
	Codes   Codes

	Staff    []model.Staff
	Days     []model.DayProfile
	Weeks    []model.Week
	Profiles []*model.StaffProfile

	grid   [][]string // [staff][day]，"" 表示未分配
	locked [][]bool
	leave  [][]string // 已批准请假对应的代码

	staffIndex map[string]int
}

// New 创建空网格的排班状态
func New(month model.YearMonth, rs *rules.RuleSet, catalog *model.ShiftCatalog, codes Codes,
	staff []model.Staff, days []model.DayProfile, weeks []model.Week) *Schedule {
	s := &Schedule{
		Month:      month,
		Rules:      rs,
		Catalog:    catalog,
		Codes:      codes,
		Staff:      staff,
		Days:       days,
		Weeks:      weeks,
		Profiles:   make([]*model.StaffProfile, len(staff)),
		grid:       make([][]string, len(staff)),
		locked:     make([][]bool, len(staff)),
		leave:      make([][]string, len(staff)),
		staffIndex: make(map[string]int, len(staff)),
	}
	for i, st := range staff {
		s.grid[i] = make([]string, len(days))
		s.locked[i] = make([]bool, len(days))
		s.leave[i] = make([]string, len(days))
		s.staffIndex[st.ID] = i
		s.Profiles[i] = &model.StaffProfile{
			Staff:  st,
			Weekly: make([]model.WeeklyStat, len(weeks)),
		}
	}
	return s
}

// StaffCount 员工数
func (s *Schedule) StaffCount() int { return len(s.Staff) }

// DayCount 天数
func (s *Schedule) DayCount() int { return len(s.Days) }

// StaffIndex 按员工ID查找行号
func (s *Schedule) StaffIndex(id string) (int, bool) {
	i, ok := s.staffIndex[id]
	return i, ok
}

// Get 读取单元格
func (s *Schedule) Get(staff, day int) string {
	return s.grid[staff][day]
}

// IsEmpty 单元格是否未分配
func (s *Schedule) IsEmpty(staff, day int) bool {
	return s.grid[staff][day] == ""
}

// IsLocked 单元格是否被锁定（请假、停工、成对休息）
func (s *Schedule) IsLocked(staff, day int) bool {
	return s.locked[staff][day]
}

// Set 写入单元格并刷新该员工画像，锁定单元格不可修改
func (s *Schedule) Set(staff, day int, code string) error {
	if s.locked[staff][day] {
		return fmt.Errorf("单元格 %s/%s 已锁定", s.Staff[staff].ID, s.Days[day].DateString())
	}
	if code != "" && !s.Catalog.Has(code) {
		return fmt.Errorf("班次代码 %q 未定义", code)
	}
	s.grid[staff][day] = code
	s.Refresh(staff)
	return nil
}

// Stamp 写入并锁定单元格
func (s *Schedule) Stamp(staff, day int, code string) {
	s.grid[staff][day] = code
	s.locked[staff][day] = true
	s.Refresh(staff)
}

// MarkLeave 登记已批准请假（尚未写入网格）
func (s *Schedule) MarkLeave(staff, day int, code string) {
	s.leave[staff][day] = code
}

// LeaveAt 该天的请假代码，无请假返回空串
func (s *Schedule) LeaveAt(staff, day int) string {
	return s.leave[staff][day]
}

// Category 单元格类别，未分配返回 false
func (s *Schedule) Category(staff, day int) (model.ShiftCategory, bool) {
	code := s.grid[staff][day]
	if code == "" {
		return 0, false
	}
	return s.Catalog.Category(code)
}

// IsWork 单元格是否为上班
func (s *Schedule) IsWork(staff, day int) bool {
	return s.Catalog.IsWork(s.grid[staff][day])
}

// IsCategory 单元格是否为指定类别
func (s *Schedule) IsCategory(staff, day int, cat model.ShiftCategory) bool {
	c, ok := s.Category(staff, day)
	return ok && c == cat
}

// Hours 单元格计入的工时
func (s *Schedule) Hours(staff, day int) float64 {
	return s.Catalog.Hours(s.grid[staff][day])
}

// WorkCount 某天上班人数
func (s *Schedule) WorkCount(day int) int {
	n := 0
	for i := range s.Staff {
		if s.IsWork(i, day) {
			n++
		}
	}
	return n
}

// Pool 某天的可用人数：已上班或未分配
func (s *Schedule) Pool(day int) int {
	n := 0
	for i := range s.Staff {
		if s.IsWork(i, day) || s.IsEmpty(i, day) {
			n++
		}
	}
	return n
}

// WeekOf 日索引所属周
func (s *Schedule) WeekOf(day int) int {
	return s.Days[day].Week
}

// WeekHours 员工某周工时（直接从网格计算）
func (s *Schedule) WeekHours(staff, week int) float64 {
	w := s.Weeks[week]
	var h float64
	for d := w.Start; d <= w.End; d++ {
		h += s.Hours(staff, d)
	}
	return h
}

// breaksRuns 请假和停工日截断连续上班/休息
func (s *Schedule) breaksRuns(staff, day int) bool {
	if s.Days[day].Kind == model.DayShutdown {
		return true
	}
	return s.IsCategory(staff, day, model.CategoryLeave)
}

// IsRunRest 单元格是否计入连续休息
func (s *Schedule) IsRunRest(staff, day int) bool {
	return !s.breaksRuns(staff, day) && s.IsCategory(staff, day, model.CategoryRest)
}

// WorkRunIfWorked 若该天上班，形成的连续上班天数
func (s *Schedule) WorkRunIfWorked(staff, day int) int {
	return s.runAround(staff, day, s.IsWork)
}

// RestRunIfRested 若该天休息，形成的连续休息天数
func (s *Schedule) RestRunIfRested(staff, day int) int {
	return s.runAround(staff, day, s.IsRunRest)
}

func (s *Schedule) runAround(staff, day int, pred func(int, int) bool) int {
	n := 1
	for d := day - 1; d >= 0 && pred(staff, d); d-- {
		n++
	}
	for d := day + 1; d < len(s.Days) && pred(staff, d); d++ {
		n++
	}
	return n
}

// LongestRun 员工行内满足条件的最长连续天数
func (s *Schedule) LongestRun(staff int, pred func(int, int) bool) int {
	longest, cur := 0, 0
	for d := range s.Days {
		if pred(staff, d) {
			cur++
			if cur > longest {
				longest = cur
			}
		} else {
			cur = 0
		}
	}
	return longest
}

// Refresh 从网格重算员工画像的运行统计（目标值保持不变）
func (s *Schedule) Refresh(staff int) {
	p := s.Profiles[staff]
	p.RunningHours = 0
	p.RunningRestDays = 0
	p.LeaveDays = 0
	p.WeekendShiftCount = 0
	p.OnCallCount = 0
	for w := range p.Weekly {
		p.Weekly[w].AssignedHours = 0
		p.Weekly[w].AssignedRest = 0
	}

	for d, day := range s.Days {
		cat, ok := s.Category(staff, d)
		if !ok {
			continue
		}
		switch cat {
		case model.CategoryRest:
			p.RunningRestDays++
			p.Weekly[day.Week].AssignedRest++
		case model.CategoryLeave:
			p.LeaveDays++
		case model.CategoryOnCall:
			p.OnCallCount++
		}
		if cat.IsWork() {
			h := s.Hours(staff, d)
			p.RunningHours += h
			p.Weekly[day.Week].AssignedHours += h
			if day.Kind.IsWeekendLike() {
				p.WeekendShiftCount++
			}
		}
	}
	p.ConsecutiveWorkStreak = s.LongestRun(staff, s.IsWork)
	p.ConsecutiveRestStreak = s.LongestRun(staff, s.IsRunRest)
}

// RefreshAll 重算全部员工画像
func (s *Schedule) RefreshAll() {
	for i := range s.Staff {
		s.Refresh(i)
	}
}

// EmptyCount 未分配单元格数
func (s *Schedule) EmptyCount() int {
	n := 0
	for i := range s.grid {
		for d := range s.grid[i] {
			if s.grid[i][d] == "" {
				n++
			}
		}
	}
	return n
}

// Saturate 将所有未分配单元格填为休息，返回填充数
func (s *Schedule) Saturate() int {
	n := 0
	for i := range s.grid {
		touched := false
		for d := range s.grid[i] {
			if s.grid[i][d] == "" {
				s.grid[i][d] = s.Codes.Rest
				n++
				touched = true
			}
		}
		if touched {
			s.Refresh(i)
		}
	}
	return n
}

// Cells 返回网格副本
func (s *Schedule) Cells() [][]string {
	out := make([][]string, len(s.grid))
	for i := range s.grid {
		out[i] = append([]string(nil), s.grid[i]...)
	}
	return out
}

// Locks 返回锁定标记副本
func (s *Schedule) Locks() [][]bool {
	out := make([][]bool, len(s.locked))
	for i := range s.locked {
		out[i] = append([]bool(nil), s.locked[i]...)
	}
	return out
}

// Clone 深拷贝整个状态
func (s *Schedule) Clone() *Schedule {
	c := New(s.Month, s.Rules, s.Catalog, s.Codes, s.Staff, s.Days, s.Weeks)
	c.grid = s.Cells()
	c.locked = s.Locks()
	for i := range s.leave {
		c.leave[i] = append([]string(nil), s.leave[i]...)
	}
	for i, p := range s.Profiles {
		cp := *p
		cp.Weekly = append([]model.WeeklyStat(nil), p.Weekly...)
		c.Profiles[i] = &cp
	}
	return c
}
