// Package validator 从最终网格独立重新推导排班不变量，汇总全部违反
package validator

import (
	"fmt"
	"math"
	"sort"
	"strings"

	apperrors "github.com/paiban/monthroster/pkg/errors"
	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/rules"
	"github.com/paiban/monthroster/pkg/scheduler/state"
)

// ViolationType 违反类型
type ViolationType string

const (
	ViolationUnderStaffed    ViolationType = "under_staffed"    // 人手不足
	ViolationOverStaffed     ViolationType = "over_staffed"     // 人手超出
	ViolationWeeklyHours     ViolationType = "weekly_hours"     // 周工时超上限
	ViolationConsecutiveWork ViolationType = "consecutive_work" // 连续上班过多
	ViolationConsecutiveRest ViolationType = "consecutive_rest" // 连续休息过多
	ViolationPairedRest      ViolationType = "paired_rest"      // 缺少成对休息
	ViolationRestTarget      ViolationType = "rest_target"      // 休息天数不足
	ViolationHourTarget      ViolationType = "hour_target"      // 月工时偏离目标
	ViolationEmptyCell       ViolationType = "empty_cell"       // 未分配
	ViolationUnknownCode     ViolationType = "unknown_code"     // 未定义的班次代码
)

// Violation 一条违反
type Violation struct {
	Type    ViolationType `json:"type"`
	StaffID string        `json:"staff_id,omitempty"`
	Date    string        `json:"date,omitempty"`
	Week    int           `json:"week"` // -1 表示与周无关
	Message string        `json:"message"`
}

// String 返回可读描述
func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s", v.Type, v.Message)
}

// Target 员工月度目标
type Target struct {
	Hours    float64 `json:"hours"`
	RestDays int     `json:"rest_days"`
}

// Grid 待校验的网格及其上下文，不含任何运行时统计
type Grid struct {
	Catalog *model.ShiftCatalog
	Staff   []model.Staff
	Days    []model.DayProfile
	Weeks   []model.Week
	Cells   [][]string // [staff][day]
	Targets []Target
}

// FromSchedule 从排班状态提取网格，只取网格副本和构建阶段确定的目标
func FromSchedule(s *state.Schedule) *Grid {
	targets := make([]Target, len(s.Profiles))
	for i, p := range s.Profiles {
		targets[i] = Target{Hours: p.MonthlyTargetHours, RestDays: p.MonthlyTargetRestDays}
	}
	return &Grid{
		Catalog: s.Catalog,
		Staff:   s.Staff,
		Days:    s.Days,
		Weeks:   s.Weeks,
		Cells:   s.Cells(),
		Targets: targets,
	}
}

func (g *Grid) category(staff, day int) (model.ShiftCategory, bool) {
	return g.Catalog.Category(g.Cells[staff][day])
}

func (g *Grid) isWork(staff, day int) bool {
	return g.Catalog.IsWork(g.Cells[staff][day])
}

func (g *Grid) is(staff, day int, cat model.ShiftCategory) bool {
	c, ok := g.category(staff, day)
	return ok && c == cat
}

// Validator 排班校验器
type Validator struct {
	rules *rules.RuleSet
}

// New 创建校验器
func New(rs *rules.RuleSet) *Validator {
	return &Validator{rules: rs}
}

// Validate 校验网格，返回完整的违反列表（不在第一条处停止）
func (v *Validator) Validate(g *Grid) []Violation {
	var out []Violation
	out = append(out, v.checkCells(g)...)
	out = append(out, v.checkStaffing(g)...)
	for i := range g.Staff {
		out = append(out, v.checkWeeklyHours(g, i)...)
		out = append(out, v.checkRuns(g, i)...)
		out = append(out, v.checkPairedRest(g, i)...)
		out = append(out, v.checkTargets(g, i)...)
	}
	return out
}

// ValidateSchedule 校验排班状态的当前网格
func (v *Validator) ValidateSchedule(s *state.Schedule) []Violation {
	return v.Validate(FromSchedule(s))
}

// checkCells 每个单元格都必须是已定义的班次代码
func (v *Validator) checkCells(g *Grid) []Violation {
	var out []Violation
	for i, st := range g.Staff {
		for d, day := range g.Days {
			code := g.Cells[i][d]
			switch {
			case code == "":
				out = append(out, Violation{
					Type: ViolationEmptyCell, StaffID: st.ID, Date: day.DateString(), Week: day.Week,
					Message: fmt.Sprintf("员工 %s 在 %s 未分配", st.Label(), day.DateString()),
				})
			case !g.Catalog.Has(code):
				out = append(out, Violation{
					Type: ViolationUnknownCode, StaffID: st.ID, Date: day.DateString(), Week: day.Week,
					Message: fmt.Sprintf("员工 %s 在 %s 的班次 %q 未定义", st.Label(), day.DateString(), code),
				})
			}
		}
	}
	return out
}

// checkStaffing 每天上班人数在 [min, max] 内
func (v *Validator) checkStaffing(g *Grid) []Violation {
	var out []Violation
	for d, day := range g.Days {
		count := 0
		for i := range g.Staff {
			if g.isWork(i, d) {
				count++
			}
		}
		if count < day.MinStaff {
			out = append(out, Violation{
				Type: ViolationUnderStaffed, Date: day.DateString(), Week: day.Week,
				Message: fmt.Sprintf("%s 上班 %d 人，少于最少 %d 人", day.DateString(), count, day.MinStaff),
			})
		}
		if count > day.MaxStaff {
			out = append(out, Violation{
				Type: ViolationOverStaffed, Date: day.DateString(), Week: day.Week,
				Message: fmt.Sprintf("%s 上班 %d 人，超过最多 %d 人", day.DateString(), count, day.MaxStaff),
			})
		}
	}
	return out
}

// checkWeeklyHours 每人每周工时不超过上限
func (v *Validator) checkWeeklyHours(g *Grid, staff int) []Violation {
	var out []Violation
	st := g.Staff[staff]
	for w, week := range g.Weeks {
		var hours float64
		for d := week.Start; d <= week.End; d++ {
			hours += g.Catalog.Hours(g.Cells[staff][d])
		}
		if hours > v.rules.WeeklyHourCap {
			out = append(out, Violation{
				Type: ViolationWeeklyHours, StaffID: st.ID, Date: g.Days[week.Start].DateString(), Week: w,
				Message: fmt.Sprintf("员工 %s 第 %d 周工时 %.1f 小时，超过上限 %.1f 小时",
					st.Label(), w+1, hours, v.rules.WeeklyHourCap),
			})
		}
	}
	return out
}

// checkRuns 连续上班和连续休息天数，请假和停工日截断连续段
func (v *Validator) checkRuns(g *Grid, staff int) []Violation {
	st := g.Staff[staff]
	breaks := func(d int) bool {
		return g.Days[d].Kind == model.DayShutdown || g.is(staff, d, model.CategoryLeave)
	}
	work := func(d int) bool { return g.isWork(staff, d) }
	rest := func(d int) bool { return !breaks(d) && g.is(staff, d, model.CategoryRest) }

	var out []Violation
	for _, r := range runs(len(g.Days), work) {
		if r.length > v.rules.MaxConsecutiveWorkDays {
			day := g.Days[r.start]
			out = append(out, Violation{
				Type: ViolationConsecutiveWork, StaffID: st.ID, Date: day.DateString(), Week: day.Week,
				Message: fmt.Sprintf("员工 %s 自 %s 起连续上班 %d 天，超过 %d 天",
					st.Label(), day.DateString(), r.length, v.rules.MaxConsecutiveWorkDays),
			})
		}
	}
	for _, r := range runs(len(g.Days), rest) {
		if r.length > v.rules.MaxConsecutiveRestDays {
			day := g.Days[r.start]
			out = append(out, Violation{
				Type: ViolationConsecutiveRest, StaffID: st.ID, Date: day.DateString(), Week: day.Week,
				Message: fmt.Sprintf("员工 %s 自 %s 起连续休息 %d 天，超过 %d 天",
					st.Label(), day.DateString(), r.length, v.rules.MaxConsecutiveRestDays),
			})
		}
	}
	return out
}

type run struct {
	start  int
	length int
}

func runs(n int, pred func(int) bool) []run {
	var out []run
	cur := run{start: -1}
	for d := 0; d < n; d++ {
		if pred(d) {
			if cur.start < 0 {
				cur = run{start: d}
			}
			cur.length++
			continue
		}
		if cur.start >= 0 {
			out = append(out, cur)
			cur = run{start: -1}
		}
	}
	if cur.start >= 0 {
		out = append(out, cur)
	}
	return out
}

// checkPairedRest 启用成对休息时每人至少有一组两天都休息，所有成对日期都请假的员工豁免
func (v *Validator) checkPairedRest(g *Grid, staff int) []Violation {
	if !v.rules.PairedRestEnabled() {
		return nil
	}
	first, second := v.rules.PairedRestDays[0], v.rules.PairedRestDays[1]
	exempt := true
	anchors := 0
	for d := 0; d+1 < len(g.Days); d++ {
		if g.Days[d].Weekday != first || g.Days[d+1].Weekday != second {
			continue
		}
		anchors++
		if g.is(staff, d, model.CategoryRest) && g.is(staff, d+1, model.CategoryRest) {
			return nil
		}
		if !g.is(staff, d, model.CategoryLeave) && !g.is(staff, d+1, model.CategoryLeave) {
			exempt = false
		}
	}
	if anchors == 0 || exempt {
		return nil
	}
	st := g.Staff[staff]
	return []Violation{{
		Type: ViolationPairedRest, StaffID: st.ID, Week: -1,
		Message: fmt.Sprintf("员工 %s 本月没有 %s+%s 成对休息", st.Label(), first, second),
	}}
}

// checkTargets 月休息天数和月工时是否在容差内
func (v *Validator) checkTargets(g *Grid, staff int) []Violation {
	if staff >= len(g.Targets) {
		return nil
	}
	st := g.Staff[staff]
	target := g.Targets[staff]

	var hours float64
	rest := 0
	for d := range g.Days {
		hours += g.Catalog.Hours(g.Cells[staff][d])
		if g.is(staff, d, model.CategoryRest) {
			rest++
		}
	}

	var out []Violation
	if rest < target.RestDays-v.rules.RestDayTolerance {
		out = append(out, Violation{
			Type: ViolationRestTarget, StaffID: st.ID, Week: -1,
			Message: fmt.Sprintf("员工 %s 休息 %d 天，目标 %d 天", st.Label(), rest, target.RestDays),
		})
	}
	if diff := hours - target.Hours; math.Abs(diff) > v.rules.MonthlyHourTolerance {
		out = append(out, Violation{
			Type: ViolationHourTarget, StaffID: st.ID, Week: -1,
			Message: fmt.Sprintf("员工 %s 月工时 %.1f 小时，目标 %.1f 小时，偏差 %+.1f",
				st.Label(), hours, target.Hours, diff),
		})
	}
	return out
}

// CountByType 按类型统计违反数
func CountByType(vs []Violation) map[ViolationType]int {
	out := make(map[ViolationType]int)
	for _, v := range vs {
		out[v.Type]++
	}
	return out
}

// Types 返回出现过的违反类型（排序后）
func Types(vs []Violation) []ViolationType {
	counts := CountByType(vs)
	out := make([]ViolationType, 0, len(counts))
	for t := range counts {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ForStaff 筛选某员工的违反
func ForStaff(vs []Violation, staffID string) []Violation {
	var out []Violation
	for _, v := range vs {
		if v.StaffID == staffID {
			out = append(out, v)
		}
	}
	return out
}

// ToError 聚合为一个 CONSTRAINT_VIOLATION 错误，无违反时返回 nil
func ToError(vs []Violation) *apperrors.AppError {
	if len(vs) == 0 {
		return nil
	}
	messages := make([]string, len(vs))
	for i, v := range vs {
		messages[i] = v.String()
	}
	err := apperrors.ConstraintViolations(messages)
	counts := make(map[string]int)
	for t, n := range CountByType(vs) {
		counts[string(t)] = n
	}
	err.WithField("counts", counts)
	return err
}

// Summary 单行摘要
func Summary(vs []Violation) string {
	if len(vs) == 0 {
		return "无违反"
	}
	parts := make([]string, 0)
	counts := CountByType(vs)
	for _, t := range Types(vs) {
		parts = append(parts, fmt.Sprintf("%s=%d", t, counts[t]))
	}
	return strings.Join(parts, ", ")
}
