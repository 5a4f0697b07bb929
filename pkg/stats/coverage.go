// Package stats 提供排班统计分析功能
package stats

import (
	"fmt"
	"strings"

	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/scheduler/state"
)

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	// 整体覆盖率
	RequiredSlots   int     `json:"required_slots"`   // 最低人数之和
	FilledSlots     int     `json:"filled_slots"`     // 满足最低人数的部分
	OverallCoverage float64 `json:"overall_coverage"` // 整体覆盖率 (%)

	// 相对理想人数的满足度
	DemandSatisfaction float64 `json:"demand_satisfaction"`

	// 每日覆盖情况
	Days []DayCoverage `json:"days"`

	// 问题识别
	Understaffed  []UnderstaffedDay `json:"understaffed"`    // 人手不足的日子
	OnCallMissing []string          `json:"on_call_missing"` // 需要值班但无人值班的日期
}

// DayCoverage 每日覆盖情况（每日在岗人数）
type DayCoverage struct {
	Date         string  `json:"date"`
	Weekday      string  `json:"weekday"`
	Kind         string  `json:"kind"`
	HolidayName  string  `json:"holiday_name,omitempty"`
	Working      int     `json:"working"`
	Resting      int     `json:"resting"`
	OnLeave      int     `json:"on_leave"`
	MinStaff     int     `json:"min_staff"`
	MaxStaff     int     `json:"max_staff"`
	OptimalStaff int     `json:"optimal_staff"`
	TotalHours   float64 `json:"total_hours"`
	OnCall       string  `json:"on_call,omitempty"` // 值班员工ID
	CoverageRate float64 `json:"coverage_rate"`     // 在岗人数 / 理想人数 (%)
}

// UnderstaffedDay 人手不足的日子
type UnderstaffedDay struct {
	Date     string `json:"date"`
	Required int    `json:"required"`
	Assigned int    `json:"assigned"`
	Shortage int    `json:"shortage"`
}

// AnalyzeCoverage 从网格统计每日在岗人数与覆盖率
func AnalyzeCoverage(s *state.Schedule) *CoverageMetrics {
	m := &CoverageMetrics{Days: make([]DayCoverage, 0, len(s.Days))}
	optimalTotal, optimalFilled := 0, 0

	for d, day := range s.Days {
		dc := DayCoverage{
			Date:         day.DateString(),
			Weekday:      day.Weekday.String(),
			Kind:         day.Kind.String(),
			HolidayName:  day.HolidayName,
			MinStaff:     day.MinStaff,
			MaxStaff:     day.MaxStaff,
			OptimalStaff: day.OptimalStaff,
		}
		for i, st := range s.Staff {
			cat, ok := s.Category(i, d)
			if !ok {
				continue
			}
			switch {
			case cat.IsWork():
				dc.Working++
				dc.TotalHours += s.Hours(i, d)
				if cat == model.CategoryOnCall {
					dc.OnCall = st.ID
				}
			case cat == model.CategoryRest:
				dc.Resting++
			case cat == model.CategoryLeave:
				dc.OnLeave++
			}
		}

		dc.CoverageRate = 100
		if day.OptimalStaff > 0 {
			dc.CoverageRate = float64(dc.Working) / float64(day.OptimalStaff) * 100
		}
		m.Days = append(m.Days, dc)

		m.RequiredSlots += day.MinStaff
		m.FilledSlots += minInt(dc.Working, day.MinStaff)
		optimalTotal += day.OptimalStaff
		optimalFilled += minInt(dc.Working, day.OptimalStaff)

		if dc.Working < day.MinStaff {
			m.Understaffed = append(m.Understaffed, UnderstaffedDay{
				Date:     dc.Date,
				Required: day.MinStaff,
				Assigned: dc.Working,
				Shortage: day.MinStaff - dc.Working,
			})
		}
		if day.OnCallRequired && dc.OnCall == "" {
			m.OnCallMissing = append(m.OnCallMissing, dc.Date)
		}
	}

	m.OverallCoverage = percent(m.FilledSlots, m.RequiredSlots)
	m.DemandSatisfaction = percent(optimalFilled, optimalTotal)
	return m
}

// CoverageReport 生成覆盖率报告
func CoverageReport(m *CoverageMetrics) string {
	var b strings.Builder
	b.WriteString("=== 覆盖率分析报告 ===\n\n")

	b.WriteString("【整体覆盖情况】\n")
	fmt.Fprintf(&b, "  最低需求人次: %d\n", m.RequiredSlots)
	fmt.Fprintf(&b, "  已满足人次: %d\n", m.FilledSlots)
	fmt.Fprintf(&b, "  覆盖率: %.1f%%\n", m.OverallCoverage)
	fmt.Fprintf(&b, "  需求满足度: %.1f%%\n\n", m.DemandSatisfaction)

	if len(m.Understaffed) > 0 {
		b.WriteString("【人手不足】\n")
		for _, u := range m.Understaffed {
			fmt.Fprintf(&b, "  - %s (需要%d人，仅有%d人，缺%d人)\n", u.Date, u.Required, u.Assigned, u.Shortage)
		}
		b.WriteString("\n")
	}

	if len(m.OnCallMissing) > 0 {
		b.WriteString("【无人值班】\n")
		for _, d := range m.OnCallMissing {
			fmt.Fprintf(&b, "  - %s\n", d)
		}
	}

	return b.String()
}

func percent(part, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(part) / float64(total) * 100
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
