package solver

import (
	"context"
	"math"
	"time"

	"github.com/paiban/monthroster/pkg/logger"
	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/scheduler/constraint"
	"github.com/paiban/monthroster/pkg/scheduler/state"
)

// WeekdayAllocator 按工时缺口贪心填充工作日
type WeekdayAllocator struct {
	constraintManager *constraint.Manager
	logger            *logger.SchedulerLogger
}

// NewWeekdayAllocator 创建工作日分配阶段
func NewWeekdayAllocator(cm *constraint.Manager, log *logger.SchedulerLogger) *WeekdayAllocator {
	return &WeekdayAllocator{constraintManager: cm, logger: log.Stage("weekday")}
}

// Name 返回阶段名称
func (a *WeekdayAllocator) Name() string { return "WeekdayAllocator" }

// Apply 反复扫描未达理想人数的工作日，每轮每天最多分配一人，直到不动点
func (a *WeekdayAllocator) Apply(ctx context.Context, s *state.Schedule) (*Report, error) {
	start := time.Now()
	report := newReport(a.Name())

	var days []int
	for d, day := range s.Days {
		if day.Kind == model.DayWeekday {
			days = append(days, d)
		}
	}
	shifts := s.Catalog.SortedByDuration(model.CategoryRegular)
	bound := len(days) * len(s.Staff)

	for progress := true; progress && report.Assigned < bound; {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		progress = false
		report.Iterations++

		for _, d := range days {
			day := s.Days[d]
			count := s.WorkCount(d)
			if count >= day.OptimalStaff || count >= day.MaxStaff {
				continue
			}
			staff, code, ok := a.pick(s, d, count < day.MinStaff, shifts)
			if !ok {
				continue
			}
			if err := s.Set(staff, d, code); err != nil {
				return report, err
			}
			report.Assigned++
			progress = true
			if report.Assigned >= bound {
				break
			}
		}
	}

	for _, d := range days {
		if day := s.Days[d]; s.WorkCount(d) < day.MinStaff {
			report.Unfilled = append(report.Unfilled, day.DateString())
			a.logger.Warnf("%s 工作日人手不足: %d/%d", day.DateString(), s.WorkCount(d), day.MinStaff)
		}
	}
	a.logger.Infof("工作日分配完成: %d 个班次, %d 轮", report.Assigned, report.Iterations)
	return report.finish(start), nil
}

// pick 选出周工时完成率最低的候选人及其班次
func (a *WeekdayAllocator) pick(s *state.Schedule, day int, belowMin bool, shifts []model.ShiftDefinition) (int, string, bool) {
	week := s.WeekOf(day)
	needs := make(map[int]float64)

	var cands []candidate
	for i, p := range s.Profiles {
		if !s.IsEmpty(i, day) || s.IsLocked(i, day) {
			continue
		}
		need := remainingNeed(p, week)
		if need <= 0 && !belowMin {
			continue
		}
		needs[i] = need
		cands = append(cands, candidate{staff: i, score: fillRatio(p.Weekly[week])})
	}
	sortCandidates(cands)

	for _, c := range cands {
		for _, code := range shiftPreference(shifts, needs[c.staff]) {
			if ok, _ := a.constraintManager.CanAssign(s, c.staff, day, code); ok {
				return c.staff, code, true
			}
		}
	}
	return 0, "", false
}

// remainingNeed 剩余需求取周需求和月需求的较小值
func remainingNeed(p *model.StaffProfile, week int) float64 {
	w := p.Weekly[week]
	return math.Min(w.TargetHours-w.AssignedHours, p.MonthlyTargetHours-p.RunningHours)
}

// fillRatio 本周已分配/目标，目标为0的排在最后
func fillRatio(w model.WeeklyStat) float64 {
	if w.TargetHours <= 0 {
		return math.MaxFloat64
	}
	return w.AssignedHours / w.TargetHours
}

// shiftPreference 班次尝试顺序：不超过需求的最长班次优先，再依次缩短；
// 需求非正或所有班次都超过需求时只用最短班次
func shiftPreference(sorted []model.ShiftDefinition, need float64) []string {
	if len(sorted) == 0 {
		return nil
	}
	best := -1
	if need > 0 {
		for k, def := range sorted {
			if def.DurationHours <= need {
				best = k
			}
		}
	}
	if best < 0 {
		return []string{sorted[0].Code}
	}
	codes := make([]string, 0, best+1)
	for k := best; k >= 0; k-- {
		codes = append(codes, sorted[k].Code)
	}
	return codes
}
