package solver

import (
	"context"
	"time"

	"github.com/paiban/monthroster/pkg/logger"
	"github.com/paiban/monthroster/pkg/scheduler/constraint"
	"github.com/paiban/monthroster/pkg/scheduler/state"
)

// WeekendAllocator 按公平份额分配周末/节假日班次
type WeekendAllocator struct {
	constraintManager *constraint.Manager
	logger            *logger.SchedulerLogger
}

// NewWeekendAllocator 创建周末分配阶段
func NewWeekendAllocator(cm *constraint.Manager, log *logger.SchedulerLogger) *WeekendAllocator {
	return &WeekendAllocator{constraintManager: cm, logger: log.Stage("weekend")}
}

// Name 返回阶段名称
func (a *WeekendAllocator) Name() string { return "WeekendAllocator" }

// Apply 计算份额后逐日分配，人手不足的日期记录后继续
func (a *WeekendAllocator) Apply(ctx context.Context, s *state.Schedule) (*Report, error) {
	start := time.Now()
	report := newReport(a.Name())

	var days []int
	slots := 0
	for d, day := range s.Days {
		if !day.Kind.IsWeekendLike() {
			continue
		}
		days = append(days, d)
		if need := day.MinStaff - s.WorkCount(d); need > 0 {
			slots += need
		}
	}
	if len(days) == 0 || slots == 0 {
		return report.finish(start), nil
	}

	quota := a.quotas(s, days, slots)
	assigned := make([]int, len(s.Staff))

	for _, d := range days {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Iterations++

		day := s.Days[d]
		need := day.MinStaff - s.WorkCount(d)
		if need <= 0 {
			continue
		}
		shift, ok := workShiftFor(s, day.Kind)
		if !ok {
			continue
		}

		var cands []candidate
		for i := range s.Staff {
			if quota[i] == 0 || assigned[i] >= quota[i] {
				continue
			}
			if !s.IsEmpty(i, d) || s.IsLocked(i, d) {
				continue
			}
			if s.Rules.WeekendPairExclusive && worksAdjacentWeekend(s, i, d) {
				continue
			}
			if ok, _ := a.constraintManager.CanAssign(s, i, d, shift.Code); !ok {
				continue
			}
			cands = append(cands, candidate{staff: i, score: float64(assigned[i]) / float64(quota[i])})
		}
		sortCandidates(cands)

		for _, c := range cands {
			if need == 0 {
				break
			}
			if err := s.Set(c.staff, d, shift.Code); err != nil {
				return report, err
			}
			assigned[c.staff]++
			report.Assigned++
			need--
		}
		if need > 0 {
			report.Unfilled = append(report.Unfilled, day.DateString())
			a.logger.Warnf("%s (%s) 周末人手不足: 还差 %d 人", day.DateString(), day.Kind, need)
		}
	}

	a.logger.Infof("周末分配完成: %d 个班次, %d 天人手不足", report.Assigned, len(report.Unfilled))
	return report.finish(start), nil
}

// quotas 份额 = 总名额 / 可排人数，余数按名单顺序分给前几名
func (a *WeekendAllocator) quotas(s *state.Schedule, days []int, slots int) []int {
	quota := make([]int, len(s.Staff))
	var eligible []int
	for i := range s.Staff {
		for _, d := range days {
			if s.IsEmpty(i, d) && !s.IsLocked(i, d) {
				eligible = append(eligible, i)
				break
			}
		}
	}
	if len(eligible) == 0 {
		a.logger.Warnf("没有员工可以排周末班")
		return quota
	}

	base := slots / len(eligible)
	remainder := slots % len(eligible)
	for k, i := range eligible {
		quota[i] = base
		if k < remainder {
			quota[i]++
		}
	}
	a.logger.Debugf("周末名额 %d, 可排 %d 人, 每人 %d (+%d)", slots, len(eligible), base, remainder)
	return quota
}

// worksAdjacentWeekend 相邻的周末/节假日是否已上班
func worksAdjacentWeekend(s *state.Schedule, staff, day int) bool {
	for _, d := range []int{day - 1, day + 1} {
		if d < 0 || d >= len(s.Days) {
			continue
		}
		if s.Days[d].Kind.IsWeekendLike() && s.IsWork(staff, d) {
			return true
		}
	}
	return false
}
