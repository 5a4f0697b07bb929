package solver

import (
	"context"
	"time"

	"github.com/paiban/monthroster/pkg/logger"
	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/scheduler/constraint"
	"github.com/paiban/monthroster/pkg/scheduler/state"
)

// OnCallAllocator 在需要值班的日期把一名上班人员的班次替换为值班
type OnCallAllocator struct {
	constraintManager *constraint.Manager
	logger            *logger.SchedulerLogger
}

// NewOnCallAllocator 创建值班分配阶段
func NewOnCallAllocator(cm *constraint.Manager, log *logger.SchedulerLogger) *OnCallAllocator {
	return &OnCallAllocator{constraintManager: cm, logger: log.Stage("oncall")}
}

// Name 返回阶段名称
func (a *OnCallAllocator) Name() string { return "OnCallAllocator" }

// Apply 每个值班日选值班次数最少的合格人员，同数按名单顺序
func (a *OnCallAllocator) Apply(ctx context.Context, s *state.Schedule) (*Report, error) {
	start := time.Now()
	report := newReport(a.Name())

	code := s.Codes.OnCall
	if code == "" {
		return report.finish(start), nil
	}

	for d, day := range s.Days {
		if !day.OnCallRequired {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Iterations++
		if hasOnCall(s, d) {
			continue
		}

		var cands []candidate
		for i, p := range s.Profiles {
			// 只有常规班可以转为值班，周末班不参与
			if !s.IsCategory(i, d, model.CategoryRegular) || s.IsLocked(i, d) {
				continue
			}
			if d > 0 && s.IsCategory(i, d-1, model.CategoryOnCall) {
				continue
			}
			if ok, _ := a.constraintManager.CanAssign(s, i, d, code); !ok {
				continue
			}
			cands = append(cands, candidate{staff: i, score: float64(p.OnCallCount)})
		}
		if len(cands) == 0 {
			report.Unfilled = append(report.Unfilled, day.DateString())
			a.logger.Warnf("%s 没有合格的值班人员", day.DateString())
			continue
		}
		sortCandidates(cands)

		chosen := cands[0].staff
		before := s.Profiles[chosen].RunningHours
		prev := s.Get(chosen, d)
		if err := s.Set(chosen, d, code); err != nil {
			return report, err
		}
		report.Assigned++
		a.logger.Debugf("%s 值班: %s (%s -> %s, 工时 %+.1f)", day.DateString(), s.Staff[chosen].Label(),
			prev, code, s.Profiles[chosen].RunningHours-before)
	}

	a.logger.Infof("值班分配完成: %d 天, %d 天无人值班", report.Assigned, len(report.Unfilled))
	return report.finish(start), nil
}

func hasOnCall(s *state.Schedule, day int) bool {
	for i := range s.Staff {
		if s.IsCategory(i, day, model.CategoryOnCall) {
			return true
		}
	}
	return false
}
