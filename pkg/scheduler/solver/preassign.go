package solver

import (
	"context"
	"time"

	"github.com/paiban/monthroster/pkg/logger"
	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/scheduler/constraint"
	"github.com/paiban/monthroster/pkg/scheduler/constraint/builtin"
	"github.com/paiban/monthroster/pkg/scheduler/state"
)

// ConstraintApplier 写入不可协商的预分配：请假、停工日休息、成对休息
type ConstraintApplier struct {
	constraintManager *constraint.Manager
	logger            *logger.SchedulerLogger
}

// NewConstraintApplier 创建预分配阶段
func NewConstraintApplier(cm *constraint.Manager, log *logger.SchedulerLogger) *ConstraintApplier {
	return &ConstraintApplier{constraintManager: cm, logger: log.Stage("preassign")}
}

// Name 返回阶段名称
func (a *ConstraintApplier) Name() string { return "ConstraintApplier" }

// Apply 执行预分配，写入的单元格全部锁定
func (a *ConstraintApplier) Apply(ctx context.Context, s *state.Schedule) (*Report, error) {
	start := time.Now()
	report := newReport(a.Name())

	// 请假无条件写入，忽略人手下限
	for i := range s.Staff {
		for d := range s.Days {
			if code := s.LeaveAt(i, d); code != "" {
				s.Stamp(i, d, code)
				report.Assigned++
			}
		}
	}

	// 停工日全员休息
	for d, day := range s.Days {
		if day.Kind != model.DayShutdown {
			continue
		}
		for i := range s.Staff {
			if s.IsEmpty(i, d) {
				s.Stamp(i, d, s.Codes.Rest)
				report.Assigned++
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}

	if s.Rules.PairedRestEnabled() {
		report.Assigned += a.applyPairedRest(s, report)
	}

	a.logger.Infof("预分配完成: 写入 %d 个锁定单元格", report.Assigned)
	return report.finish(start), nil
}

// applyPairedRest 每人选择最早的可行成对日期
func (a *ConstraintApplier) applyPairedRest(s *state.Schedule, report *Report) int {
	first, second := s.Rules.PairedRestDays[0], s.Rules.PairedRestDays[1]
	anchors := builtin.AnchorDays(s, first, second)
	if len(anchors) == 0 {
		return 0
	}

	stamped := 0
	for i, st := range s.Staff {
		if hasPairedRest(s, i, anchors) {
			continue
		}
		if allPairsOnLeave(s, i, anchors) {
			a.logger.Debugf("员工 %s 的所有 %s+%s 均在请假中，免除成对休息", st.Label(), first, second)
			continue
		}

		placed := false
		for _, d := range anchors {
			if !s.IsEmpty(i, d) || !s.IsEmpty(i, d+1) {
				continue
			}
			if s.Pool(d)-1 < s.Days[d].MinStaff || s.Pool(d+1)-1 < s.Days[d+1].MinStaff {
				continue
			}
			s.Stamp(i, d, s.Codes.Rest)
			s.Stamp(i, d+1, s.Codes.Rest)
			stamped += 2
			placed = true
			break
		}
		if !placed {
			report.Unfilled = append(report.Unfilled, st.ID)
			a.logger.Warnf("员工 %s 没有可行的 %s+%s 成对休息", st.Label(), first, second)
		}
	}
	return stamped
}

func hasPairedRest(s *state.Schedule, staff int, anchors []int) bool {
	for _, d := range anchors {
		if s.IsCategory(staff, d, model.CategoryRest) && s.IsCategory(staff, d+1, model.CategoryRest) {
			return true
		}
	}
	return false
}

func allPairsOnLeave(s *state.Schedule, staff int, anchors []int) bool {
	for _, d := range anchors {
		if s.LeaveAt(staff, d) == "" && s.LeaveAt(staff, d+1) == "" {
			return false
		}
	}
	return true
}
