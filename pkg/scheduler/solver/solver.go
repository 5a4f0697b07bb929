// Package solver 提供按固定顺序执行的排班分配阶段
package solver

import (
	"context"
	"sort"
	"time"

	"github.com/paiban/monthroster/pkg/logger"
	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/scheduler/constraint"
	"github.com/paiban/monthroster/pkg/scheduler/state"
)

// Stage 排班阶段接口
type Stage interface {
	// Name 返回阶段名称
	Name() string

	// Apply 在状态上原地执行本阶段
	Apply(ctx context.Context, s *state.Schedule) (*Report, error)
}

// Report 阶段执行报告
type Report struct {
	Stage      string        `json:"stage"`
	Assigned   int           `json:"assigned"`
	Unfilled   []string      `json:"unfilled,omitempty"` // 未满足的日期或员工
	Iterations int           `json:"iterations"`
	Duration   time.Duration `json:"duration"`
}

func newReport(name string) *Report {
	return &Report{Stage: name}
}

func (r *Report) finish(start time.Time) *Report {
	r.Duration = time.Since(start)
	return r
}

// Pipeline 返回固定顺序的分配阶段：预分配、周末、工作日、值班、休息
func Pipeline(cm *constraint.Manager, log *logger.SchedulerLogger) []Stage {
	return []Stage{
		NewConstraintApplier(cm, log),
		NewWeekendAllocator(cm, log),
		NewWeekdayAllocator(cm, log),
		NewOnCallAllocator(cm, log),
		NewOffDayFiller(cm, log),
	}
}

// candidate 排序候选人
type candidate struct {
	staff int
	score float64
}

// sortCandidates 按分数升序，分数相同按名单顺序
func sortCandidates(cands []candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score < cands[j].score
		}
		return cands[i].staff < cands[j].staff
	})
}

// workShiftFor 周末/节假日使用的班次：优先周末类别，否则第一个常规班
func workShiftFor(s *state.Schedule, kind model.DayKind) (model.ShiftDefinition, bool) {
	if kind.IsWeekendLike() {
		if def, ok := s.Catalog.Default(model.CategoryWeekend); ok {
			return def, true
		}
	}
	return s.Catalog.Default(model.CategoryRegular)
}
