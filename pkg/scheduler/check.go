package scheduler

import (
	apperrors "github.com/paiban/monthroster/pkg/errors"
	"github.com/paiban/monthroster/pkg/logger"
	"github.com/paiban/monthroster/pkg/scheduler/builder"
	"github.com/paiban/monthroster/pkg/validator"
)

// Cells 外部提交的网格，staffID -> date -> code
type Cells map[string]map[string]string

// CheckResult 网格校验结果
type CheckResult struct {
	Violations []validator.Violation `json:"violations"`
	Counts     map[string]int        `json:"counts"`
	Valid      bool                  `json:"valid"`
}

// Check 在给定输入的上下文中校验一份已有网格，不运行任何分配阶段。
// 未提交的单元格按已批准请假填入请假代码，其余为空；班次表中没有的代码直接返回错误。
func (e *Engine) Check(in Input, cells Cells) (*CheckResult, error) {
	log := logger.NewSchedulerLogger(e.newRunID(), nil)
	s, err := builder.New(log.Stage("builder")).Build(in)
	if err != nil {
		return nil, err
	}

	g := validator.FromSchedule(s)
	for i, st := range g.Staff {
		row := cells[st.ID]
		for d, day := range g.Days {
			if code, ok := row[day.DateString()]; ok {
				if code != "" && !s.Catalog.Has(code) {
					return nil, apperrors.UnknownShiftCode(code).
						WithField("staff_id", st.ID).
						WithField("date", day.DateString())
				}
				g.Cells[i][d] = code
			} else if g.Cells[i][d] == "" {
				g.Cells[i][d] = s.LeaveAt(i, d)
			}
		}
	}

	violations := validator.New(in.Rules).Validate(g)
	counts := make(map[string]int)
	for t, n := range validator.CountByType(violations) {
		counts[string(t)] = n
	}
	return &CheckResult{
		Violations: violations,
		Counts:     counts,
		Valid:      len(violations) == 0,
	}, nil
}
