package scheduler

import (
	"fmt"

	apperrors "github.com/paiban/monthroster/pkg/errors"
	"github.com/paiban/monthroster/pkg/logger"
	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/scheduler/builder"
	"github.com/paiban/monthroster/pkg/scheduler/constraint/builtin"
	"github.com/paiban/monthroster/pkg/scheduler/state"
	"github.com/paiban/monthroster/pkg/swap"
)

// Restore 在输入的上下文中重建一份已有网格的排班状态。
// 已批准请假和停工日按规则写入并锁定，提交中对应的代码被忽略；其余单元格取提交的代码。
func (e *Engine) Restore(in Input, cells Cells) (*state.Schedule, error) {
	log := logger.NewSchedulerLogger(e.newRunID(), nil)
	s, err := builder.New(log.Stage("builder")).Build(in)
	if err != nil {
		return nil, err
	}

	for i, st := range s.Staff {
		row := cells[st.ID]
		for d, day := range s.Days {
			switch {
			case s.LeaveAt(i, d) != "":
				s.Stamp(i, d, s.LeaveAt(i, d))
			case day.Kind == model.DayShutdown:
				s.Stamp(i, d, s.Codes.Rest)
			default:
				code := row[day.DateString()]
				if code == "" {
					continue
				}
				if err := s.Set(i, d, code); err != nil {
					return nil, apperrors.Wrap(err, apperrors.CodeUnknownShiftCode,
						fmt.Sprintf("员工 %s 在 %s 的班次无效", st.ID, day.DateString()))
				}
			}
		}
	}
	return s, nil
}

// EvaluateSwap 评估在已有网格上交换两个单元格
func (e *Engine) EvaluateSwap(in Input, cells Cells, req swap.Request) (*swap.Evaluation, error) {
	s, err := e.Restore(in, cells)
	if err != nil {
		return nil, err
	}
	return swap.NewEvaluator(builtin.NewDefaultManager(in.Rules)).Evaluate(s, req)
}

// RecommendSwaps 为已有网格中的一个单元格推荐换班对象
func (e *Engine) RecommendSwaps(in Input, cells Cells, staffID, date string, opts *swap.RecommendOptions) ([]swap.Recommendation, error) {
	s, err := e.Restore(in, cells)
	if err != nil {
		return nil, err
	}
	return swap.NewRecommender(builtin.NewDefaultManager(in.Rules)).Recommend(s, staffID, date, opts)
}
