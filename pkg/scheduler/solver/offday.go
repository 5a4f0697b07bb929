package solver

import (
	"context"
	"time"

	"github.com/paiban/monthroster/pkg/logger"
	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/scheduler/constraint"
	"github.com/paiban/monthroster/pkg/scheduler/state"
)

// OffDayFiller 补足休息天数，最后把剩余空单元格填为休息
type OffDayFiller struct {
	constraintManager *constraint.Manager
	logger            *logger.SchedulerLogger
}

// NewOffDayFiller 创建休息填充阶段
func NewOffDayFiller(cm *constraint.Manager, log *logger.SchedulerLogger) *OffDayFiller {
	return &OffDayFiller{constraintManager: cm, logger: log.Stage("offday")}
}

// Name 返回阶段名称
func (f *OffDayFiller) Name() string { return "OffDayFiller" }

// Apply 按日期顺序为缺休息的员工安排休息，返回时网格已饱和。
// 周末和节假日也参与扫描：休息配额按非工作日计算，空着的周末单元格先计入配额。
func (f *OffDayFiller) Apply(ctx context.Context, s *state.Schedule) (*Report, error) {
	start := time.Now()
	report := newReport(f.Name())
	rest := s.Codes.Rest

	for i, p := range s.Profiles {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		for d, day := range s.Days {
			if p.RestDeficit() == 0 {
				break
			}
			if day.Kind == model.DayShutdown || !s.IsEmpty(i, d) || s.IsLocked(i, d) {
				continue
			}
			report.Iterations++
			// 人手下限和连续休息上限都由硬约束检查
			if ok, _ := f.constraintManager.CanAssign(s, i, d, rest); !ok {
				continue
			}
			if err := s.Set(i, d, rest); err != nil {
				return report, err
			}
			report.Assigned++
		}
	}

	if n := s.Saturate(); n > 0 {
		f.logger.Infof("剩余 %d 个空单元格填为休息", n)
		report.Assigned += n
	}

	for _, p := range s.Profiles {
		if deficit := p.RestDeficit(); deficit > 0 {
			report.Unfilled = append(report.Unfilled, p.Staff.ID)
			f.logger.Warnf("员工 %s 还缺 %d 天休息", p.Staff.Label(), deficit)
		}
	}

	f.logger.Infof("休息填充完成: %d 个单元格", report.Assigned)
	return report.finish(start), nil
}
