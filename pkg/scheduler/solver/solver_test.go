package solver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/monthroster/pkg/internal/fixture"
	"github.com/paiban/monthroster/pkg/logger"
	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/rules"
	"github.com/paiban/monthroster/pkg/scheduler/constraint"
	"github.com/paiban/monthroster/pkg/scheduler/constraint/builtin"
	"github.com/paiban/monthroster/pkg/scheduler/state"
)

// runStages 依次执行阶段，返回最后一个阶段的报告
func runStages(t *testing.T, s *state.Schedule, stages ...Stage) *Report {
	t.Helper()
	var last *Report
	for _, st := range stages {
		r, err := st.Apply(context.Background(), s)
		require.NoError(t, err, st.Name())
		last = r
	}
	return last
}

func managerFor(rs *rules.RuleSet) *constraint.Manager {
	return builtin.NewDefaultManager(rs)
}

func TestConstraintApplier_LeaveAndShutdown(t *testing.T) {
	rs := fixture.Rules()
	rs.ShutdownDates = []string{"2025-09-10"}
	leave := fixture.Leave("S1", model.Date(2025, 9, 8), model.Date(2025, 9, 12))
	s := fixture.Schedule(t, fixture.September2025, rs, 2, leave)

	report := runStages(t, s, NewConstraintApplier(managerFor(rs), fixture.Logger()))

	for d := 7; d <= 11; d++ {
		assert.Equal(t, "LV", s.Get(0, d), "请假优先于停工")
		assert.True(t, s.IsLocked(0, d))
	}
	assert.Equal(t, "OFF", s.Get(1, 9), "停工日全员休息")
	assert.True(t, s.IsLocked(1, 9))
	assert.Equal(t, 6, report.Assigned)
	assert.True(t, s.IsEmpty(1, 8))
}

func TestConstraintApplier_PairedRest(t *testing.T) {
	tests := []struct {
		name      string
		staff     int
		leave     []model.LeaveRecord
		wantPairs map[int]int // 员工 -> 周六的日索引
		unfilled  []string
	}{
		{
			name:      "按最早可行日期分配",
			staff:     3,
			wantPairs: map[int]int{0: 5, 1: 5, 2: 12},
		},
		{
			name:     "人手不足时无可行日期",
			staff:    1,
			unfilled: []string{"S1"},
		},
		{
			name:      "整月请假的员工免除",
			staff:     3,
			leave:     []model.LeaveRecord{fixture.Leave("S3", model.Date(2025, 9, 1), model.Date(2025, 9, 30))},
			wantPairs: map[int]int{0: 5, 1: 12},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := fixture.Rules()
			rs.PairedRestDays = rules.WeekdayList{time.Saturday, time.Sunday}
			s := fixture.Schedule(t, fixture.September2025, rs, tt.staff, tt.leave...)

			report := runStages(t, s, NewConstraintApplier(managerFor(rs), fixture.Logger()))

			for staff, sat := range tt.wantPairs {
				assert.Equal(t, "OFF", s.Get(staff, sat))
				assert.Equal(t, "OFF", s.Get(staff, sat+1))
				assert.True(t, s.IsLocked(staff, sat))
			}
			assert.Equal(t, tt.unfilled, report.Unfilled)
		})
	}
}

func TestWeekendAllocator_FairShare(t *testing.T) {
	rs := fixture.Rules()
	s := fixture.Schedule(t, fixture.September2025, rs, 5)
	cm := managerFor(rs)

	report := runStages(t, s, NewConstraintApplier(cm, fixture.Logger()), NewWeekendAllocator(cm, fixture.Logger()))

	assert.Empty(t, report.Unfilled)
	assert.Equal(t, 8, report.Assigned)

	// 8 个名额 / 5 人：前 3 人各 2 次，其余 1 次
	counts := make([]int, 5)
	for i, p := range s.Profiles {
		counts[i] = p.WeekendShiftCount
	}
	assert.Equal(t, []int{2, 2, 2, 1, 1}, counts)

	for d, day := range s.Days {
		if day.Kind.IsWeekendLike() {
			assert.Equal(t, 1, s.WorkCount(d), day.DateString())
		}
	}
	assert.Equal(t, "WE", s.Get(0, 5), "第一个周六给名单第一人")
	assert.Equal(t, "WE", s.Get(1, 6))
}

func TestWeekendAllocator_PairExclusive(t *testing.T) {
	tests := []struct {
		name      string
		exclusive bool
		unfilled  int
	}{
		{"允许同一人连做周六周日", false, 0},
		{"同一周末只能做一天", true, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := fixture.Rules()
			rs.WeekendPairExclusive = tt.exclusive
			s := fixture.Schedule(t, fixture.September2025, rs, 1)
			cm := managerFor(rs)

			report := runStages(t, s, NewWeekendAllocator(cm, fixture.Logger()))
			assert.Len(t, report.Unfilled, tt.unfilled)
		})
	}
}

func TestWeekendAllocator_UnderFill(t *testing.T) {
	rs := fixture.Rules()
	rs.WeekendMinStaff = 3
	s := fixture.Schedule(t, fixture.September2025, rs, 2)
	cm := managerFor(rs)

	report := runStages(t, s, NewWeekendAllocator(cm, fixture.Logger()))

	assert.Len(t, report.Unfilled, 8, "每个周末日都少一人")
	for d, day := range s.Days {
		if day.Kind.IsWeekendLike() {
			assert.Equal(t, 2, s.WorkCount(d))
		}
	}
}

func TestWeekdayAllocator_MeetsTargets(t *testing.T) {
	rs := fixture.Rules()
	rs.WeekdayMinStaff = 2
	s := fixture.Schedule(t, fixture.September2025, rs, 5)
	cm := managerFor(rs)

	report := runStages(t, s,
		NewConstraintApplier(cm, fixture.Logger()),
		NewWeekendAllocator(cm, fixture.Logger()),
		NewWeekdayAllocator(cm, fixture.Logger()),
	)
	assert.Empty(t, report.Unfilled)

	for _, p := range s.Profiles {
		for w, stat := range p.Weekly {
			assert.Equal(t, stat.TargetHours, stat.AssignedHours, "%s 第 %d 周", p.Staff.ID, w+1)
		}
		assert.LessOrEqual(t, p.ConsecutiveWorkStreak, rs.MaxConsecutiveWorkDays)
	}
	for d, day := range s.Days {
		if day.Kind == model.DayWeekday {
			assert.GreaterOrEqual(t, s.WorkCount(d), 2, day.DateString())
		}
	}
}

func TestWeekdayAllocator_BelowMinimumIgnoresNeed(t *testing.T) {
	rs := fixture.Rules()
	rs.WeekdayMinStaff = 1
	rs.WeekendMinStaff = 0
	rs.StandardDailyHours = 2
	leave := fixture.Leave("S1", model.Date(2025, 9, 1), model.Date(2025, 9, 30))
	s := fixture.Schedule(t, fixture.September2025, rs, 2, leave)
	cm := managerFor(rs)

	runStages(t, s, NewConstraintApplier(cm, fixture.Logger()), NewWeekdayAllocator(cm, fixture.Logger()))

	for d, day := range s.Days {
		if day.Kind == model.DayWeekday {
			assert.True(t, s.IsWork(1, d), "唯一在岗的员工每个工作日都要上班")
		}
	}
	// 周目标 10 小时：D8 + D4 之后需求已为负，人手不足时仍按最短班次分配
	assert.Equal(t, 10.0, s.Profiles[1].Weekly[0].TargetHours)
	assert.Equal(t, 24.0, s.Profiles[1].Weekly[0].AssignedHours)
	assert.Equal(t, "D8", s.Get(1, 0))
	assert.Equal(t, "D4", s.Get(1, 1))
}

func TestShiftPreference(t *testing.T) {
	sorted := fixture.Catalog(t).SortedByDuration(model.CategoryRegular)

	tests := []struct {
		name string
		need float64
		want []string
	}{
		{"需求正好一个整班", 8, []string{"D8", "D6", "D4"}},
		{"向下取最接近的班次", 7, []string{"D6", "D4"}},
		{"需求充足", 20, []string{"D8", "D6", "D4"}},
		{"所有班次都超过需求", 2, []string{"D4"}},
		{"需求非正", 0, []string{"D4"}},
		{"需求为负", -8, []string{"D4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shiftPreference(sorted, tt.need))
		})
	}
}

func TestOnCallAllocator(t *testing.T) {
	rs := fixture.Rules()
	rs.WeekendMinStaff = 0
	rs.OnCallDays = rules.WeekdayList{time.Friday}
	s := fixture.Schedule(t, fixture.September2025, rs, 3)
	cm := managerFor(rs)

	report := runStages(t, s,
		NewWeekdayAllocator(cm, fixture.Logger()),
		NewOnCallAllocator(cm, fixture.Logger()),
	)
	assert.Equal(t, 4, report.Assigned)
	assert.Empty(t, report.Unfilled)

	// 9月5/12/19/26日：按值班次数最少轮换
	fridays := []int{4, 11, 18, 25}
	want := []int{0, 1, 2, 0}
	for k, d := range fridays {
		assert.Equal(t, "OC", s.Get(want[k], d), s.Days[d].DateString())
	}
	assert.Equal(t, 2, s.Profiles[0].OnCallCount)
	assert.Equal(t, 176.0+2*2, s.Profiles[0].RunningHours, "工时按班次时长差调整")
	assert.Equal(t, 176.0+2, s.Profiles[1].RunningHours)
}

func TestOnCallAllocator_NoBackToBack(t *testing.T) {
	rs := fixture.Rules()
	rs.WeekendMinStaff = 0
	rs.OnCallDays = rules.WeekdayList{time.Thursday, time.Friday}
	s := fixture.Schedule(t, fixture.September2025, rs, 1)
	cm := managerFor(rs)

	report := runStages(t, s,
		NewWeekdayAllocator(cm, fixture.Logger()),
		NewOnCallAllocator(cm, fixture.Logger()),
	)

	assert.Equal(t, 4, report.Assigned, "只有周四能值班")
	assert.Equal(t, []string{"2025-09-05", "2025-09-12", "2025-09-19", "2025-09-26"}, report.Unfilled)
	assert.Equal(t, "OC", s.Get(0, 3))
	assert.Equal(t, "D8", s.Get(0, 4))
}

func TestOnCallAllocator_RegularOnly(t *testing.T) {
	rs := fixture.Rules()
	rs.WeekendMinStaff = 1
	rs.OnCallDays = rules.WeekdayList{time.Saturday}
	s := fixture.Schedule(t, fixture.September2025, rs, 3)
	require.NoError(t, s.Set(1, 5, "D8")) // 9月6日周六 S2 上常规班
	cm := managerFor(rs)

	report := runStages(t, s,
		NewWeekendAllocator(cm, fixture.Logger()),
		NewOnCallAllocator(cm, fixture.Logger()),
	)

	assert.Equal(t, 1, report.Assigned)
	assert.Equal(t, "OC", s.Get(1, 5))
	assert.Equal(t, []string{"2025-09-13", "2025-09-20", "2025-09-27"}, report.Unfilled, "周末班不能转为值班")
	for _, d := range []int{12, 19, 26} {
		for i := range s.Staff {
			assert.NotEqual(t, "OC", s.Get(i, d))
		}
	}
}

func TestOffDayFiller_Saturates(t *testing.T) {
	rs := fixture.Rules()
	rs.WeekdayMinStaff = 2
	s := fixture.Schedule(t, fixture.September2025, rs, 5)
	cm := managerFor(rs)

	report := runStages(t, s, Pipeline(cm, fixture.Logger())...)

	assert.Zero(t, s.EmptyCount(), "休息填充后网格饱和")
	assert.Empty(t, report.Unfilled)
	for _, p := range s.Profiles {
		assert.GreaterOrEqual(t, p.RunningRestDays, p.MonthlyTargetRestDays, p.Staff.ID)
		assert.LessOrEqual(t, p.ConsecutiveRestStreak, rs.MaxConsecutiveRestDays, p.Staff.ID)
	}
}

func TestOffDayFiller_WeekendCellsCountTowardQuota(t *testing.T) {
	rs := fixture.Rules()
	rs.WeekdayMinStaff = 0
	rs.WeekendMinStaff = 0
	s := fixture.Schedule(t, fixture.September2025, rs, 1)
	for d, day := range s.Days {
		if day.Kind == model.DayWeekday {
			fixture.Fill(t, s, 0, d, d, "D8")
		}
	}
	diag := logger.NewDiagnostics()

	report := runStages(t, s, NewOffDayFiller(managerFor(rs), logger.NewSchedulerLogger("test", diag)))

	p := s.Profiles[0]
	assert.Equal(t, 8, p.MonthlyTargetRestDays)
	assert.Equal(t, p.MonthlyTargetRestDays, p.RunningRestDays, "休息天数正好达标")
	assert.Equal(t, 8, report.Assigned)
	for d, day := range s.Days {
		if day.Kind != model.DayWeekday {
			assert.Equal(t, "OFF", s.Get(0, d), day.DateString())
		}
	}
	for _, e := range diag.Entries() {
		assert.NotContains(t, e.Message, "剩余", "周末休息来自配额而不是饱和填充")
	}
}

func TestOffDayFiller_RespectsMinimum(t *testing.T) {
	rs := fixture.Rules()
	rs.WeekdayMinStaff = 1
	rs.WeekendMinStaff = 1
	s := fixture.Schedule(t, fixture.September2025, rs, 1)
	cm := managerFor(rs)

	report := runStages(t, s, NewOffDayFiller(cm, fixture.Logger()))

	// 唯一员工的所有空单元格都不能通过人手检查，只能靠饱和填充
	assert.Equal(t, 30, report.Assigned)
	assert.Zero(t, s.EmptyCount())
}
