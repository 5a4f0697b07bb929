package builder_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/paiban/monthroster/pkg/errors"
	"github.com/paiban/monthroster/pkg/internal/fixture"
	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/scheduler/builder"
)

func TestBuild_Calendar(t *testing.T) {
	rs := fixture.Rules()
	rs.WeekdayMinStaff = 2
	rs.OnCallDays = []time.Weekday{time.Friday}
	rs.ShutdownDates = []string{"2025-09-26"}

	in := fixture.Input(t, fixture.September2025, rs, 4)
	in.Calendar = []model.CalendarDay{
		{Date: model.Date(2025, 9, 15), Kind: model.DayHoliday, HolidayName: "测试节"},
		{Date: model.Date(2025, 10, 1), Kind: model.DayHoliday, HolidayName: "国庆节"},
	}

	s, err := builder.New(fixture.Logger()).Build(in)
	require.NoError(t, err)
	require.Len(t, s.Days, 30)
	require.Len(t, s.Weeks, 5)

	mon := s.Days[0]
	assert.Equal(t, model.DayWeekday, mon.Kind)
	assert.Equal(t, 2, mon.MinStaff)
	assert.Equal(t, 4, mon.MaxStaff, "上限取名单人数")
	assert.Equal(t, 4, mon.OptimalStaff)

	sat := s.Days[5]
	assert.Equal(t, model.DayWeekend, sat.Kind)
	assert.Equal(t, 1, sat.OptimalStaff)

	holiday := s.Days[14]
	assert.Equal(t, model.DayHoliday, holiday.Kind)
	assert.Equal(t, "测试节", holiday.HolidayName)

	assert.True(t, s.Days[4].OnCallRequired, "9月5日周五需要值班")
	assert.False(t, s.Days[3].OnCallRequired)

	shutdown := s.Days[25]
	assert.Equal(t, model.DayShutdown, shutdown.Kind)
	assert.Zero(t, shutdown.MinStaff)
	assert.Zero(t, shutdown.MaxStaff)
	assert.False(t, shutdown.OnCallRequired, "停工日不需要值班")
	assert.Equal(t, "OC", s.Codes.OnCall)
}

func TestBuild_Targets(t *testing.T) {
	leave := fixture.Leave("S2", model.Date(2025, 9, 4), model.Date(2025, 9, 7))
	s := fixture.Schedule(t, fixture.September2025, fixture.Rules(), 2, leave)

	full := s.Profiles[0]
	assert.Equal(t, []float64{40, 40, 40, 40, 16}, weeklyTargets(full))
	assert.Equal(t, 176.0, full.MonthlyTargetHours)
	assert.Equal(t, 8, full.MonthlyTargetRestDays, "8个周末日")

	// 请假覆盖周四、周五、周六、周日
	partial := s.Profiles[1]
	assert.Equal(t, 24.0, partial.Weekly[0].TargetHours)
	assert.Equal(t, 160.0, partial.MonthlyTargetHours)
	assert.Equal(t, 6, partial.MonthlyTargetRestDays)
	assert.Equal(t, "LV", s.LeaveAt(1, 3))
	assert.Equal(t, "", s.LeaveAt(1, 7))
	assert.True(t, s.IsEmpty(1, 3), "构建阶段只登记请假，不写入网格")
}

func weeklyTargets(p *model.StaffProfile) []float64 {
	out := make([]float64, len(p.Weekly))
	for i, w := range p.Weekly {
		out[i] = w.TargetHours
	}
	return out
}

func TestBuild_ConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *builder.Input)
		code   apperrors.Code
		field  string
	}{
		{
			name:   "空名单",
			mutate: func(in *builder.Input) { in.Staff = nil },
			code:   apperrors.CodeEmptyRoster,
		},
		{
			name:   "缺少规则集",
			mutate: func(in *builder.Input) { in.Rules = nil },
			code:   apperrors.CodeMissingRule,
			field:  "rule",
		},
		{
			name: "缺少值班班次",
			mutate: func(in *builder.Input) {
				in.Rules.OnCallDays = []time.Weekday{time.Monday}
				in.Catalog = mustCatalog(t, []model.ShiftDefinition{
					{Code: "D8", Category: model.CategoryRegular, DurationHours: 8},
					{Code: "OFF", Category: model.CategoryRest},
				})
			},
			code:  apperrors.CodeMissingShiftCategory,
			field: "category",
		},
		{
			name: "休息代码未定义",
			mutate: func(in *builder.Input) {
				in.Rules.RestCode = "REST"
			},
			code:  apperrors.CodeUnknownShiftCode,
			field: "shift_code",
		},
		{
			name: "员工ID重复",
			mutate: func(in *builder.Input) {
				in.Staff = append(in.Staff, model.Staff{ID: "S1", Name: "重复"})
			},
			code: apperrors.CodeInvalidConfig,
		},
		{
			name: "日历日期重复",
			mutate: func(in *builder.Input) {
				d := model.CalendarDay{Date: model.Date(2025, 9, 1), Kind: model.DayWeekday}
				in.Calendar = []model.CalendarDay{d, d}
			},
			code: apperrors.CodeInvalidCalendar,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := fixture.Input(t, fixture.September2025, fixture.Rules(), 3)
			tt.mutate(&in)

			_, err := builder.New(fixture.Logger()).Build(in)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.GetCode(err))
			assert.True(t, apperrors.IsConfigError(err), "配置错误应为致命错误")

			if tt.field != "" {
				var appErr *apperrors.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Contains(t, appErr.Fields, tt.field, "错误应指明缺失的资源")
			}
		})
	}
}

func mustCatalog(t *testing.T, defs []model.ShiftDefinition) *model.ShiftCatalog {
	t.Helper()
	c, err := model.NewShiftCatalog(defs)
	require.NoError(t, err)
	return c
}
