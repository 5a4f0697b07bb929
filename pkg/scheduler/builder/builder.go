// Package builder 从原始输入构建排班状态：日历分类、每日人手要求、员工目标
package builder

import (
	"fmt"
	"time"

	apperrors "github.com/paiban/monthroster/pkg/errors"
	"github.com/paiban/monthroster/pkg/logger"
	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/rules"
	"github.com/paiban/monthroster/pkg/scheduler/state"
)

// Input 构建所需的原始输入
type Input struct {
	Month    model.YearMonth
	Rules    *rules.RuleSet
	Catalog  *model.ShiftCatalog
	Staff    []model.Staff
	Calendar []model.CalendarDay // 可为空，缺失的日期按星期分类
	Leave    []model.LeaveRecord
}

// Builder 上下文构建器
type Builder struct {
	logger *logger.SchedulerLogger
}

// New 创建构建器
func New(log *logger.SchedulerLogger) *Builder {
	return &Builder{logger: log}
}

// Build 校验输入并构建排班状态，配置错误立即返回
func (b *Builder) Build(in Input) (*state.Schedule, error) {
	if in.Rules == nil {
		return nil, apperrors.MissingRule("rules")
	}
	if in.Catalog == nil || in.Catalog.Len() == 0 {
		return nil, apperrors.MissingShiftCategory(model.CategoryRegular.String())
	}
	if len(in.Staff) == 0 {
		return nil, apperrors.EmptyRoster()
	}
	if err := checkRoster(in.Staff); err != nil {
		return nil, err
	}

	codes, err := resolveCodes(in.Rules, in.Catalog, len(in.Leave) > 0)
	if err != nil {
		return nil, err
	}

	days, weeks, err := b.classify(in)
	if err != nil {
		return nil, err
	}

	s := state.New(in.Month, in.Rules, in.Catalog, codes, in.Staff, days, weeks)
	if err := b.markLeave(s, in.Leave); err != nil {
		return nil, err
	}
	assignTargets(s)
	s.RefreshAll()

	b.logger.Infof("构建完成: %d 名员工, %d 天, %d 周", len(in.Staff), len(days), len(weeks))
	return s, nil
}

func checkRoster(staff []model.Staff) error {
	seen := make(map[string]bool, len(staff))
	for _, st := range staff {
		if st.ID == "" {
			return apperrors.New(apperrors.CodeInvalidConfig, "员工缺少ID").WithField("name", st.Name)
		}
		if seen[st.ID] {
			return apperrors.New(apperrors.CodeInvalidConfig, fmt.Sprintf("员工ID '%s' 重复", st.ID)).
				WithField("staff_id", st.ID)
		}
		seen[st.ID] = true
	}
	return nil
}

// resolveCodes 校验必需的班次类别并解析保留代码
func resolveCodes(rs *rules.RuleSet, catalog *model.ShiftCatalog, hasLeave bool) (state.Codes, error) {
	required := []model.ShiftCategory{model.CategoryRegular, model.CategoryRest}
	if rs.OnCallEnabled() {
		required = append(required, model.CategoryOnCall)
	}
	if hasLeave {
		required = append(required, model.CategoryLeave)
	}
	if missing := catalog.MissingCategories(required...); len(missing) > 0 {
		return state.Codes{}, apperrors.MissingShiftCategory(missing[0].String())
	}

	codes := state.Codes{Rest: rs.RestCode, Leave: rs.LeaveCode}
	if err := requireCode(catalog, codes.Rest, model.CategoryRest); err != nil {
		return state.Codes{}, err
	}
	if hasLeave {
		if err := requireCode(catalog, codes.Leave, model.CategoryLeave); err != nil {
			return state.Codes{}, err
		}
	}
	if rs.OnCallEnabled() {
		if rs.OnCallCode != "" {
			if err := requireCode(catalog, rs.OnCallCode, model.CategoryOnCall); err != nil {
				return state.Codes{}, err
			}
			codes.OnCall = rs.OnCallCode
		} else {
			def, _ := catalog.Default(model.CategoryOnCall)
			codes.OnCall = def.Code
		}
	}
	return codes, nil
}

func requireCode(catalog *model.ShiftCatalog, code string, cat model.ShiftCategory) error {
	def, ok := catalog.Get(code)
	if !ok {
		return apperrors.UnknownShiftCode(code)
	}
	if def.Category != cat {
		return apperrors.New(apperrors.CodeInvalidConfig,
			fmt.Sprintf("班次 '%s' 的类别是 %s，需要 %s", code, def.Category, cat)).WithField("shift_code", code)
	}
	return nil
}

// classify 生成每日画像和周划分
func (b *Builder) classify(in Input) ([]model.DayProfile, []model.Week, error) {
	byDate := make(map[string]model.CalendarDay, len(in.Calendar))
	for _, cd := range in.Calendar {
		key := model.FormatDate(cd.Date)
		if !in.Month.Contains(cd.Date) {
			b.logger.Debugf("忽略月份外的日历日期 %s", key)
			continue
		}
		if _, dup := byDate[key]; dup {
			return nil, nil, apperrors.InvalidCalendar(fmt.Sprintf("日期 %s 重复", key))
		}
		byDate[key] = cd
	}

	shutdown, err := in.Rules.ShutdownDays(in.Month)
	if err != nil {
		return nil, nil, err
	}

	dates := in.Month.Dates()
	weeks, weekOf := model.PartitionWeeks(dates)
	days := make([]model.DayProfile, len(dates))
	for i, d := range dates {
		key := model.FormatDate(d)
		kind := kindByWeekday(d.Weekday())
		var holiday string
		if cd, ok := byDate[key]; ok {
			kind = cd.Kind
			holiday = cd.HolidayName
		}
		if shutdown[key] {
			kind = model.DayShutdown
		}

		staffing := in.Rules.StaffingFor(kind, len(in.Staff))
		days[i] = model.DayProfile{
			Index:        i,
			Date:         d,
			Weekday:      d.Weekday(),
			Kind:         kind,
			HolidayName:  holiday,
			Week:         weekOf[i],
			MinStaff:     staffing.Min,
			MaxStaff:     staffing.Max,
			OptimalStaff: staffing.Optimal,
			OnCallRequired: kind != model.DayShutdown &&
				in.Rules.OnCallEnabled() && in.Rules.IsOnCallDay(d.Weekday()),
		}
	}
	return days, weeks, nil
}

func kindByWeekday(wd time.Weekday) model.DayKind {
	if wd == time.Saturday || wd == time.Sunday {
		return model.DayWeekend
	}
	return model.DayWeekday
}

// markLeave 登记请假，未知员工的记录跳过
func (b *Builder) markLeave(s *state.Schedule, leave []model.LeaveRecord) error {
	for _, rec := range leave {
		if err := rec.Validate(); err != nil {
			return apperrors.Wrap(err, apperrors.CodeInvalidInput, "请假记录无效")
		}
		i, ok := s.StaffIndex(rec.StaffID)
		if !ok {
			b.logger.Warnf("请假记录中的员工 %s 不在名单中，已忽略", rec.StaffID)
			continue
		}
		code := s.Codes.Leave
		if rec.Code != "" {
			if err := requireCode(s.Catalog, rec.Code, model.CategoryLeave); err != nil {
				return err
			}
			code = rec.Code
		}
		for d, day := range s.Days {
			if rec.Covers(day.Date) {
				s.MarkLeave(i, d, code)
			}
		}
	}
	return nil
}

// assignTargets 计算每周/每月工时目标和休息目标
func assignTargets(s *state.Schedule) {
	std := s.Rules.StandardDailyHours
	for i, p := range s.Profiles {
		p.MonthlyTargetHours = 0
		p.MonthlyTargetRestDays = 0
		for _, w := range s.Weeks {
			workdays := 0
			for d := w.Start; d <= w.End; d++ {
				if s.Days[d].Kind == model.DayWeekday && s.LeaveAt(i, d) == "" {
					workdays++
				}
			}
			p.Weekly[w.Index].TargetHours = std * float64(workdays)
			p.MonthlyTargetHours += p.Weekly[w.Index].TargetHours
		}
		for d, day := range s.Days {
			if day.Kind != model.DayWeekday && s.LeaveAt(i, d) == "" {
				p.MonthlyTargetRestDays++
			}
		}
	}
}
