// Package rules 排班规则集：强类型配置，带显式默认值和构造时校验
package rules

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	apperrors "github.com/paiban/monthroster/pkg/errors"
	"github.com/paiban/monthroster/pkg/model"
)

var validate = validator.New()

// RuleSet 排班规则集，构造后只读
type RuleSet struct {
	// 人手要求，Max 为 0 表示不超过名单人数，Optimal 为 0 表示取 Max
	WeekdayMinStaff     int `yaml:"weekday_min_staff" json:"weekday_min_staff" validate:"min=0"`
	WeekdayMaxStaff     int `yaml:"weekday_max_staff" json:"weekday_max_staff" validate:"min=0"`
	WeekdayOptimalStaff int `yaml:"weekday_optimal_staff" json:"weekday_optimal_staff" validate:"min=0"`
	WeekendMinStaff     int `yaml:"weekend_min_staff" json:"weekend_min_staff" validate:"min=0"`
	WeekendMaxStaff     int `yaml:"weekend_max_staff" json:"weekend_max_staff" validate:"min=0"`
	HolidayMinStaff     int `yaml:"holiday_min_staff" json:"holiday_min_staff" validate:"min=0"`
	HolidayMaxStaff     int `yaml:"holiday_max_staff" json:"holiday_max_staff" validate:"min=0"`

	// 劳动规则
	MaxConsecutiveWorkDays int     `yaml:"max_consecutive_work_days" json:"max_consecutive_work_days" validate:"min=1,max=31"`
	MaxConsecutiveRestDays int     `yaml:"max_consecutive_rest_days" json:"max_consecutive_rest_days" validate:"min=1,max=31"`
	WeeklyHourCap          float64 `yaml:"weekly_hour_cap" json:"weekly_hour_cap" validate:"gt=0,lte=168"`
	StandardDailyHours     float64 `yaml:"standard_daily_hours" json:"standard_daily_hours" validate:"gt=0,lte=24"`

	// 成对休息（如 Saturday,Sunday），为空表示不启用
	PairedRestDays WeekdayList `yaml:"paired_rest_days" json:"paired_rest_days"`
	// 同一周末的两天是否禁止分给同一人
	WeekendPairExclusive bool `yaml:"weekend_pair_exclusive" json:"weekend_pair_exclusive"`

	// 值班，为空表示不启用
	OnCallDays WeekdayList `yaml:"on_call_days" json:"on_call_days"`
	OnCallCode string      `yaml:"on_call_code" json:"on_call_code,omitempty"`

	// 均衡器
	BalancerMaxIterations int     `yaml:"balancer_max_iterations" json:"balancer_max_iterations" validate:"min=1,max=1000"`
	BalancerTolerance     float64 `yaml:"balancer_tolerance" json:"balancer_tolerance" validate:"gte=0"`

	// 校验容差
	MonthlyHourTolerance float64 `yaml:"monthly_hour_tolerance" json:"monthly_hour_tolerance" validate:"gte=0"`
	RestDayTolerance     int     `yaml:"rest_day_tolerance" json:"rest_day_tolerance" validate:"min=0"`

	RestCode  string `yaml:"rest_code" json:"rest_code" validate:"required"`
	LeaveCode string `yaml:"leave_code" json:"leave_code" validate:"required"`

	// 停工日
	ShutdownDates []string `yaml:"shutdown_dates" json:"shutdown_dates,omitempty" validate:"dive,datetime=2006-01-02"`
	ShutdownRRule string   `yaml:"shutdown_rrule" json:"shutdown_rrule,omitempty"`
}

// Default 返回默认规则集
func Default() *RuleSet {
	return &RuleSet{
		WeekdayMinStaff:        1,
		WeekendMinStaff:        1,
		HolidayMinStaff:        1,
		MaxConsecutiveWorkDays: 6,
		MaxConsecutiveRestDays: 4,
		WeeklyHourCap:          52,
		StandardDailyHours:     8,
		BalancerMaxIterations:  50,
		BalancerTolerance:      4,
		MonthlyHourTolerance:   8,
		RestDayTolerance:       0,
		RestCode:               "OFF",
		LeaveCode:              "LV",
	}
}

// Clone 深拷贝
func (r *RuleSet) Clone() *RuleSet {
	c := *r
	c.PairedRestDays = append(WeekdayList(nil), r.PairedRestDays...)
	c.OnCallDays = append(WeekdayList(nil), r.OnCallDays...)
	c.ShutdownDates = append([]string(nil), r.ShutdownDates...)
	return &c
}

// Validate 校验规则集
func (r *RuleSet) Validate() error {
	if err := validate.Struct(r); err != nil {
		verrs := &apperrors.ValidationErrors{}
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				verrs.Add(fe.Field(), fmt.Sprintf("不满足 %s=%s", fe.Tag(), fe.Param()))
			}
		} else {
			verrs.Add("rules", err.Error())
		}
		return verrs.ToAppError()
	}

	verrs := &apperrors.ValidationErrors{}
	checkRange := func(prefix string, min, max int) {
		if max > 0 && min > max {
			verrs.Add(prefix, fmt.Sprintf("最少人数 %d 大于最多人数 %d", min, max))
		}
	}
	checkRange("weekday_staff", r.WeekdayMinStaff, r.WeekdayMaxStaff)
	checkRange("weekend_staff", r.WeekendMinStaff, r.WeekendMaxStaff)
	checkRange("holiday_staff", r.HolidayMinStaff, r.HolidayMaxStaff)
	if r.WeekdayOptimalStaff > 0 {
		if r.WeekdayOptimalStaff < r.WeekdayMinStaff {
			verrs.Add("weekday_optimal_staff", "理想人数小于最少人数")
		}
		if r.WeekdayMaxStaff > 0 && r.WeekdayOptimalStaff > r.WeekdayMaxStaff {
			verrs.Add("weekday_optimal_staff", "理想人数大于最多人数")
		}
	}

	if n := len(r.PairedRestDays); n > 0 {
		if n != 2 {
			verrs.Add("paired_rest_days", "必须恰好两天")
		} else if (r.PairedRestDays[0]+1)%7 != r.PairedRestDays[1] {
			verrs.Add("paired_rest_days", "两天必须相邻且按顺序给出")
		}
	}

	if r.RestCode == r.LeaveCode {
		verrs.Add("rest_code", "休息代码与请假代码不能相同")
	}

	if r.ShutdownRRule != "" {
		if _, err := rrule.StrToRRule(r.ShutdownRRule); err != nil {
			verrs.Add("shutdown_rrule", err.Error())
		}
	}

	if verrs.HasErrors() {
		return verrs.ToAppError()
	}
	return nil
}

// Staffing 某类日期的人手要求，rosterSize 用于解析未设置的上限
type Staffing struct {
	Min     int
	Max     int
	Optimal int
}

// StaffingFor 返回日期类型对应的人手要求
func (r *RuleSet) StaffingFor(kind model.DayKind, rosterSize int) Staffing {
	var s Staffing
	switch kind {
	case model.DayShutdown:
		return Staffing{}
	case model.DayWeekend:
		s = Staffing{Min: r.WeekendMinStaff, Max: r.WeekendMaxStaff}
	case model.DayHoliday:
		s = Staffing{Min: r.HolidayMinStaff, Max: r.HolidayMaxStaff}
	default:
		s = Staffing{Min: r.WeekdayMinStaff, Max: r.WeekdayMaxStaff, Optimal: r.WeekdayOptimalStaff}
	}
	if s.Max == 0 {
		s.Max = rosterSize
	}
	if s.Optimal == 0 {
		if kind == model.DayWeekday {
			s.Optimal = s.Max
		} else {
			s.Optimal = s.Min
		}
	}
	if s.Optimal > s.Max {
		s.Optimal = s.Max
	}
	return s
}

// OnCallEnabled 是否启用值班
func (r *RuleSet) OnCallEnabled() bool {
	return len(r.OnCallDays) > 0
}

// PairedRestEnabled 是否启用成对休息
func (r *RuleSet) PairedRestEnabled() bool {
	return len(r.PairedRestDays) == 2
}

// IsOnCallDay 某星期是否需要值班
func (r *RuleSet) IsOnCallDay(wd time.Weekday) bool {
	return r.OnCallDays.Contains(wd)
}

// ShutdownDays 返回该月的停工日期集合（YYYY-MM-DD）
func (r *RuleSet) ShutdownDays(ym model.YearMonth) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, s := range r.ShutdownDates {
		d, err := model.ParseDate(s)
		if err != nil {
			return nil, apperrors.InvalidRule("shutdown_dates", err.Error())
		}
		if ym.Contains(d) {
			out[model.FormatDate(d)] = true
		}
	}

	if r.ShutdownRRule == "" {
		return out, nil
	}
	rule, err := rrule.StrToRRule(r.ShutdownRRule)
	if err != nil {
		return nil, apperrors.InvalidRule("shutdown_rrule", err.Error())
	}
	first := ym.First()
	last := first.AddDate(0, 1, -1)
	if !strings.Contains(strings.ToUpper(r.ShutdownRRule), "DTSTART") {
		rule.DTStart(first)
	}
	for _, occ := range rule.Between(first, last.Add(24*time.Hour-time.Second), true) {
		if ym.Contains(occ) {
			out[model.FormatDate(occ)] = true
		}
	}
	return out, nil
}

// WeekdayList 星期列表，YAML 中可写为逗号分隔字符串或序列
type WeekdayList []time.Weekday

// Contains 是否包含某星期
func (l WeekdayList) Contains(wd time.Weekday) bool {
	for _, w := range l {
		if w == wd {
			return true
		}
	}
	return false
}

// String 逗号分隔的英文名称
func (l WeekdayList) String() string {
	names := make([]string, len(l))
	for i, w := range l {
		names[i] = w.String()
	}
	return strings.Join(names, ",")
}

// MarshalYAML 实现 yaml.Marshaler
func (l WeekdayList) MarshalYAML() (interface{}, error) {
	return l.String(), nil
}

// UnmarshalYAML 实现 yaml.Unmarshaler
func (l *WeekdayList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		days, err := model.ParseWeekdayList(node.Value)
		if err != nil {
			return err
		}
		*l = days
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		days, err := model.ParseWeekdayList(strings.Join(names, ","))
		if err != nil {
			return err
		}
		*l = days
	default:
		return fmt.Errorf("星期列表格式无效（第 %d 行）", node.Line)
	}
	return nil
}

// MarshalJSON 实现 json.Marshaler
func (l WeekdayList) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", l.String())), nil
}

// UnmarshalJSON 实现 json.Unmarshaler
func (l *WeekdayList) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("星期列表格式无效: %w", err)
		}
		names = []string{s}
	}
	days, err := model.ParseWeekdayList(strings.Join(names, ","))
	if err != nil {
		return err
	}
	*l = days
	return nil
}

// Keys 规则表支持的全部键（排序）
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
