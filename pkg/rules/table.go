package rules

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/paiban/monthroster/pkg/errors"
	"github.com/paiban/monthroster/pkg/model"
)

type setter func(r *RuleSet, value string) error

func intSetter(key string, field func(*RuleSet) *int) setter {
	return func(r *RuleSet, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return apperrors.InvalidRule(key, "需要整数")
		}
		*field(r) = n
		return nil
	}
}

func floatSetter(key string, field func(*RuleSet) *float64) setter {
	return func(r *RuleSet, value string) error {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return apperrors.InvalidRule(key, "需要数字")
		}
		*field(r) = f
		return nil
	}
}

func boolSetter(key string, field func(*RuleSet) *bool) setter {
	return func(r *RuleSet, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return apperrors.InvalidRule(key, "需要布尔值")
		}
		*field(r) = b
		return nil
	}
}

func weekdaysSetter(key string, field func(*RuleSet) *WeekdayList) setter {
	return func(r *RuleSet, value string) error {
		days, err := model.ParseWeekdayList(value)
		if err != nil {
			return apperrors.InvalidRule(key, err.Error())
		}
		*field(r) = days
		return nil
	}
}

func stringSetter(field func(*RuleSet) *string) setter {
	return func(r *RuleSet, value string) error {
		*field(r) = value
		return nil
	}
}

var setters = map[string]setter{
	"weekday_min_staff":     intSetter("weekday_min_staff", func(r *RuleSet) *int { return &r.WeekdayMinStaff }),
	"weekday_max_staff":     intSetter("weekday_max_staff", func(r *RuleSet) *int { return &r.WeekdayMaxStaff }),
	"weekday_optimal_staff": intSetter("weekday_optimal_staff", func(r *RuleSet) *int { return &r.WeekdayOptimalStaff }),
	"weekend_min_staff":     intSetter("weekend_min_staff", func(r *RuleSet) *int { return &r.WeekendMinStaff }),
	"weekend_max_staff":     intSetter("weekend_max_staff", func(r *RuleSet) *int { return &r.WeekendMaxStaff }),
	"holiday_min_staff":     intSetter("holiday_min_staff", func(r *RuleSet) *int { return &r.HolidayMinStaff }),
	"holiday_max_staff":     intSetter("holiday_max_staff", func(r *RuleSet) *int { return &r.HolidayMaxStaff }),

	"max_consecutive_work_days": intSetter("max_consecutive_work_days", func(r *RuleSet) *int { return &r.MaxConsecutiveWorkDays }),
	"max_consecutive_rest_days": intSetter("max_consecutive_rest_days", func(r *RuleSet) *int { return &r.MaxConsecutiveRestDays }),
	"weekly_hour_cap":           floatSetter("weekly_hour_cap", func(r *RuleSet) *float64 { return &r.WeeklyHourCap }),
	"standard_daily_hours":      floatSetter("standard_daily_hours", func(r *RuleSet) *float64 { return &r.StandardDailyHours }),

	"paired_rest_days":       weekdaysSetter("paired_rest_days", func(r *RuleSet) *WeekdayList { return &r.PairedRestDays }),
	"weekend_pair_exclusive": boolSetter("weekend_pair_exclusive", func(r *RuleSet) *bool { return &r.WeekendPairExclusive }),
	"on_call_days":           weekdaysSetter("on_call_days", func(r *RuleSet) *WeekdayList { return &r.OnCallDays }),
	"on_call_code":           stringSetter(func(r *RuleSet) *string { return &r.OnCallCode }),

	"balancer_max_iterations": intSetter("balancer_max_iterations", func(r *RuleSet) *int { return &r.BalancerMaxIterations }),
	"balancer_tolerance":      floatSetter("balancer_tolerance", func(r *RuleSet) *float64 { return &r.BalancerTolerance }),
	"monthly_hour_tolerance":  floatSetter("monthly_hour_tolerance", func(r *RuleSet) *float64 { return &r.MonthlyHourTolerance }),
	"rest_day_tolerance":      intSetter("rest_day_tolerance", func(r *RuleSet) *int { return &r.RestDayTolerance }),

	"rest_code":  stringSetter(func(r *RuleSet) *string { return &r.RestCode }),
	"leave_code": stringSetter(func(r *RuleSet) *string { return &r.LeaveCode }),
	"shutdown_dates": func(r *RuleSet, value string) error {
		r.ShutdownDates = nil
		for _, part := range strings.Split(value, ",") {
			if p := strings.TrimSpace(part); p != "" {
				r.ShutdownDates = append(r.ShutdownDates, p)
			}
		}
		return nil
	},
	"shutdown_rrule": stringSetter(func(r *RuleSet) *string { return &r.ShutdownRRule }),
}

// FromTable 从扁平键值表构建规则集，缺失的键取默认值，未知的键报错
func FromTable(table map[string]string) (*RuleSet, error) {
	r := Default()
	// 按键排序应用，保证错误信息稳定
	for _, key := range sortedKeys(table) {
		set, ok := setters[normalizeKey(key)]
		if !ok {
			return nil, apperrors.InvalidRule(key, "未知的规则")
		}
		if err := set(r, strings.TrimSpace(table[key])); err != nil {
			return nil, err
		}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// ToTable 导出为扁平键值表
func (r *RuleSet) ToTable() map[string]string {
	ftoa := func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
	return map[string]string{
		"weekday_min_staff":         strconv.Itoa(r.WeekdayMinStaff),
		"weekday_max_staff":         strconv.Itoa(r.WeekdayMaxStaff),
		"weekday_optimal_staff":     strconv.Itoa(r.WeekdayOptimalStaff),
		"weekend_min_staff":         strconv.Itoa(r.WeekendMinStaff),
		"weekend_max_staff":         strconv.Itoa(r.WeekendMaxStaff),
		"holiday_min_staff":         strconv.Itoa(r.HolidayMinStaff),
		"holiday_max_staff":         strconv.Itoa(r.HolidayMaxStaff),
		"max_consecutive_work_days": strconv.Itoa(r.MaxConsecutiveWorkDays),
		"max_consecutive_rest_days": strconv.Itoa(r.MaxConsecutiveRestDays),
		"weekly_hour_cap":           ftoa(r.WeeklyHourCap),
		"standard_daily_hours":      ftoa(r.StandardDailyHours),
		"paired_rest_days":          r.PairedRestDays.String(),
		"weekend_pair_exclusive":    strconv.FormatBool(r.WeekendPairExclusive),
		"on_call_days":              r.OnCallDays.String(),
		"on_call_code":              r.OnCallCode,
		"balancer_max_iterations":   strconv.Itoa(r.BalancerMaxIterations),
		"balancer_tolerance":        ftoa(r.BalancerTolerance),
		"monthly_hour_tolerance":    ftoa(r.MonthlyHourTolerance),
		"rest_day_tolerance":        strconv.Itoa(r.RestDayTolerance),
		"rest_code":                 r.RestCode,
		"leave_code":                r.LeaveCode,
		"shutdown_dates":            strings.Join(r.ShutdownDates, ","),
		"shutdown_rrule":            r.ShutdownRRule,
	}
}

// ParseYAML 解析 YAML 规则，未出现的字段保留默认值
func ParseYAML(data []byte) (*RuleSet, error) {
	r := Default()
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidConfig, "解析规则文件失败")
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// LoadFile 从 YAML 文件加载规则
func LoadFile(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidConfig, "读取规则文件失败").WithField("path", path)
	}
	return ParseYAML(data)
}

func normalizeKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.ReplaceAll(k, "-", "_")
	return strings.ReplaceAll(k, " ", "_")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TableKeys 规则表支持的全部键（排序后）
func TableKeys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
