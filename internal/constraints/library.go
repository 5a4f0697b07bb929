// Package constraints 规则表的说明目录，供 API 展示可配置的规则
package constraints

import (
	"github.com/paiban/monthroster/pkg/rules"
	"github.com/paiban/monthroster/pkg/validator"
)

// 规则类型
const (
	KindHard    = "hard"    // 违反即排班无效
	KindSoft    = "soft"    // 目标偏差，超出容差时报告
	KindSetting = "setting" // 引擎参数，不直接对应校验项
)

// RuleDefinition 规则表中一个键的定义
type RuleDefinition struct {
	Key         string                    `json:"key"`
	DisplayName string                    `json:"display_name"`
	Kind        string                    `json:"kind"`
	Category    string                    `json:"category"`
	Description string                    `json:"description"`
	ValueType   string                    `json:"value_type"` // int, float, bool, weekdays, string, dates
	Default     string                    `json:"default"`
	Min         string                    `json:"min,omitempty"`
	Max         string                    `json:"max,omitempty"`
	Checks      []validator.ViolationType `json:"checks,omitempty"` // 相关的校验项
}

// LibraryResponse 规则目录响应
type LibraryResponse struct {
	Library []RuleDefinition `json:"library"`
}

// GetLibrary 获取完整的规则目录，默认值取自默认规则集
func GetLibrary() []RuleDefinition {
	defaults := rules.Default().ToTable()
	lib := definitions()
	for i := range lib {
		lib[i].Default = defaults[lib[i].Key]
	}
	return lib
}

// Lookup 按键查找规则定义
func Lookup(key string) (RuleDefinition, bool) {
	for _, d := range GetLibrary() {
		if d.Key == key {
			return d, true
		}
	}
	return RuleDefinition{}, false
}

func definitions() []RuleDefinition {
	return []RuleDefinition{
		// =====================================================
		// 人手配置
		// =====================================================
		{
			Key:         "weekday_min_staff",
			DisplayName: "工作日最少人数",
			Kind:        KindHard,
			Category:    "人手配置",
			Description: "每个工作日至少上班的人数，人手不足的日期报告为违反。",
			ValueType:   "int",
			Min:         "0",
			Checks:      []validator.ViolationType{validator.ViolationUnderStaffed},
		},
		{
			Key:         "weekday_max_staff",
			DisplayName: "工作日最多人数",
			Kind:        KindHard,
			Category:    "人手配置",
			Description: "每个工作日最多上班的人数，0 表示不限。",
			ValueType:   "int",
			Min:         "0",
			Checks:      []validator.ViolationType{validator.ViolationOverStaffed},
		},
		{
			Key:         "weekday_optimal_staff",
			DisplayName: "工作日理想人数",
			Kind:        KindSetting,
			Category:    "人手配置",
			Description: "工作日分配时优先达到的人数，0 表示取最少人数。",
			ValueType:   "int",
			Min:         "0",
		},
		{
			Key:         "weekend_min_staff",
			DisplayName: "周末最少人数",
			Kind:        KindHard,
			Category:    "人手配置",
			Description: "周六、周日至少上班的人数。",
			ValueType:   "int",
			Min:         "0",
			Checks:      []validator.ViolationType{validator.ViolationUnderStaffed},
		},
		{
			Key:         "weekend_max_staff",
			DisplayName: "周末最多人数",
			Kind:        KindHard,
			Category:    "人手配置",
			Description: "周末最多上班的人数，0 表示不限。",
			ValueType:   "int",
			Min:         "0",
			Checks:      []validator.ViolationType{validator.ViolationOverStaffed},
		},
		{
			Key:         "holiday_min_staff",
			DisplayName: "节假日最少人数",
			Kind:        KindHard,
			Category:    "人手配置",
			Description: "法定节假日至少上班的人数。",
			ValueType:   "int",
			Min:         "0",
			Checks:      []validator.ViolationType{validator.ViolationUnderStaffed},
		},
		{
			Key:         "holiday_max_staff",
			DisplayName: "节假日最多人数",
			Kind:        KindHard,
			Category:    "人手配置",
			Description: "法定节假日最多上班的人数，0 表示不限。",
			ValueType:   "int",
			Min:         "0",
			Checks:      []validator.ViolationType{validator.ViolationOverStaffed},
		},

		// =====================================================
		// 工时与连续性
		// =====================================================
		{
			Key:         "max_consecutive_work_days",
			DisplayName: "最多连续上班天数",
			Kind:        KindHard,
			Category:    "休息保障",
			Description: "连续上班不得超过该天数，请假和停工日中断连续计数。",
			ValueType:   "int",
			Min:         "1",
			Max:         "31",
			Checks:      []validator.ViolationType{validator.ViolationConsecutiveWork},
		},
		{
			Key:         "max_consecutive_rest_days",
			DisplayName: "最多连续休息天数",
			Kind:        KindHard,
			Category:    "休息保障",
			Description: "连续休息不得超过该天数，请假不计入休息。",
			ValueType:   "int",
			Min:         "1",
			Max:         "31",
			Checks:      []validator.ViolationType{validator.ViolationConsecutiveRest},
		},
		{
			Key:         "weekly_hour_cap",
			DisplayName: "每周工时上限",
			Kind:        KindHard,
			Category:    "工时限制",
			Description: "员工每个日历周的累计工时上限。",
			ValueType:   "float",
			Min:         "0",
			Max:         "168",
			Checks:      []validator.ViolationType{validator.ViolationWeeklyHours},
		},
		{
			Key:         "standard_daily_hours",
			DisplayName: "标准日工时",
			Kind:        KindSetting,
			Category:    "工时限制",
			Description: "计算每周工时目标时每个工作日计入的小时数。",
			ValueType:   "float",
			Min:         "0",
			Max:         "24",
		},

		// =====================================================
		// 周末与值班
		// =====================================================
		{
			Key:         "paired_rest_days",
			DisplayName: "成对休息日",
			Kind:        KindHard,
			Category:    "周末安排",
			Description: "每名员工每月至少有一次在这两天同时休息，格式如 Saturday,Sunday。",
			ValueType:   "weekdays",
			Checks:      []validator.ViolationType{validator.ViolationPairedRest},
		},
		{
			Key:         "weekend_pair_exclusive",
			DisplayName: "周末双休互斥",
			Kind:        KindSetting,
			Category:    "周末安排",
			Description: "为 true 时，同一周末成对休息的员工不再安排其中任一天上班。",
			ValueType:   "bool",
		},
		{
			Key:         "on_call_days",
			DisplayName: "值班日",
			Kind:        KindSetting,
			Category:    "值班",
			Description: "需要安排值班的星期，逗号分隔。",
			ValueType:   "weekdays",
		},
		{
			Key:         "on_call_code",
			DisplayName: "值班班次代码",
			Kind:        KindSetting,
			Category:    "值班",
			Description: "值班使用的班次代码，为空时取目录中第一个值班类班次。",
			ValueType:   "string",
		},

		// =====================================================
		// 均衡与目标
		// =====================================================
		{
			Key:         "balancer_max_iterations",
			DisplayName: "均衡最大迭代次数",
			Kind:        KindSetting,
			Category:    "均衡",
			Description: "均衡器的迭代上限。",
			ValueType:   "int",
			Min:         "0",
		},
		{
			Key:         "balancer_tolerance",
			DisplayName: "均衡容差",
			Kind:        KindSetting,
			Category:    "均衡",
			Description: "每周工时最大偏差低于该值（小时）时视为收敛。",
			ValueType:   "float",
			Min:         "0",
		},
		{
			Key:         "monthly_hour_tolerance",
			DisplayName: "月工时容差",
			Kind:        KindSoft,
			Category:    "均衡",
			Description: "月工时与目标的偏差超过该值（小时）时报告。",
			ValueType:   "float",
			Min:         "0",
			Checks:      []validator.ViolationType{validator.ViolationHourTarget},
		},
		{
			Key:         "rest_day_tolerance",
			DisplayName: "休息天数容差",
			Kind:        KindSoft,
			Category:    "均衡",
			Description: "休息天数少于目标减去该值时报告。",
			ValueType:   "int",
			Min:         "0",
			Checks:      []validator.ViolationType{validator.ViolationRestTarget},
		},

		// =====================================================
		// 代码与停工
		// =====================================================
		{
			Key:         "rest_code",
			DisplayName: "休息代码",
			Kind:        KindSetting,
			Category:    "班次代码",
			Description: "填充休息使用的班次代码，必须属于休息类。",
			ValueType:   "string",
		},
		{
			Key:         "leave_code",
			DisplayName: "请假代码",
			Kind:        KindSetting,
			Category:    "班次代码",
			Description: "请假记录未指定代码时使用的班次代码，必须属于请假类。",
			ValueType:   "string",
		},
		{
			Key:         "shutdown_dates",
			DisplayName: "停工日期",
			Kind:        KindSetting,
			Category:    "停工",
			Description: "停工日期列表，逗号分隔的 YYYY-MM-DD，当天所有人休息。",
			ValueType:   "dates",
		},
		{
			Key:         "shutdown_rrule",
			DisplayName: "周期停工规则",
			Kind:        KindSetting,
			Category:    "停工",
			Description: "RFC 5545 RRULE，如 FREQ=MONTHLY;BYMONTHDAY=31，与停工日期合并。",
			ValueType:   "string",
		},
	}
}
