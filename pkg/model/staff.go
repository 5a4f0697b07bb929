package model

import (
	"fmt"
	"strings"
	"time"
)

// Staff 名单中的员工
type Staff struct {
	ID   string `json:"id" yaml:"id" validate:"required"`
	Name string `json:"name" yaml:"name" validate:"required"`
	Code string `json:"code,omitempty" yaml:"code,omitempty"`
}

// Label 日志中使用的员工名称
func (s Staff) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// LeaveRecord 已批准的请假记录（起止日期均含）
type LeaveRecord struct {
	StaffID string    `json:"staff_id" yaml:"staff_id"`
	Start   time.Time `json:"start" yaml:"start"`
	End     time.Time `json:"end" yaml:"end"`
	Code    string    `json:"code,omitempty" yaml:"code,omitempty"`
	Reason  string    `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Covers 请假是否覆盖某天
func (l LeaveRecord) Covers(d time.Time) bool {
	d = TruncateDay(d)
	return !d.Before(TruncateDay(l.Start)) && !d.After(TruncateDay(l.End))
}

// Validate 检查请假记录
func (l LeaveRecord) Validate() error {
	if strings.TrimSpace(l.StaffID) == "" {
		return fmt.Errorf("请假记录缺少员工ID")
	}
	if l.Start.IsZero() || l.End.IsZero() {
		return fmt.Errorf("员工 %s 的请假记录缺少日期", l.StaffID)
	}
	if l.End.Before(l.Start) {
		return fmt.Errorf("员工 %s 的请假结束日期早于开始日期", l.StaffID)
	}
	return nil
}

// WeeklyStat 员工某周统计
type WeeklyStat struct {
	TargetHours   float64 `json:"target_hours"`
	AssignedHours float64 `json:"assigned_hours"`
	AssignedRest  int     `json:"assigned_rest"`
}

// Deviation 实际工时与目标的偏差
func (w WeeklyStat) Deviation() float64 {
	return w.AssignedHours - w.TargetHours
}

// StaffProfile 员工月度画像，每次写入网格后重算
type StaffProfile struct {
	Staff                 Staff        `json:"staff"`
	MonthlyTargetHours    float64      `json:"monthly_target_hours"`
	MonthlyTargetRestDays int          `json:"monthly_target_rest_days"`
	RunningHours          float64      `json:"running_hours"`
	RunningRestDays       int          `json:"running_rest_days"`
	LeaveDays             int          `json:"leave_days"`
	ConsecutiveWorkStreak int          `json:"consecutive_work_streak"`
	ConsecutiveRestStreak int          `json:"consecutive_rest_streak"`
	WeekendShiftCount     int          `json:"weekend_shift_count"`
	OnCallCount           int          `json:"on_call_count"`
	Weekly                []WeeklyStat `json:"weekly"`
}

// HourDeviation 月度工时偏差
func (p *StaffProfile) HourDeviation() float64 {
	return p.RunningHours - p.MonthlyTargetHours
}

// RestDeficit 尚缺的休息天数
func (p *StaffProfile) RestDeficit() int {
	if d := p.MonthlyTargetRestDays - p.RunningRestDays; d > 0 {
		return d
	}
	return 0
}
