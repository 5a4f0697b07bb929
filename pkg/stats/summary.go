package stats

import (
	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/scheduler/state"
)

// WeekTotal 员工某周合计
type WeekTotal struct {
	Week        int     `json:"week"`
	Start       string  `json:"start"`
	End         string  `json:"end"`
	TargetHours float64 `json:"target_hours"`
	Hours       float64 `json:"hours"`
	RestDays    int     `json:"rest_days"`
	Deviation   float64 `json:"deviation"`
}

// StaffSummary 员工月度合计
type StaffSummary struct {
	StaffID        string         `json:"staff_id"`
	Name           string         `json:"name"`
	TargetHours    float64        `json:"target_hours"`
	Hours          float64        `json:"hours"`
	Deviation      float64        `json:"deviation"`
	TargetRestDays int            `json:"target_rest_days"`
	RestDays       int            `json:"rest_days"`
	LeaveDays      int            `json:"leave_days"`
	WorkDays       int            `json:"work_days"`
	WeekendShifts  int            `json:"weekend_shifts"`
	OnCallShifts   int            `json:"on_call_shifts"`
	LongestWorkRun int            `json:"longest_work_run"`
	LongestRestRun int            `json:"longest_rest_run"`
	ShiftCounts    map[string]int `json:"shift_counts"`
	Weeks          []WeekTotal    `json:"weeks"`
}

// Summaries 从网格重新统计每个员工的周、月合计
func Summaries(s *state.Schedule) []StaffSummary {
	out := make([]StaffSummary, len(s.Staff))
	for i, st := range s.Staff {
		p := s.Profiles[i]
		sum := StaffSummary{
			StaffID:        st.ID,
			Name:           st.Name,
			TargetHours:    p.MonthlyTargetHours,
			TargetRestDays: p.MonthlyTargetRestDays,
			ShiftCounts:    make(map[string]int),
			Weeks:          make([]WeekTotal, len(s.Weeks)),
		}
		for w, week := range s.Weeks {
			sum.Weeks[w] = WeekTotal{
				Week:        w,
				Start:       s.Days[week.Start].DateString(),
				End:         s.Days[week.End].DateString(),
				TargetHours: p.Weekly[w].TargetHours,
			}
		}

		for d, day := range s.Days {
			code := s.Get(i, d)
			if code == "" {
				continue
			}
			sum.ShiftCounts[code]++
			wt := &sum.Weeks[day.Week]
			cat, _ := s.Category(i, d)
			switch {
			case cat.IsWork():
				h := s.Hours(i, d)
				sum.Hours += h
				wt.Hours += h
				sum.WorkDays++
				if day.Kind.IsWeekendLike() {
					sum.WeekendShifts++
				}
				if cat == model.CategoryOnCall {
					sum.OnCallShifts++
				}
			case cat == model.CategoryRest:
				sum.RestDays++
				wt.RestDays++
			case cat == model.CategoryLeave:
				sum.LeaveDays++
			}
		}
		for w := range sum.Weeks {
			sum.Weeks[w].Deviation = sum.Weeks[w].Hours - sum.Weeks[w].TargetHours
		}
		sum.Deviation = sum.Hours - sum.TargetHours
		sum.LongestWorkRun = s.LongestRun(i, s.IsWork)
		sum.LongestRestRun = s.LongestRun(i, s.IsRunRest)
		out[i] = sum
	}
	return out
}
