package stats

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/paiban/monthroster/pkg/internal/fixture"
	"github.com/paiban/monthroster/pkg/model"
	"github.com/paiban/monthroster/pkg/rules"
)

func TestAnalyzeCoverage(t *testing.T) {
	s := fixture.Regular(t, fixture.Schedule(t, fixture.September2025, fixture.Rules(), 2))

	m := AnalyzeCoverage(s)

	if len(m.Days) != 30 {
		t.Fatalf("Expected 30 days, got %d", len(m.Days))
	}
	// 工作日两人在岗，周末最少 1 人但全员休息
	if m.RequiredSlots != 30 {
		t.Errorf("Expected 30 required slots, got %d", m.RequiredSlots)
	}
	if m.FilledSlots != 22 {
		t.Errorf("Expected 22 filled slots, got %d", m.FilledSlots)
	}
	if math.Abs(m.OverallCoverage-22.0/30*100) > 0.01 {
		t.Errorf("Unexpected overall coverage %.2f", m.OverallCoverage)
	}
	if math.Abs(m.DemandSatisfaction-44.0/52*100) > 0.01 {
		t.Errorf("Unexpected demand satisfaction %.2f", m.DemandSatisfaction)
	}
	if len(m.Understaffed) != 8 {
		t.Errorf("Expected 8 understaffed days, got %d", len(m.Understaffed))
	}

	mon := m.Days[0]
	if mon.Working != 2 || mon.TotalHours != 16 || mon.CoverageRate != 100 {
		t.Errorf("Unexpected Monday coverage: %+v", mon)
	}
	sat := m.Days[5]
	if sat.Working != 0 || sat.Resting != 2 || sat.CoverageRate != 0 {
		t.Errorf("Unexpected Saturday coverage: %+v", sat)
	}
	if sat.Kind != "weekend" || sat.Weekday != "Saturday" {
		t.Errorf("Unexpected Saturday classification: %s/%s", sat.Kind, sat.Weekday)
	}
}

func TestAnalyzeCoverage_LeaveAndOnCall(t *testing.T) {
	rs := fixture.Rules()
	rs.WeekendMinStaff = 0
	rs.OnCallDays = rules.WeekdayList{time.Friday}
	leave := fixture.Leave("S1", model.Date(2025, 9, 8), model.Date(2025, 9, 12))
	s := fixture.Regular(t, fixture.Schedule(t, fixture.September2025, rs, 2, leave))
	if err := s.Set(0, 4, "OC"); err != nil {
		t.Fatal(err)
	}

	m := AnalyzeCoverage(s)

	if m.Days[7].OnLeave != 1 || m.Days[7].Working != 1 {
		t.Errorf("Expected one on leave and one working, got %+v", m.Days[7])
	}
	if m.Days[4].OnCall != "S1" {
		t.Errorf("Expected S1 on call, got %q", m.Days[4].OnCall)
	}
	if m.Days[4].TotalHours != 18 {
		t.Errorf("Expected 18 hours on Friday, got %.1f", m.Days[4].TotalHours)
	}
	want := []string{"2025-09-12", "2025-09-19", "2025-09-26"}
	if strings.Join(m.OnCallMissing, ",") != strings.Join(want, ",") {
		t.Errorf("Expected missing on-call %v, got %v", want, m.OnCallMissing)
	}
	if len(m.Understaffed) != 0 {
		t.Errorf("Expected no understaffed days, got %d", len(m.Understaffed))
	}
}

func TestCoverageReport(t *testing.T) {
	m := &CoverageMetrics{
		RequiredSlots:      10,
		FilledSlots:        9,
		OverallCoverage:    90,
		DemandSatisfaction: 80,
		Understaffed:       []UnderstaffedDay{{Date: "2025-09-06", Required: 2, Assigned: 1, Shortage: 1}},
		OnCallMissing:      []string{"2025-09-12"},
	}

	report := CoverageReport(m)

	for _, want := range []string{"覆盖率: 90.0%", "2025-09-06 (需要2人，仅有1人，缺1人)", "【无人值班】", "2025-09-12"} {
		if !strings.Contains(report, want) {
			t.Errorf("Report missing %q:\n%s", want, report)
		}
	}
}
