package stats

import (
	"math"
	"testing"
)

func TestFairnessAnalyzer_Analyze(t *testing.T) {
	analyzer := NewFairnessAnalyzer()

	summaries := []StaffSummary{
		{StaffID: "S1", TargetHours: 160, Hours: 100, Deviation: -60, WorkDays: 13, WeekendShifts: 1},
		{StaffID: "S2", TargetHours: 160, Hours: 200, Deviation: 40, WorkDays: 25, WeekendShifts: 3, OnCallShifts: 2},
	}

	metrics := analyzer.Analyze(summaries)

	// (-1*100 + 1*200) / (2*300)
	if math.Abs(metrics.WorkloadGini-1.0/6) > 1e-9 {
		t.Errorf("Expected gini 0.1667, got %f", metrics.WorkloadGini)
	}
	if metrics.HoursRange != 100 || metrics.AvgHoursPerEmployee != 150 {
		t.Errorf("Unexpected range/avg: %.1f/%.1f", metrics.HoursRange, metrics.AvgHoursPerEmployee)
	}
	if metrics.MaxAbsDeviation != 60 || metrics.MeanAbsDeviation != 50 {
		t.Errorf("Unexpected deviations: %.1f/%.1f", metrics.MaxAbsDeviation, metrics.MeanAbsDeviation)
	}
	if metrics.OnCallGini != 0.5 {
		t.Errorf("Expected on-call gini 0.5, got %f", metrics.OnCallGini)
	}
	if metrics.OverallFairnessScore <= 0 || metrics.OverallFairnessScore >= 100 {
		t.Errorf("Score should be between 0 and 100, got %f", metrics.OverallFairnessScore)
	}
}

func TestFairnessAnalyzer_EmptyInput(t *testing.T) {
	metrics := NewFairnessAnalyzer().Analyze(nil)

	if metrics.OverallFairnessScore != 100 {
		t.Errorf("Empty input should score 100, got %f", metrics.OverallFairnessScore)
	}
}

func TestFairnessAnalyzer_PerfectFairness(t *testing.T) {
	summaries := []StaffSummary{
		{StaffID: "S1", TargetHours: 176, Hours: 176, WorkDays: 22, WeekendShifts: 2, OnCallShifts: 1},
		{StaffID: "S2", TargetHours: 176, Hours: 176, WorkDays: 22, WeekendShifts: 2, OnCallShifts: 1},
		// 整月请假，不参与比较
		{StaffID: "S3", LeaveDays: 30},
	}

	metrics := NewFairnessAnalyzer().Analyze(summaries)

	if metrics.WorkloadGini != 0 || metrics.WeekendShiftGini != 0 {
		t.Errorf("Expected zero gini, got %f/%f", metrics.WorkloadGini, metrics.WeekendShiftGini)
	}
	if metrics.OverallFairnessScore != 100 {
		t.Errorf("Expected perfect score, got %f", metrics.OverallFairnessScore)
	}
}

func TestFairnessAnalyzer_Compare(t *testing.T) {
	a := []StaffSummary{
		{StaffID: "S1", TargetHours: 160, Hours: 100, WorkDays: 13},
		{StaffID: "S2", TargetHours: 160, Hours: 200, WorkDays: 25},
	}
	b := []StaffSummary{
		{StaffID: "S1", TargetHours: 160, Hours: 150, WorkDays: 19},
		{StaffID: "S2", TargetHours: 160, Hours: 150, WorkDays: 19},
	}

	diff := NewFairnessAnalyzer().Compare(a, b)

	if diff["workload_gini_diff"] >= 0 {
		t.Errorf("Balanced schedule should lower gini, diff=%f", diff["workload_gini_diff"])
	}
	if diff["overall_score_diff"] <= 0 {
		t.Errorf("Balanced schedule should score higher, diff=%f", diff["overall_score_diff"])
	}
}
