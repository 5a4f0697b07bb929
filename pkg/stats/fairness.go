package stats

import (
	"math"
	"sort"
)

// FairnessMetrics 公平性指标
type FairnessMetrics struct {
	// 工时公平性
	WorkloadGini        float64 `json:"workload_gini"`          // 工时基尼系数 (0=完全公平, 1=完全不公平)
	WorkloadVariance    float64 `json:"workload_variance"`      // 工时方差
	WorkloadStdDev      float64 `json:"workload_std_dev"`       // 工时标准差
	AvgHoursPerEmployee float64 `json:"avg_hours_per_employee"` // 人均工时
	MaxHours            float64 `json:"max_hours"`
	MinHours            float64 `json:"min_hours"`
	HoursRange          float64 `json:"hours_range"`

	// 目标偏差
	MaxAbsDeviation  float64 `json:"max_abs_deviation"`  // 最大月工时偏差绝对值
	MeanAbsDeviation float64 `json:"mean_abs_deviation"` // 平均月工时偏差绝对值

	// 班次类型公平性
	WeekendShiftGini float64 `json:"weekend_shift_gini"` // 周末/节假日班基尼系数
	OnCallGini       float64 `json:"on_call_gini"`       // 值班基尼系数

	// 综合评分
	OverallFairnessScore float64 `json:"overall_fairness_score"` // 0-100
}

// FairnessAnalyzer 公平性分析器
type FairnessAnalyzer struct{}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer() *FairnessAnalyzer {
	return &FairnessAnalyzer{}
}

// Analyze 分析员工合计的公平性
// 整月请假的员工不参与工时和班次分布的比较。
func (f *FairnessAnalyzer) Analyze(summaries []StaffSummary) *FairnessMetrics {
	var hours, deviations, weekend, onCall []float64
	for _, s := range summaries {
		if s.TargetHours == 0 && s.WorkDays == 0 {
			continue
		}
		hours = append(hours, s.Hours)
		deviations = append(deviations, math.Abs(s.Deviation))
		weekend = append(weekend, float64(s.WeekendShifts))
		onCall = append(onCall, float64(s.OnCallShifts))
	}
	if len(hours) == 0 {
		return &FairnessMetrics{OverallFairnessScore: 100}
	}

	avg := mean(hours)
	variance := varianceOf(hours, avg)
	stdDev := math.Sqrt(variance)
	maxH, minH := valueRange(hours)
	maxDev, _ := valueRange(deviations)

	m := &FairnessMetrics{
		WorkloadGini:        gini(hours),
		WorkloadVariance:    variance,
		WorkloadStdDev:      stdDev,
		AvgHoursPerEmployee: avg,
		MaxHours:            maxH,
		MinHours:            minH,
		HoursRange:          maxH - minH,
		MaxAbsDeviation:     maxDev,
		MeanAbsDeviation:    mean(deviations),
		WeekendShiftGini:    gini(weekend),
		OnCallGini:          gini(onCall),
	}
	m.OverallFairnessScore = overallScore(m.WorkloadGini, m.OnCallGini, m.WeekendShiftGini, stdDev, avg)
	return m
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func varianceOf(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

func valueRange(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// gini 计算基尼系数
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	g := 0.0
	for i, v := range sorted {
		g += (2*float64(i+1) - float64(n) - 1) * v
	}
	g = g / (float64(n) * sum)
	return math.Max(0, math.Min(1, g))
}

// overallScore 综合公平性评分
func overallScore(workloadGini, onCallGini, weekendGini, stdDev, avgHours float64) float64 {
	const (
		workloadWeight = 0.4
		onCallWeight   = 0.25
		weekendWeight  = 0.25
		stdDevWeight   = 0.1
	)

	workloadScore := (1 - workloadGini) * 100
	onCallScore := (1 - onCallGini) * 100
	weekendScore := (1 - weekendGini) * 100

	// 变异系数越低分数越高
	cvScore := 100.0
	if avgHours > 0 {
		cv := stdDev / avgHours
		cvScore = math.Max(0, 100-cv*200)
	}

	score := workloadWeight*workloadScore +
		onCallWeight*onCallScore +
		weekendWeight*weekendScore +
		stdDevWeight*cvScore

	return math.Max(0, math.Min(100, score))
}

// Compare 比较两组合计的公平性，差值为 b - a
func (f *FairnessAnalyzer) Compare(a, b []StaffSummary) map[string]float64 {
	ma := f.Analyze(a)
	mb := f.Analyze(b)

	return map[string]float64{
		"workload_gini_diff": mb.WorkloadGini - ma.WorkloadGini,
		"on_call_gini_diff":  mb.OnCallGini - ma.OnCallGini,
		"weekend_gini_diff":  mb.WeekendShiftGini - ma.WeekendShiftGini,
		"overall_score_diff": mb.OverallFairnessScore - ma.OverallFairnessScore,
		"a_overall_score":    ma.OverallFairnessScore,
		"b_overall_score":    mb.OverallFairnessScore,
	}
}
