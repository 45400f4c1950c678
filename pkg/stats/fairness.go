// Package stats 提供值班表统计分析功能
package stats

import (
	"math"
	"sort"

	"github.com/paiban/callrota/pkg/model"
)

// FairnessMetrics 公平性指标
type FairnessMetrics struct {
	// 总班次公平性
	TotalGini          float64 `json:"total_gini"` // 0=完全公平, 1=完全不公平
	TotalVariance      float64 `json:"total_variance"`
	TotalStdDev        float64 `json:"total_std_dev"`
	AvgShiftsPerPerson float64 `json:"avg_shifts_per_person"`
	MaxShifts          float64 `json:"max_shifts"`
	MinShifts          float64 `json:"min_shifts"`
	ShiftsRange        float64 `json:"shifts_range"`

	// 班次类型公平性
	ShiftDistribution map[string]float64 `json:"shift_distribution"` // 各班次占比 (%)
	NightGini         float64            `json:"night_gini"`         // 夜班（最后一个班次）
	WeekendGini       float64            `json:"weekend_gini"`       // 周末/节假日白班

	ResidentStats []ResidentStat `json:"resident_stats"`

	// 综合评分 (0-100)
	OverallFairnessScore float64 `json:"overall_fairness_score"`
}

// ResidentStat 住院医师统计
type ResidentStat struct {
	Name          string  `json:"name"`
	Total         int     `json:"total"`
	Nights        int     `json:"nights"`
	WeekendShifts int     `json:"weekend_shifts"`
	ExpectedNight float64 `json:"expected_nights"`
	// Deviation 夜班数与期望值的偏差百分比
	Deviation float64 `json:"deviation"`
}

// FairnessAnalyzer 公平性分析器
type FairnessAnalyzer struct{}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer() *FairnessAnalyzer {
	return &FairnessAnalyzer{}
}

// Analyze 分析值班表公平性；完全休假（无期望值）的住院医师不参与基尼系数
func (f *FairnessAnalyzer) Analyze(roster *model.Roster) *FairnessMetrics {
	if roster == nil || len(roster.Residents) == 0 || len(roster.Shifts) == 0 {
		return &FairnessMetrics{
			ShiftDistribution:    make(map[string]float64),
			OverallFairnessScore: 100,
		}
	}

	night := roster.Shifts[len(roster.Shifts)-1]
	residentStats := make([]ResidentStat, 0, len(roster.Residents))
	var totals, nights, weekends []float64

	for _, rr := range roster.Residents {
		stat := ResidentStat{
			Name:          rr.Name,
			Total:         rr.Total,
			Nights:        rr.ShiftCounts[night],
			WeekendShifts: rr.WeekendFirstShifts,
			ExpectedNight: rr.ExpectedTotal,
		}
		if rr.ExpectedTotal > 0 {
			stat.Deviation = (float64(stat.Nights) - rr.ExpectedTotal) / rr.ExpectedTotal * 100
			totals = append(totals, float64(rr.Total))
			nights = append(nights, float64(stat.Nights)/rr.ExpectedTotal)
			weekends = append(weekends, float64(rr.WeekendFirstShifts)/rr.ExpectedTotal)
		}
		residentStats = append(residentStats, stat)
	}

	sort.SliceStable(residentStats, func(i, j int) bool {
		return residentStats[i].Total > residentStats[j].Total
	})

	avg := calculateMean(totals)
	variance := calculateVariance(totals, avg)
	stdDev := math.Sqrt(variance)
	maxShifts, minShifts := calculateRange(totals)

	totalGini := calculateGini(totals)
	nightGini := calculateGini(nights)
	weekendGini := calculateGini(weekends)

	return &FairnessMetrics{
		TotalGini:            totalGini,
		TotalVariance:        variance,
		TotalStdDev:          stdDev,
		AvgShiftsPerPerson:   avg,
		MaxShifts:            maxShifts,
		MinShifts:            minShifts,
		ShiftsRange:          maxShifts - minShifts,
		ShiftDistribution:    shiftDistribution(roster),
		NightGini:            nightGini,
		WeekendGini:          weekendGini,
		ResidentStats:        residentStats,
		OverallFairnessScore: calculateOverallScore(totalGini, nightGini, weekendGini, stdDev, avg),
	}
}

// CompareRosters 比较两个值班表的公平性
func (f *FairnessAnalyzer) CompareRosters(a, b *model.Roster) map[string]float64 {
	m1 := f.Analyze(a)
	m2 := f.Analyze(b)

	return map[string]float64{
		"total_gini_diff":       m2.TotalGini - m1.TotalGini,
		"night_gini_diff":       m2.NightGini - m1.NightGini,
		"weekend_gini_diff":     m2.WeekendGini - m1.WeekendGini,
		"overall_score_diff":    m2.OverallFairnessScore - m1.OverallFairnessScore,
		"roster1_overall_score": m1.OverallFairnessScore,
		"roster2_overall_score": m2.OverallFairnessScore,
	}
}

func shiftDistribution(roster *model.Roster) map[string]float64 {
	counts := make(map[string]int)
	total := 0
	for _, rr := range roster.Residents {
		for label, n := range rr.ShiftCounts {
			counts[label] += n
			total += n
		}
	}

	dist := make(map[string]float64, len(roster.Shifts))
	for _, label := range roster.Shifts {
		if total > 0 {
			dist[label] = float64(counts[label]) / float64(total) * 100
		} else {
			dist[label] = 0
		}
	}
	return dist
}

func calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func calculateVariance(values []float64, mean float64) float64 {
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

func calculateRange(values []float64) (max, min float64) {
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

// calculateGini 基尼系数
func calculateGini(values []float64) float64 {
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

	gini := 0.0
	for i, v := range sorted {
		gini += (2*float64(i+1) - float64(n) - 1) * v
	}

	gini = gini / (float64(n) * sum)
	return math.Max(0, math.Min(1, gini))
}

// calculateOverallScore 综合公平性评分
func calculateOverallScore(totalGini, nightGini, weekendGini, stdDev, avg float64) float64 {
	const (
		totalWeight   = 0.3
		nightWeight   = 0.35
		weekendWeight = 0.25
		stdDevWeight  = 0.1
	)

	totalScore := (1 - totalGini) * 100
	nightScore := (1 - nightGini) * 100
	weekendScore := (1 - weekendGini) * 100

	// 变异系数越低分数越高
	cvScore := 100.0
	if avg > 0 {
		cv := stdDev / avg
		cvScore = math.Max(0, 100-cv*200)
	}

	score := totalWeight*totalScore +
		nightWeight*nightScore +
		weekendWeight*weekendScore +
		stdDevWeight*cvScore

	return math.Max(0, math.Min(100, score))
}
