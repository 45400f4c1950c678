package stats

import (
	"github.com/paiban/callrota/pkg/model"
)

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	TotalSlots      int     `json:"total_slots"`      // 需排班的 (天, 班次) 数
	FilledSlots     int     `json:"filled_slots"`     // 恰好一人值班的数量
	OverallCoverage float64 `json:"overall_coverage"` // 整体覆盖率 (%)
	NoFillDays      int     `json:"nofill_days"`

	DailyCoverage []DayCoverage      `json:"daily_coverage"`
	ShiftCoverage map[string]float64 `json:"shift_coverage"` // 按班次覆盖率 (%)
	Uncovered     []UncoveredSlot    `json:"uncovered"`
	WeeklyLoad    []WeekLoad         `json:"weekly_load"`
}

// DayCoverage 每日覆盖情况
type DayCoverage struct {
	Day          int     `json:"day"`
	Date         string  `json:"date"`
	Required     int     `json:"required"`
	Filled       int     `json:"filled"`
	CoverageRate float64 `json:"coverage_rate"`
	StaffCount   int     `json:"staff_count"` // 当天值班的不同人数
}

// UncoveredSlot 无人或多人的班次
type UncoveredSlot struct {
	Day     int    `json:"day"`
	Date    string `json:"date"`
	Shift   string `json:"shift"`
	Holders int    `json:"holders"`
}

// WeekLoad 每周（按 7 天分组）每人班次数
type WeekLoad struct {
	Week        int            `json:"week"`
	StartDate   string         `json:"start_date"`
	Shifts      int            `json:"shifts"`
	PerResident map[string]int `json:"per_resident"`
	// Peak 单人最多的班次数
	Peak int `json:"peak"`
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct{}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer() *CoverageAnalyzer {
	return &CoverageAnalyzer{}
}

// Analyze 分析覆盖率
func (c *CoverageAnalyzer) Analyze(roster *model.Roster) *CoverageMetrics {
	metrics := &CoverageMetrics{
		ShiftCoverage: make(map[string]float64),
	}
	if roster == nil || len(roster.Days) == 0 {
		metrics.OverallCoverage = 100
		return metrics
	}

	shiftRequired := make(map[string]int)
	shiftFilled := make(map[string]int)

	for _, day := range roster.Days {
		if day.NoFill {
			metrics.NoFillDays++
			continue
		}
		dc := DayCoverage{Day: day.Day, Date: day.Date, Required: len(roster.Shifts)}
		staff := make(map[string]bool)

		for s, label := range roster.Shifts {
			holders := 0
			for i := range roster.Residents {
				if roster.Residents[i].Works(day.Day, s) {
					holders++
					staff[roster.Residents[i].Name] = true
				}
			}
			shiftRequired[label]++
			if holders == 1 {
				dc.Filled++
				shiftFilled[label]++
			} else {
				metrics.Uncovered = append(metrics.Uncovered, UncoveredSlot{
					Day:     day.Day,
					Date:    day.Date,
					Shift:   label,
					Holders: holders,
				})
			}
		}

		dc.StaffCount = len(staff)
		dc.CoverageRate = float64(dc.Filled) / float64(dc.Required) * 100
		metrics.TotalSlots += dc.Required
		metrics.FilledSlots += dc.Filled
		metrics.DailyCoverage = append(metrics.DailyCoverage, dc)
	}

	if metrics.TotalSlots > 0 {
		metrics.OverallCoverage = float64(metrics.FilledSlots) / float64(metrics.TotalSlots) * 100
	} else {
		metrics.OverallCoverage = 100
	}
	for label, required := range shiftRequired {
		metrics.ShiftCoverage[label] = float64(shiftFilled[label]) / float64(required) * 100
	}

	metrics.WeeklyLoad = weeklyLoad(roster)
	return metrics
}

func weeklyLoad(roster *model.Roster) []WeekLoad {
	var loads []WeekLoad
	for w, days := range roster.Weeks() {
		load := WeekLoad{
			Week:        w,
			StartDate:   days[0].Date,
			PerResident: make(map[string]int),
		}
		for _, rr := range roster.Residents {
			n := 0
			for _, day := range days {
				for s := range roster.Shifts {
					if rr.Works(day.Day, s) {
						n++
					}
				}
			}
			load.PerResident[rr.Name] = n
			load.Shifts += n
			if n > load.Peak {
				load.Peak = n
			}
		}
		loads = append(loads, load)
	}
	return loads
}
