package stats

import (
	"math"
	"testing"

	"github.com/paiban/callrota/pkg/model"
)

// testRoster 按 [天] = {白班, 夜班} 构造值班表
func testRoster(names []string, expected float64, holders [][]string) *model.Roster {
	roster := &model.Roster{
		Status: model.StatusOptimal,
		Shifts: []string{"day", "night"},
	}
	for d, day := range holders {
		roster.Days = append(roster.Days, model.DaySlots{Day: d, Date: "2024-05-06", Holders: day})
	}
	for _, n := range names {
		rr := model.ResidentRoster{
			Name:          n,
			ShiftCounts:   map[string]int{},
			ExpectedTotal: expected,
			Assigned:      make([][]bool, len(holders)),
		}
		for d, day := range holders {
			rr.Assigned[d] = make([]bool, 2)
			for s, h := range day {
				if h == n {
					rr.Assigned[d][s] = true
					rr.ShiftCounts[roster.Shifts[s]]++
					rr.Total++
				}
			}
		}
		roster.Residents = append(roster.Residents, rr)
	}
	return roster
}

func TestFairnessAnalyzer_Analyze(t *testing.T) {
	analyzer := NewFairnessAnalyzer()

	tests := []struct {
		name     string
		holders  [][]string
		wantGini float64
	}{
		{
			name:     "完全均衡",
			holders:  [][]string{{"A", "B"}, {"B", "A"}},
			wantGini: 0,
		},
		{
			name:     "全部给一人",
			holders:  [][]string{{"A", "A"}, {"A", "A"}},
			wantGini: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := analyzer.Analyze(testRoster([]string{"A", "B"}, 1, tt.holders))
			if math.Abs(metrics.TotalGini-tt.wantGini) > 1e-9 {
				t.Errorf("TotalGini = %f, want %f", metrics.TotalGini, tt.wantGini)
			}
			if metrics.OverallFairnessScore < 0 || metrics.OverallFairnessScore > 100 {
				t.Errorf("Score out of range: %f", metrics.OverallFairnessScore)
			}
			if len(metrics.ResidentStats) != 2 {
				t.Errorf("Expected 2 resident stats, got %d", len(metrics.ResidentStats))
			}
		})
	}
}

func TestFairnessAnalyzer_Deviation(t *testing.T) {
	metrics := NewFairnessAnalyzer().Analyze(testRoster([]string{"A", "B"}, 2, [][]string{
		{"A", "A"}, {"B", "A"}, {"B", "A"},
	}))

	for _, s := range metrics.ResidentStats {
		switch s.Name {
		case "A":
			// 3 个夜班，期望 2
			if math.Abs(s.Deviation-50) > 1e-9 {
				t.Errorf("A deviation = %f, want 50", s.Deviation)
			}
		case "B":
			if math.Abs(s.Deviation+100) > 1e-9 {
				t.Errorf("B deviation = %f, want -100", s.Deviation)
			}
		}
	}
	if metrics.ShiftDistribution["night"] != 50 {
		t.Errorf("night share = %f, want 50", metrics.ShiftDistribution["night"])
	}
}

func TestFairnessAnalyzer_Empty(t *testing.T) {
	metrics := NewFairnessAnalyzer().Analyze(nil)
	if metrics.OverallFairnessScore != 100 {
		t.Errorf("Empty roster should score 100, got %f", metrics.OverallFairnessScore)
	}
}

func TestFairnessAnalyzer_CompareRosters(t *testing.T) {
	analyzer := NewFairnessAnalyzer()
	fair := testRoster([]string{"A", "B"}, 1, [][]string{{"A", "B"}, {"B", "A"}})
	skewed := testRoster([]string{"A", "B"}, 1, [][]string{{"A", "A"}, {"A", "A"}})

	diff := analyzer.CompareRosters(fair, skewed)
	if diff["total_gini_diff"] <= 0 {
		t.Errorf("Skewed roster should have higher Gini, diff %f", diff["total_gini_diff"])
	}
	if diff["overall_score_diff"] >= 0 {
		t.Errorf("Skewed roster should score lower, diff %f", diff["overall_score_diff"])
	}
}

func TestCalculateGini(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"空", nil, 0},
		{"全零", []float64{0, 0, 0}, 0},
		{"相等", []float64{3, 3, 3}, 0},
		{"一人独占", []float64{0, 0, 0, 4}, 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calculateGini(tt.values); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("calculateGini() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestCoverageAnalyzer_Analyze(t *testing.T) {
	roster := testRoster([]string{"A", "B"}, 1, [][]string{
		{"A", "B"},
		{"", "A"},
		{"", ""},
	})
	roster.Days[2].NoFill = true
	// 第 1 天白班两人
	roster.Residents[0].Assigned[1][0] = true
	roster.Residents[1].Assigned[1][0] = true

	metrics := NewCoverageAnalyzer().Analyze(roster)

	if metrics.TotalSlots != 4 {
		t.Errorf("TotalSlots = %d, want 4", metrics.TotalSlots)
	}
	if metrics.FilledSlots != 3 {
		t.Errorf("FilledSlots = %d, want 3", metrics.FilledSlots)
	}
	if metrics.NoFillDays != 1 {
		t.Errorf("NoFillDays = %d, want 1", metrics.NoFillDays)
	}
	if len(metrics.Uncovered) != 1 || metrics.Uncovered[0].Holders != 2 {
		t.Errorf("Expected one double-booked slot, got %+v", metrics.Uncovered)
	}
	if metrics.ShiftCoverage["night"] != 100 {
		t.Errorf("night coverage = %f, want 100", metrics.ShiftCoverage["night"])
	}
	if len(metrics.WeeklyLoad) != 1 || metrics.WeeklyLoad[0].PerResident["A"] != 3 {
		t.Errorf("Unexpected weekly load: %+v", metrics.WeeklyLoad)
	}
}
