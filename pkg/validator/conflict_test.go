package validator

import (
	"testing"
	"time"

	"github.com/paiban/callrota/pkg/calendar"
	"github.com/paiban/callrota/pkg/fairness"
	"github.com/paiban/callrota/pkg/model"
	"github.com/paiban/callrota/pkg/registry"
)

// baseHolders 高年资的合法一周（周一开始）：[天] = {白班, 夜班}
func baseHolders() [][]string {
	return [][]string{
		{"A", "B"},
		{"C", "D"},
		{"A", "B"},
		{"C", "D"},
		{"A", "B"},
		{"B", "B"}, // 周五夜班配对周六
		{"C", "D"},
	}
}

func testConfig(classification model.Classification) *model.SchedulingConfig {
	cfg := model.DefaultSchedulingConfig()
	cfg.StartDate = "2024-05-06"
	cfg.Horizon = 7
	cfg.Classification = classification
	for _, n := range []string{"A", "B", "C", "D"} {
		cfg.Residents = append(cfg.Residents, model.ResidentConfig{Name: n, OnHighAcuity: true})
	}
	return &cfg
}

func newRegistry(t *testing.T, cfg *model.SchedulingConfig) *registry.Registry {
	t.Helper()
	cal, err := calendar.New(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), cfg.Horizon, cfg.Holidays)
	if err != nil {
		t.Fatalf("calendar.New failed: %v", err)
	}
	reg, err := registry.New(cfg, cal)
	if err != nil {
		t.Fatalf("registry.New failed: %v", err)
	}
	return reg
}

func buildRoster(reg *registry.Registry, holders [][]string) *model.Roster {
	roster := &model.Roster{
		Status: model.StatusOptimal,
		Shifts: reg.Shifts(),
	}
	for _, r := range reg.Residents() {
		rr := model.ResidentRoster{
			Name:        r.Name(),
			ShiftCounts: make(map[string]int),
			Assigned:    make([][]bool, len(holders)),
		}
		for d, day := range holders {
			rr.Assigned[d] = make([]bool, len(day))
			for s, h := range day {
				if h == r.Name() {
					rr.Assigned[d][s] = true
					rr.ShiftCounts[reg.Shifts()[s]]++
					rr.Total++
				}
			}
		}
		roster.Residents = append(roster.Residents, rr)
	}
	return roster
}

func hasConflict(conflicts []Conflict, typ ConflictType, resident string) bool {
	for _, c := range conflicts {
		if c.Type == typ && (resident == "" || c.Resident == resident) {
			return true
		}
	}
	return false
}

func TestRosterAuditor_CleanRoster(t *testing.T) {
	cfg := testConfig(model.ClassificationSenior)
	reg := newRegistry(t, cfg)
	config, err := AuditConfigFor(cfg, nil)
	if err != nil {
		t.Fatalf("AuditConfigFor failed: %v", err)
	}

	conflicts := NewRosterAuditor(reg, config).DetectAll(buildRoster(reg, baseHolders()))

	if len(conflicts) != 0 {
		t.Errorf("Expected 0 conflicts, got %d", len(conflicts))
		for _, c := range conflicts {
			t.Logf("Conflict: %s %s", c.Type, c.Message)
		}
	}
}

func TestRosterAuditor_DetectHardViolations(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(cfg *model.SchedulingConfig, holders [][]string)
		want     ConflictType
		resident string
	}{
		{
			name: "休假日被排班",
			setup: func(cfg *model.SchedulingConfig, _ [][]string) {
				cfg.Residents[0].VacationDays = []int{0}
			},
			want:     ConflictVacation,
			resident: "A",
		},
		{
			name: "班次无人",
			setup: func(_ *model.SchedulingConfig, h [][]string) {
				h[3][1] = ""
			},
			want: ConflictCoverage,
		},
		{
			name: "夜班后一天值班",
			setup: func(_ *model.SchedulingConfig, h [][]string) {
				h[1][0] = "B"
			},
			want:     ConflictPostCall,
			resident: "B",
		},
		{
			name: "周五夜班未配对周六",
			setup: func(_ *model.SchedulingConfig, h [][]string) {
				h[5][1] = "A"
			},
			want:     ConflictImplication,
			resident: "B",
		},
		{
			name: "认领未兑现",
			setup: func(cfg *model.SchedulingConfig, _ [][]string) {
				cfg.Residents[0].Claims = []model.Claim{{Day: 1, Shift: "day"}}
			},
			want:     ConflictClaim,
			resident: "A",
		},
		{
			name: "无需排班日被排班",
			setup: func(cfg *model.SchedulingConfig, _ [][]string) {
				cfg.NoFill = []int{6}
			},
			want:     ConflictNoFill,
			resident: "C",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(model.ClassificationSenior)
			holders := baseHolders()
			tt.setup(cfg, holders)

			reg := newRegistry(t, cfg)
			config, err := AuditConfigFor(cfg, nil)
			if err != nil {
				t.Fatalf("AuditConfigFor failed: %v", err)
			}
			conflicts := NewRosterAuditor(reg, config).DetectAll(buildRoster(reg, holders))

			if !hasConflict(conflicts, tt.want, tt.resident) {
				t.Errorf("Expected %s conflict for %q, got %+v", tt.want, tt.resident, conflicts)
			}
			if !HasErrors(conflicts) {
				t.Error("HasErrors should report the violation")
			}
		})
	}
}

func TestRosterAuditor_JuniorEligibility(t *testing.T) {
	cfg := testConfig(model.ClassificationJunior)
	cfg.Residents[0].OnHighAcuity = false
	cfg.Residents[2].OnFixedCommitment = true
	reg := newRegistry(t, cfg)
	config, err := AuditConfigFor(cfg, nil)
	if err != nil {
		t.Fatalf("AuditConfigFor failed: %v", err)
	}

	conflicts := NewRosterAuditor(reg, config).DetectAll(buildRoster(reg, baseHolders()))

	// A 不在高强度轮转却值周一白班
	if !hasConflict(conflicts, ConflictDayCall, "A") {
		t.Error("Expected day_call conflict for A")
	}
	// 周三为教学半天；C 当天不值班
	if hasConflict(conflicts, ConflictHalfDay, "C") {
		t.Error("C does not work Wednesday, no half_day conflict expected")
	}
	// 低年资周五夜班配对周日
	if !hasConflict(conflicts, ConflictImplication, "B") {
		t.Error("Expected implication conflict: junior Friday night pairs with Sunday")
	}
	// 低年资不豁免周五下夜班
	if !hasConflict(conflicts, ConflictPostCall, "B") {
		t.Error("Expected post_call conflict after Friday night for junior")
	}
}

func TestRosterAuditor_HalfDay(t *testing.T) {
	cfg := testConfig(model.ClassificationJunior)
	cfg.Residents[0].OnFixedCommitment = true
	reg := newRegistry(t, cfg)
	config, err := AuditConfigFor(cfg, nil)
	if err != nil {
		t.Fatalf("AuditConfigFor failed: %v", err)
	}

	conflicts := NewRosterAuditor(reg, config).DetectAll(buildRoster(reg, baseHolders()))
	if !hasConflict(conflicts, ConflictHalfDay, "A") {
		t.Error("Expected half_day conflict for A on Wednesday")
	}
}

func TestRosterAuditor_Bounds(t *testing.T) {
	cfg := testConfig(model.ClassificationSenior)
	reg := newRegistry(t, cfg)
	fair, err := fairness.New(reg, cfg.HighAcuityMultiplier)
	if err != nil {
		t.Fatalf("fairness.New failed: %v", err)
	}
	config, err := AuditConfigFor(cfg, fair)
	if err != nil {
		t.Fatalf("AuditConfigFor failed: %v", err)
	}

	conflicts := NewRosterAuditor(reg, config).DetectAll(buildRoster(reg, baseHolders()))

	// 期望夜班 1.75，区间 [0, 2]；B 值了 4 个夜班
	if !hasConflict(conflicts, ConflictBounds, "B") {
		t.Error("Expected bounds conflict for B")
	}
	if hasConflict(conflicts, ConflictBounds, "A") {
		t.Error("A has no nights and should stay within bounds")
	}
}

func TestRosterAuditor_MissingResident(t *testing.T) {
	cfg := testConfig(model.ClassificationSenior)
	reg := newRegistry(t, cfg)
	roster := buildRoster(reg, baseHolders())
	roster.Residents = roster.Residents[:3]

	conflicts := NewRosterAuditor(reg, nil).DetectAll(roster)
	if !hasConflict(conflicts, ConflictCoverage, "D") {
		t.Error("Expected a conflict for the resident missing from the roster")
	}
}

func TestHasErrors(t *testing.T) {
	if HasErrors(nil) {
		t.Error("No conflicts should mean no errors")
	}
	if HasErrors([]Conflict{{Severity: "warning"}}) {
		t.Error("Warnings alone are not errors")
	}
	if !HasErrors([]Conflict{{Severity: "warning"}, {Severity: "error"}}) {
		t.Error("Expected error to be detected")
	}
}
