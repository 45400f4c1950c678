package solver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paiban/callrota/pkg/engine/pbsat"
	apperrors "github.com/paiban/callrota/pkg/errors"
	"github.com/paiban/callrota/pkg/model"
	"github.com/paiban/callrota/pkg/validator"
)

const testBudget = 10 * time.Second

func newTestSolver() *Solver {
	return New(pbsat.New(), WithTimeLimit(testBudget))
}

func juniorConfig(names ...string) *model.SchedulingConfig {
	cfg := model.DefaultSchedulingConfig()
	cfg.StartDate = "2024-05-06" // 周一
	for _, n := range names {
		cfg.Residents = append(cfg.Residents, model.ResidentConfig{Name: n, OnHighAcuity: true})
	}
	return &cfg
}

func seniorConfig(horizon int, names ...string) *model.SchedulingConfig {
	cfg := model.DefaultSchedulingConfig()
	cfg.StartDate = "2024-05-06"
	cfg.Horizon = horizon
	cfg.Classification = model.ClassificationSenior
	for _, n := range names {
		cfg.Residents = append(cfg.Residents, model.ResidentConfig{Name: n})
	}
	return &cfg
}

func mustRoster(t *testing.T, result *Result) *model.Roster {
	t.Helper()
	roster, err := result.Roster()
	if err != nil {
		t.Fatalf("Expected usable roster, status %s: %v", result.Status, err)
	}
	return roster
}

// solveWithinBudget 在测试预算内求解；预算内未找到任何解时跳过，
// 找到解（最优或可行）时返回值班表供断言
func solveWithinBudget(t *testing.T, cfg *model.SchedulingConfig) (*Result, *model.Roster) {
	t.Helper()
	start := time.Now()
	result, err := newTestSolver().Solve(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*testBudget {
		t.Errorf("Solve took %v, budget %v", elapsed, testBudget)
	}
	switch result.Status {
	case model.StatusOptimal, model.StatusFeasible:
	case model.StatusUnknown:
		t.Skipf("No solution within %v", testBudget)
	default:
		t.Fatalf("Expected OPTIMAL or FEASIBLE, got %s", result.Status)
	}
	return result, mustRoster(t, result)
}

func TestSolve_JuniorSixResidents(t *testing.T) {
	cfg := juniorConfig("A", "B", "C", "D", "E", "F")
	cfg.Residents[0].Claims = []model.Claim{{Day: 11, Shift: "night"}}

	result, roster := solveWithinBudget(t, cfg)

	if holder, ok := roster.Holder(11, "night"); !ok || holder != "A" {
		t.Errorf("Day 11 night should be held by A, got %q", holder)
	}

	// 覆盖：每天每班恰好一人
	for d := 0; d < cfg.Horizon; d++ {
		for s := range cfg.Shifts {
			count := 0
			for i := range roster.Residents {
				if roster.Residents[i].Works(d, s) {
					count++
				}
			}
			if count != 1 {
				t.Errorf("Day %d shift %d has %d holders", d, s, count)
			}
		}
	}

	for _, rr := range roster.Residents {
		if rr.ShiftCounts["night"] < 3 || rr.ShiftCounts["night"] > 5 {
			t.Errorf("%s has %d nights, want within [3, 5]", rr.Name, rr.ShiftCounts["night"])
		}
		if rr.WeekendFirstShifts > 2 {
			t.Errorf("%s has %d weekend day shifts, want at most 2", rr.Name, rr.WeekendFirstShifts)
		}
	}

	if len(result.Conflicts) != 0 {
		t.Errorf("Unexpected audit conflicts: %+v", result.Conflicts)
	}
	if result.Degraded != (result.Status == model.StatusFeasible) {
		t.Errorf("Degraded flag inconsistent with status %s", result.Status)
	}
	if roster.Objective != roster.Penalties.Total {
		t.Errorf("Objective %d should equal penalty total %d", roster.Objective, roster.Penalties.Total)
	}
}

func TestSolve_SingleResidentFullyAway(t *testing.T) {
	cfg := seniorConfig(14, "Away")
	for d := 0; d < 14; d++ {
		cfg.Residents[0].VacationDays = append(cfg.Residents[0].VacationDays, d)
	}

	result, err := newTestSolver().Solve(context.Background(), cfg)
	if err == nil {
		t.Fatalf("Expected configuration error, got status %s", result.Status)
	}
	if !apperrors.Is(err, apperrors.CodeConfiguration) {
		t.Errorf("Expected CONFIGURATION_ERROR, got %v", err)
	}
}

func TestSolve_FullyAwayResidentExcluded(t *testing.T) {
	cfg := seniorConfig(14, "A", "B", "C", "D", "Away")
	for d := 0; d < 14; d++ {
		cfg.Residents[4].VacationDays = append(cfg.Residents[4].VacationDays, d)
	}

	result, err := newTestSolver().Solve(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	roster := mustRoster(t, result)

	if away := roster.Resident("Away"); away == nil || away.Total != 0 {
		t.Errorf("Resident on vacation for the whole horizon must not be assigned: %+v", away)
	}
}

func TestSolve_DispersionPenalty(t *testing.T) {
	cfg := seniorConfig(14, "A", "B", "C", "D")
	cfg.MaxShiftsPerWeek = 1
	cfg.Residents[0].Claims = []model.Claim{
		{Day: 0, Shift: "day"},
		{Day: 0, Shift: "night"},
		{Day: 3, Shift: "night"},
	}

	result, roster := solveWithinBudget(t, cfg)
	if validator.HasErrors(result.Conflicts) {
		t.Errorf("Unexpected audit conflicts: %+v", result.Conflicts)
	}
	for _, c := range cfg.Residents[0].Claims {
		if holder, ok := roster.Holder(c.Day, c.Shift); !ok || holder != "A" {
			t.Errorf("Claim day %d %s should be held by A, got %q", c.Day, c.Shift, holder)
		}
	}

	a := roster.Resident("A")
	weekTotal := 0
	for d := 0; d < 7; d++ {
		for s := range cfg.Shifts {
			if a.Works(d, s) {
				weekTotal++
			}
		}
	}
	if weekTotal < 3 {
		t.Fatalf("Claims should give A at least 3 shifts in week 0, got %d", weekTotal)
	}
	want := int64(2 * cfg.DispersionFactor * (weekTotal - cfg.MaxShiftsPerWeek))
	if got := roster.Penalties.ByKind["dispersion"]; got < want {
		t.Errorf("Dispersion penalty = %d, want at least %d", got, want)
	}
}

func TestSolve_ClaimOnVacationIsInfeasible(t *testing.T) {
	cfg := seniorConfig(14, "A", "B", "C", "D")
	cfg.Residents[0].VacationDays = []int{5}
	cfg.Residents[0].Claims = []model.Claim{{Day: 5, Shift: "night"}}

	result, err := newTestSolver().Solve(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Infeasibility must be reported as a status, got error %v", err)
	}
	if result.Status != model.StatusInfeasible {
		t.Fatalf("Expected INFEASIBLE, got %s", result.Status)
	}
	if _, err := result.Roster(); !apperrors.Is(err, apperrors.CodeNoFeasibleSolution) {
		t.Errorf("Roster() on infeasible result should fail with NO_FEASIBLE_SOLUTION, got %v", err)
	}
}

func TestSolve_JuniorWithoutHighAcuity(t *testing.T) {
	cfg := juniorConfig()
	cfg.Residents = []model.ResidentConfig{{Name: "A"}, {Name: "B"}}

	if _, err := newTestSolver().Solve(context.Background(), cfg); !apperrors.Is(err, apperrors.CodeConfiguration) {
		t.Errorf("Expected CONFIGURATION_ERROR, got %v", err)
	}
}

func TestSolve_UnknownClaimShift(t *testing.T) {
	cfg := seniorConfig(14, "A", "B")
	cfg.Residents[0].Claims = []model.Claim{{Day: 2, Shift: "evening"}}

	if _, err := newTestSolver().Solve(context.Background(), cfg); !apperrors.Is(err, apperrors.CodeConfiguration) {
		t.Errorf("Expected CONFIGURATION_ERROR, got %v", err)
	}
}

func TestSolve_TinyBudgetReturnsPromptly(t *testing.T) {
	budget := 50 * time.Millisecond
	cfg := juniorConfig("A", "B", "C", "D", "E", "F")

	start := time.Now()
	result, err := New(pbsat.New(), WithTimeLimit(budget)).Solve(context.Background(), cfg)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	// 编译与解码不计入引擎预算，留出固定余量
	if limit := 2*budget + 500*time.Millisecond; elapsed > limit {
		t.Errorf("Solve took %v, want within %v", elapsed, limit)
	}
	switch result.Status {
	case model.StatusOptimal, model.StatusFeasible:
		mustRoster(t, result)
	case model.StatusUnknown:
		if _, err := result.Roster(); !apperrors.Is(err, apperrors.CodeTimeout) {
			t.Errorf("Expected TIMEOUT, got %v", err)
		}
	default:
		t.Errorf("Unexpected status %s", result.Status)
	}
}

func TestSolve_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	result, err := newTestSolver().Solve(ctx, juniorConfig("A", "B", "C", "D", "E", "F"))
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > testBudget/2 {
		t.Errorf("Cancelled solve took %v", elapsed)
	}
	if result.Status == model.StatusInfeasible {
		t.Errorf("Cancellation must not be reported as INFEASIBLE")
	}
}

func TestNewAuditor_InvalidHalfDay(t *testing.T) {
	cfg := seniorConfig(7, "A", "B")
	reg, fair, err := Prepare(cfg)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	cfg.HalfDayWeekday = "someday"

	_, err = NewAuditor(cfg, reg, fair)
	if !apperrors.Is(err, apperrors.CodeConfiguration) {
		t.Fatalf("Expected CONFIGURATION_ERROR, got %v", err)
	}
	if errors.Unwrap(err) == nil {
		t.Errorf("Underlying weekday error should be kept as cause")
	}
}

func TestResult_RosterOnTimeout(t *testing.T) {
	r := &Result{Status: model.StatusUnknown}
	if _, err := r.Roster(); !apperrors.Is(err, apperrors.CodeTimeout) {
		t.Errorf("Expected TIMEOUT, got %v", err)
	}
}

type recordingObserver struct {
	results []*Result
}

func (o *recordingObserver) ObserveSolve(r *Result) {
	o.results = append(o.results, r)
}

func TestSolve_NotifiesObserver(t *testing.T) {
	obs := &recordingObserver{}
	s := New(pbsat.New(), WithTimeLimit(testBudget), WithObserver(obs))

	cfg := seniorConfig(7, "A", "B", "C", "D")
	result, err := s.Solve(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if len(obs.results) != 1 || obs.results[0] != result {
		t.Errorf("Observer should receive the result exactly once")
	}
	if validator.HasErrors(result.Conflicts) {
		t.Errorf("Unexpected audit conflicts: %+v", result.Conflicts)
	}
}
