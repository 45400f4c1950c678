package builtin

import (
	"context"
	"testing"
	"time"

	"github.com/paiban/callrota/pkg/calendar"
	"github.com/paiban/callrota/pkg/engine"
	"github.com/paiban/callrota/pkg/engine/pbsat"
	apperrors "github.com/paiban/callrota/pkg/errors"
	"github.com/paiban/callrota/pkg/fairness"
	"github.com/paiban/callrota/pkg/model"
	"github.com/paiban/callrota/pkg/registry"
	"github.com/paiban/callrota/pkg/scheduler/constraint"
)

// 2024-05-06 为周一，第 4 天为周五
func testConfig(horizon int, residents ...model.ResidentConfig) *model.SchedulingConfig {
	cfg := model.DefaultSchedulingConfig()
	cfg.StartDate = "2024-05-06"
	cfg.Horizon = horizon
	cfg.Residents = residents
	return &cfg
}

func newBuilder(t *testing.T, cfg *model.SchedulingConfig) *constraint.Builder {
	t.Helper()
	start, err := time.Parse("2006-01-02", cfg.StartDate)
	if err != nil {
		t.Fatalf("bad start date: %v", err)
	}
	cal, err := calendar.New(start, cfg.Horizon, cfg.Holidays)
	if err != nil {
		t.Fatalf("calendar.New failed: %v", err)
	}
	reg, err := registry.New(cfg, cal)
	if err != nil {
		t.Fatalf("registry.New failed: %v", err)
	}
	fair, err := fairness.New(reg, cfg.HighAcuityMultiplier)
	if err != nil {
		t.Fatalf("fairness.New failed: %v", err)
	}
	return constraint.NewBuilder(cfg, reg, fair)
}

func resident(t *testing.T, b *constraint.Builder, name string) *registry.Resident {
	t.Helper()
	r, ok := b.Registry().Lookup(name)
	if !ok {
		t.Fatalf("resident %s not found", name)
	}
	return r
}

func apply(t *testing.T, b *constraint.Builder, rule constraint.ResidentRule, r *registry.Resident) {
	t.Helper()
	if err := rule.Apply(b, r); err != nil {
		t.Fatalf("%s Apply failed: %v", rule.Name(), err)
	}
}

func solve(t *testing.T, b *constraint.Builder) *engine.Response {
	t.Helper()
	b.Penalties().Apply(b.Model())
	resp, err := pbsat.New().Solve(context.Background(), b.Model(), engine.Params{TimeLimit: 10 * time.Second})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if resp.HasSolution() {
		if err := b.Model().Check(resp.Values()); err != nil {
			t.Fatalf("engine returned an assignment that violates the model: %v", err)
		}
	}
	return resp
}

func TestPolicyFor(t *testing.T) {
	juniorOnly := []constraint.Type{
		constraint.TypeHalfDay,
		constraint.TypeDayCall,
		constraint.TypeFullDay,
		constraint.TypeTraumaBalance,
	}
	shared := []constraint.Type{
		constraint.TypeVacation,
		constraint.TypeNoFill,
		constraint.TypeClaims,
		constraint.TypeCoverage,
		constraint.TypePostCall,
		constraint.TypeFridayPairing,
		constraint.TypeRepeatedFriday,
		constraint.TypeDispersion,
		constraint.TypeTotalCount,
		constraint.TypeWeekendCount,
	}

	tests := []struct {
		name           string
		classification model.Classification
		wantJunior     bool
	}{
		{"低年资", model.ClassificationJunior, true},
		{"高年资", model.ClassificationSenior, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(7)
			cfg.Classification = tt.classification
			p, err := PolicyFor(cfg)
			if err != nil {
				t.Fatalf("PolicyFor failed: %v", err)
			}
			if p.Classification() != tt.classification {
				t.Errorf("Expected %s policy, got %s", tt.classification, p.Classification())
			}
			for _, typ := range shared {
				if p.Get(typ) == nil {
					t.Errorf("Missing rule %s", typ)
				}
			}
			for _, typ := range juniorOnly {
				if (p.Get(typ) != nil) != tt.wantJunior {
					t.Errorf("Rule %s present=%v, want %v", typ, p.Get(typ) != nil, tt.wantJunior)
				}
			}
		})
	}

	cfg := testConfig(7)
	cfg.Classification = model.Classification("attending")
	if _, err := PolicyFor(cfg); !apperrors.Is(err, apperrors.CodeConfiguration) {
		t.Errorf("Expected CONFIGURATION_ERROR for unknown classification, got %v", err)
	}
}

func TestImplicationRule_Gap(t *testing.T) {
	tests := []struct {
		name string
		from calendar.Weekday
		to   calendar.Weekday
		want int
	}{
		{"周五到周日", calendar.Friday, calendar.Sunday, 2},
		{"周五到周六", calendar.Friday, calendar.Saturday, 1},
		{"跨周回绕", calendar.Sunday, calendar.Friday, 5},
		{"同一天", calendar.Friday, calendar.Friday, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewImplicationRule(tt.from, tt.to).Gap(); got != tt.want {
				t.Errorf("Gap() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPostCallRule(t *testing.T) {
	friday := calendar.Friday

	tests := []struct {
		name     string
		ignore   *calendar.Weekday
		nightDay int
		wantSat  bool
	}{
		{"夜班次日不可值班", nil, 0, false},
		{"周五夜班次日不受限", &friday, 4, true},
		{"忽略周五不影响其他日", &friday, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBuilder(t, testConfig(7, model.ResidentConfig{Name: "A"}))
			a := resident(t, b, "A")
			apply(t, b, NewPostCallRule(tt.ignore), a)
			b.ForceShiftOn(a, tt.nightDay, b.Registry().LastShift(), "test_night")
			b.ForceShiftOn(a, tt.nightDay+1, b.Registry().FirstShift(), "test_next")

			resp := solve(t, b)
			if resp.HasSolution() != tt.wantSat {
				t.Errorf("status %s, want feasible=%v", resp.Status, tt.wantSat)
			}
		})
	}
}

func TestImplicationRule_FridayNightNeedsWholeSunday(t *testing.T) {
	b := newBuilder(t, testConfig(7, model.ResidentConfig{Name: "A"}))
	a := resident(t, b, "A")
	apply(t, b, NewImplicationRule(calendar.Friday, calendar.Sunday), a)
	b.ForceShiftOn(a, 4, b.Registry().LastShift(), "test_friday")

	resp := solve(t, b)
	if !resp.HasSolution() {
		t.Fatalf("Expected a solution, got %s", resp.Status)
	}
	for s := 0; s < b.Registry().NumShifts(); s++ {
		if !resp.BoolValue(b.Assign(a, 6, s)) {
			t.Errorf("Sunday shift %d should be worked after Friday night", s)
		}
	}

	b = newBuilder(t, testConfig(7, model.ResidentConfig{Name: "A"}))
	a = resident(t, b, "A")
	apply(t, b, NewImplicationRule(calendar.Friday, calendar.Sunday), a)
	b.ForceShiftOn(a, 4, b.Registry().LastShift(), "test_friday")
	b.ForceShiftOff(a, 6, b.Registry().FirstShift(), "test_sunday")
	if resp := solve(t, b); resp.Status != engine.StatusInfeasible {
		t.Errorf("Expected INFEASIBLE, got %s", resp.Status)
	}
}

func TestImplicationRule_SkipsTargetOutsideHorizon(t *testing.T) {
	// 周期只到周五，周日不存在
	b := newBuilder(t, testConfig(5, model.ResidentConfig{Name: "A"}))
	a := resident(t, b, "A")
	apply(t, b, NewImplicationRule(calendar.Friday, calendar.Sunday), a)
	b.ForceShiftOn(a, 4, b.Registry().LastShift(), "test_friday")

	if resp := solve(t, b); !resp.HasSolution() {
		t.Errorf("Expected a solution, got %s", resp.Status)
	}
}

func TestClaimsRule_ClaimOnVacationIsInfeasible(t *testing.T) {
	b := newBuilder(t, testConfig(7, model.ResidentConfig{
		Name:         "A",
		VacationDays: []int{3},
		Claims:       []model.Claim{{Day: 3, Shift: "night"}},
	}))
	a := resident(t, b, "A")
	apply(t, b, NewVacationRule(), a)
	apply(t, b, NewClaimsRule(), a)

	if resp := solve(t, b); resp.Status != engine.StatusInfeasible {
		t.Errorf("Expected INFEASIBLE, got %s", resp.Status)
	}
}

func TestDayCallRule(t *testing.T) {
	tests := []struct {
		name       string
		highAcuity bool
		day        int
		wantSat    bool
	}{
		{"非高强度工作日白班", false, 0, false},
		{"非高强度周末白班", false, 5, true},
		{"高强度工作日白班", true, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBuilder(t, testConfig(7,
				model.ResidentConfig{Name: "A", OnHighAcuity: tt.highAcuity},
				model.ResidentConfig{Name: "B", OnHighAcuity: true},
			))
			a := resident(t, b, "A")
			apply(t, b, NewDayCallRule(), a)
			b.ForceShiftOn(a, tt.day, b.Registry().FirstShift(), "test_day")

			if resp := solve(t, b); resp.HasSolution() != tt.wantSat {
				t.Errorf("status %s, want feasible=%v", resp.Status, tt.wantSat)
			}
		})
	}
}

func TestHalfDayRule(t *testing.T) {
	b := newBuilder(t, testConfig(7, model.ResidentConfig{Name: "A", OnFixedCommitment: true}))
	a := resident(t, b, "A")
	apply(t, b, NewHalfDayRule(calendar.Wednesday), a)
	b.ForceShiftOn(a, 2, b.Registry().LastShift(), "test_wednesday")

	if resp := solve(t, b); resp.Status != engine.StatusInfeasible {
		t.Errorf("Expected INFEASIBLE on the half day, got %s", resp.Status)
	}
}

func TestFullDayRule(t *testing.T) {
	b := newBuilder(t, testConfig(7, model.ResidentConfig{Name: "A"}))
	a := resident(t, b, "A")
	apply(t, b, NewFullDayRule(3), a)
	b.ForceShiftOn(a, 1, b.Registry().LastShift(), "test_night")
	b.ForceShiftOff(a, 1, b.Registry().FirstShift(), "test_day")

	resp := solve(t, b)
	if resp.Status != engine.StatusOptimal {
		t.Fatalf("Expected OPTIMAL, got %s", resp.Status)
	}
	if got := b.Penalties().Breakdown(resp).ByKind["full_day"]; got != 3 {
		t.Errorf("full_day penalty = %d, want 3", got)
	}
}

func TestFullDayRule_RequiresTwoShifts(t *testing.T) {
	cfg := testConfig(7, model.ResidentConfig{Name: "A"})
	cfg.Shifts = []string{"day", "evening", "night"}
	b := newBuilder(t, cfg)

	err := NewFullDayRule(2).Apply(b, resident(t, b, "A"))
	if !apperrors.Is(err, apperrors.CodeConfiguration) {
		t.Errorf("Expected CONFIGURATION_ERROR, got %v", err)
	}
}

func TestRepeatedFridayRule(t *testing.T) {
	b := newBuilder(t, testConfig(14, model.ResidentConfig{Name: "A"}))
	a := resident(t, b, "A")
	apply(t, b, NewRepeatedFridayRule(5), a)
	b.ForceShiftOn(a, 4, b.Registry().LastShift(), "test_friday1")
	b.ForceShiftOn(a, 11, b.Registry().LastShift(), "test_friday2")

	resp := solve(t, b)
	if resp.Status != engine.StatusOptimal {
		t.Fatalf("Expected OPTIMAL, got %s", resp.Status)
	}
	if got := b.Penalties().Breakdown(resp).ByKind["repeated_friday"]; got != 5 {
		t.Errorf("repeated_friday penalty = %d, want 5", got)
	}
}

func TestDispersionRule(t *testing.T) {
	b := newBuilder(t, testConfig(14, model.ResidentConfig{Name: "A"}))
	a := resident(t, b, "A")
	apply(t, b, NewDispersionRule(1, 1), a)
	b.ForceShiftOn(a, 0, 0, "test_a")
	b.ForceShiftOn(a, 0, 1, "test_b")
	b.ForceShiftOn(a, 3, 1, "test_c")
	b.ForceShiftOn(a, 9, 1, "test_d")

	resp := solve(t, b)
	if resp.Status != engine.StatusOptimal {
		t.Fatalf("Expected OPTIMAL, got %s", resp.Status)
	}
	// 第一周 3 班超出 2，第二周 1 班不超
	if got := b.Penalties().Breakdown(resp).ByKind["dispersion"]; got != 4 {
		t.Errorf("dispersion penalty = %d, want 4", got)
	}
}

func TestDispersionRule_IgnoresPartialWeek(t *testing.T) {
	b := newBuilder(t, testConfig(10, model.ResidentConfig{Name: "A"}))
	a := resident(t, b, "A")
	apply(t, b, NewDispersionRule(1, 1), a)
	b.ForceShiftOn(a, 7, 0, "test_a")
	b.ForceShiftOn(a, 7, 1, "test_b")
	b.ForceShiftOn(a, 9, 1, "test_c")

	resp := solve(t, b)
	if resp.Status != engine.StatusOptimal {
		t.Fatalf("Expected OPTIMAL, got %s", resp.Status)
	}
	// 第 7-9 天不足一周，不参与计罚
	if got := b.Penalties().Breakdown(resp).ByKind["dispersion"]; got != 0 {
		t.Errorf("dispersion penalty = %d, want 0", got)
	}
}

func TestCoverageRule(t *testing.T) {
	cfg := testConfig(7, model.ResidentConfig{Name: "A"}, model.ResidentConfig{Name: "B"})
	cfg.NoFill = []int{6}
	b := newBuilder(t, cfg)
	if err := NewCoverageRule().ApplyGlobal(b); err != nil {
		t.Fatalf("ApplyGlobal failed: %v", err)
	}
	apply(t, b, NewNoFillRule(), resident(t, b, "A"))
	apply(t, b, NewNoFillRule(), resident(t, b, "B"))

	resp := solve(t, b)
	if !resp.HasSolution() {
		t.Fatalf("Expected a solution, got %s", resp.Status)
	}
	for d := 0; d < 7; d++ {
		for s := 0; s < 2; s++ {
			holders := 0
			for i := 0; i < 2; i++ {
				if resp.BoolValue(b.AssignAt(i, d, s)) {
					holders++
				}
			}
			want := 1
			if d == 6 {
				want = 0
			}
			if holders != want {
				t.Errorf("day %d shift %d has %d holders, want %d", d, s, holders, want)
			}
		}
	}
}
