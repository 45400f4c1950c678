package decoder_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/paiban/callrota/pkg/engine"
	"github.com/paiban/callrota/pkg/engine/pbsat"
	apperrors "github.com/paiban/callrota/pkg/errors"
	"github.com/paiban/callrota/pkg/model"
	"github.com/paiban/callrota/pkg/scheduler/constraint"
	"github.com/paiban/callrota/pkg/scheduler/decoder"
	"github.com/paiban/callrota/pkg/scheduler/solver"
)

func compileSenior(t *testing.T) *constraint.Builder {
	t.Helper()
	cfg := model.DefaultSchedulingConfig()
	cfg.StartDate = "2024-05-06"
	cfg.Horizon = 7
	cfg.Classification = model.ClassificationSenior
	cfg.NoFill = []int{2}
	cfg.Holidays = []int{3}
	for _, n := range []string{"A", "B", "C", "D"} {
		cfg.Residents = append(cfg.Residents, model.ResidentConfig{Name: n})
	}

	reg, fair, err := solver.Prepare(&cfg)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	b, err := solver.Compile(&cfg, reg, fair)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return b
}

func TestDecode_Idempotent(t *testing.T) {
	b := compileSenior(t)
	resp, err := pbsat.New().Solve(context.Background(), b.Model(), engine.Params{TimeLimit: 20 * time.Second})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if !resp.HasSolution() {
		t.Fatalf("Expected a solution, got %s", resp.Status)
	}

	first, err := decoder.Decode(b, resp)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	second, err := decoder.Decode(b, resp)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("Decoding the same response twice should give the same roster")
	}

	day := first.Days[2]
	if !day.NoFill {
		t.Error("Day 2 should be marked as no-fill")
	}
	for _, h := range day.Holders {
		if h != "" {
			t.Errorf("No-fill day should have no holders, got %q", h)
		}
	}
	if !first.Days[3].WeekendOrHoliday {
		t.Error("Holiday should be reported as weekend/holiday")
	}

	total := 0
	for _, rr := range first.Residents {
		total += rr.Total
	}
	// 6 个需排班日 × 2 个班次
	if total != 12 {
		t.Errorf("Expected 12 assigned shifts, got %d", total)
	}
}

func TestDecode_RejectsUnusableStatus(t *testing.T) {
	b := compileSenior(t)

	tests := []struct {
		status engine.Status
		code   apperrors.Code
	}{
		{engine.StatusInfeasible, apperrors.CodeNoFeasibleSolution},
		{engine.StatusUnknown, apperrors.CodeTimeout},
		{engine.StatusModelInvalid, apperrors.CodeModelInvalid},
	}
	for _, tt := range tests {
		resp := engine.NewResponse("test", tt.status, nil, 0, 0)
		roster, err := decoder.Decode(b, resp)
		if roster != nil {
			t.Errorf("%s: expected no roster", tt.status)
		}
		if !apperrors.Is(err, tt.code) {
			t.Errorf("%s: expected %s, got %v", tt.status, tt.code, err)
		}
	}
}
