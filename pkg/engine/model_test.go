package engine

import (
	"context"
	"testing"
	"time"
)

func TestLinearExpr_NegatedBool(t *testing.T) {
	m := NewModel()
	x := m.NewBoolVar("x")
	y := m.NewBoolVar("y")

	// 3·x + 2·¬y + 1
	e := NewLinearExpr().AddTerm(x, 3).AddTerm(y.Not(), 2).AddConstant(1)

	tests := []struct {
		values []int64
		want   int64
	}{
		{[]int64{0, 0}, 3},
		{[]int64{1, 0}, 6},
		{[]int64{0, 1}, 1},
		{[]int64{1, 1}, 4},
	}
	for _, tt := range tests {
		if got := e.Eval(tt.values); got != tt.want {
			t.Errorf("Eval(%v) = %d, want %d", tt.values, got, tt.want)
		}
	}
}

func TestModel_Check(t *testing.T) {
	m := NewModel()
	a := m.NewBoolVar("a")
	b := m.NewBoolVar("b")
	c := m.NewBoolVar("c")
	n := m.NewIntVar(0, 3, "n")

	m.AddExactlyOne(a, b)
	m.AddImplication(a, c)
	m.AddEquality(n, SumBools(a, b, c)).WithName("count")
	m.AddLinear(n, 2, 3).OnlyEnforceIf(c)

	if err := m.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	tests := []struct {
		name   string
		values []int64
		ok     bool
	}{
		{"a and c", []int64{1, 0, 1, 2}, true},
		{"b only", []int64{0, 1, 0, 1}, true},
		{"both a and b", []int64{1, 1, 0, 2}, false},
		{"implication broken", []int64{1, 0, 0, 1}, false},
		{"wrong count", []int64{0, 1, 0, 2}, false},
		{"out of domain", []int64{0, 1, 0, 4}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Check(tt.values)
			if (err == nil) != tt.ok {
				t.Errorf("Check(%v) error = %v, want ok=%v", tt.values, err, tt.ok)
			}
		})
	}
}

func TestModel_Xor(t *testing.T) {
	m := NewModel()
	a := m.NewBoolVar("a")
	b := m.NewBoolVar("b")
	m.AddBoolXor(a, b.Not())

	if err := m.Check([]int64{1, 1}); err != nil {
		t.Errorf("a xor ¬b should hold for (1,1): %v", err)
	}
	if err := m.Check([]int64{1, 0}); err == nil {
		t.Error("a xor ¬b should fail for (1,0)")
	}
}

func TestModel_ValidateBadDomain(t *testing.T) {
	m := NewModel()
	m.NewIntVar(5, 1, "bad")
	if err := m.Validate(); err == nil {
		t.Error("Expected error for empty domain")
	}
}

func TestResponse_Values(t *testing.T) {
	m := NewModel()
	x := m.NewBoolVar("x")
	n := m.NewIntVar(0, 10, "n")

	r := NewResponse("test", StatusFeasible, []int64{1, 7}, 0, time.Millisecond)
	if !r.HasSolution() {
		t.Fatal("Expected solution")
	}
	if !r.BoolValue(x) || r.BoolValue(x.Not()) {
		t.Error("Unexpected literal values")
	}
	if got := r.Value(Sum(x, n)); got != 8 {
		t.Errorf("Value = %d, want 8", got)
	}

	empty := NewResponse("test", StatusInfeasible, nil, 0, 0)
	if empty.HasSolution() {
		t.Error("Infeasible response must not carry a solution")
	}
}

func TestTimeLimit(t *testing.T) {
	if got := TimeLimit(context.Background(), Params{TimeLimit: time.Second}); got != time.Second {
		t.Errorf("TimeLimit = %v, want 1s", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if got := TimeLimit(ctx, Params{TimeLimit: time.Minute}); got > 50*time.Millisecond {
		t.Errorf("Deadline should cap the budget, got %v", got)
	}
}
