// Package pbsat 基于 gophersat 伪布尔优化的纯 Go 求解引擎
package pbsat

import (
	"context"
	"sync"
	"time"

	"github.com/crillab/gophersat/solver"

	"github.com/paiban/callrota/pkg/engine"
	"github.com/paiban/callrota/pkg/logger"
)

// Name 引擎名称
const Name = "pbsat"

// Engine gophersat 引擎
type Engine struct{}

// New 创建引擎
func New() *Engine {
	return &Engine{}
}

// Name 返回引擎名称
func (e *Engine) Name() string {
	return Name
}

// Solve 编码并求解模型。Workers 参数被忽略，gophersat 为单线程搜索。
func (e *Engine) Solve(ctx context.Context, m *engine.Model, p engine.Params) (*engine.Response, error) {
	start := time.Now()
	respond := func(status engine.Status, values []int64) *engine.Response {
		var objective int64
		if values != nil {
			if obj, ok := m.Objective(); ok {
				objective = obj.Eval(values)
			}
		}
		return engine.NewResponse(Name, status, values, objective, time.Since(start))
	}

	if err := m.Validate(); err != nil {
		logger.Warn().Err(err).Str("engine", Name).Msg("模型校验失败")
		return respond(engine.StatusModelInvalid, nil), nil
	}

	enc, err := newEncoding(m)
	if err != nil {
		return respond(engine.StatusModelInvalid, nil), nil
	}
	for _, ct := range m.Constraints() {
		if err := enc.constraint(ct); err != nil {
			logger.Warn().Err(err).Str("engine", Name).Msg("约束编码失败")
			return respond(engine.StatusModelInvalid, nil), nil
		}
		if enc.unsat {
			return respond(engine.StatusInfeasible, nil), nil
		}
	}

	pb := solver.ParsePBConstrs(enc.constrs)
	var costLits []solver.Lit
	var costWeights []int
	if obj, ok := m.Objective(); ok {
		costLits, costWeights, err = enc.objective(obj)
		if err != nil {
			return respond(engine.StatusModelInvalid, nil), nil
		}
		if len(costLits) > 0 {
			pb.SetCostFunc(costLits, costWeights)
		}
	}
	s := solver.New(pb)

	logger.Debug().
		Str("engine", Name).
		Int("sat_vars", enc.nbVars).
		Int("pb_constraints", len(enc.constrs)).
		Msg("开始伪布尔求解")

	var timer <-chan time.Time
	if limit := engine.TimeLimit(ctx, p); limit > 0 || hasDeadline(ctx) {
		t := time.NewTimer(limit)
		defer t.Stop()
		timer = t.C
	}

	// 单次 Solve 调用无法中断；超时后搜索协程在当前这次 Solve 返回时退出
	stop := make(chan struct{})
	done := make(chan engine.Status, 1)
	inc := &incumbent{}
	go func() {
		done <- minimize(s, costLits, costWeights, stop, inc)
	}()

	var status engine.Status
	select {
	case status = <-done:
	case <-ctx.Done():
		status = interrupt(stop, done)
	case <-timer:
		status = interrupt(stop, done)
	}

	switch status {
	case engine.StatusInfeasible:
		return respond(engine.StatusInfeasible, nil), nil
	case engine.StatusOptimal, engine.StatusFeasible:
		if values := enc.decode(inc.get()); values != nil {
			return respond(status, values), nil
		}
	}
	return respond(engine.StatusUnknown, nil), nil
}

// incumbent 当前最优模型，搜索协程写入，调用方读取
type incumbent struct {
	mu    sync.Mutex
	model []bool
}

func (i *incumbent) set(model []bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.model = model
}

func (i *incumbent) get() []bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.model
}

// interrupt 通知搜索停止；搜索恰好已结束时沿用其结果，否则有模型为 FEASIBLE，无模型为 UNKNOWN
func interrupt(stop chan struct{}, done <-chan engine.Status) engine.Status {
	close(stop)
	select {
	case status := <-done:
		return status
	default:
		return engine.StatusFeasible
	}
}

// minimize 线性搜索：每找到一个模型就追加 代价 ≤ 当前代价−1 的约束，直到无解或被停止。
// 第一次 Solve 即无解时返回 INFEASIBLE。
func minimize(s *solver.Solver, lits []solver.Lit, weights []int, stop <-chan struct{}, inc *incumbent) engine.Status {
	if s.Solve() != solver.Sat {
		return engine.StatusInfeasible
	}
	total := 0
	for _, w := range weights {
		total += w
	}

	for {
		model := s.Model()
		cost := costOf(model, lits, weights)
		inc.set(model)
		if cost == 0 {
			return engine.StatusOptimal
		}
		select {
		case <-stop:
			return engine.StatusFeasible
		default:
		}

		// Σ w·lit ≤ cost−1  ⇔  Σ w·¬lit ≥ total−cost+1
		negated := make([]solver.Lit, len(lits))
		for i, l := range lits {
			negated[i] = l.Negation()
		}
		bound := make([]int, len(weights))
		copy(bound, weights)
		s.AppendClause(solver.NewPBClause(negated, bound, total-cost+1))
		if s.Solve() != solver.Sat {
			// 不存在更优的模型
			return engine.StatusOptimal
		}
	}
}

// costOf 模型在代价函数下的取值
func costOf(model []bool, lits []solver.Lit, weights []int) int {
	cost := 0
	for i, l := range lits {
		if int(l.Var()) < len(model) && model[l.Var()] == l.IsPositive() {
			cost += weights[i]
		}
	}
	return cost
}

func hasDeadline(ctx context.Context) bool {
	_, ok := ctx.Deadline()
	return ok
}
