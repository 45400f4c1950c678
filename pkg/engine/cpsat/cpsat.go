// Package cpsat 基于 OR-tools CP-SAT 的求解引擎
package cpsat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/or-tools/ortools/sat/go/cpmodel"
	"google.golang.org/protobuf/proto"

	cmpb "github.com/google/or-tools/ortools/sat/proto/cpmodel"
	sppb "github.com/google/or-tools/ortools/sat/proto/satparameters"

	"github.com/paiban/callrota/pkg/engine"
	"github.com/paiban/callrota/pkg/logger"
)

// Name 引擎名称
const Name = "cpsat"

// Engine CP-SAT 引擎
type Engine struct {
	logSearch bool
}

// Option 引擎选项
type Option func(*Engine)

// WithSearchLog 打开 CP-SAT 的搜索日志
func WithSearchLog(enabled bool) Option {
	return func(e *Engine) {
		e.logSearch = enabled
	}
}

// New 创建引擎
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name 返回引擎名称
func (e *Engine) Name() string {
	return Name
}

// translation 模型到 CP-SAT 的翻译结果
type translation struct {
	builder *cpmodel.Builder
	bools   map[engine.VarIndex]cpmodel.BoolVar
	ints    map[engine.VarIndex]cpmodel.IntVar
}

// translate 将模型逐项翻译为 cpmodel.Builder
func translate(m *engine.Model) (*translation, error) {
	tr := &translation{
		builder: cpmodel.NewCpModelBuilder(),
		bools:   make(map[engine.VarIndex]cpmodel.BoolVar),
		ints:    make(map[engine.VarIndex]cpmodel.IntVar),
	}

	for i, v := range m.Vars() {
		idx := engine.VarIndex(i)
		switch v.Kind {
		case engine.KindBool:
			tr.bools[idx] = tr.builder.NewBoolVar().WithName(v.Name)
		default:
			tr.ints[idx] = tr.builder.NewIntVar(v.Lower, v.Upper).WithName(v.Name)
		}
	}

	for _, ct := range m.Constraints() {
		var c cpmodel.Constraint
		switch ct.Kind {
		case engine.ConstraintLinear:
			c = tr.builder.AddLinearConstraint(tr.expr(ct.Expr), ct.Lower, ct.Upper)
		case engine.ConstraintExactlyOne:
			c = tr.builder.AddExactlyOne(tr.lits(ct.Literals)...)
		case engine.ConstraintAtMostOne:
			c = tr.builder.AddAtMostOne(tr.lits(ct.Literals)...)
		case engine.ConstraintBoolXor:
			c = tr.builder.AddBoolXor(tr.lits(ct.Literals)...)
		case engine.ConstraintImplication:
			c = tr.builder.AddImplication(tr.lit(ct.Literals[0]), tr.lit(ct.Literals[1]))
		default:
			return nil, fmt.Errorf("不支持的约束类型 %s", ct.Kind)
		}
		if ct.Name != "" {
			c = c.WithName(ct.Name)
		}
		if len(ct.Enforcement) > 0 {
			c.OnlyEnforceIf(tr.lits(ct.Enforcement)...)
		}
	}

	if obj, ok := m.Objective(); ok {
		tr.builder.Minimize(tr.expr(obj))
	}
	return tr, nil
}

func (tr *translation) lit(b engine.BoolVar) cpmodel.BoolVar {
	v := tr.bools[b.Index()]
	if b.Negated() {
		return v.Not()
	}
	return v
}

func (tr *translation) lits(bs []engine.BoolVar) []cpmodel.BoolVar {
	out := make([]cpmodel.BoolVar, len(bs))
	for i, b := range bs {
		out[i] = tr.lit(b)
	}
	return out
}

func (tr *translation) expr(e *engine.LinearExpr) *cpmodel.LinearExpr {
	out := cpmodel.NewLinearExpr().AddConstant(e.Offset())
	for _, t := range e.Terms() {
		if b, ok := tr.bools[t.Var]; ok {
			out.AddTerm(b, t.Coeff)
			continue
		}
		out.AddTerm(tr.ints[t.Var], t.Coeff)
	}
	return out
}

// parameters 组装求解参数；时间预算受上下文截止时间约束
func (e *Engine) parameters(ctx context.Context, p engine.Params) *sppb.SatParameters {
	params := &sppb.SatParameters{
		LogSearchProgress: proto.Bool(e.logSearch),
	}
	if limit := engine.TimeLimit(ctx, p); limit > 0 {
		params.MaxTimeInSeconds = proto.Float64(limit.Seconds())
	}
	if p.Workers > 0 {
		params.NumWorkers = proto.Int32(int32(p.Workers))
	}
	if p.Seed != 0 {
		params.RandomSeed = proto.Int32(int32(p.Seed))
	}
	return params
}

// Solve 翻译并求解模型
func (e *Engine) Solve(ctx context.Context, m *engine.Model, p engine.Params) (*engine.Response, error) {
	start := time.Now()
	if err := m.Validate(); err != nil {
		logger.Warn().Err(err).Str("engine", Name).Msg("模型校验失败")
		return engine.NewResponse(Name, engine.StatusModelInvalid, nil, 0, time.Since(start)), nil
	}
	if err := ctx.Err(); err != nil {
		return engine.NewResponse(Name, engine.StatusUnknown, nil, 0, time.Since(start)), nil
	}

	tr, err := translate(m)
	if err != nil {
		return engine.NewResponse(Name, engine.StatusModelInvalid, nil, 0, time.Since(start)), nil
	}
	cpModel, err := tr.builder.Model()
	if err != nil {
		logger.Warn().Err(err).Str("engine", Name).Msg("构建 CP-SAT 模型失败")
		return engine.NewResponse(Name, engine.StatusModelInvalid, nil, 0, time.Since(start)), nil
	}

	resp, err := cpmodel.SolveCpModelWithParameters(cpModel, e.parameters(ctx, p))
	if err != nil {
		return nil, fmt.Errorf("CP-SAT 求解失败: %w", err)
	}

	status := convertStatus(resp.GetStatus())
	var values []int64
	if status.HasSolution() {
		values = append([]int64(nil), resp.GetSolution()...)
	}
	var objective int64
	if obj, ok := m.Objective(); ok && values != nil {
		objective = obj.Eval(values)
	}
	return engine.NewResponse(Name, status, values, objective, time.Since(start)), nil
}

// convertStatus 映射 CP-SAT 状态
func convertStatus(s cmpb.CpSolverStatus) engine.Status {
	switch s {
	case cmpb.CpSolverStatus_OPTIMAL:
		return engine.StatusOptimal
	case cmpb.CpSolverStatus_FEASIBLE:
		return engine.StatusFeasible
	case cmpb.CpSolverStatus_INFEASIBLE:
		return engine.StatusInfeasible
	case cmpb.CpSolverStatus_MODEL_INVALID:
		return engine.StatusModelInvalid
	default:
		return engine.StatusUnknown
	}
}
