package config

import (
	"fmt"

	"github.com/paiban/callrota/pkg/engine"
	"github.com/paiban/callrota/pkg/engine/cpsat"
	"github.com/paiban/callrota/pkg/engine/pbsat"
	"github.com/paiban/callrota/pkg/scheduler/solver"
)

// NewEngine 按配置创建求解引擎
func (c SolverConfig) NewEngine() (engine.Engine, error) {
	switch c.Engine {
	case cpsat.Name:
		return cpsat.New(cpsat.WithSearchLog(c.SearchLog)), nil
	case pbsat.Name:
		return pbsat.New(), nil
	default:
		return nil, fmt.Errorf("未知求解引擎: %s", c.Engine)
	}
}

// SolverOptions 求解预算与复核选项
func (c SolverConfig) SolverOptions(observers ...solver.Observer) []solver.Option {
	opts := []solver.Option{
		solver.WithTimeLimit(c.TimeLimit),
		solver.WithWorkers(c.Workers),
		solver.WithAudit(c.Audit),
	}
	for _, o := range observers {
		opts = append(opts, solver.WithObserver(o))
	}
	return opts
}

// NewSolver 创建求解器
func (c SolverConfig) NewSolver(observers ...solver.Observer) (*solver.Solver, error) {
	eng, err := c.NewEngine()
	if err != nil {
		return nil, err
	}
	return solver.New(eng, c.SolverOptions(observers...)...), nil
}
