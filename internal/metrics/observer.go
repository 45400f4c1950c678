package metrics

import (
	"github.com/paiban/callrota/pkg/scheduler/solver"
	"github.com/paiban/callrota/pkg/stats"
)

// SolveObserver 将求解结果写入注册表
type SolveObserver struct {
	reg      *MetricsRegistry
	fairness *stats.FairnessAnalyzer
	coverage *stats.CoverageAnalyzer
}

// NewSolveObserver 创建求解观察者；reg 为空时使用全局注册表
func NewSolveObserver(reg *MetricsRegistry) *SolveObserver {
	if reg == nil {
		reg = GetRegistry()
	}
	return &SolveObserver{
		reg:      reg,
		fairness: stats.NewFairnessAnalyzer(),
		coverage: stats.NewCoverageAnalyzer(),
	}
}

// ObserveSolve 实现 solver.Observer
func (o *SolveObserver) ObserveSolve(result *solver.Result) {
	class := string(result.Classification)

	o.reg.GetCounter(SolveTotal).Inc(result.Engine, class, string(result.Status))
	o.reg.GetHistogram(SolveDuration).Observe(result.Duration.Seconds(), result.Engine, class)

	for _, c := range result.Conflicts {
		o.reg.GetCounter(AuditConflictsTotal).Inc(string(c.Type))
	}

	roster, err := result.Roster()
	if err != nil {
		return
	}
	o.reg.GetGauge(SolveObjective).Set(float64(result.Objective), class)
	for kind, v := range roster.Penalties.ByKind {
		o.reg.GetCounter(PenaltyTotal).Add(float64(v), kind)
	}

	fm := o.fairness.Analyze(roster)
	o.reg.GetGauge(FairnessGini).Set(fm.TotalGini, class, "total")
	o.reg.GetGauge(FairnessGini).Set(fm.NightGini, class, "night")
	o.reg.GetGauge(FairnessGini).Set(fm.WeekendGini, class, "weekend")
	o.reg.GetGauge(CoverageRate).Set(o.coverage.Analyze(roster).OverallCoverage, class)
}
