package constraint

import (
	"fmt"

	"github.com/paiban/callrota/pkg/calendar"
	"github.com/paiban/callrota/pkg/engine"
	"github.com/paiban/callrota/pkg/fairness"
	"github.com/paiban/callrota/pkg/logger"
	"github.com/paiban/callrota/pkg/model"
	"github.com/paiban/callrota/pkg/registry"
	"github.com/paiban/callrota/pkg/scheduler/penalty"
)

// Builder 编译上下文
//
// 持有约束模型、[住院医师][天][班次] 排班变量表和惩罚项。
// 所有规则在求解前通过 Builder 写入模型，求解开始后只读。
type Builder struct {
	cfg       *model.SchedulingConfig
	reg       *registry.Registry
	cal       *calendar.Calendar
	fair      *fairness.Calculator
	model     *engine.Model
	assign    [][][]engine.BoolVar
	penalties *penalty.Aggregator
	log       *logger.RotaLogger
}

// NewBuilder 创建编译上下文并分配全部排班变量
func NewBuilder(cfg *model.SchedulingConfig, reg *registry.Registry, fair *fairness.Calculator) *Builder {
	b := &Builder{
		cfg:       cfg,
		reg:       reg,
		cal:       reg.Calendar(),
		fair:      fair,
		model:     engine.NewModel(),
		penalties: penalty.NewAggregator(),
		log:       logger.NewRotaLogger(),
	}

	horizon := b.cal.Horizon()
	shifts := reg.Shifts()
	b.assign = make([][][]engine.BoolVar, reg.Len())
	for _, r := range reg.Residents() {
		days := make([][]engine.BoolVar, horizon)
		for d := 0; d < horizon; d++ {
			days[d] = make([]engine.BoolVar, len(shifts))
			for s, label := range shifts {
				days[d][s] = b.model.NewBoolVar(fmt.Sprintf("%s_d%d_%s", r.Name(), d, label))
			}
		}
		b.assign[r.Index()] = days
	}
	return b
}

// Config 排班配置
func (b *Builder) Config() *model.SchedulingConfig { return b.cfg }

// Registry 住院医师登记表
func (b *Builder) Registry() *registry.Registry { return b.reg }

// Calendar 日历
func (b *Builder) Calendar() *calendar.Calendar { return b.cal }

// Fairness 公平性计算器
func (b *Builder) Fairness() *fairness.Calculator { return b.fair }

// Model 约束模型
func (b *Builder) Model() *engine.Model { return b.model }

// Penalties 惩罚项汇总器
func (b *Builder) Penalties() *penalty.Aggregator { return b.penalties }

// Logger 编译日志
func (b *Builder) Logger() *logger.RotaLogger { return b.log }

// Assign 排班变量 (住院医师, 天, 班次)
func (b *Builder) Assign(r *registry.Resident, d, s int) engine.BoolVar {
	return b.assign[r.Index()][d][s]
}

// AssignAt 按下标取排班变量
func (b *Builder) AssignAt(r, d, s int) engine.BoolVar {
	return b.assign[r][d][s]
}

// ShiftsOn 住院医师某天的全部班次变量
func (b *Builder) ShiftsOn(r *registry.Resident, d int) []engine.BoolVar {
	return append([]engine.BoolVar(nil), b.assign[r.Index()][d]...)
}

// Count 住院医师在给定天上某班次的次数
func (b *Builder) Count(r *registry.Resident, days []int, s int) *engine.LinearExpr {
	e := engine.NewLinearExpr()
	for _, d := range days {
		e.Add(b.assign[r.Index()][d][s])
	}
	return e
}

// CountAll 住院医师在给定天上所有班次的次数
func (b *Builder) CountAll(r *registry.Resident, days []int) *engine.LinearExpr {
	e := engine.NewLinearExpr()
	for _, d := range days {
		for _, v := range b.assign[r.Index()][d] {
			e.Add(v)
		}
	}
	return e
}

// ForceOff 禁止该住院医师在某天值任何班次
func (b *Builder) ForceOff(r *registry.Resident, d int, name string) {
	for s, v := range b.assign[r.Index()][d] {
		b.model.AddLinear(v, 0, 0).WithName(fmt.Sprintf("%s_%s_d%d_s%d", name, r.Name(), d, s))
	}
}

// ForceShiftOff 禁止该住院医师在某天值某班次
func (b *Builder) ForceShiftOff(r *registry.Resident, d, s int, name string) {
	b.model.AddLinear(b.assign[r.Index()][d][s], 0, 0).WithName(fmt.Sprintf("%s_%s_d%d_s%d", name, r.Name(), d, s))
}

// ForceShiftOn 要求该住院医师在某天值某班次
func (b *Builder) ForceShiftOn(r *registry.Resident, d, s int, name string) {
	b.model.AddLinear(b.assign[r.Index()][d][s], 1, 1).WithName(fmt.Sprintf("%s_%s_d%d_s%d", name, r.Name(), d, s))
}

// Bounded 有界带惩罚约束
//
// 硬约束 L ≤ expr ≤ U；另建两个标志，当且仅当 expr 恰好等于 L 或 U 时为真，
// 每个标志为真时目标函数加 1。
func (b *Builder) Bounded(r *registry.Resident, label string, expr *engine.LinearExpr, maxValue int, target fairness.Target) {
	name := fmt.Sprintf("%s_%s", r.Name(), label)
	lower, upper := int64(target.Lower), int64(target.Upper)

	count := b.model.NewIntVar(0, int64(maxValue), name+"_count")
	b.model.AddEquality(count, expr).WithName(name + "_count_def")
	b.model.AddLinear(count, lower, upper).WithName(name + "_range")

	atLower := b.model.NewBoolVar(name + "_at_lower")
	b.model.AddLinear(count, lower, lower).OnlyEnforceIf(atLower)
	b.model.AddGreaterOrEqual(count, engine.NewConstant(lower+1)).OnlyEnforceIf(atLower.Not())

	atUpper := b.model.NewBoolVar(name + "_at_upper")
	b.model.AddLinear(count, upper, upper).OnlyEnforceIf(atUpper)
	b.model.AddLessOrEqual(count, engine.NewConstant(upper-1)).OnlyEnforceIf(atUpper.Not())

	b.penalties.Add(penalty.Term{Kind: penalty.KindBoundLower, Resident: r.Index(), Weight: 1, Var: atLower, Label: label})
	b.penalties.Add(penalty.Term{Kind: penalty.KindBoundUpper, Resident: r.Index(), Weight: 1, Var: atUpper, Label: label})

	b.log.Target(label, r.Name(), target.Expected, target.Lower, target.Upper)
}
