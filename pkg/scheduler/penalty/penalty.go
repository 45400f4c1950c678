// Package penalty 汇总软约束惩罚项并构造最小化目标
package penalty

import (
	"sort"

	"github.com/paiban/callrota/pkg/engine"
)

// Kind 惩罚类型
type Kind string

const (
	KindBoundLower     Kind = "bound_lower"     // 计数触及容差下界
	KindBoundUpper     Kind = "bound_upper"     // 计数触及容差上界
	KindFullDay        Kind = "full_day"        // 只值了两个班次中的一个
	KindRepeatedFriday Kind = "repeated_friday" // 相隔一周的两个周五夜班
	KindDispersion     Kind = "dispersion"      // 单周班次数超过上限
)

// Kinds 所有惩罚类型，按报告顺序排列
func Kinds() []Kind {
	return []Kind{KindBoundLower, KindBoundUpper, KindFullDay, KindRepeatedFriday, KindDispersion}
}

// Term 一个惩罚项：Weight × Var
type Term struct {
	Kind     Kind
	Resident int
	// Day 天下标；按周计算的项为该周第一天
	Day    int
	Weight int64
	Var    engine.LinearArgument
	// Label 说明，例如 "total" 或 "weekend"
	Label string
}

// Aggregator 惩罚项汇总器
type Aggregator struct {
	terms []Term
}

// NewAggregator 创建汇总器
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Add 添加惩罚项；权重为 0 的项被忽略
func (a *Aggregator) Add(t Term) {
	if t.Weight == 0 {
		return
	}
	a.terms = append(a.terms, t)
}

// Len 惩罚项个数
func (a *Aggregator) Len() int {
	return len(a.terms)
}

// Terms 返回所有惩罚项
func (a *Aggregator) Terms() []Term {
	return append([]Term(nil), a.terms...)
}

// Objective 目标函数 Σ weight × var
func (a *Aggregator) Objective() *engine.LinearExpr {
	obj := engine.NewLinearExpr()
	for _, t := range a.terms {
		obj.AddTerm(t.Var, t.Weight)
	}
	return obj
}

// Apply 将目标函数写入模型
func (a *Aggregator) Apply(m *engine.Model) {
	m.Minimize(a.Objective())
}

// Breakdown 求解后的惩罚分解
type Breakdown struct {
	Total      int64
	ByKind     map[Kind]int64
	ByResident map[int]int64
	// Active 取值非零的惩罚项
	Active []Term
}

// Breakdown 用求解结果计算每类、每人的惩罚值
func (a *Aggregator) Breakdown(resp *engine.Response) Breakdown {
	b := Breakdown{
		ByKind:     make(map[Kind]int64),
		ByResident: make(map[int]int64),
	}
	if !resp.HasSolution() {
		return b
	}
	for _, t := range a.terms {
		v := resp.Value(t.Var) * t.Weight
		if v == 0 {
			continue
		}
		b.Total += v
		b.ByKind[t.Kind] += v
		b.ByResident[t.Resident] += v
		b.Active = append(b.Active, t)
	}
	sort.SliceStable(b.Active, func(i, j int) bool {
		if b.Active[i].Resident != b.Active[j].Resident {
			return b.Active[i].Resident < b.Active[j].Resident
		}
		return b.Active[i].Day < b.Active[j].Day
	})
	return b
}
