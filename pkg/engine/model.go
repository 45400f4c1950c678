package engine

import (
	"fmt"
	"math"
)

// VarKind 变量种类
type VarKind int

const (
	KindBool VarKind = iota
	KindInt
)

// Variable 变量定义
type Variable struct {
	Name  string
	Kind  VarKind
	Lower int64
	Upper int64
}

// ConstraintKind 约束种类
type ConstraintKind int

const (
	// ConstraintLinear Lower ≤ Expr ≤ Upper
	ConstraintLinear ConstraintKind = iota
	// ConstraintExactlyOne 恰好一个文字为真
	ConstraintExactlyOne
	// ConstraintAtMostOne 至多一个文字为真
	ConstraintAtMostOne
	// ConstraintBoolXor 为真的文字个数为奇数
	ConstraintBoolXor
	// ConstraintImplication Literals[0] ⇒ Literals[1]
	ConstraintImplication
)

// String 约束种类名称
func (k ConstraintKind) String() string {
	switch k {
	case ConstraintLinear:
		return "linear"
	case ConstraintExactlyOne:
		return "exactly_one"
	case ConstraintAtMostOne:
		return "at_most_one"
	case ConstraintBoolXor:
		return "bool_xor"
	case ConstraintImplication:
		return "implication"
	default:
		return fmt.Sprintf("constraint(%d)", int(k))
	}
}

// Constraint 约束；Enforcement 非空时，仅当其中所有文字为真时约束才需成立
type Constraint struct {
	Kind        ConstraintKind
	Name        string
	Expr        *LinearExpr
	Lower       int64
	Upper       int64
	Literals    []BoolVar
	Enforcement []BoolVar
}

// ConstraintRef 指向模型中的约束，用于追加条件
type ConstraintRef struct {
	m     *Model
	index int
}

// OnlyEnforceIf 仅当所有给定文字为真时约束才需成立
func (c ConstraintRef) OnlyEnforceIf(lits ...BoolVar) ConstraintRef {
	ct := &c.m.constraints[c.index]
	ct.Enforcement = append(ct.Enforcement, lits...)
	return c
}

// WithName 设置约束名称
func (c ConstraintRef) WithName(name string) ConstraintRef {
	c.m.constraints[c.index].Name = name
	return c
}

// Index 约束下标
func (c ConstraintRef) Index() int { return c.index }

// Model 约束模型；构建完成后交给 Engine 求解一次
type Model struct {
	vars        []Variable
	constraints []Constraint
	objective   *LinearExpr
	errs        []string
}

// NewModel 创建空模型
func NewModel() *Model {
	return &Model{}
}

// NewBoolVar 新建布尔变量
func (m *Model) NewBoolVar(name string) BoolVar {
	m.vars = append(m.vars, Variable{Name: name, Kind: KindBool, Lower: 0, Upper: 1})
	return BoolVar{index: VarIndex(len(m.vars) - 1)}
}

// NewIntVar 新建取值在 [lb, ub] 的整数变量
func (m *Model) NewIntVar(lb, ub int64, name string) IntVar {
	if lb > ub {
		m.errs = append(m.errs, fmt.Sprintf("变量 %s 的下界 %d 大于上界 %d", name, lb, ub))
	}
	m.vars = append(m.vars, Variable{Name: name, Kind: KindInt, Lower: lb, Upper: ub})
	return IntVar{index: VarIndex(len(m.vars) - 1)}
}

func (m *Model) appendConstraint(ct Constraint) ConstraintRef {
	m.constraints = append(m.constraints, ct)
	return ConstraintRef{m: m, index: len(m.constraints) - 1}
}

// AddLinear 添加 lo ≤ expr ≤ hi
func (m *Model) AddLinear(expr LinearArgument, lo, hi int64) ConstraintRef {
	e := NewLinearExpr().Add(expr)
	return m.appendConstraint(Constraint{Kind: ConstraintLinear, Expr: e, Lower: lo, Upper: hi})
}

// AddEquality 添加 lhs == rhs
func (m *Model) AddEquality(lhs, rhs LinearArgument) ConstraintRef {
	e := NewLinearExpr().Add(lhs).AddTerm(rhs, -1)
	return m.appendConstraint(Constraint{Kind: ConstraintLinear, Expr: e, Lower: 0, Upper: 0})
}

// AddLessOrEqual 添加 lhs ≤ rhs
func (m *Model) AddLessOrEqual(lhs, rhs LinearArgument) ConstraintRef {
	e := NewLinearExpr().Add(lhs).AddTerm(rhs, -1)
	return m.appendConstraint(Constraint{Kind: ConstraintLinear, Expr: e, Lower: math.MinInt64, Upper: 0})
}

// AddGreaterOrEqual 添加 lhs ≥ rhs
func (m *Model) AddGreaterOrEqual(lhs, rhs LinearArgument) ConstraintRef {
	e := NewLinearExpr().Add(lhs).AddTerm(rhs, -1)
	return m.appendConstraint(Constraint{Kind: ConstraintLinear, Expr: e, Lower: 0, Upper: math.MaxInt64})
}

// AddExactlyOne 恰好一个为真
func (m *Model) AddExactlyOne(lits ...BoolVar) ConstraintRef {
	return m.appendConstraint(Constraint{Kind: ConstraintExactlyOne, Literals: append([]BoolVar(nil), lits...)})
}

// AddAtMostOne 至多一个为真
func (m *Model) AddAtMostOne(lits ...BoolVar) ConstraintRef {
	return m.appendConstraint(Constraint{Kind: ConstraintAtMostOne, Literals: append([]BoolVar(nil), lits...)})
}

// AddBoolXor 奇数个为真
func (m *Model) AddBoolXor(lits ...BoolVar) ConstraintRef {
	return m.appendConstraint(Constraint{Kind: ConstraintBoolXor, Literals: append([]BoolVar(nil), lits...)})
}

// AddImplication a ⇒ b
func (m *Model) AddImplication(a, b BoolVar) ConstraintRef {
	return m.appendConstraint(Constraint{Kind: ConstraintImplication, Literals: []BoolVar{a, b}})
}

// Minimize 设置最小化目标
func (m *Model) Minimize(obj LinearArgument) {
	m.objective = NewLinearExpr().Add(obj)
}

// NumVars 变量个数
func (m *Model) NumVars() int { return len(m.vars) }

// NumConstraints 约束个数
func (m *Model) NumConstraints() int { return len(m.constraints) }

// Var 返回变量定义
func (m *Model) Var(i VarIndex) Variable { return m.vars[i] }

// Vars 返回所有变量定义
func (m *Model) Vars() []Variable {
	return append([]Variable(nil), m.vars...)
}

// Constraints 返回所有约束
func (m *Model) Constraints() []Constraint {
	return append([]Constraint(nil), m.constraints...)
}

// Objective 返回目标函数；未设置时 ok 为 false
func (m *Model) Objective() (*LinearExpr, bool) {
	return m.objective, m.objective != nil
}

// Validate 检查模型是否良构
func (m *Model) Validate() error {
	if len(m.errs) > 0 {
		return fmt.Errorf("模型无效: %s", m.errs[0])
	}
	n := VarIndex(len(m.vars))
	check := func(v VarIndex) error {
		if v < 0 || v >= n {
			return fmt.Errorf("模型无效: 引用了不存在的变量 %d", v)
		}
		return nil
	}
	for i, ct := range m.constraints {
		if ct.Expr != nil {
			for _, t := range ct.Expr.terms {
				if err := check(t.Var); err != nil {
					return err
				}
			}
		}
		for _, l := range append(append([]BoolVar(nil), ct.Literals...), ct.Enforcement...) {
			if err := check(l.index); err != nil {
				return err
			}
			if m.vars[l.index].Kind != KindBool {
				return fmt.Errorf("模型无效: 约束 %d 的文字引用了整数变量 %s", i, m.vars[l.index].Name)
			}
		}
		if ct.Kind == ConstraintImplication && len(ct.Literals) != 2 {
			return fmt.Errorf("模型无效: 蕴含约束 %d 需要两个文字", i)
		}
	}
	if m.objective != nil {
		for _, t := range m.objective.terms {
			if err := check(t.Var); err != nil {
				return err
			}
		}
	}
	return nil
}

// Check 检查一组取值是否满足模型中的所有约束，返回第一个违反的约束
func (m *Model) Check(values []int64) error {
	if len(values) != len(m.vars) {
		return fmt.Errorf("取值个数 %d 与变量个数 %d 不一致", len(values), len(m.vars))
	}
	for i, v := range m.vars {
		if values[i] < v.Lower || values[i] > v.Upper {
			return fmt.Errorf("变量 %s 的取值 %d 超出 [%d, %d]", v.Name, values[i], v.Lower, v.Upper)
		}
	}
	for i, ct := range m.constraints {
		enforced := true
		for _, e := range ct.Enforcement {
			if !e.Eval(values) {
				enforced = false
				break
			}
		}
		if !enforced {
			continue
		}
		if !ct.satisfied(values) {
			name := ct.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			return fmt.Errorf("约束 %s (%s) 未满足", name, ct.Kind)
		}
	}
	return nil
}

func (ct *Constraint) satisfied(values []int64) bool {
	count := 0
	for _, l := range ct.Literals {
		if l.Eval(values) {
			count++
		}
	}
	switch ct.Kind {
	case ConstraintLinear:
		v := ct.Expr.Eval(values)
		return v >= ct.Lower && v <= ct.Upper
	case ConstraintExactlyOne:
		return count == 1
	case ConstraintAtMostOne:
		return count <= 1
	case ConstraintBoolXor:
		return count%2 == 1
	case ConstraintImplication:
		return !ct.Literals[0].Eval(values) || ct.Literals[1].Eval(values)
	default:
		return false
	}
}
