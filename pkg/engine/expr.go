// Package engine 定义约束模型与外部求解引擎之间的契约。
//
// 编译器只通过 Model 描述布尔变量、有界整数变量、线性约束、
// 布尔约束和最小化目标；具体的搜索由 Engine 的实现完成。
package engine

// VarIndex 变量在模型中的下标
type VarIndex int32

// LinearArgument 可以出现在线性表达式中的对象
type LinearArgument interface {
	addToLinearExpr(e *LinearExpr, c int64)
}

// Term 线性表达式中的一项
type Term struct {
	Var   VarIndex
	Coeff int64
}

// LinearExpr 线性表达式 Σ coeff·var + offset
type LinearExpr struct {
	terms  []Term
	offset int64
}

// NewLinearExpr 创建空表达式
func NewLinearExpr() *LinearExpr {
	return &LinearExpr{}
}

// NewConstant 创建常量表达式
func NewConstant(c int64) *LinearExpr {
	return &LinearExpr{offset: c}
}

// Add 加上一项并返回自身
func (l *LinearExpr) Add(la LinearArgument) *LinearExpr {
	la.addToLinearExpr(l, 1)
	return l
}

// AddTerm 加上 coeff·la 并返回自身
func (l *LinearExpr) AddTerm(la LinearArgument, coeff int64) *LinearExpr {
	la.addToLinearExpr(l, coeff)
	return l
}

// AddSum 加上若干项之和并返回自身
func (l *LinearExpr) AddSum(las ...LinearArgument) *LinearExpr {
	for _, la := range las {
		l.Add(la)
	}
	return l
}

// AddConstant 加上常量并返回自身
func (l *LinearExpr) AddConstant(c int64) *LinearExpr {
	l.offset += c
	return l
}

// Terms 返回各项（未合并同类项）
func (l *LinearExpr) Terms() []Term {
	return append([]Term(nil), l.terms...)
}

// Offset 常量项
func (l *LinearExpr) Offset() int64 {
	return l.offset
}

// Len 项数
func (l *LinearExpr) Len() int {
	return len(l.terms)
}

func (l *LinearExpr) addToLinearExpr(e *LinearExpr, c int64) {
	for _, t := range l.terms {
		e.terms = append(e.terms, Term{Var: t.Var, Coeff: t.Coeff * c})
	}
	e.offset += l.offset * c
}

// Eval 用给定的变量取值计算表达式
func (l *LinearExpr) Eval(values []int64) int64 {
	v := l.offset
	for _, t := range l.terms {
		v += t.Coeff * values[t.Var]
	}
	return v
}

// asExpr 将任意 LinearArgument 转换为表达式
func asExpr(la LinearArgument) *LinearExpr {
	if e, ok := la.(*LinearExpr); ok {
		return e
	}
	return NewLinearExpr().Add(la)
}

// BoolVar 布尔变量或其否定（文字）
type BoolVar struct {
	index   VarIndex
	negated bool
}

// Not 返回否定
func (b BoolVar) Not() BoolVar {
	return BoolVar{index: b.index, negated: !b.negated}
}

// Index 变量下标
func (b BoolVar) Index() VarIndex { return b.index }

// Negated 是否为否定文字
func (b BoolVar) Negated() bool { return b.negated }

// Eval 文字在给定取值下是否为真
func (b BoolVar) Eval(values []int64) bool {
	return (values[b.index] != 0) != b.negated
}

func (b BoolVar) addToLinearExpr(e *LinearExpr, c int64) {
	if b.negated {
		// c·(1 − x)
		e.offset += c
		e.terms = append(e.terms, Term{Var: b.index, Coeff: -c})
		return
	}
	e.terms = append(e.terms, Term{Var: b.index, Coeff: c})
}

// IntVar 有界整数变量
type IntVar struct {
	index VarIndex
}

// Index 变量下标
func (i IntVar) Index() VarIndex { return i.index }

func (i IntVar) addToLinearExpr(e *LinearExpr, c int64) {
	e.terms = append(e.terms, Term{Var: i.index, Coeff: c})
}

// Sum 构造若干项之和
func Sum(las ...LinearArgument) *LinearExpr {
	return NewLinearExpr().AddSum(las...)
}

// SumBools 构造布尔变量之和
func SumBools(bvs ...BoolVar) *LinearExpr {
	e := NewLinearExpr()
	for _, b := range bvs {
		e.Add(b)
	}
	return e
}
