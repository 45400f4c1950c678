package pbsat

import (
	"fmt"
	"math"
	"sort"

	"github.com/crillab/gophersat/solver"

	"github.com/paiban/callrota/pkg/engine"
)

// maxXorArity 异或约束展开为奇偶子句的最大文字数
const maxXorArity = 12

// pbTerm 伪布尔项 w·lit，lit 为带符号的 SAT 变量编号（从 1 开始）
type pbTerm struct {
	lit int
	w   int64
}

// encoding 模型变量到 SAT 变量的映射
//
// 布尔变量占一个 SAT 变量；整数变量 x ∈ [lb, ub] 采用顺序编码
// x = lb + Σ y_k，且 y_{k+1} ⇒ y_k。
type encoding struct {
	m       *engine.Model
	base    []int   // 模型变量 → 第一个 SAT 变量
	width   []int   // 模型变量占用的 SAT 变量数
	nbVars  int
	constrs []solver.PBConstr
	// unsat 编码阶段已发现无解
	unsat bool
}

func newEncoding(m *engine.Model) (*encoding, error) {
	vars := m.Vars()
	enc := &encoding{
		m:     m,
		base:  make([]int, len(vars)),
		width: make([]int, len(vars)),
	}
	next := 1
	for i, v := range vars {
		enc.base[i] = next
		switch v.Kind {
		case engine.KindBool:
			enc.width[i] = 1
		default:
			span := v.Upper - v.Lower
			if span < 0 || span > math.MaxInt32 {
				return nil, fmt.Errorf("整数变量 %s 的取值范围无法编码", v.Name)
			}
			enc.width[i] = int(span)
		}
		next += enc.width[i]
	}
	enc.nbVars = next - 1

	// 声明全部变量，使其出现在问题中
	if enc.nbVars > 0 {
		decl := solver.PBConstr{AtLeast: 0}
		for v := 1; v <= enc.nbVars; v++ {
			decl.Lits = append(decl.Lits, v)
			decl.Weights = append(decl.Weights, 1)
		}
		enc.constrs = append(enc.constrs, decl)
	}

	// 顺序编码的单调性 y_{k+1} ⇒ y_k
	for i, v := range vars {
		if v.Kind != engine.KindInt {
			continue
		}
		for k := 1; k < enc.width[i]; k++ {
			enc.clause(-(enc.base[i] + k), enc.base[i]+k-1)
		}
	}
	return enc, nil
}

// clause 添加子句 l1 ∨ l2 ∨ ...
func (enc *encoding) clause(lits ...int) {
	w := make([]int, len(lits))
	for i := range w {
		w[i] = 1
	}
	enc.constrs = append(enc.constrs, solver.PBConstr{Lits: lits, Weights: w, AtLeast: 1})
}

// lit 将模型文字转换为 SAT 文字
func (enc *encoding) lit(b engine.BoolVar) int {
	l := enc.base[b.Index()]
	if b.Negated() {
		return -l
	}
	return l
}

// expand 将线性表达式展开为 SAT 变量上的伪布尔项与常量
func (enc *encoding) expand(e *engine.LinearExpr) ([]pbTerm, int64) {
	vars := enc.m.Vars()
	constant := e.Offset()
	coeffs := make(map[int]int64)
	for _, t := range e.Terms() {
		v := vars[t.Var]
		if v.Kind == engine.KindBool {
			coeffs[enc.base[t.Var]] += t.Coeff
			continue
		}
		constant += t.Coeff * v.Lower
		for k := 0; k < enc.width[t.Var]; k++ {
			coeffs[enc.base[t.Var]+k] += t.Coeff
		}
	}

	terms := make([]pbTerm, 0, len(coeffs))
	for l, w := range coeffs {
		if w != 0 {
			terms = append(terms, pbTerm{lit: l, w: w})
		}
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].lit < terms[j].lit })
	return terms, constant
}

// normalize 把负系数项 w·l 改写为 w + |w|·¬l，返回新的常量增量
func normalize(terms []pbTerm) ([]pbTerm, int64) {
	var shift int64
	out := make([]pbTerm, len(terms))
	for i, t := range terms {
		if t.w < 0 {
			shift += t.w
			out[i] = pbTerm{lit: -t.lit, w: -t.w}
			continue
		}
		out[i] = t
	}
	return out, shift
}

// atLeast 添加 Σ w·l ≥ k，仅当 enforce 中所有文字为真时成立
func (enc *encoding) atLeast(terms []pbTerm, k int64, enforce []int) error {
	terms, shift := normalize(terms)
	k -= shift
	if k <= 0 {
		return nil
	}

	var sum int64
	for _, t := range terms {
		sum += t.w
	}
	if sum < k && len(enforce) == 0 {
		enc.unsat = true
		return nil
	}
	if k > math.MaxInt32 || sum > math.MaxInt32 {
		return fmt.Errorf("系数过大，无法编码为伪布尔约束")
	}

	c := solver.PBConstr{AtLeast: int(k)}
	for _, t := range terms {
		c.Lits = append(c.Lits, t.lit)
		c.Weights = append(c.Weights, int(t.w))
	}
	// 任一条件文字为假时约束自动满足
	for _, e := range enforce {
		c.Lits = append(c.Lits, -e)
		c.Weights = append(c.Weights, int(k))
	}
	enc.constrs = append(enc.constrs, c)
	return nil
}

// linear 编码 lo ≤ expr ≤ hi
func (enc *encoding) linear(e *engine.LinearExpr, lo, hi int64, enforce []int) error {
	terms, constant := enc.expand(e)
	if lo != math.MinInt64 {
		if err := enc.atLeast(terms, lo-constant, enforce); err != nil {
			return err
		}
	}
	if hi != math.MaxInt64 {
		neg := make([]pbTerm, len(terms))
		for i, t := range terms {
			neg[i] = pbTerm{lit: t.lit, w: -t.w}
		}
		if err := enc.atLeast(neg, constant-hi, enforce); err != nil {
			return err
		}
	}
	return nil
}

// xor 展开为奇偶子句：排除每一种为真文字个数为偶数的取值
func (enc *encoding) xor(lits []engine.BoolVar, enforce []int) error {
	n := len(lits)
	if n == 0 {
		if len(enforce) == 0 {
			enc.unsat = true
			return nil
		}
		c := make([]int, 0, len(enforce))
		for _, e := range enforce {
			c = append(c, -e)
		}
		enc.clause(c...)
		return nil
	}
	if n > maxXorArity {
		return fmt.Errorf("异或约束包含 %d 个文字，超过上限 %d", n, maxXorArity)
	}

	for mask := 0; mask < 1<<n; mask++ {
		ones := 0
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				ones++
			}
		}
		if ones%2 == 1 {
			continue
		}
		c := make([]int, 0, n+len(enforce))
		for i, b := range lits {
			l := enc.lit(b)
			if mask&(1<<i) != 0 {
				c = append(c, -l)
			} else {
				c = append(c, l)
			}
		}
		for _, e := range enforce {
			c = append(c, -e)
		}
		enc.clause(c...)
	}
	return nil
}

// constraint 编码一条模型约束
func (enc *encoding) constraint(ct engine.Constraint) error {
	enforce := make([]int, len(ct.Enforcement))
	for i, e := range ct.Enforcement {
		enforce[i] = enc.lit(e)
	}

	switch ct.Kind {
	case engine.ConstraintLinear:
		return enc.linear(ct.Expr, ct.Lower, ct.Upper, enforce)
	case engine.ConstraintExactlyOne:
		return enc.linear(engine.SumBools(ct.Literals...), 1, 1, enforce)
	case engine.ConstraintAtMostOne:
		return enc.linear(engine.SumBools(ct.Literals...), math.MinInt64, 1, enforce)
	case engine.ConstraintImplication:
		return enc.linear(engine.SumBools(ct.Literals[0].Not(), ct.Literals[1]), 1, math.MaxInt64, enforce)
	case engine.ConstraintBoolXor:
		return enc.xor(ct.Literals, enforce)
	default:
		return fmt.Errorf("不支持的约束类型 %s", ct.Kind)
	}
}

// objective 将目标函数转换为代价函数
func (enc *encoding) objective(e *engine.LinearExpr) ([]solver.Lit, []int, error) {
	terms, _ := enc.expand(e)
	terms, _ = normalize(terms)

	lits := make([]solver.Lit, 0, len(terms))
	weights := make([]int, 0, len(terms))
	for _, t := range terms {
		if t.w > math.MaxInt32 {
			return nil, nil, fmt.Errorf("目标函数系数过大")
		}
		lits = append(lits, solver.IntToLit(int32(t.lit)))
		weights = append(weights, int(t.w))
	}
	return lits, weights, nil
}

// decode 将 SAT 模型还原为模型变量取值
func (enc *encoding) decode(bindings []bool) []int64 {
	if bindings == nil {
		return nil
	}
	vars := enc.m.Vars()
	values := make([]int64, len(vars))
	at := func(v int) bool {
		// bindings 以 0 为起点
		return v-1 < len(bindings) && bindings[v-1]
	}
	for i, v := range vars {
		if v.Kind == engine.KindBool {
			if at(enc.base[i]) {
				values[i] = 1
			}
			continue
		}
		values[i] = v.Lower
		for k := 0; k < enc.width[i]; k++ {
			if at(enc.base[i] + k) {
				values[i]++
			}
		}
	}
	return values
}
