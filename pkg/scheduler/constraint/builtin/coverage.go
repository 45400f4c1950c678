package builtin

import (
	"fmt"

	"github.com/paiban/callrota/pkg/engine"
	"github.com/paiban/callrota/pkg/scheduler/constraint"
)

// CoverageRule 每个需排班日的每个班次恰好一人
type CoverageRule struct {
	*BaseRule
}

// NewCoverageRule 创建覆盖规则
func NewCoverageRule() *CoverageRule {
	return &CoverageRule{
		BaseRule: NewBaseRule("班次覆盖", constraint.TypeCoverage, constraint.CategoryHard),
	}
}

// ApplyGlobal 跳过无需排班日
func (c *CoverageRule) ApplyGlobal(b *constraint.Builder) error {
	reg := b.Registry()
	if reg.Len() == 0 {
		return fmt.Errorf("没有住院医师")
	}
	for d := 0; d < b.Calendar().Horizon(); d++ {
		if reg.IsNoFill(d) {
			continue
		}
		for s, label := range reg.Shifts() {
			lits := make([]engine.BoolVar, 0, reg.Len())
			for r := 0; r < reg.Len(); r++ {
				lits = append(lits, b.AssignAt(r, d, s))
			}
			b.Model().AddExactlyOne(lits...).WithName(fmt.Sprintf("%s_d%d_%s", c.constraintName(), d, label))
		}
	}
	return nil
}
