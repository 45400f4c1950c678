// Package constraint 定义规则接口、编译上下文和轮转规则集
package constraint

import (
	"github.com/paiban/callrota/pkg/registry"
)

// Type 规则类型标识
type Type string

const (
	// 硬约束类型
	TypeVacation      Type = "vacation"
	TypeNoFill        Type = "no_fill"
	TypeHalfDay       Type = "half_day"
	TypeDayCall       Type = "day_call_eligibility"
	TypeClaims        Type = "claims"
	TypePostCall      Type = "post_call"
	TypeFridayPairing Type = "friday_pairing"
	TypeCoverage      Type = "coverage"
	TypeTotalCount    Type = "total_count"
	TypeWeekendCount  Type = "weekend_count"
	TypeTraumaBalance Type = "trauma_balance"

	// 软约束类型
	TypeFullDay        Type = "full_day"
	TypeRepeatedFriday Type = "repeated_friday"
	TypeDispersion     Type = "dispersion"
)

// Category 规则类别
type Category string

const (
	CategoryHard Category = "hard" // 硬约束（必须满足）
	CategorySoft Category = "soft" // 软约束（违反时计入目标函数）
)

// Slot 规则在轮转规则集中的位置
type Slot string

const (
	SlotEligibility Slot = "eligibility"
	SlotCoverage    Slot = "coverage"
	SlotAdjacency   Slot = "adjacency"
	SlotFairness    Slot = "fairness"
)

// Slots 编译顺序
func Slots() []Slot {
	return []Slot{SlotEligibility, SlotCoverage, SlotAdjacency, SlotFairness}
}

// Rule 规则接口
type Rule interface {
	// Name 返回规则名称
	Name() string

	// Type 返回规则类型
	Type() Type

	// Category 返回规则类别
	Category() Category
}

// ResidentRule 逐个住院医师编译的规则
type ResidentRule interface {
	Rule

	// Apply 向模型添加该住院医师的约束与惩罚项
	Apply(b *Builder, r *registry.Resident) error
}

// GlobalRule 跨住院医师编译的规则（如覆盖）
type GlobalRule interface {
	Rule

	// ApplyGlobal 向模型添加约束
	ApplyGlobal(b *Builder) error
}
