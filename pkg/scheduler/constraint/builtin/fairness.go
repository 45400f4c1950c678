package builtin

import (
	"github.com/paiban/callrota/pkg/registry"
	"github.com/paiban/callrota/pkg/scheduler/constraint"
)

// TotalCountRule 夜班总数落在期望值 ±1 内
type TotalCountRule struct {
	*BaseRule
}

// NewTotalCountRule 创建夜班总数规则
func NewTotalCountRule() *TotalCountRule {
	return &TotalCountRule{
		BaseRule: NewBaseRule("夜班总数", constraint.TypeTotalCount, constraint.CategoryHard),
	}
}

// Apply 统计整个周期内的最后一个班次
func (c *TotalCountRule) Apply(b *constraint.Builder, r *registry.Resident) error {
	horizon := b.Calendar().Horizon()
	days := make([]int, horizon)
	for d := range days {
		days[d] = d
	}
	target := b.Fairness().ExpectedTotal(r)
	b.Bounded(r, "total", b.Count(r, days, b.Registry().LastShift()), horizon, target)
	return nil
}

// WeekendCountRule 周末/节假日白班数落在期望值 ±1 内
type WeekendCountRule struct {
	*BaseRule
}

// NewWeekendCountRule 创建周末班次规则
func NewWeekendCountRule() *WeekendCountRule {
	return &WeekendCountRule{
		BaseRule: NewBaseRule("周末班次", constraint.TypeWeekendCount, constraint.CategoryHard),
	}
}

// Apply 统计周末与节假日的第一个班次
func (c *WeekendCountRule) Apply(b *constraint.Builder, r *registry.Resident) error {
	days := b.Calendar().WeekendsAndHolidays()
	target := b.Fairness().ExpectedWeekend(r)
	b.Bounded(r, "weekend", b.Count(r, days, b.Registry().FirstShift()), len(days), target)
	return nil
}

// TraumaBalanceRule 高强度轮转住院医师的工作日白班按可用天数分摊
type TraumaBalanceRule struct {
	*BaseRule
}

// NewTraumaBalanceRule 创建高强度白班均衡规则
func NewTraumaBalanceRule() *TraumaBalanceRule {
	return &TraumaBalanceRule{
		BaseRule: NewBaseRule("高强度白班均衡", constraint.TypeTraumaBalance, constraint.CategoryHard),
	}
}

// Apply 仅作用于高强度轮转住院医师
func (c *TraumaBalanceRule) Apply(b *constraint.Builder, r *registry.Resident) error {
	if !r.HighAcuity() {
		return nil
	}
	target, err := b.Fairness().TraumaShare(r)
	if err != nil {
		return err
	}
	days := b.Calendar().WorkingDays()
	b.Bounded(r, "trauma", b.Count(r, days, b.Registry().FirstShift()), len(days), target)
	return nil
}
