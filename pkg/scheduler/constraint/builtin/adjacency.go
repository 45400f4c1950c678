package builtin

import (
	"fmt"

	"github.com/paiban/callrota/pkg/calendar"
	apperrors "github.com/paiban/callrota/pkg/errors"
	"github.com/paiban/callrota/pkg/engine"
	"github.com/paiban/callrota/pkg/registry"
	"github.com/paiban/callrota/pkg/scheduler/constraint"
	"github.com/paiban/callrota/pkg/scheduler/penalty"
)

// PostCallRule 夜班后一天不排任何班次
type PostCallRule struct {
	*BaseRule
	ignore *calendar.Weekday
}

// NewPostCallRule 创建下夜班规则；ignore 不为空时该星期的夜班不受限制
func NewPostCallRule(ignore *calendar.Weekday) *PostCallRule {
	return &PostCallRule{
		BaseRule: NewBaseRule("下夜班休息", constraint.TypePostCall, constraint.CategoryHard),
		ignore:   ignore,
	}
}

// Apply last(d) 与 d+1 的每个班次至多一个
func (c *PostCallRule) Apply(b *constraint.Builder, r *registry.Resident) error {
	cal := b.Calendar()
	last := b.Registry().LastShift()
	for d := 0; d+1 < cal.Horizon(); d++ {
		if c.ignore != nil && cal.Weekday(d) == *c.ignore {
			continue
		}
		for s := 0; s < b.Registry().NumShifts(); s++ {
			b.Model().AddAtMostOne(b.Assign(r, d, last), b.Assign(r, d+1, s)).
				WithName(fmt.Sprintf("%s_%s_d%d_s%d", c.constraintName(), r.Name(), d, s))
		}
	}
	return nil
}

// ImplicationRule 某星期的夜班要求若干天后整天值班
type ImplicationRule struct {
	*BaseRule
	from calendar.Weekday
	to   calendar.Weekday
}

// NewImplicationRule 创建跨天蕴含规则，例如周五夜班 ⇒ 周日整天
func NewImplicationRule(from, to calendar.Weekday) *ImplicationRule {
	return &ImplicationRule{
		BaseRule: NewBaseRule(fmt.Sprintf("%s夜班蕴含%s", from, to), constraint.TypeFridayPairing, constraint.CategoryHard),
		from:     from,
		to:       to,
	}
}

// Gap 两个星期之间相隔的天数
func (c *ImplicationRule) Gap() int {
	return ((int(c.to)-int(c.from))%calendar.DaysPerWeek + calendar.DaysPerWeek) % calendar.DaysPerWeek
}

// Apply 目标日超出排班周期时跳过
func (c *ImplicationRule) Apply(b *constraint.Builder, r *registry.Resident) error {
	cal := b.Calendar()
	last := b.Registry().LastShift()
	gap := c.Gap()
	for _, d := range cal.DaysOf(c.from) {
		target := d + gap
		if !cal.InRange(target) {
			continue
		}
		for s := 0; s < b.Registry().NumShifts(); s++ {
			b.Model().AddImplication(b.Assign(r, d, last), b.Assign(r, target, s)).
				WithName(fmt.Sprintf("%s_%s_d%d_s%d", c.constraintName(), r.Name(), d, s))
		}
	}
	return nil
}

// FullDayRule 两个班次只值其一时计罚
type FullDayRule struct {
	*BaseRule
	weight int64
}

// NewFullDayRule 创建整天值班偏好规则
func NewFullDayRule(weight int) *FullDayRule {
	return &FullDayRule{
		BaseRule: NewBaseRule("整天值班偏好", constraint.TypeFullDay, constraint.CategorySoft),
		weight:   int64(weight),
	}
}

// Apply violated ⇔ first XOR last
func (c *FullDayRule) Apply(b *constraint.Builder, r *registry.Resident) error {
	reg := b.Registry()
	if reg.NumShifts() != 2 {
		return apperrors.Configuration("整天值班偏好只支持每天两个班次，当前为 %d 个", reg.NumShifts())
	}
	for d := 0; d < b.Calendar().Horizon(); d++ {
		violated := b.Model().NewBoolVar(fmt.Sprintf("%s_%s_d%d", c.constraintName(), r.Name(), d))
		b.Model().AddBoolXor(b.Assign(r, d, reg.FirstShift()), b.Assign(r, d, reg.LastShift()), violated.Not())
		b.Penalties().Add(penalty.Term{
			Kind:     penalty.KindFullDay,
			Resident: r.Index(),
			Day:      d,
			Weight:   c.weight,
			Var:      violated,
		})
	}
	return nil
}

// RepeatedFridayRule 连续两周周五夜班时计罚
type RepeatedFridayRule struct {
	*BaseRule
	weight int64
}

// NewRepeatedFridayRule 创建连续周五规则
func NewRepeatedFridayRule(weight int) *RepeatedFridayRule {
	return &RepeatedFridayRule{
		BaseRule: NewBaseRule("连续周五夜班", constraint.TypeRepeatedFriday, constraint.CategorySoft),
		weight:   int64(weight),
	}
}

// Apply conflict ⇔ fri_last(d) ∧ fri_last(d+7)
func (c *RepeatedFridayRule) Apply(b *constraint.Builder, r *registry.Resident) error {
	cal := b.Calendar()
	last := b.Registry().LastShift()
	for _, d := range cal.DaysOf(calendar.Friday) {
		next := d + calendar.DaysPerWeek
		if !cal.InRange(next) {
			continue
		}
		first, second := b.Assign(r, d, last), b.Assign(r, next, last)
		conflict := b.Model().NewBoolVar(fmt.Sprintf("%s_%s_d%d", c.constraintName(), r.Name(), d))
		b.Model().AddImplication(conflict, first)
		b.Model().AddImplication(conflict, second)
		b.Model().AddLinear(engine.SumBools(first, second), 0, 1).OnlyEnforceIf(conflict.Not())
		b.Penalties().Add(penalty.Term{
			Kind:     penalty.KindRepeatedFriday,
			Resident: r.Index(),
			Day:      d,
			Weight:   c.weight,
			Var:      conflict,
		})
	}
	return nil
}

// DispersionRule 每周班次数超过上限时按超出量计罚
type DispersionRule struct {
	*BaseRule
	cap    int64
	factor int64
}

// NewDispersionRule 创建每周分散规则
func NewDispersionRule(maxPerWeek, factor int) *DispersionRule {
	return &DispersionRule{
		BaseRule: NewBaseRule("每周分散", constraint.TypeDispersion, constraint.CategorySoft),
		cap:      int64(maxPerWeek),
		factor:   int64(factor),
	}
}

// Apply over ⇔ total > cap；overage = max(0, total − cap)，罚 2·factor·overage。
// 只统计完整的周
func (c *DispersionRule) Apply(b *constraint.Builder, r *registry.Resident) error {
	m := b.Model()
	for _, w := range b.Calendar().FullWeeks() {
		days := make([]int, 0, w.Len())
		for d := w.Start; d < w.End; d++ {
			days = append(days, d)
		}
		total := b.CountAll(r, days)
		maxTotal := int64(len(days) * b.Registry().NumShifts())
		name := fmt.Sprintf("%s_%s_w%d", c.constraintName(), r.Name(), w.Index)

		exceeds := m.NewBoolVar(name + "_exceeds")
		overage := m.NewIntVar(0, maxTotal, name+"_overage")

		m.AddGreaterOrEqual(total, engine.NewConstant(c.cap+1)).OnlyEnforceIf(exceeds)
		m.AddLessOrEqual(total, engine.NewConstant(c.cap)).OnlyEnforceIf(exceeds.Not())
		m.AddEquality(overage, engine.NewLinearExpr().Add(total).AddConstant(-c.cap)).OnlyEnforceIf(exceeds)
		m.AddLinear(overage, 0, 0).OnlyEnforceIf(exceeds.Not())

		b.Penalties().Add(penalty.Term{
			Kind:     penalty.KindDispersion,
			Resident: r.Index(),
			Day:      w.Start,
			Weight:   2 * c.factor,
			Var:      overage,
		})
	}
	return nil
}
