package builtin

import (
	"github.com/paiban/callrota/pkg/calendar"
	apperrors "github.com/paiban/callrota/pkg/errors"
	"github.com/paiban/callrota/pkg/registry"
	"github.com/paiban/callrota/pkg/scheduler/constraint"
)

// VacationRule 休假日不排班
type VacationRule struct {
	*BaseRule
}

// NewVacationRule 创建休假规则
func NewVacationRule() *VacationRule {
	return &VacationRule{
		BaseRule: NewBaseRule("休假", constraint.TypeVacation, constraint.CategoryHard),
	}
}

// Apply 休假日所有班次为 0
func (c *VacationRule) Apply(b *constraint.Builder, r *registry.Resident) error {
	for _, d := range r.VacationDays() {
		b.ForceOff(r, d, c.constraintName())
	}
	return nil
}

// NoFillRule 无需排班的日期不排班
type NoFillRule struct {
	*BaseRule
}

// NewNoFillRule 创建无需排班规则
func NewNoFillRule() *NoFillRule {
	return &NoFillRule{
		BaseRule: NewBaseRule("无需排班", constraint.TypeNoFill, constraint.CategoryHard),
	}
}

// Apply 无需排班日所有班次为 0
func (c *NoFillRule) Apply(b *constraint.Builder, r *registry.Resident) error {
	for _, d := range b.Registry().NoFillDays() {
		b.ForceOff(r, d, c.constraintName())
	}
	return nil
}

// HalfDayRule 固定教学半天：固定任务住院医师在指定工作日不排班
type HalfDayRule struct {
	*BaseRule
	weekday calendar.Weekday
}

// NewHalfDayRule 创建教学半天规则
func NewHalfDayRule(weekday calendar.Weekday) *HalfDayRule {
	return &HalfDayRule{
		BaseRule: NewBaseRule("教学半天", constraint.TypeHalfDay, constraint.CategoryHard),
		weekday:  weekday,
	}
}

// Apply 排除指定星期的工作日
func (c *HalfDayRule) Apply(b *constraint.Builder, r *registry.Resident) error {
	if !r.FixedCommitment() {
		return nil
	}
	for _, d := range b.Calendar().WorkingDaysOf(c.weekday) {
		b.ForceOff(r, d, c.constraintName())
	}
	return nil
}

// DayCallRule 工作日白班只能由高强度轮转住院医师承担
type DayCallRule struct {
	*BaseRule
}

// NewDayCallRule 创建白班资格规则
func NewDayCallRule() *DayCallRule {
	return &DayCallRule{
		BaseRule: NewBaseRule("白班资格", constraint.TypeDayCall, constraint.CategoryHard),
	}
}

// Apply 非高强度轮转住院医师的工作日白班为 0
func (c *DayCallRule) Apply(b *constraint.Builder, r *registry.Resident) error {
	if r.HighAcuity() {
		return nil
	}
	first := b.Registry().FirstShift()
	for _, d := range b.Calendar().WorkingDays() {
		b.ForceShiftOff(r, d, first, c.constraintName())
	}
	return nil
}

// ClaimsRule 已认领的班次必须排给认领人
type ClaimsRule struct {
	*BaseRule
}

// NewClaimsRule 创建认领规则
func NewClaimsRule() *ClaimsRule {
	return &ClaimsRule{
		BaseRule: NewBaseRule("预先认领", constraint.TypeClaims, constraint.CategoryHard),
	}
}

// Apply 认领的 (天, 班次) 为 1
func (c *ClaimsRule) Apply(b *constraint.Builder, r *registry.Resident) error {
	horizon := b.Calendar().Horizon()
	for _, claim := range r.Claims() {
		if claim.Day < 0 || claim.Day >= horizon || claim.Shift < 0 || claim.Shift >= b.Registry().NumShifts() {
			return apperrors.Configuration("%s 的认领 (%d, %d) 超出范围", r.Name(), claim.Day, claim.Shift)
		}
		b.ForceShiftOn(r, claim.Day, claim.Shift, c.constraintName())
	}
	return nil
}
