package builtin

import (
	"github.com/paiban/callrota/pkg/calendar"
	apperrors "github.com/paiban/callrota/pkg/errors"
	"github.com/paiban/callrota/pkg/model"
	"github.com/paiban/callrota/pkg/scheduler/constraint"
)

// JuniorPolicy 低年资规则集
func JuniorPolicy(cfg *model.SchedulingConfig) (*constraint.Policy, error) {
	halfDay, err := calendar.ParseWeekday(cfg.HalfDayWeekday)
	if err != nil {
		return nil, apperrors.Configuration("教学半天星期无效: %s", cfg.HalfDayWeekday)
	}

	p := constraint.NewPolicy("junior", model.ClassificationJunior)
	registerEligibility(p)
	p.MustRegister(constraint.SlotEligibility, NewHalfDayRule(halfDay))
	p.MustRegister(constraint.SlotEligibility, NewDayCallRule())

	p.MustRegister(constraint.SlotCoverage, NewCoverageRule())

	p.MustRegister(constraint.SlotAdjacency, NewPostCallRule(nil))
	p.MustRegister(constraint.SlotAdjacency, NewImplicationRule(calendar.Friday, calendar.Sunday))
	p.MustRegister(constraint.SlotAdjacency, NewFullDayRule(cfg.FullDayPenalty))
	registerSpacing(p, cfg)

	registerCounts(p)
	p.MustRegister(constraint.SlotFairness, NewTraumaBalanceRule())
	return p, nil
}

// SeniorPolicy 高年资规则集；周五夜班与周六配对，因此下夜班规则忽略周五
func SeniorPolicy(cfg *model.SchedulingConfig) (*constraint.Policy, error) {
	friday := calendar.Friday

	p := constraint.NewPolicy("senior", model.ClassificationSenior)
	registerEligibility(p)

	p.MustRegister(constraint.SlotCoverage, NewCoverageRule())

	p.MustRegister(constraint.SlotAdjacency, NewPostCallRule(&friday))
	p.MustRegister(constraint.SlotAdjacency, NewImplicationRule(calendar.Friday, calendar.Saturday))
	registerSpacing(p, cfg)

	registerCounts(p)
	return p, nil
}

// PolicyFor 按分组选择规则集
func PolicyFor(cfg *model.SchedulingConfig) (*constraint.Policy, error) {
	switch cfg.Classification {
	case model.ClassificationJunior:
		return JuniorPolicy(cfg)
	case model.ClassificationSenior:
		return SeniorPolicy(cfg)
	default:
		return nil, apperrors.Configuration("未知的住院医师分组: %s", cfg.Classification)
	}
}

func registerEligibility(p *constraint.Policy) {
	p.MustRegister(constraint.SlotEligibility, NewVacationRule())
	p.MustRegister(constraint.SlotEligibility, NewNoFillRule())
	p.MustRegister(constraint.SlotEligibility, NewClaimsRule())
}

func registerSpacing(p *constraint.Policy, cfg *model.SchedulingConfig) {
	p.MustRegister(constraint.SlotAdjacency, NewRepeatedFridayRule(cfg.RepeatedFridayPenalty))
	p.MustRegister(constraint.SlotAdjacency, NewDispersionRule(cfg.MaxShiftsPerWeek, cfg.DispersionFactor))
}

func registerCounts(p *constraint.Policy) {
	p.MustRegister(constraint.SlotFairness, NewTotalCountRule())
	p.MustRegister(constraint.SlotFairness, NewWeekendCountRule())
}
