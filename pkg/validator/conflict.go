// Package validator 提供值班表复核功能
package validator

import (
	"fmt"
	"sort"

	"github.com/paiban/callrota/pkg/calendar"
	"github.com/paiban/callrota/pkg/fairness"
	"github.com/paiban/callrota/pkg/logger"
	"github.com/paiban/callrota/pkg/model"
	"github.com/paiban/callrota/pkg/registry"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictCoverage    ConflictType = "coverage"    // 班次无人或多人
	ConflictVacation    ConflictType = "vacation"    // 休假日被排班
	ConflictNoFill      ConflictType = "nofill"      // 无需排班日被排班
	ConflictClaim       ConflictType = "claim"       // 认领的班次未排给认领人
	ConflictHalfDay     ConflictType = "half_day"    // 教学半天被排班
	ConflictDayCall     ConflictType = "day_call"    // 无资格者值工作日白班
	ConflictPostCall    ConflictType = "post_call"   // 夜班后一天仍值班
	ConflictImplication ConflictType = "implication" // 周五夜班未配对
	ConflictBounds      ConflictType = "bounds"      // 计数超出容差区间
)

// Conflict 冲突信息
type Conflict struct {
	Type     ConflictType `json:"type"`
	Severity string       `json:"severity"` // error/warning
	Resident string       `json:"resident,omitempty"`
	Day      int          `json:"day"`
	Date     string       `json:"date,omitempty"`
	Message  string       `json:"message"`
}

// AuditConfig 复核配置
type AuditConfig struct {
	Classification model.Classification
	HalfDayWeekday calendar.Weekday
	// Fairness 为空时不检查计数区间
	Fairness *fairness.Calculator
}

// AuditConfigFor 从排班配置生成复核配置
func AuditConfigFor(cfg *model.SchedulingConfig, fair *fairness.Calculator) (*AuditConfig, error) {
	w, err := calendar.ParseWeekday(cfg.HalfDayWeekday)
	if err != nil {
		return nil, err
	}
	return &AuditConfig{
		Classification: cfg.Classification,
		HalfDayWeekday: w,
		Fairness:       fair,
	}, nil
}

// RosterAuditor 对解码后的值班表重新检查硬性规则
type RosterAuditor struct {
	config *AuditConfig
	reg    *registry.Registry
	cal    *calendar.Calendar
	log    *logger.RotaLogger
}

// NewRosterAuditor 创建复核器
func NewRosterAuditor(reg *registry.Registry, config *AuditConfig) *RosterAuditor {
	if config == nil {
		config = &AuditConfig{Classification: model.ClassificationJunior, HalfDayWeekday: calendar.Wednesday}
	}
	return &RosterAuditor{
		config: config,
		reg:    reg,
		cal:    reg.Calendar(),
		log:    logger.NewRotaLogger(),
	}
}

// DetectAll 检测所有冲突，按天排序
func (a *RosterAuditor) DetectAll(roster *model.Roster) []Conflict {
	var conflicts []Conflict

	conflicts = append(conflicts, a.detectCoverage(roster)...)
	for _, r := range a.reg.Residents() {
		rr := roster.Resident(r.Name())
		if rr == nil {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictCoverage,
				Severity: "error",
				Resident: r.Name(),
				Message:  "值班表中缺少该住院医师",
			})
			continue
		}
		conflicts = append(conflicts, a.detectExclusions(r, rr)...)
		conflicts = append(conflicts, a.detectClaims(r, rr)...)
		conflicts = append(conflicts, a.detectEligibility(r, rr)...)
		conflicts = append(conflicts, a.detectAdjacency(r, rr)...)
		conflicts = append(conflicts, a.detectBounds(r, rr)...)
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		return conflicts[i].Day < conflicts[j].Day
	})
	for _, c := range conflicts {
		a.log.AuditViolation(string(c.Type), c.Resident, c.Day, c.Message)
	}
	return conflicts
}

// HasErrors 是否存在错误级别的冲突
func HasErrors(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.Severity == "error" {
			return true
		}
	}
	return false
}

func (a *RosterAuditor) conflict(t ConflictType, resident string, day int, format string, args ...interface{}) Conflict {
	c := Conflict{
		Type:     t,
		Severity: "error",
		Resident: resident,
		Day:      day,
		Message:  fmt.Sprintf(format, args...),
	}
	if a.cal.InRange(day) {
		c.Date = a.cal.Date(day).Format("2006-01-02")
	}
	return c
}

// detectCoverage 需排班日每班次恰好一人
func (a *RosterAuditor) detectCoverage(roster *model.Roster) []Conflict {
	var conflicts []Conflict
	for d := 0; d < a.cal.Horizon(); d++ {
		if a.reg.IsNoFill(d) {
			continue
		}
		for s, label := range a.reg.Shifts() {
			holders := 0
			for i := range roster.Residents {
				if roster.Residents[i].Works(d, s) {
					holders++
				}
			}
			if holders != 1 {
				conflicts = append(conflicts, a.conflict(ConflictCoverage, "", d, "%s 班有 %d 人值班", label, holders))
			}
		}
	}
	return conflicts
}

// detectExclusions 休假与无需排班日
func (a *RosterAuditor) detectExclusions(r *registry.Resident, rr *model.ResidentRoster) []Conflict {
	var conflicts []Conflict
	for _, d := range r.VacationDays() {
		if rr.WorksAny(d) {
			conflicts = append(conflicts, a.conflict(ConflictVacation, r.Name(), d, "休假日被排班"))
		}
	}
	for _, d := range a.reg.NoFillDays() {
		if rr.WorksAny(d) {
			conflicts = append(conflicts, a.conflict(ConflictNoFill, r.Name(), d, "无需排班日被排班"))
		}
	}
	return conflicts
}

func (a *RosterAuditor) detectClaims(r *registry.Resident, rr *model.ResidentRoster) []Conflict {
	var conflicts []Conflict
	for _, c := range r.Claims() {
		if !rr.Works(c.Day, c.Shift) {
			conflicts = append(conflicts, a.conflict(ConflictClaim, r.Name(), c.Day, "认领的 %s 班未排给认领人", a.reg.Shifts()[c.Shift]))
		}
	}
	return conflicts
}

// detectEligibility 教学半天与白班资格，仅适用于低年资
func (a *RosterAuditor) detectEligibility(r *registry.Resident, rr *model.ResidentRoster) []Conflict {
	if a.config.Classification != model.ClassificationJunior {
		return nil
	}
	var conflicts []Conflict
	if r.FixedCommitment() {
		for _, d := range a.cal.WorkingDaysOf(a.config.HalfDayWeekday) {
			if rr.WorksAny(d) {
				conflicts = append(conflicts, a.conflict(ConflictHalfDay, r.Name(), d, "教学半天被排班"))
			}
		}
	}
	if !r.HighAcuity() {
		for _, d := range a.cal.WorkingDays() {
			if rr.Works(d, a.reg.FirstShift()) {
				conflicts = append(conflicts, a.conflict(ConflictDayCall, r.Name(), d, "非高强度轮转住院医师值工作日白班"))
			}
		}
	}
	return conflicts
}

// detectAdjacency 下夜班休息与周五夜班配对
func (a *RosterAuditor) detectAdjacency(r *registry.Resident, rr *model.ResidentRoster) []Conflict {
	var conflicts []Conflict
	last := a.reg.LastShift()
	senior := a.config.Classification == model.ClassificationSenior

	for d := 0; d+1 < a.cal.Horizon(); d++ {
		if senior && a.cal.Weekday(d) == calendar.Friday {
			continue
		}
		if rr.Works(d, last) && rr.WorksAny(d+1) {
			conflicts = append(conflicts, a.conflict(ConflictPostCall, r.Name(), d+1, "夜班后一天仍值班"))
		}
	}

	target := calendar.Sunday
	if senior {
		target = calendar.Saturday
	}
	gap := int(target) - int(calendar.Friday)
	for _, d := range a.cal.DaysOf(calendar.Friday) {
		if !a.cal.InRange(d+gap) || !rr.Works(d, last) {
			continue
		}
		for s := 0; s < a.reg.NumShifts(); s++ {
			if !rr.Works(d+gap, s) {
				conflicts = append(conflicts, a.conflict(ConflictImplication, r.Name(), d+gap, "周五夜班后未值 %s 的 %s 班", target, a.reg.Shifts()[s]))
			}
		}
	}
	return conflicts
}

// detectBounds 夜班总数与周末白班数在容差区间内
func (a *RosterAuditor) detectBounds(r *registry.Resident, rr *model.ResidentRoster) []Conflict {
	fair := a.config.Fairness
	if fair == nil {
		return nil
	}
	var conflicts []Conflict

	total := rr.ShiftCounts[a.reg.Shifts()[a.reg.LastShift()]]
	if t := fair.ExpectedTotal(r); total < t.Lower || total > t.Upper {
		conflicts = append(conflicts, a.conflict(ConflictBounds, r.Name(), 0, "夜班总数 %d 不在 [%d, %d] 内", total, t.Lower, t.Upper))
	}
	if t := fair.ExpectedWeekend(r); rr.WeekendFirstShifts < t.Lower || rr.WeekendFirstShifts > t.Upper {
		conflicts = append(conflicts, a.conflict(ConflictBounds, r.Name(), 0, "周末白班数 %d 不在 [%d, %d] 内", rr.WeekendFirstShifts, t.Lower, t.Upper))
	}
	return conflicts
}
