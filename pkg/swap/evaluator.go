// Package swap 提供换班评估与推荐，在已求解的值班表上模拟调整，不重新求解
package swap

import (
	"fmt"
	"math"

	apperrors "github.com/paiban/callrota/pkg/errors"
	"github.com/paiban/callrota/pkg/fairness"
	"github.com/paiban/callrota/pkg/model"
	"github.com/paiban/callrota/pkg/registry"
	"github.com/paiban/callrota/pkg/scheduler/solver"
	"github.com/paiban/callrota/pkg/validator"
)

// 换班类型
const (
	TypeTakeOver = "take_over" // 目标接手该班次
	TypeExchange = "exchange"  // 双方互换班次
)

// SwapEvaluator 换班评估器
type SwapEvaluator struct {
	reg     *registry.Registry
	fair    *fairness.Calculator
	auditor *validator.RosterAuditor
}

// NewSwapEvaluator 由生成值班表时的排班配置创建评估器
func NewSwapEvaluator(cfg *model.SchedulingConfig) (*SwapEvaluator, error) {
	reg, fair, err := solver.Prepare(cfg)
	if err != nil {
		return nil, err
	}
	auditor, err := solver.NewAuditor(cfg, reg, fair)
	if err != nil {
		return nil, err
	}
	return &SwapEvaluator{
		reg:     reg,
		fair:    fair,
		auditor: auditor,
	}, nil
}

// Slot (天, 班次)
type Slot struct {
	Day   int    `json:"day"`
	Shift string `json:"shift"`
}

// SwapRequest 换班请求；Exchange 为空时为接手
type SwapRequest struct {
	Source   Slot   `json:"source"`
	Target   string `json:"target"`
	Exchange *Slot  `json:"exchange,omitempty"` // 目标交还给原值班人的班次
}

// Type 换班类型
func (r *SwapRequest) Type() string {
	if r.Exchange != nil {
		return TypeExchange
	}
	return TypeTakeOver
}

// SwapEvaluation 换班评估结果
type SwapEvaluation struct {
	Type           string               `json:"type"`
	Feasible       bool                 `json:"feasible"`
	Score          float64              `json:"score"`  // 0-100
	Issues         []validator.Conflict `json:"issues"` // 换班新引入的冲突
	Impact         []ResidentImpact     `json:"impact"`
	Recommendation string               `json:"recommendation"`
}

// ResidentImpact 单人受到的影响
type ResidentImpact struct {
	Name          string  `json:"name"`
	NightsBefore  int     `json:"nights_before"`
	NightsAfter   int     `json:"nights_after"`
	WeekendBefore int     `json:"weekend_before"`
	WeekendAfter  int     `json:"weekend_after"`
	Expected      float64 `json:"expected"`
	// Deviation 调整后偏离期望值的变化，负数表示更接近
	Deviation float64 `json:"deviation_change"`
}

// move 将 (day, shift) 从 from 移给 to
type move struct {
	day, shift int
	from, to   string
}

// EvaluateSwap 评估换班可行性
func (e *SwapEvaluator) EvaluateSwap(roster *model.Roster, req *SwapRequest) (*SwapEvaluation, error) {
	moves, err := e.moves(roster, req)
	if err != nil {
		return nil, err
	}
	swapped := applyMoves(roster, moves)

	result := &SwapEvaluation{
		Type:     req.Type(),
		Feasible: true,
		Issues:   make([]validator.Conflict, 0),
	}
	result.Issues = newConflicts(e.auditor.DetectAll(roster), e.auditor.DetectAll(swapped))
	if validator.HasErrors(result.Issues) {
		result.Feasible = false
	}

	deviation := 0.0
	for _, name := range touched(moves) {
		impact := e.impact(roster, swapped, name)
		deviation += impact.Deviation
		result.Impact = append(result.Impact, impact)
	}

	result.Score = score(result.Feasible, deviation)
	result.Recommendation = recommendation(result)
	return result, nil
}

// CanSwap 快速检查是否可换班
func (e *SwapEvaluator) CanSwap(roster *model.Roster, req *SwapRequest) (bool, string) {
	result, err := e.EvaluateSwap(roster, req)
	if err != nil {
		return false, err.Error()
	}
	if !result.Feasible {
		if len(result.Issues) > 0 {
			return false, result.Issues[0].Message
		}
		return false, "无法进行换班"
	}
	return true, ""
}

// moves 校验请求并转换为移动列表
func (e *SwapEvaluator) moves(roster *model.Roster, req *SwapRequest) ([]move, error) {
	src, holder, err := e.slot(roster, req.Source)
	if err != nil {
		return nil, err
	}
	if holder == "" {
		return nil, apperrors.InvalidInput("source", "该班次无人值班")
	}
	if roster.Resident(req.Target) == nil {
		return nil, apperrors.NotFound("住院医师", req.Target)
	}
	if req.Target == holder {
		return nil, apperrors.InvalidInput("target", "目标与原值班人相同")
	}

	moves := []move{{day: req.Source.Day, shift: src, from: holder, to: req.Target}}
	if req.Exchange == nil {
		return moves, nil
	}

	ex, exHolder, err := e.slot(roster, *req.Exchange)
	if err != nil {
		return nil, err
	}
	if exHolder != req.Target {
		return nil, apperrors.InvalidInput("exchange", fmt.Sprintf("该班次不由 %s 值班", req.Target))
	}
	if req.Exchange.Day == req.Source.Day && ex == src {
		return nil, apperrors.InvalidInput("exchange", "互换班次与原班次相同")
	}
	return append(moves, move{day: req.Exchange.Day, shift: ex, from: req.Target, to: holder}), nil
}

func (e *SwapEvaluator) slot(roster *model.Roster, s Slot) (int, string, error) {
	idx, ok := e.reg.ShiftIndex(s.Shift)
	if !ok {
		return 0, "", apperrors.InvalidInput("shift", "未知班次 "+s.Shift)
	}
	if s.Day < 0 || s.Day >= len(roster.Days) {
		return 0, "", apperrors.InvalidInput("day", "超出排班周期")
	}
	return idx, roster.Days[s.Day].Holders[idx], nil
}

func (e *SwapEvaluator) impact(before, after *model.Roster, name string) ResidentImpact {
	last := e.reg.Shifts()[e.reg.LastShift()]
	b, a := before.Resident(name), after.Resident(name)

	impact := ResidentImpact{
		Name:          name,
		NightsBefore:  b.ShiftCounts[last],
		NightsAfter:   a.ShiftCounts[last],
		WeekendBefore: b.WeekendFirstShifts,
		WeekendAfter:  a.WeekendFirstShifts,
	}
	if r, ok := e.reg.Lookup(name); ok {
		total := e.fair.ExpectedTotal(r).Expected
		weekend := e.fair.ExpectedWeekend(r).Expected
		impact.Expected = total
		impact.Deviation = math.Abs(float64(impact.NightsAfter)-total) - math.Abs(float64(impact.NightsBefore)-total) +
			math.Abs(float64(impact.WeekendAfter)-weekend) - math.Abs(float64(impact.WeekendBefore)-weekend)
	}
	return impact
}

// applyMoves 返回调整后的值班表副本
func applyMoves(roster *model.Roster, moves []move) *model.Roster {
	out := *roster
	out.Residents = make([]model.ResidentRoster, len(roster.Residents))
	for i, rr := range roster.Residents {
		c := rr
		c.ShiftCounts = make(map[string]int, len(rr.ShiftCounts))
		for k, v := range rr.ShiftCounts {
			c.ShiftCounts[k] = v
		}
		c.Assigned = make([][]bool, len(rr.Assigned))
		for d := range rr.Assigned {
			c.Assigned[d] = append([]bool(nil), rr.Assigned[d]...)
		}
		out.Residents[i] = c
	}
	out.Days = make([]model.DaySlots, len(roster.Days))
	for d, day := range roster.Days {
		day.Holders = append([]string(nil), day.Holders...)
		out.Days[d] = day
	}

	for _, m := range moves {
		label := out.Shifts[m.shift]
		weekendFirst := m.shift == 0 && out.Days[m.day].WeekendOrHoliday

		from, to := out.Resident(m.from), out.Resident(m.to)
		from.Assigned[m.day][m.shift] = false
		from.ShiftCounts[label]--
		from.Total--
		to.Assigned[m.day][m.shift] = true
		to.ShiftCounts[label]++
		to.Total++
		if weekendFirst {
			from.WeekendFirstShifts--
			to.WeekendFirstShifts++
		}
		out.Days[m.day].Holders[m.shift] = m.to
	}
	return &out
}

func touched(moves []move) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range moves {
		for _, n := range []string{m.from, m.to} {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}

// newConflicts 只保留调整后新出现的冲突
func newConflicts(before, after []validator.Conflict) []validator.Conflict {
	key := func(c validator.Conflict) string {
		return fmt.Sprintf("%s|%s|%d|%s", c.Type, c.Resident, c.Day, c.Message)
	}
	existing := make(map[string]bool, len(before))
	for _, c := range before {
		existing[key(c)] = true
	}
	result := make([]validator.Conflict, 0)
	for _, c := range after {
		if !existing[key(c)] {
			result = append(result, c)
		}
	}
	return result
}

// score 不可行为 0；偏离期望值每增加 1 扣 20 分
func score(feasible bool, deviation float64) float64 {
	if !feasible {
		return 0
	}
	s := 100 - 20*math.Max(deviation, 0)
	return math.Max(s, 0)
}

// recommendation 生成换班建议
func recommendation(result *SwapEvaluation) string {
	switch {
	case !result.Feasible:
		return "不建议进行此换班，存在硬约束冲突"
	case result.Score >= 90:
		return "强烈推荐，换班后公平性不变或更好"
	case result.Score >= 70:
		return "可以进行，但略微偏离期望值"
	case result.Score >= 50:
		return "谨慎进行，可能影响公平性"
	default:
		return "不推荐，虽然可行但明显偏离期望值"
	}
}
