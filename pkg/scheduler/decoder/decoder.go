// Package decoder 将求解结果投影为值班表
package decoder

import (
	apperrors "github.com/paiban/callrota/pkg/errors"
	"github.com/paiban/callrota/pkg/engine"
	"github.com/paiban/callrota/pkg/model"
	"github.com/paiban/callrota/pkg/scheduler/constraint"
)

// Decode 读取排班变量的取值生成值班表。
// 只接受 OPTIMAL/FEASIBLE 结果；不修改模型，重复调用结果相同。
func Decode(b *constraint.Builder, resp *engine.Response) (*model.Roster, error) {
	if resp == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "求解结果为空")
	}
	switch {
	case resp.Status == engine.StatusUnknown:
		return nil, apperrors.Timeout("求解预算内未找到可行解")
	case resp.Status == engine.StatusModelInvalid:
		return nil, apperrors.New(apperrors.CodeModelInvalid, "约束模型无效")
	case !resp.HasSolution():
		return nil, apperrors.NoFeasibleSolution(string(resp.Status))
	}

	reg := b.Registry()
	cal := b.Calendar()
	shifts := reg.Shifts()
	horizon := cal.Horizon()
	first := reg.FirstShift()

	roster := &model.Roster{
		Status:    model.SolveStatus(resp.Status),
		Objective: resp.Objective,
		StartDate: cal.Start(),
		Shifts:    shifts,
		Residents: make([]model.ResidentRoster, 0, reg.Len()),
		Days:      make([]model.DaySlots, horizon),
	}

	for d := 0; d < horizon; d++ {
		roster.Days[d] = model.DaySlots{
			Day:              d,
			Date:             cal.Date(d).Format("2006-01-02"),
			Weekday:          cal.Weekday(d).String(),
			NoFill:           reg.IsNoFill(d),
			WeekendOrHoliday: cal.IsWeekendOrHoliday(d),
			Holders:          make([]string, len(shifts)),
		}
	}

	for _, r := range reg.Residents() {
		rr := model.ResidentRoster{
			Name:          r.Name(),
			ShiftCounts:   make(map[string]int, len(shifts)),
			ExpectedTotal: b.Fairness().ExpectedTotal(r).Expected,
			Assigned:      make([][]bool, horizon),
		}
		for _, label := range shifts {
			rr.ShiftCounts[label] = 0
		}
		for d := 0; d < horizon; d++ {
			rr.Assigned[d] = make([]bool, len(shifts))
			for s, label := range shifts {
				if !resp.BoolValue(b.Assign(r, d, s)) {
					continue
				}
				rr.Assigned[d][s] = true
				rr.ShiftCounts[label]++
				rr.Total++
				if s == first && cal.IsWeekendOrHoliday(d) {
					rr.WeekendFirstShifts++
				}
				roster.Days[d].Holders[s] = r.Name()
			}
		}
		roster.Residents = append(roster.Residents, rr)
	}

	breakdown := b.Penalties().Breakdown(resp)
	roster.Penalties = model.PenaltySummary{
		Total:      breakdown.Total,
		ByKind:     make(map[string]int64, len(breakdown.ByKind)),
		ByResident: make(map[string]int64, len(breakdown.ByResident)),
	}
	for k, v := range breakdown.ByKind {
		roster.Penalties.ByKind[string(k)] = v
	}
	for i, v := range breakdown.ByResident {
		roster.Penalties.ByResident[reg.Resident(i).Name()] = v
	}
	return roster, nil
}
