package model

import "time"

// SolveStatus 求解状态
type SolveStatus string

const (
	StatusOptimal    SolveStatus = "OPTIMAL"
	StatusFeasible   SolveStatus = "FEASIBLE"
	StatusInfeasible SolveStatus = "INFEASIBLE"
	StatusUnknown    SolveStatus = "UNKNOWN"
	StatusInvalid    SolveStatus = "MODEL_INVALID"
)

// Usable 是否为可用的排班结果
func (s SolveStatus) Usable() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// Roster 解码后的值班表，只在求解得到可行解后生成
type Roster struct {
	Status    SolveStatus      `json:"status"`
	Objective int64            `json:"objective"`
	StartDate time.Time        `json:"start_date"`
	Shifts    []string         `json:"shifts"`
	Residents []ResidentRoster `json:"residents"`
	Days      []DaySlots       `json:"days"`
	Penalties PenaltySummary   `json:"penalties"`
}

// ResidentRoster 单个住院医师的排班
type ResidentRoster struct {
	Name               string         `json:"name"`
	ShiftCounts        map[string]int `json:"shift_counts"`
	Total              int            `json:"total"`
	WeekendFirstShifts int            `json:"weekend_first_shifts"`
	ExpectedTotal      float64        `json:"expected_total"`
	// Assigned[day][shift]
	Assigned [][]bool `json:"assigned"`
}

// DaySlots 某一天的各班次值班人，空字符串表示无人
type DaySlots struct {
	Day              int      `json:"day"`
	Date             string   `json:"date"`
	Weekday          string   `json:"weekday"`
	NoFill           bool     `json:"nofill,omitempty"`
	WeekendOrHoliday bool     `json:"weekend_or_holiday,omitempty"`
	Holders          []string `json:"holders"`
}

// PenaltySummary 目标函数分项
type PenaltySummary struct {
	Total      int64            `json:"total"`
	ByKind     map[string]int64 `json:"by_kind"`
	ByResident map[string]int64 `json:"by_resident"`
}

// Resident 按姓名查找
func (r *Roster) Resident(name string) *ResidentRoster {
	for i := range r.Residents {
		if r.Residents[i].Name == name {
			return &r.Residents[i]
		}
	}
	return nil
}

// Holder 返回某天某班次的值班人
func (r *Roster) Holder(day int, shift string) (string, bool) {
	if day < 0 || day >= len(r.Days) {
		return "", false
	}
	for i, s := range r.Shifts {
		if s == shift {
			h := r.Days[day].Holders[i]
			return h, h != ""
		}
	}
	return "", false
}

// Weeks 按 7 天分组，便于逐周展示
func (r *Roster) Weeks() [][]DaySlots {
	var weeks [][]DaySlots
	for start := 0; start < len(r.Days); start += 7 {
		end := start + 7
		if end > len(r.Days) {
			end = len(r.Days)
		}
		weeks = append(weeks, r.Days[start:end])
	}
	return weeks
}

// Works 是否在某天某班次值班
func (rr *ResidentRoster) Works(day, shift int) bool {
	if day < 0 || day >= len(rr.Assigned) {
		return false
	}
	if shift < 0 || shift >= len(rr.Assigned[day]) {
		return false
	}
	return rr.Assigned[day][shift]
}

// WorksAny 是否在某天有任一班次
func (rr *ResidentRoster) WorksAny(day int) bool {
	if day < 0 || day >= len(rr.Assigned) {
		return false
	}
	for _, v := range rr.Assigned[day] {
		if v {
			return true
		}
	}
	return false
}
