// Package fairness 计算值班比例与每位住院医师的期望班次数
package fairness

import (
	apperrors "github.com/paiban/callrota/pkg/errors"
	"github.com/paiban/callrota/pkg/registry"
)

// WeekendShare 周末占一周的比例
const WeekendShare = 2.0 / 7.0

// Tolerance 期望值两侧的容差
const Tolerance = 1.0

// Target 期望值及其取整后的上下界
type Target struct {
	Expected float64 `json:"expected"`
	Lower    int     `json:"lower"`
	Upper    int     `json:"upper"`
}

// NewTarget 以 ±Tolerance 构造区间，边界向零截断
func NewTarget(expected float64) Target {
	return Target{
		Expected: expected,
		Lower:    int(expected - Tolerance),
		Upper:    int(expected + Tolerance),
	}
}

// Calculator 公平性计算器
type Calculator struct {
	reg        *registry.Registry
	multiplier float64
	ratio      float64
}

// New 计算全局值班比例。
// 比例 = 需排班天数 / Σ(1 + t·(m−1))·(需排班天数 − 休假天数)
func New(reg *registry.Registry, multiplier float64) (*Calculator, error) {
	if multiplier < 1 {
		return nil, apperrors.Configuration("高强度轮转系数必须 >= 1，当前为 %v", multiplier)
	}

	fillable := reg.FillableDays()
	var denominator float64
	for _, r := range reg.Residents() {
		weight := 1.0
		if r.HighAcuity() {
			weight += multiplier - 1
		}
		denominator += weight * float64(fillable-r.VacationCount())
	}
	if denominator <= 0 {
		return nil, apperrors.Configuration("没有可用的人天，无法计算值班比例").
			WithField("fillable_days", fillable).
			WithField("residents", reg.Len())
	}

	return &Calculator{
		reg:        reg,
		multiplier: multiplier,
		ratio:      float64(fillable) / denominator,
	}, nil
}

// CallRatio 每单位权重的期望值班比例
func (c *Calculator) CallRatio() float64 {
	return c.ratio
}

// Multiplier 高强度轮转系数
func (c *Calculator) Multiplier() float64 {
	return c.multiplier
}

// ExpectedTotal 期望的夜班（最后一个班次）总数；手工指定时直接使用指定值
func (c *Calculator) ExpectedTotal(r *registry.Resident) Target {
	if v, ok := r.Override(); ok {
		return NewTarget(v)
	}

	expected := float64(c.reg.Calendar().Horizon()-r.VacationCount()) * c.ratio
	if r.HighAcuity() {
		expected *= c.multiplier
	}
	return NewTarget(expected)
}

// ExpectedWeekend 期望的周末/节假日白班数
func (c *Calculator) ExpectedWeekend(r *registry.Resident) Target {
	return NewTarget(c.ExpectedTotal(r).Expected * WeekendShare)
}

// TraumaShare 高强度轮转住院医师在工作日承担白班的期望份额。
// 份额 = (工作日数 − 缺勤天数) × 工作日数 / 高强度轮转可用人天
func (c *Calculator) TraumaShare(r *registry.Resident) (Target, error) {
	working := c.reg.Calendar().WorkingDays()

	available := 0
	for _, tr := range c.reg.Residents() {
		if !tr.HighAcuity() {
			continue
		}
		for _, d := range working {
			if !tr.OnVacation(d) {
				available++
			}
		}
	}
	if available == 0 {
		return Target{}, apperrors.Configuration("没有可承担工作日白班的高强度轮转住院医师")
	}

	present := false
	for _, d := range working {
		if !r.OnVacation(d) {
			present = true
			break
		}
	}
	if !present {
		return NewTarget(0), nil
	}

	ratio := float64(len(working)) / float64(available)
	return NewTarget(float64(len(working)-r.VacationCount()) * ratio), nil
}
