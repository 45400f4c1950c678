// Package model 定义值班排班的核心数据模型
package model

// Classification 住院医师分组，决定适用的规则集
type Classification string

const (
	ClassificationJunior Classification = "junior" // 低年资
	ClassificationSenior Classification = "senior" // 高年资
)

// Valid 检查分组是否合法
func (c Classification) Valid() bool {
	return c == ClassificationJunior || c == ClassificationSenior
}

// 默认参数
const (
	DefaultHorizon               = 28
	DefaultMaxShiftsPerWeek      = 1
	DefaultRepeatedFridayPenalty = 5
	DefaultHighAcuityMultiplier  = 2.0
	DefaultHalfDayWeekday        = "wednesday"
	DefaultFullDayPenalty        = 2
	DefaultDispersionFactor      = 1
)

// DefaultShifts 默认班次：白班在前，夜班在后
func DefaultShifts() []string {
	return []string{"day", "night"}
}

// Claim 预先认领的 (天, 班次)
type Claim struct {
	Day   int    `json:"day" yaml:"day" validate:"gte=0"`
	Shift string `json:"shift" yaml:"shift" validate:"required"`
}

// ResidentConfig 住院医师配置，每人一条
type ResidentConfig struct {
	Name              string   `json:"name" yaml:"name" validate:"required"`
	VacationDays      []int    `json:"vacation_days,omitempty" yaml:"vacation_days,omitempty" validate:"dive,gte=0"`
	OnHighAcuity      bool     `json:"on_high_acuity" yaml:"on_high_acuity"`
	OnFixedCommitment bool     `json:"on_fixed_commitment" yaml:"on_fixed_commitment"`
	ShiftOverride     *float64 `json:"manual_shift_override,omitempty" yaml:"manual_shift_override,omitempty" validate:"omitempty,gte=0"`
	Claims            []Claim  `json:"claimed,omitempty" yaml:"claimed,omitempty" validate:"dive"`
}

// SchedulingConfig 单次排班配置
type SchedulingConfig struct {
	StartDate             string         `json:"start_date" yaml:"start_date" validate:"required,datetime=2006-01-02"`
	Horizon               int            `json:"horizon" yaml:"horizon" validate:"gt=0,lte=366"`
	NoFill                []int          `json:"nofill,omitempty" yaml:"nofill,omitempty" validate:"dive,gte=0"`
	Holidays              []int          `json:"holidays,omitempty" yaml:"holidays,omitempty" validate:"dive,gte=0"`
	Shifts                []string       `json:"shifts" yaml:"shifts" validate:"min=1,unique,dive,required"`
	MaxShiftsPerWeek      int            `json:"max_shifts_per_week" yaml:"max_shifts_per_week" validate:"gte=0"`
	RepeatedFridayPenalty int            `json:"extra_friday_penalty" yaml:"extra_friday_penalty" validate:"gte=0"`
	Classification        Classification `json:"classification" yaml:"classification" validate:"required,oneof=junior senior"`

	// 以下为规则参数，一般保持默认
	HighAcuityMultiplier float64 `json:"high_acuity_multiplier" yaml:"high_acuity_multiplier" validate:"gte=1"`
	HalfDayWeekday       string  `json:"half_day_weekday" yaml:"half_day_weekday" validate:"oneof=monday tuesday wednesday thursday friday saturday sunday"`
	FullDayPenalty       int     `json:"full_day_penalty" yaml:"full_day_penalty" validate:"gte=0"`
	DispersionFactor     int     `json:"dispersion_factor" yaml:"dispersion_factor" validate:"gte=0"`

	Residents []ResidentConfig `json:"residents" yaml:"residents" validate:"min=1,dive"`
}

// DefaultSchedulingConfig 返回默认配置；解码 YAML/JSON 时以此为底
func DefaultSchedulingConfig() SchedulingConfig {
	return SchedulingConfig{
		Horizon:               DefaultHorizon,
		Shifts:                DefaultShifts(),
		MaxShiftsPerWeek:      DefaultMaxShiftsPerWeek,
		RepeatedFridayPenalty: DefaultRepeatedFridayPenalty,
		Classification:        ClassificationJunior,
		HighAcuityMultiplier:  DefaultHighAcuityMultiplier,
		HalfDayWeekday:        DefaultHalfDayWeekday,
		FullDayPenalty:        DefaultFullDayPenalty,
		DispersionFactor:      DefaultDispersionFactor,
	}
}

// FirstShift 白班（受资格限制的班次）
func (c *SchedulingConfig) FirstShift() string {
	return c.Shifts[0]
}

// LastShift 夜班（适用相邻与蕴含规则的班次）
func (c *SchedulingConfig) LastShift() string {
	return c.Shifts[len(c.Shifts)-1]
}
