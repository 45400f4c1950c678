// Package constraints 规则目录：列出各分组规则集中的规则及其可配置参数
package constraints

import (
	"strconv"

	apperrors "github.com/paiban/callrota/pkg/errors"
	"github.com/paiban/callrota/pkg/model"
	"github.com/paiban/callrota/pkg/scheduler/constraint"
	"github.com/paiban/callrota/pkg/scheduler/constraint/builtin"
)

// ConstraintParam 规则参数，对应排班配置中的字段
type ConstraintParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // int, float, string
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
	Min         string `json:"min,omitempty"`
}

// ConstraintDefinition 规则定义
type ConstraintDefinition struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Type        string            `json:"type"`     // hard 硬约束, soft 软约束
	Category    string            `json:"category"` // 编译槽位
	Description string            `json:"description"`
	Params      []ConstraintParam `json:"params"`
}

// PolicyCatalog 单个分组的规则目录
type PolicyCatalog struct {
	Policy         string                 `json:"policy"`
	Classification model.Classification   `json:"classification"`
	Rules          []ConstraintDefinition `json:"rules"`
}

type ruleDoc struct {
	description string
	params      func(cfg *model.SchedulingConfig) []ConstraintParam
}

var docs = map[constraint.Type]ruleDoc{
	constraint.TypeVacation: {
		description: "休假日不安排任何班次。",
	},
	constraint.TypeNoFill: {
		description: "无需排班的日期所有班次留空。",
	},
	constraint.TypeHalfDay: {
		description: "有固定任务的住院医师在教学半天所在的工作日不排班。",
		params: func(cfg *model.SchedulingConfig) []ConstraintParam {
			return []ConstraintParam{
				{Name: "half_day_weekday", Type: "string", Description: "教学半天所在星期", Default: cfg.HalfDayWeekday},
			}
		},
	},
	constraint.TypeDayCall: {
		description: "工作日白班只能由高强度轮转住院医师承担。",
	},
	constraint.TypeClaims: {
		description: "预先认领的班次必须排给认领人。",
	},
	constraint.TypePostCall: {
		description: "夜班次日不安排任何班次。",
	},
	constraint.TypeFridayPairing: {
		description: "周五夜班的住院医师在配对日也必须值班。",
	},
	constraint.TypeCoverage: {
		description: "每个可排班日的每个班次恰好一人值班。",
	},
	constraint.TypeTotalCount: {
		description: "每人夜班总数落在期望值 ±1 内；期望值按可用天数分摊。",
		params: func(cfg *model.SchedulingConfig) []ConstraintParam {
			return []ConstraintParam{
				{Name: "high_acuity_multiplier", Type: "float", Description: "高强度轮转住院医师的夜班份额系数", Default: formatFloat(cfg.HighAcuityMultiplier), Min: "1"},
			}
		},
	},
	constraint.TypeWeekendCount: {
		description: "每人周末及节假日白班数落在期望值 ±1 内。",
	},
	constraint.TypeTraumaBalance: {
		description: "高强度轮转住院医师的工作日白班按可用天数分摊。",
	},
	constraint.TypeFullDay: {
		description: "同一天只值白班或只值夜班时计入惩罚。",
		params: func(cfg *model.SchedulingConfig) []ConstraintParam {
			return []ConstraintParam{
				{Name: "full_day_penalty", Type: "int", Description: "每次拆开值班的惩罚", Default: strconv.Itoa(cfg.FullDayPenalty), Min: "0"},
			}
		},
	},
	constraint.TypeRepeatedFriday: {
		description: "连续两周值周五夜班时计入惩罚。",
		params: func(cfg *model.SchedulingConfig) []ConstraintParam {
			return []ConstraintParam{
				{Name: "extra_friday_penalty", Type: "int", Description: "每次连续周五夜班的惩罚", Default: strconv.Itoa(cfg.RepeatedFridayPenalty), Min: "0"},
			}
		},
	},
	constraint.TypeDispersion: {
		description: "每周班次数超过上限时按超出量计入惩罚。",
		params: func(cfg *model.SchedulingConfig) []ConstraintParam {
			return []ConstraintParam{
				{Name: "max_shifts_per_week", Type: "int", Description: "每周班次上限", Default: strconv.Itoa(cfg.MaxShiftsPerWeek), Min: "0"},
				{Name: "dispersion_factor", Type: "int", Description: "超出部分每个班次的惩罚", Default: strconv.Itoa(cfg.DispersionFactor), Min: "0"},
			}
		},
	},
}

// Catalog 返回某个分组的规则目录，按编译顺序排列
func Catalog(classification model.Classification) (*PolicyCatalog, error) {
	cfg := model.DefaultSchedulingConfig()
	cfg.Classification = classification
	policy, err := builtin.PolicyFor(&cfg)
	if err != nil {
		return nil, err
	}

	catalog := &PolicyCatalog{
		Policy:         policy.Name(),
		Classification: classification,
		Rules:          make([]ConstraintDefinition, 0),
	}
	for _, slot := range constraint.Slots() {
		for _, rule := range policy.Slot(slot) {
			catalog.Rules = append(catalog.Rules, define(rule, slot, &cfg))
		}
	}
	return catalog, nil
}

// GetLibrary 返回所有分组的规则目录
func GetLibrary() ([]*PolicyCatalog, error) {
	var library []*PolicyCatalog
	for _, c := range []model.Classification{model.ClassificationJunior, model.ClassificationSenior} {
		catalog, err := Catalog(c)
		if err != nil {
			return nil, err
		}
		library = append(library, catalog)
	}
	return library, nil
}

// Lookup 按分组和规则类型查找定义
func Lookup(classification model.Classification, t constraint.Type) (*ConstraintDefinition, error) {
	catalog, err := Catalog(classification)
	if err != nil {
		return nil, err
	}
	for i := range catalog.Rules {
		if catalog.Rules[i].Name == string(t) {
			return &catalog.Rules[i], nil
		}
	}
	return nil, apperrors.NotFound("规则", string(t))
}

func define(rule constraint.Rule, slot constraint.Slot, cfg *model.SchedulingConfig) ConstraintDefinition {
	def := ConstraintDefinition{
		Name:        string(rule.Type()),
		DisplayName: rule.Name(),
		Type:        string(rule.Category()),
		Category:    string(slot),
		Params:      make([]ConstraintParam, 0),
	}
	if doc, ok := docs[rule.Type()]; ok {
		def.Description = doc.description
		if doc.params != nil {
			def.Params = doc.params(cfg)
		}
	}
	return def
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
