// Package builtin 提供内置规则实现与轮转规则集
package builtin

import (
	"github.com/paiban/callrota/pkg/scheduler/constraint"
)

// BaseRule 规则基类
type BaseRule struct {
	name     string
	typ      constraint.Type
	category constraint.Category
}

// NewBaseRule 创建基础规则
func NewBaseRule(name string, typ constraint.Type, cat constraint.Category) *BaseRule {
	return &BaseRule{
		name:     name,
		typ:      typ,
		category: cat,
	}
}

// Name 返回规则名称
func (r *BaseRule) Name() string { return r.name }

// Type 返回规则类型
func (r *BaseRule) Type() constraint.Type { return r.typ }

// Category 返回规则类别
func (r *BaseRule) Category() constraint.Category { return r.category }

// constraintName 生成约束名称前缀
func (r *BaseRule) constraintName() string { return string(r.typ) }
