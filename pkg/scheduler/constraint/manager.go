package constraint

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/paiban/callrota/pkg/model"
)

// Policy 轮转规则集
//
// 按槽位保存规则；编译时依次执行资格、覆盖、相邻、公平性槽位。
type Policy struct {
	name           string
	classification model.Classification
	slots          map[Slot][]Rule
	mu             sync.RWMutex
}

// NewPolicy 创建空规则集
func NewPolicy(name string, classification model.Classification) *Policy {
	return &Policy{
		name:           name,
		classification: classification,
		slots:          make(map[Slot][]Rule),
	}
}

// Name 规则集名称
func (p *Policy) Name() string { return p.name }

// Classification 适用的住院医师分组
func (p *Policy) Classification() model.Classification { return p.classification }

// Register 注册规则；同类型规则已存在时替换
func (p *Policy) Register(slot Slot, rule Rule) error {
	switch rule.(type) {
	case ResidentRule, GlobalRule:
	default:
		return fmt.Errorf("规则 %s 既不是逐人规则也不是全局规则", rule.Name())
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for s, rules := range p.slots {
		for i, existing := range rules {
			if existing.Type() == rule.Type() {
				p.slots[s] = append(rules[:i:i], rules[i+1:]...)
				break
			}
		}
	}
	p.slots[slot] = append(p.slots[slot], rule)
	return nil
}

// MustRegister 注册规则，失败时 panic
func (p *Policy) MustRegister(slot Slot, rule Rule) {
	if err := p.Register(slot, rule); err != nil {
		panic(err)
	}
}

// Unregister 注销规则
func (p *Policy) Unregister(t Type) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for s, rules := range p.slots {
		for i, r := range rules {
			if r.Type() == t {
				p.slots[s] = append(rules[:i:i], rules[i+1:]...)
				return
			}
		}
	}
}

// Get 获取规则
func (p *Policy) Get(t Type) Rule {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, rules := range p.slots {
		for _, r := range rules {
			if r.Type() == t {
				return r
			}
		}
	}
	return nil
}

// Slot 获取某槽位的规则
func (p *Policy) Slot(slot Slot) []Rule {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return append([]Rule(nil), p.slots[slot]...)
}

// GetAll 按编译顺序返回所有规则
func (p *Policy) GetAll() []Rule {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var result []Rule
	for _, slot := range Slots() {
		result = append(result, p.slots[slot]...)
	}
	return result
}

// GetByCategory 按类别获取规则
func (p *Policy) GetByCategory(cat Category) []Rule {
	var result []Rule
	for _, r := range p.GetAll() {
		if r.Category() == cat {
			result = append(result, r)
		}
	}
	return result
}

// Types 所有规则类型（排序后）
func (p *Policy) Types() []Type {
	var types []Type
	for _, r := range p.GetAll() {
		types = append(types, r.Type())
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Compile 将规则集编译进模型并设置目标函数
func (p *Policy) Compile(b *Builder) error {
	start := time.Now()
	reg := b.Registry()
	b.Logger().StartCompile(string(p.classification), reg.Len(), b.Calendar().Horizon(), reg.NumShifts())

	for _, rule := range p.GetAll() {
		switch r := rule.(type) {
		case GlobalRule:
			if err := r.ApplyGlobal(b); err != nil {
				return fmt.Errorf("编译规则 %s 失败: %w", r.Name(), err)
			}
		case ResidentRule:
			for _, res := range reg.Residents() {
				if err := r.Apply(b, res); err != nil {
					return fmt.Errorf("编译规则 %s (%s) 失败: %w", r.Name(), res.Name(), err)
				}
			}
		}
	}

	b.Penalties().Apply(b.Model())
	b.Logger().CompileComplete(b.Model().NumVars(), b.Model().NumConstraints(), b.Penalties().Len(), time.Since(start))
	return nil
}
